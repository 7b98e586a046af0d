// Package seed fills a database with demo data: the bundled groups and fake users,
// posts, comments and follow edges. Intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/alex-zharinov/hw05-final/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every generated user.
const DemoPassword = "yatube-demo-password"

// Options configures a seeding run.
type Options struct {
	NumUsers       int
	NumPosts       int
	NumComments    int
	FollowsPerUser int
	// MaxDays spreads post dates over this many days back from now.
	MaxDays int
	// ShouldClean removes existing users, posts, comments and follows first.
	ShouldClean bool
	// RandSeed makes the generated data reproducible when non-zero.
	RandSeed int64
	// HashCost overrides the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

// DefaultOptions are used by `yatubectl seed` without flags.
func DefaultOptions() Options {
	return Options{
		NumUsers:       10,
		NumPosts:       60,
		NumComments:    120,
		FollowsPerUser: 3,
		MaxDays:        90,
	}
}

// Summary reports what a run created.
type Summary struct {
	Groups   int
	Users    int
	Posts    int
	Comments int
	Follows  int
}

// Seed creates the bundled groups and the fake content described by opts.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	logger := slog.Default()
	logger.InfoContext(ctx, "starting database seeding",
		"users", opts.NumUsers, "posts", opts.NumPosts, "comments", opts.NumComments)

	if opts.ShouldClean {
		if err := clearData(ctx, db); err != nil {
			return nil, fmt.Errorf("clear existing data: %w", err)
		}
	}

	fixtures, err := DefaultGroups()
	if err != nil {
		return nil, err
	}
	groups, err := Groups(ctx, db, fixtures)
	if err != nil {
		return nil, fmt.Errorf("seed groups: %w", err)
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Groups: len(groups)}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		logger.InfoContext(ctx, "database seeding completed", "groups", sum.Groups)
		return sum, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.faker.Number(0, len(users)-1)]
		var group *models.Group
		// Roughly a third of posts are published outside any group.
		if len(groups) > 0 && f.faker.Number(0, 2) > 0 {
			group = &groups[f.faker.Number(0, len(groups)-1)]
		}
		posts = append(posts, f.BuildPost(author, group))
	}
	if err := f.CreatePostsBatch(ctx, posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	sum.Posts = len(posts)

	if len(posts) > 0 {
		for i := 0; i < opts.NumComments; i++ {
			post := posts[f.faker.Number(0, len(posts)-1)]
			author := users[f.faker.Number(0, len(users)-1)]
			if _, err := f.CreateComment(ctx, post, author); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			sum.Comments++
		}
	}

	follows, err := f.CreateFollows(ctx, users, opts.FollowsPerUser)
	if err != nil {
		return nil, fmt.Errorf("create follows: %w", err)
	}
	sum.Follows = follows

	logger.InfoContext(ctx, "database seeding completed",
		"groups", sum.Groups, "users", sum.Users, "posts", sum.Posts,
		"comments", sum.Comments, "follows", sum.Follows)
	return sum, nil
}

func clearData(ctx context.Context, db *gorm.DB) error {
	slog.Default().InfoContext(ctx, "clearing existing data")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.User{}} {
			if err := all.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Factory builds domain entities with fake content and persists them.
type Factory struct {
	db       *gorm.DB
	opts     Options
	faker    *gofakeit.Faker
	password string
	seq      int
}

// NewFactory creates a Factory. The demo password is hashed once per factory.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cost := opts.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	return &Factory{
		db:       db,
		opts:     opts,
		faker:    gofakeit.New(seed),
		password: string(hashed),
	}, nil
}

// CreateUser persists a user with a fake name. Optional overrides run before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	f.seq++
	username := fmt.Sprintf("%s%d", usernameSafe(f.faker.Username()), f.seq)
	user := &models.User{
		Username:  username,
		Email:     fmt.Sprintf("%s@example.com", username),
		Password:  f.password,
		FirstName: f.faker.FirstName(),
		LastName:  f.faker.LastName(),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// usernameSafe drops characters the signup form would reject.
func usernameSafe(s string) string {
	out := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			return r
		}
		return -1
	}, s)
	if out == "" {
		return "user"
	}
	return strings.ToLower(out)
}

// BuildPost constructs an unsaved post by author, optionally in group, dated
// somewhere within the last MaxDays days.
func (f *Factory) BuildPost(author *models.User, group *models.Group) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute

	post := &models.Post{
		Text:      f.faker.Paragraph(f.faker.Number(1, 3), f.faker.Number(2, 5), 12, "\n\n"),
		AuthorID:  author.ID,
		CreatedAt: time.Now().Add(-back),
	}
	if group != nil {
		gid := group.ID
		post.GroupID = &gid
	}
	return post
}

// CreatePostsBatch persists posts in a single statement.
func (f *Factory) CreatePostsBatch(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).Omit("Author", "Group").CreateInBatches(posts, 100).Error
}

// CreateComment persists a fake comment on post by author.
func (f *Factory) CreateComment(ctx context.Context, post *models.Post, author *models.User) (*models.Comment, error) {
	c := &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Text:     f.faker.Sentence(f.faker.Number(4, 16)),
	}
	if err := f.db.WithContext(ctx).Omit("Author", "Post").Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// CreateFollows makes every user follow up to perUser other users. Existing edges are kept.
func (f *Factory) CreateFollows(ctx context.Context, users []*models.User, perUser int) (int, error) {
	if perUser <= 0 || len(users) < 2 {
		return 0, nil
	}
	created := 0
	for _, u := range users {
		picked := 0
		for _, i := range f.faker.Rand.Perm(len(users)) {
			author := users[i]
			if author.ID == u.ID {
				continue
			}
			if picked == perUser {
				break
			}
			picked++
			res := f.db.WithContext(ctx).
				Omit("User", "Author").
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Follow{UserID: u.ID, AuthorID: author.ID})
			if res.Error != nil {
				return created, res.Error
			}
			created += int(res.RowsAffected)
		}
	}
	return created, nil
}
