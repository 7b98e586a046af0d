package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	countFn   func(context.Context, repository.PostFilter) (int64, error)
	listFn    func(context.Context, repository.PostFilter, int, int) ([]models.Post, error)
	getByIDFn func(context.Context, uint) (*models.Post, error)
	createFn  func(context.Context, *models.Post) error
	updateFn  func(context.Context, *models.Post) error
}

func (s *postRepoStub) Count(ctx context.Context, f repository.PostFilter) (int64, error) {
	return s.countFn(ctx, f)
}
func (s *postRepoStub) List(ctx context.Context, f repository.PostFilter, limit, offset int) ([]models.Post, error) {
	return s.listFn(ctx, f, limit, offset)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		countFn:   func(_ context.Context, _ repository.PostFilter) (int64, error) { return 0, nil },
		listFn:    func(_ context.Context, _ repository.PostFilter, _, _ int) ([]models.Post, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		updateFn: func(_ context.Context, _ *models.Post) error { return nil },
	}
}

// groupRepoStub is a stub for repository.GroupRepository.
type groupRepoStub struct {
	getBySlugFn func(context.Context, string) (*models.Group, error)
	getByIDFn   func(context.Context, uint) (*models.Group, error)
	listFn      func(context.Context) ([]models.Group, error)
	createFn    func(context.Context, *models.Group) error
}

func (s *groupRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *groupRepoStub) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	return s.getByIDFn(ctx, id)
}
func (s *groupRepoStub) List(ctx context.Context) ([]models.Group, error) {
	return s.listFn(ctx)
}
func (s *groupRepoStub) Create(ctx context.Context, g *models.Group) error {
	return s.createFn(ctx, g)
}

func noopGroupRepo() *groupRepoStub {
	return &groupRepoStub{
		getBySlugFn: func(_ context.Context, slug string) (*models.Group, error) {
			return nil, models.NewNotFoundError("Group", slug)
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Group, error) {
			return nil, models.NewNotFoundError("Group", id)
		},
		listFn:   func(_ context.Context) ([]models.Group, error) { return nil, nil },
		createFn: func(_ context.Context, _ *models.Group) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	listFn          func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

// usersByName serves lookups from a fixed set of users.
func usersByName(users ...models.User) *userRepoStub {
	find := func(match func(models.User) bool, key any) (*models.User, error) {
		for i := range users {
			if match(users[i]) {
				u := users[i]
				return &u, nil
			}
		}
		return nil, models.NewNotFoundError("User", key)
	}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return find(func(u models.User) bool { return u.ID == id }, id)
		},
		getByUsernameFn: func(_ context.Context, name string) (*models.User, error) {
			return find(func(u models.User) bool { return u.Username == name }, name)
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return find(func(u models.User) bool { return u.Email == email }, email)
		},
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = uint(len(users) + 1)
			return nil
		},
		listFn: func(_ context.Context, _, _ int) ([]models.User, error) { return users, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	listByPostFn func(context.Context, uint) ([]models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		listByPostFn: func(_ context.Context, _ uint) ([]models.Comment, error) { return nil, nil },
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	getOrCreateFn    func(context.Context, uint, uint) (bool, error)
	existsFn         func(context.Context, uint, uint) (bool, error)
	deleteByAuthorFn func(context.Context, uint) (int64, error)
}

func (s *followRepoStub) GetOrCreate(ctx context.Context, userID, authorID uint) (bool, error) {
	return s.getOrCreateFn(ctx, userID, authorID)
}
func (s *followRepoStub) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	return s.existsFn(ctx, userID, authorID)
}
func (s *followRepoStub) DeleteByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.deleteByAuthorFn(ctx, authorID)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		getOrCreateFn:    func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		existsFn:         func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		deleteByAuthorFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// assertAppError asserts that err is an AppError carrying code.
func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}
