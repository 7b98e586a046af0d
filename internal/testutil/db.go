package testutil

import (
	"fmt"
	"testing"

	"github.com/alex-zharinov/hw05-final/internal/database"
	"github.com/alex-zharinov/hw05-final/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPassword is the plain-text password of every fixture user.
const DefaultPassword = "correct-horse-battery"

// NewTestDB opens a private in-memory SQLite database with the full schema.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user whose password is DefaultPassword.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreateGroup inserts a group.
func CreateGroup(t testing.TB, db *gorm.DB, title, slug string) *models.Group {
	t.Helper()
	group := &models.Group{Title: title, Slug: slug, Description: "Описание " + title}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("create group %s: %v", slug, err)
	}
	return group
}

// CreatePost inserts a post by author, optionally in group.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, group *models.Group, text string) *models.Post {
	t.Helper()
	post := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		post.GroupID = &group.ID
	}
	if err := db.Omit("Author", "Group").Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	post.Author = *author
	post.Group = group
	return post
}

// CreatePosts inserts n posts and returns them in insertion order.
func CreatePosts(t testing.TB, db *gorm.DB, author *models.User, group *models.Group, n int) []*models.Post {
	t.Helper()
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, CreatePost(t, db, author, group, fmt.Sprintf("Тестовый пост %d", i)))
	}
	return posts
}

// CreateComment inserts a comment by author on post.
func CreateComment(t testing.TB, db *gorm.DB, post *models.Post, author *models.User, text string) *models.Comment {
	t.Helper()
	comment := &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: text}
	if err := db.Omit("Author", "Post").Create(comment).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	comment.Author = *author
	return comment
}

// CreateFollow inserts the follow edge user -> author.
func CreateFollow(t testing.TB, db *gorm.DB, user, author *models.User) {
	t.Helper()
	if err := db.Create(&models.Follow{UserID: user.ID, AuthorID: author.ID}).Error; err != nil {
		t.Fatalf("create follow: %v", err)
	}
}
