package service

import (
	"context"
	"strings"
	"testing"

	"github.com/alex-zharinov/hw05-final/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_Add(t *testing.T) {
	t.Parallel()
	var saved *models.Comment
	comments := noopCommentRepo()
	comments.createFn = func(_ context.Context, c *models.Comment) error {
		saved = c
		return nil
	}
	svc := NewCommentService(comments, noopPostRepo())

	c, err := svc.Add(context.Background(), AddCommentInput{PostID: 3, AuthorID: 2, Text: " nice post "})
	require.NoError(t, err)
	assert.Same(t, saved, c)
	assert.Equal(t, "nice post", c.Text)
	assert.Equal(t, uint(3), c.PostID)
	assert.Equal(t, uint(2), c.AuthorID)
}

func TestCommentService_AddErrors(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		if id == 404 {
			return nil, models.NewNotFoundError("Post", id)
		}
		return &models.Post{ID: id}, nil
	}
	comments := noopCommentRepo()
	comments.createFn = func(_ context.Context, _ *models.Comment) error {
		t.Fatal("create must not be called")
		return nil
	}
	svc := NewCommentService(comments, posts)

	_, err := svc.Add(context.Background(), AddCommentInput{PostID: 404, AuthorID: 1, Text: "hi"})
	assertAppError(t, err, models.CodeNotFound)

	_, err = svc.Add(context.Background(), AddCommentInput{PostID: 1, AuthorID: 1, Text: "  "})
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Contains(t, appErr.Fields, "text")

	_, err = svc.Add(context.Background(), AddCommentInput{PostID: 1, Text: "hi"})
	assertAppError(t, err, models.CodeUnauthorized)
}

func TestCommentService_LengthCountsCharacters(t *testing.T) {
	t.Parallel()
	svc := NewCommentService(noopCommentRepo(), noopPostRepo())

	// Two bytes per letter: the byte length is twice the limit.
	longest := strings.Repeat("ж", maxCommentLen)
	_, err := svc.Add(context.Background(), AddCommentInput{PostID: 1, AuthorID: 1, Text: longest})
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), AddCommentInput{PostID: 1, AuthorID: 1, Text: longest + "ж"})
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Contains(t, appErr.Fields["text"], "10000")
}
