package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type AddCommentInput struct {
	PostID   uint
	AuthorID uint
	Text     string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// Add attaches a comment to an existing post. An unknown post is NotFound; blank
// text is a field error on "text".
func (s *CommentService) Add(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("login required")
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewFieldErrors(map[string]string{"text": msgRequired})
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return nil, models.NewFieldErrors(map[string]string{
			"text": fmt.Sprintf("Comment too long (max %d characters).", maxCommentLen),
		})
	}

	comment := &models.Comment{
		PostID:   in.PostID,
		AuthorID: in.AuthorID,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}
