package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alex-zharinov/hw05-final/internal/cache"
	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/observability"
	"github.com/alex-zharinov/hw05-final/internal/repository"

	"github.com/redis/go-redis/v9"
)

const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
	msgClearAndFile  = "Please either submit a file or check the clear checkbox, not both."
)

// PostInput is the submitted post form. GroupID is the raw "group" field.
type PostInput struct {
	Text       string
	GroupID    string
	Image      *ImageUpload
	ClearImage bool
}

// PostDetail is everything shown on a post page.
type PostDetail struct {
	Post            *models.Post
	Comments        []models.Comment
	AuthorPostCount int64
}

type PostService struct {
	postRepo    repository.PostRepository
	groupRepo   repository.GroupRepository
	commentRepo repository.CommentRepository
	images      *ImageService
	rdb         *redis.Client
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	commentRepo repository.CommentRepository,
	images *ImageService,
	rdb *redis.Client,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		groupRepo:   groupRepo,
		commentRepo: commentRepo,
		images:      images,
		rdb:         rdb,
	}
}

// Groups lists the choices of the form's group field.
func (s *PostService) Groups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := cache.Aside(ctx, s.rdb, cache.GroupsKey, &groups, cache.GroupsTTL, func() error {
		var err error
		groups, err = s.groupRepo.List(ctx)
		return err
	})
	return groups, err
}

// Detail loads a post with its comments and the author's post count.
func (s *PostService) Detail(ctx context.Context, postID uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	count, err := s.postRepo.Count(ctx, repository.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, Comments: comments, AuthorPostCount: count}, nil
}

type validPost struct {
	text    string
	groupID *uint
	image   *CheckedImage
	clear   bool
}

func (s *PostService) validate(ctx context.Context, in PostInput, allowClear bool) (*validPost, error) {
	fields := map[string]string{}
	out := &validPost{text: strings.TrimSpace(in.Text)}

	if out.text == "" {
		fields["text"] = msgRequired
	}

	if raw := strings.TrimSpace(in.GroupID); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			fields["group"] = msgInvalidChoice
		} else if _, err := s.groupRepo.GetByID(ctx, uint(id)); err != nil {
			if !models.IsNotFound(err) {
				return nil, err
			}
			fields["group"] = msgInvalidChoice
		} else {
			gid := uint(id)
			out.groupID = &gid
		}
	}

	if in.Image != nil {
		checked, msg := s.images.Check(*in.Image)
		if msg != "" {
			fields["image"] = msg
		}
		out.image = checked
	}
	if allowClear && in.ClearImage {
		if in.Image != nil {
			fields["image"] = msgClearAndFile
		}
		out.clear = true
	}

	if len(fields) > 0 {
		return nil, models.NewFieldErrors(fields)
	}
	return out, nil
}

// Create validates the form and persists a post by authorID. The image file is
// written only after validation and removed again if the insert fails.
func (s *PostService) Create(ctx context.Context, authorID uint, in PostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "Create")
	defer func() { span.End(err) }()

	if authorID == 0 {
		return nil, models.NewUnauthorizedError("login required")
	}
	valid, err := s.validate(ctx, in, false)
	if err != nil {
		return nil, err
	}

	post = &models.Post{Text: valid.text, AuthorID: authorID, GroupID: valid.groupID}
	if valid.image != nil {
		post.Image, err = s.images.Store(ctx, valid.image)
		if err != nil {
			return nil, err
		}
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.removeImage(ctx, post.Image)
		return nil, err
	}
	observability.PostsWritten.WithLabelValues("create").Inc()
	return post, nil
}

// LoadForEdit returns the post when userID is its author and a Forbidden error otherwise.
func (s *PostService) LoadForEdit(ctx context.Context, postID, userID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, models.NewForbiddenError("only the author may edit this post")
	}
	return post, nil
}

// Edit binds the form onto the existing post. No image keeps the current one;
// ClearImage drops it. A validation error comes back with the unchanged post
// so the form can be shown again.
func (s *PostService) Edit(ctx context.Context, postID, userID uint, in PostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "Edit")
	defer func() { span.End(err) }()

	post, err = s.LoadForEdit(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	valid, err := s.validate(ctx, in, true)
	if err != nil {
		if models.ErrorCode(err) == models.CodeValidation {
			return post, err
		}
		return nil, err
	}

	oldImage := post.Image
	post.Text = valid.text
	post.GroupID = valid.groupID
	post.Group = nil
	switch {
	case valid.image != nil:
		post.Image, err = s.images.Store(ctx, valid.image)
		if err != nil {
			return nil, err
		}
	case valid.clear:
		post.Image = ""
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if post.Image != oldImage {
			s.removeImage(ctx, post.Image)
		}
		return nil, err
	}
	if oldImage != "" && post.Image != oldImage {
		s.removeImage(ctx, oldImage)
	}
	observability.PostsWritten.WithLabelValues("edit").Inc()
	return post, nil
}

func (s *PostService) removeImage(ctx context.Context, rel string) {
	if rel == "" {
		return
	}
	if err := s.images.Remove(rel); err != nil {
		slog.Default().WarnContext(ctx, "failed to remove post image", slog.String("image", rel), slog.String("error", err.Error()))
	}
}
