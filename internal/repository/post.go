package repository

import (
	"context"
	"errors"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows a post feed. Zero fields are ignored.
type PostFilter struct {
	GroupID  uint
	AuthorID uint
	// FollowerID restricts the feed to authors followed by this user.
	FollowerID uint
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Count(ctx context.Context, filter PostFilter) (int64, error)
	List(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) scoped(ctx context.Context, filter PostFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if filter.GroupID != 0 {
		q = q.Where("posts.group_id = ?", filter.GroupID)
	}
	if filter.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", filter.AuthorID)
	}
	if filter.FollowerID != 0 {
		following := r.db.WithContext(ctx).Model(&models.Follow{}).
			Select("author_id").
			Where("user_id = ?", filter.FollowerID)
		q = q.Where("posts.author_id IN (?)", following)
	}
	return q
}

func (r *postRepository) Count(ctx context.Context, filter PostFilter) (int64, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, r.db.Dialector.Name(), "Count", "posts")
	defer span.End()

	var total int64
	if err := r.scoped(ctx, filter).Count(&total).Error; err != nil {
		span.RecordError(err)
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, r.db.Dialector.Name(), "List", "posts")
	defer span.End()

	var posts []models.Post
	err := r.scoped(ctx, filter).
		Preload("Author").
		Preload("Group").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		span.RecordError(err)
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Update writes the mutable columns (text, group, image) of an existing post.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}
