package repository

import (
	"context"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/observability"

	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow edge operations
type FollowRepository interface {
	// GetOrCreate makes sure the edge user -> author exists and reports whether it was created.
	GetOrCreate(ctx context.Context, userID, authorID uint) (bool, error)
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
	// DeleteByAuthor removes every edge pointing at authorID and returns how many were removed.
	DeleteByAuthor(ctx context.Context, authorID uint) (int64, error)
}

// followRepository implements FollowRepository
type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) GetOrCreate(ctx context.Context, userID, authorID uint) (bool, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, r.db.Dialector.Name(), "GetOrCreate", "follows")
	defer span.End()

	follow := models.Follow{}
	result := r.db.WithContext(ctx).
		Where(models.Follow{UserID: userID, AuthorID: authorID}).
		FirstOrCreate(&follow)
	if result.Error != nil {
		// A concurrent request created the same edge between our read and write.
		if isUniqueViolation(result.Error) {
			return false, nil
		}
		span.RecordError(result.Error)
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) DeleteByAuthor(ctx context.Context, authorID uint) (int64, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, r.db.Dialector.Name(), "DeleteByAuthor", "follows")
	defer span.End()

	result := r.db.WithContext(ctx).Where("author_id = ?", authorID).Delete(&models.Follow{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, models.NewInternalError(result.Error)
	}
	return result.RowsAffected, nil
}
