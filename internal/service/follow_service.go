package service

import (
	"context"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/observability"
	"github.com/alex-zharinov/hw05-final/internal/repository"
)

// FollowService manages follow edges between users.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

// Follow makes followerID follow the user named target. Following yourself is a
// no-op and following twice is not an error. It reports whether an edge was created.
func (s *FollowService) Follow(ctx context.Context, followerID uint, target string) (created bool, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FollowService", "Follow")
	defer func() { span.End(err) }()

	follower, err := s.userRepo.GetByID(ctx, followerID)
	if err != nil {
		if models.IsNotFound(err) {
			return false, models.NewUnauthorizedError("login required")
		}
		return false, err
	}
	if follower.Username == target {
		return false, nil
	}

	author, err := s.userRepo.GetByUsername(ctx, target)
	if err != nil {
		return false, err
	}

	created, err = s.followRepo.GetOrCreate(ctx, follower.ID, author.ID)
	if err != nil {
		return false, err
	}
	if created {
		observability.FollowChanges.WithLabelValues("follow").Inc()
	}
	return created, nil
}

// Unfollow removes every follow edge pointing at the user named target, whoever
// the follower is, and returns how many edges were removed.
func (s *FollowService) Unfollow(ctx context.Context, target string) (removed int64, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FollowService", "Unfollow")
	defer func() { span.End(err) }()

	author, err := s.userRepo.GetByUsername(ctx, target)
	if err != nil {
		return 0, err
	}
	removed, err = s.followRepo.DeleteByAuthor(ctx, author.ID)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		observability.FollowChanges.WithLabelValues("unfollow").Add(float64(removed))
	}
	return removed, nil
}

// IsFollowing reports whether followerID follows authorID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error) {
	if followerID == 0 {
		return false, nil
	}
	return s.followRepo.Exists(ctx, followerID, authorID)
}
