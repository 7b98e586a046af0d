package service

import (
	"context"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/pagination"
	"github.com/alex-zharinov/hw05-final/internal/repository"
)

// PostPage is one page of a post feed.
type PostPage = pagination.Page[models.Post]

// GroupFeed is the group page: the group and a page of its posts.
type GroupFeed struct {
	Group *models.Group
	Page  *PostPage
}

// ProfileFeed is an author's page.
type ProfileFeed struct {
	Author *models.User
	Page   *PostPage
	// Following is true when the viewer follows Author. Always false for anonymous viewers.
	Following bool
	PostCount int64
}

// FeedService composes the paginated post feeds.
type FeedService struct {
	postRepo   repository.PostRepository
	groupRepo  repository.GroupRepository
	userRepo   repository.UserRepository
	follows    *FollowService
	perPage    int
}

func NewFeedService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	follows *FollowService,
) *FeedService {
	return &FeedService{
		postRepo:   postRepo,
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		follows:    follows,
		perPage:    pagination.PostsPerPage,
	}
}

func (s *FeedService) page(ctx context.Context, filter repository.PostFilter, rawPage string) (*PostPage, error) {
	count := func(ctx context.Context) (int64, error) {
		return s.postRepo.Count(ctx, filter)
	}
	fetch := func(ctx context.Context, limit, offset int) ([]models.Post, error) {
		return s.postRepo.List(ctx, filter, limit, offset)
	}
	return pagination.Query(ctx, count, fetch, s.perPage, rawPage)
}

// Index returns a page of every post, newest first.
func (s *FeedService) Index(ctx context.Context, rawPage string) (*PostPage, error) {
	return s.page(ctx, repository.PostFilter{}, rawPage)
}

// Group returns a page of the posts of the group identified by slug.
func (s *FeedService) Group(ctx context.Context, slug, rawPage string) (*GroupFeed, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{GroupID: group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Page: page}, nil
}

// Profile returns a page of the author's posts. viewerID is 0 for anonymous requests.
func (s *FeedService) Profile(ctx context.Context, username string, viewerID uint, rawPage string) (*ProfileFeed, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	feed := &ProfileFeed{Author: author, Page: page, PostCount: int64(page.Count)}
	feed.Following, err = s.follows.IsFollowing(ctx, viewerID, author.ID)
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// Following returns a page of posts by authors the viewer follows.
func (s *FeedService) Following(ctx context.Context, viewerID uint, rawPage string) (*PostPage, error) {
	if viewerID == 0 {
		return nil, models.NewUnauthorizedError("login required")
	}
	return s.page(ctx, repository.PostFilter{FollowerID: viewerID}, rawPage)
}
