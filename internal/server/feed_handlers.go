package server

import (
	"github.com/gofiber/fiber/v2"
)

// Index renders the global feed.
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.Index(c.UserContext(), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/index", fiber.Map{
		"title":    "Последние обновления на сайте",
		"page_obj": page,
		"index":    true,
	})
}

// GroupPosts renders the posts of one group.
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	feed, err := s.feedService.Group(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/group_list", fiber.Map{
		"title":    "Записи сообщества " + feed.Group.Title,
		"group":    feed.Group,
		"page_obj": feed.Page,
	})
}

// Profile renders an author's posts and whether the viewer follows them.
func (s *Server) Profile(c *fiber.Ctx) error {
	feed, err := s.feedService.Profile(c.UserContext(), c.Params("username"), viewerID(c), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/profile", fiber.Map{
		"title":       "Профайл пользователя " + feed.Author.FullName(),
		"author":      feed.Author,
		"page_obj":    feed.Page,
		"following":   feed.Following,
		"posts_count": feed.PostCount,
	})
}

// FollowIndex renders the posts of the authors the viewer follows.
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.Following(c.UserContext(), viewerID(c), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/follow", fiber.Map{
		"title":    "Избранные авторы",
		"page_obj": page,
		"follow":   true,
	})
}
