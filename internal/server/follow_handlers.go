package server

import (
	"github.com/gofiber/fiber/v2"
)

// ProfileFollow subscribes the viewer to the author. Following yourself is silently ignored.
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	username := c.Params("username")
	if _, err := s.followService.Follow(c.UserContext(), viewerID(c), username); err != nil {
		return err
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}

// ProfileUnfollow removes the follow edges pointing at the author.
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	username := c.Params("username")
	if _, err := s.followService.Unfollow(c.UserContext(), username); err != nil {
		return err
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}
