package server

import "github.com/gofiber/fiber/v2"

func (s *Server) AboutAuthor(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "about/author", fiber.Map{"title": "Об авторе проекта"})
}

func (s *Server) AboutTech(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "about/tech", fiber.Map{"title": "Технологии"})
}
