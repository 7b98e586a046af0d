package server

import (
	"errors"
	"log/slog"

	"github.com/alex-zharinov/hw05-final/internal/middleware"
	"github.com/alex-zharinov/hw05-final/internal/models"

	"github.com/gofiber/fiber/v2"
)

// handleError is the Fiber ErrorHandler. It maps application errors onto pages:
// NotFound renders core/404, Unauthorized sends the user to the login page,
// anything unexpected renders core/500 and is logged.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == fiber.StatusNotFound {
			return s.renderNotFound(c)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fe.Code).SendString(fe.Message)
	}

	switch models.ErrorCode(err) {
	case models.CodeNotFound:
		return s.renderNotFound(c)
	case models.CodeUnauthorized:
		return c.Redirect(middleware.LoginURL(c.OriginalURL()), fiber.StatusFound)
	case models.CodeForbidden:
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	}

	slog.ErrorContext(c.UserContext(), "unhandled request error",
		"method", c.Method(),
		"path", c.Path(),
		"request_id", c.Locals("requestid"),
		"error", err,
	)
	if rerr := s.render(c, fiber.StatusInternalServerError, "core/500", fiber.Map{"user": nil}); rerr != nil {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}
	return nil
}

func (s *Server) renderNotFound(c *fiber.Ctx) error {
	data := fiber.Map{"path": c.Path()}
	if err := s.render(c, fiber.StatusNotFound, "core/404", data); err != nil {
		slog.ErrorContext(c.UserContext(), "render 404 page", "error", err)
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.StatusNotFound).SendString("Not Found")
	}
	return nil
}
