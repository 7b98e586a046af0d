package server

import (
	"strconv"
	"strings"

	"github.com/alex-zharinov/hw05-final/internal/middleware"
	"github.com/alex-zharinov/hw05-final/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter as a positive uint. A malformed id names no
// resource, so it is reported as NotFound.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewNotFoundError("Post", raw)
	}
	return uint(id), nil
}

// viewerID returns the authenticated user id or 0 for anonymous requests.
func viewerID(c *fiber.Ctx) uint {
	uid, _ := middleware.CurrentUserID(c)
	return uid
}

// safeNext accepts only local absolute paths as a post-login destination.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	return next
}

// formValues collects the named form fields.
func formValues(c *fiber.Ctx, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = c.FormValue(name)
	}
	return out
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}
