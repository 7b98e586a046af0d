package server

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alex-zharinov/hw05-final/internal/middleware"
	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

const (
	baseLayout = "layouts/base"

	localCurrentUser = "currentUser"
)

var ruMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// newViewEngine builds the template engine over the embedded templates.
func newViewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")
	engine.AddFunc("media", func(rel string) string {
		return "/media/" + strings.TrimPrefix(rel, "/")
	})
	engine.AddFunc("linebreaksbr", func(s string) template.HTML {
		escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
		return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>")) // #nosec G203 -- input is escaped above
	})
	engine.AddFunc("date", func(t time.Time) string {
		return strconv.Itoa(t.Day()) + " " + ruMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
	})
	engine.AddFunc("pageURL", func(n int) string {
		return "?page=" + strconv.Itoa(n)
	})
	return engine
}

// formView carries submitted values and per-field errors back to a form template.
type formView struct {
	Values map[string]string `json:"values"`
	Errors map[string]string `json:"errors"`
}

func newForm(values map[string]string, err error) formView {
	f := formView{Values: values, Errors: map[string]string{}}
	if f.Values == nil {
		f.Values = map[string]string{}
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		for k, v := range appErr.Fields {
			f.Errors[k] = v
		}
		if len(appErr.Fields) == 0 && appErr.Message != "" {
			f.Errors["__all__"] = appErr.Message
		}
	}
	return f
}

// wantsJSON reports whether the client prefers the JSON view model to HTML.
func wantsJSON(c *fiber.Ctx) bool {
	if c.Get(fiber.HeaderAccept) == "" {
		return false
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// currentUser loads the authenticated user once per request. Returns nil for
// anonymous requests and for sessions whose user no longer exists.
func (s *Server) currentUser(c *fiber.Ctx) (*models.User, error) {
	if u, ok := c.Locals(localCurrentUser).(*models.User); ok {
		return u, nil
	}
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return nil, nil
	}
	user, err := s.accountService.GetUser(c.UserContext(), uid)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	c.Locals(localCurrentUser, user)
	return user, nil
}

// render writes the named view either as HTML inside the base layout or, when the
// client asks for JSON, as {"template": ..., "context": ...}.
func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, set := data["user"]; !set {
		user, err := s.currentUser(c)
		if err != nil {
			return err
		}
		if user != nil {
			data["user"] = user
		} else {
			data["user"] = nil
		}
	}

	c.Status(status)
	if wantsJSON(c) {
		return c.JSON(fiber.Map{
			"template": name + ".html",
			"context":  data,
		})
	}
	data["year"] = time.Now().Year()
	return c.Render(name, data, baseLayout)
}
