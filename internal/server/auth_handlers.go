package server

import (
	"log/slog"

	"github.com/alex-zharinov/hw05-final/internal/middleware"
	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LoginForm renders the login page. next is carried through the form.
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.renderLogin(c, newForm(nil, nil), safeNext(c.Query("next")))
}

// Login checks the credentials, issues the session cookie and redirects to next.
func (s *Server) Login(c *fiber.Ctx) error {
	next := safeNext(c.FormValue("next"))
	if next == "" {
		next = safeNext(c.Query("next"))
	}
	values := formValues(c, "username")

	user, err := s.accountService.Authenticate(c.UserContext(), c.FormValue("username"), c.FormValue("password"))
	if err != nil {
		if models.ErrorCode(err) == models.CodeUnauthorized {
			return s.renderLogin(c, newForm(values, err), next)
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	if next == "" {
		next = "/"
	}
	return c.Redirect(next, fiber.StatusFound)
}

// SignupForm renders the registration page.
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "users/signup", fiber.Map{
		"title": "Регистрация",
		"form":  newForm(nil, nil),
	})
}

// Signup registers the user and logs them in.
func (s *Server) Signup(c *fiber.Ctx) error {
	in := service.SignupInput{
		Username:        c.FormValue("username"),
		Email:           c.FormValue("email"),
		FirstName:       c.FormValue("first_name"),
		LastName:        c.FormValue("last_name"),
		Password:        c.FormValue("password1"),
		PasswordConfirm: c.FormValue("password2"),
	}
	user, err := s.accountService.Signup(c.UserContext(), in)
	if err != nil {
		if models.ErrorCode(err) == models.CodeValidation {
			values := formValues(c, "username", "email", "first_name", "last_name")
			return s.render(c, fiber.StatusOK, "users/signup", fiber.Map{
				"title": "Регистрация",
				"form":  newForm(values, err),
			})
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// Logout revokes the session and clears the cookie.
func (s *Server) Logout(c *fiber.Ctx) error {
	if sc := middleware.CurrentSession(c); sc != nil {
		if err := s.sessions.Revoke(c.UserContext(), sc); err != nil {
			slog.WarnContext(c.UserContext(), "session revocation failed", "error", err)
		}
	}
	s.sessions.ClearCookie(c)
	return s.render(c, fiber.StatusOK, "users/logged_out", fiber.Map{
		"title": "Вы вышли из системы",
		"user":  nil,
	})
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, sc, err := s.sessions.Issue(user.ID)
	if err != nil {
		return err
	}
	s.sessions.SetCookie(c, token, sc)
	return nil
}

func (s *Server) renderLogin(c *fiber.Ctx, form formView, next string) error {
	return s.render(c, fiber.StatusOK, "users/login", fiber.Map{
		"title": "Войти",
		"form":  form,
		"next":  next,
	})
}
