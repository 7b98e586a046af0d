package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionFrom(t *testing.T, e *testEnv, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == e.cfg.SessionCookieName && c.Value != "" {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatalf("no session cookie in response")
	return ""
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	testutil.CreateUser(t, e.db, "leo")

	resp := e.postForm(t, "/auth/login/", url.Values{
		"username": {"leo"},
		"password": {testutil.DefaultPassword},
		"next":     {"/create/"},
	}, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/create/", resp.Header.Get(fiber.HeaderLocation))
	cookie := sessionFrom(t, e, resp)

	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderCookie, cookie)
	resp = e.do(t, req, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLogin_ByEmailAndUnsafeNext(t *testing.T) {
	e := newTestEnv(t)
	testutil.CreateUser(t, e.db, "leo")

	resp := e.postForm(t, "/auth/login/", url.Values{
		"username": {"leo@example.com"},
		"password": {testutil.DefaultPassword},
		"next":     {"//evil.example.com/"},
	}, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	testutil.CreateUser(t, e.db, "leo")

	resp := e.postForm(t, "/auth/login/", url.Values{
		"username": {"leo"},
		"password": {"wrong"},
	}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	v := decodeView(t, resp)
	assert.Equal(t, "users/login.html", v.Template)
	assert.Contains(t, formErrors(t, v), "__all__")
	assert.Empty(t, resp.Header.Get(fiber.HeaderSetCookie))
}

func TestLoginForm_CarriesNext(t *testing.T) {
	e := newTestEnv(t)

	v := decodeView(t, e.get(t, "/auth/login/?next=/follow/", nil))
	assert.Equal(t, "/follow/", v.Context["next"])
}

func TestSignup(t *testing.T) {
	e := newTestEnv(t)

	resp := e.postForm(t, "/auth/signup/", url.Values{
		"first_name": {"Лев"},
		"last_name":  {"Толстой"},
		"username":   {"leo"},
		"email":      {"leo@example.com"},
		"password1":  {"war-and-peace-1869"},
		"password2":  {"war-and-peace-1869"},
	}, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
	sessionFrom(t, e, resp)

	var user models.User
	require.NoError(t, e.db.Where("username = ?", "leo").First(&user).Error)
	assert.Equal(t, "Лев Толстой", user.FullName())
	assert.NotEqual(t, "war-and-peace-1869", user.Password)
}

func TestSignup_Errors(t *testing.T) {
	e := newTestEnv(t)
	testutil.CreateUser(t, e.db, "leo")

	resp := e.postForm(t, "/auth/signup/", url.Values{
		"username":  {"leo"},
		"email":     {"not-an-email"},
		"password1": {"war-and-peace-1869"},
		"password2": {"different"},
	}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	v := decodeView(t, resp)
	errs := formErrors(t, v)
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password2")
	assert.EqualValues(t, 1, countRows(t, e, &models.User{}))
}

func TestLogout_RevokesSession(t *testing.T) {
	e := newTestEnv(t)
	user := testutil.CreateUser(t, e.db, "leo")
	cookie := e.sessionCookie(t, user)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout/", nil)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderCookie, cookie)
	resp := e.do(t, req, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "users/logged_out.html", decodeView(t, resp).Template)
	assert.True(t, strings.Contains(resp.Header.Get(fiber.HeaderSetCookie), e.cfg.SessionCookieName+"="))

	req = httptest.NewRequest(http.MethodGet, "/follow/", nil)
	req.Header.Set(fiber.HeaderCookie, cookie)
	resp = e.do(t, req, nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}
