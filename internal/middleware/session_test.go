package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alex-zharinov/hw05-final/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func newTestSessions(t *testing.T) (*Sessions, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSessions(&config.Config{JWTSecret: testSecret, SessionTTLHours: 1}, rdb), mr
}

func identityApp(s *Sessions) *fiber.App {
	app := fiber.New()
	app.Use(s.Middleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		uid, ok := CurrentUserID(c)
		return c.JSON(fiber.Map{"userID": uid, "authenticated": ok})
	})
	return app
}

func TestSessions_IssueAndParse(t *testing.T) {
	s, _ := newTestSessions(t)

	token, sc, err := s.Issue(42)
	require.NoError(t, err)
	assert.NotEmpty(t, sc.JTI)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sc.ExpiresAt, 5*time.Second)

	parsed, err := s.Parse(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), parsed.UserID)
	assert.Equal(t, sc.JTI, parsed.JTI)
}

func TestSessions_ParseRejectsForeignTokens(t *testing.T) {
	s, _ := newTestSessions(t)

	sign := func(claims jwt.MapClaims, secret string) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "7",
			"iss": SessionIssuer,
			"aud": SessionAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	expired := valid()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongAudience := valid()
	wrongAudience["aud"] = "someone-else"

	noSubject := valid()
	delete(noSubject, "sub")

	tests := []struct {
		name  string
		token string
	}{
		{"Malformed", "malformed.token.here"},
		{"Wrong secret", sign(valid(), "another-secret-another-secret-another")},
		{"Expired", sign(expired, testSecret)},
		{"Wrong audience", sign(wrongAudience, testSecret)},
		{"Missing subject", sign(noSubject, testSecret)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestSessions_Revoke(t *testing.T) {
	s, mr := newTestSessions(t)
	ctx := context.Background()

	token, sc, err := s.Issue(5)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, sc))

	assert.True(t, mr.Exists("blacklist:"+sc.JTI))
	assert.Greater(t, mr.TTL("blacklist:"+sc.JTI), time.Duration(0))

	_, err = s.Parse(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedSession)
}

func TestSessions_Middleware(t *testing.T) {
	s, _ := newTestSessions(t)
	app := identityApp(s)
	token, _, err := s.Issue(9)
	require.NoError(t, err)

	decode := func(resp *http.Response) map[string]any {
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: s.CookieName(), Value: token})
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		body := decode(resp)
		assert.Equal(t, true, body["authenticated"])
		assert.Equal(t, float64(9), body["userID"])
	})

	t.Run("Bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, true, decode(resp)["authenticated"])
	})

	t.Run("Garbage cookie is anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: s.CookieName(), Value: "garbage"})
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, decode(resp)["authenticated"])
	})
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/auth/login/", LoginURL(""))
	assert.Equal(t, "/auth/login/?next=/posts/1/comment/", LoginURL("/posts/1/comment/"))
	assert.Equal(t, "/auth/login/?next=/follow/%3Fpage%3D2", LoginURL("/follow/?page=2"))
}

func TestLoginRequired(t *testing.T) {
	s, _ := newTestSessions(t)
	app := fiber.New()
	app.Use(s.Middleware())
	app.All("/posts/:id/comment/", LoginRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, "/posts/1/comment/", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode, method)
		assert.Equal(t, "/auth/login/?next=/posts/1/comment/", resp.Header.Get("Location"), method)
	}

	token, _, err := s.Issue(1)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/posts/1/comment/", nil)
	req.AddCookie(&http.Cookie{Name: s.CookieName(), Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
