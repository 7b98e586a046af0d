// Package middleware provides request-scoped middleware: sessions, login guard, rate limiting,
// logging, metrics and tracing.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alex-zharinov/hw05-final/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionIssuer is the iss claim of every session token.
	SessionIssuer = "yatube"
	// SessionAudience is the aud claim of every session token.
	SessionAudience = "yatube-web"

	// LocalUserID holds the authenticated user id (uint) in Fiber locals.
	LocalUserID = "userID"
	// LocalSession holds the parsed *SessionClaims in Fiber locals.
	LocalSession = "session"

	// LoginPath is where anonymous users are sent by LoginRequired.
	LoginPath = "/auth/login/"

	blacklistPrefix = "blacklist:"
)

var (
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrRevokedSession = errors.New("session has been revoked")
)

// SessionClaims is the decoded identity carried by a session token.
type SessionClaims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// Sessions issues, parses and revokes HS256 session tokens kept in an HttpOnly cookie.
type Sessions struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	redis      *redis.Client
}

// NewSessions builds the session manager. rdb may be nil, in which case logout only clears
// the cookie and revocation is not tracked.
func NewSessions(cfg *config.Config, rdb *redis.Client) *Sessions {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	name := cfg.SessionCookieName
	if name == "" {
		name = "yatube_session"
	}
	return &Sessions{
		secret:     []byte(cfg.JWTSecret),
		cookieName: name,
		ttl:        ttl,
		secure:     cfg.IsProduction(),
		redis:      rdb,
	}
}

// CookieName returns the name of the session cookie.
func (s *Sessions) CookieName() string {
	return s.cookieName
}

// Issue signs a new session token for userID.
func (s *Sessions) Issue(userID uint) (string, *SessionClaims, error) {
	now := time.Now()
	sc := &SessionClaims{
		UserID:    userID,
		JTI:       uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
	}
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": SessionIssuer,
		"aud": SessionAudience,
		"exp": sc.ExpiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": sc.JTI,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, sc, nil
}

// Parse validates a token and checks it against the revocation list.
func (s *Sessions) Parse(ctx context.Context, tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(SessionIssuer),
		jwt.WithAudience(SessionAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidSession
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidSession
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidSession
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidSession
	}
	jti, _ := claims["jti"].(string)

	if jti != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, blacklistPrefix+jti).Result()
		if err == nil && revoked > 0 {
			return nil, ErrRevokedSession
		}
	}

	return &SessionClaims{UserID: uint(userID), JTI: jti, ExpiresAt: exp.Time}, nil
}

// Revoke blacklists the token id until the token would have expired anyway.
func (s *Sessions) Revoke(ctx context.Context, sc *SessionClaims) error {
	if sc == nil || sc.JTI == "" || s.redis == nil {
		return nil
	}
	ttl := time.Until(sc.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, blacklistPrefix+sc.JTI, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// SetCookie stores the token in the session cookie.
func (s *Sessions) SetCookie(c *fiber.Ctx, token string, sc *SessionClaims) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  sc.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (s *Sessions) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Sessions) tokenFrom(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Cookies(s.cookieName)
}

// Middleware resolves the optional identity of the requester. Anonymous requests pass
// through untouched; an invalid cookie is dropped.
func (s *Sessions) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := s.tokenFrom(c)
		if tokenString == "" {
			return c.Next()
		}

		sc, err := s.Parse(c.UserContext(), tokenString)
		if err != nil {
			if c.Cookies(s.cookieName) != "" {
				s.ClearCookie(c)
			}
			return c.Next()
		}

		c.Locals(LocalUserID, sc.UserID)
		c.Locals(LocalSession, sc)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, sc.UserID))
		return c.Next()
	}
}

// CurrentUserID returns the authenticated user id, if any.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	uid, ok := c.Locals(LocalUserID).(uint)
	return uid, ok && uid != 0
}

// CurrentSession returns the parsed session claims, if any.
func CurrentSession(c *fiber.Ctx) *SessionClaims {
	sc, _ := c.Locals(LocalSession).(*SessionClaims)
	return sc
}

// LoginURL returns the login page address that brings the user back to next.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// LoginRequired redirects anonymous requests to the login page, keeping the original
// path and query in the next parameter.
func LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentUserID(c); ok {
			return c.Next()
		}
		return c.Redirect(LoginURL(c.OriginalURL()), fiber.StatusFound)
	}
}
