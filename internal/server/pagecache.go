package server

import (
	"strconv"
	"time"

	"github.com/alex-zharinov/hw05-final/internal/observability"

	"github.com/gofiber/fiber/v2"
	fibercache "github.com/gofiber/fiber/v2/middleware/cache"
)

const cacheHeader = "X-Cache"

// indexCache caches the rendered index page for IndexCacheSeconds. Entries are keyed
// by URL, representation and viewer, and are never invalidated by writes.
func (s *Server) indexCache() fiber.Handler {
	ttl := time.Duration(s.config.IndexCacheSeconds) * time.Second
	if ttl <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	cfg := fibercache.Config{
		// Evaluated after the handler: only successful pages are stored.
		Next: func(c *fiber.Ctx) bool {
			return c.Response().StatusCode() != fiber.StatusOK
		},
		Expiration:   ttl,
		CacheHeader:  cacheHeader,
		KeyGenerator: pageKey,
	}
	// Without Redis the middleware falls back to Fiber's own memory storage,
	// which drops expired entries in the background.
	if s.pages != nil {
		cfg.Storage = s.pages
	}
	h := fibercache.New(cfg)

	return func(c *fiber.Ctx) error {
		err := h(c)
		switch c.GetRespHeader(cacheHeader) {
		case "hit":
			observability.RecordCacheLookup(true)
		case "miss":
			observability.RecordCacheLookup(false)
		}
		return err
	}
}

// pageCacheBackend names where cached pages live.
func (s *Server) pageCacheBackend() string {
	if s.pages != nil {
		return "redis"
	}
	return "memory"
}

// pageKey identifies one cached rendering: the path with its query, the negotiated
// representation and the viewer, since the header shows who is logged in.
func pageKey(c *fiber.Ctx) string {
	format := "html"
	if wantsJSON(c) {
		format = "json"
	}
	return format + "|" + c.OriginalURL() + "|u" + strconv.FormatUint(uint64(viewerID(c)), 10)
}
