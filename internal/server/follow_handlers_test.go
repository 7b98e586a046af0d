package server

import (
	"testing"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFollow(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	reader := testutil.CreateUser(t, e.db, "reader")

	resp := e.get(t, "/profile/author/follow/", reader)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/author/", resp.Header.Get(fiber.HeaderLocation))

	// Following twice keeps a single edge.
	e.get(t, "/profile/author/follow/", reader)

	var edges []models.Follow
	require.NoError(t, e.db.Find(&edges).Error)
	require.Len(t, edges, 1)
	assert.Equal(t, reader.ID, edges[0].UserID)
	assert.Equal(t, author.ID, edges[0].AuthorID)
}

func TestProfileFollow_Self(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "author")

	resp := e.get(t, "/profile/author/follow/", author)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Zero(t, countRows(t, e, &models.Follow{}))
}

func TestProfileFollow_UnknownAuthor(t *testing.T) {
	e := newTestEnv(t)
	reader := testutil.CreateUser(t, e.db, "reader")

	resp := e.get(t, "/profile/ghost/follow/", reader)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "core/404.html", decodeView(t, resp).Template)
}

func TestProfileFollow_RequiresLogin(t *testing.T) {
	e := newTestEnv(t)
	testutil.CreateUser(t, e.db, "author")

	resp := e.get(t, "/profile/author/follow/", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next=/profile/author/follow/", resp.Header.Get(fiber.HeaderLocation))
	assert.Zero(t, countRows(t, e, &models.Follow{}))
}

func TestProfileUnfollow_RemovesEdgesToAuthor(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	reader := testutil.CreateUser(t, e.db, "reader")
	other := testutil.CreateUser(t, e.db, "other")
	testutil.CreateFollow(t, e.db, reader, author)
	testutil.CreateFollow(t, e.db, other, author)
	testutil.CreateFollow(t, e.db, reader, other)

	resp := e.get(t, "/profile/author/unfollow/", reader)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/author/", resp.Header.Get(fiber.HeaderLocation))

	var edges []models.Follow
	require.NoError(t, e.db.Find(&edges).Error)
	require.Len(t, edges, 1)
	assert.Equal(t, other.ID, edges[0].AuthorID)

	resp = e.get(t, "/profile/ghost/unfollow/", reader)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
