package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/alex-zharinov/hw05-final/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	groupID := uint(3)
	post := &models.Post{Text: "Тестовый пост", AuthorID: 1, GroupID: &groupID}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, uint(11), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1 ORDER BY "posts"."id" LIMIT $2`)).
		WithArgs(99, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 99)
	assert.True(t, models.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateWritesMutableColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "group_id"=$1,"image"=$2,"text"=$3 WHERE id = $4`)).
		WithArgs(sqlmock.AnyArg(), "posts/small.gif", "Новый текст", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), &models.Post{ID: 7, Text: "Новый текст", Image: "posts/small.gif"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateMissingPost(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), &models.Post{ID: 8, Text: "x"})
	assert.True(t, models.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_DeleteByAuthorIgnoresFollower(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "follows" WHERE author_id = $1`)).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	removed, err := repo.DeleteByAuthor(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_GetOrCreateAbsorbsUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "follows"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "follows"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	created, err := repo.GetOrCreate(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateIsFieldError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "leo", Email: "leo@example.com", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(gorm.ErrRecordNotFound))
}
