package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/publishflow/internal/models"
)

func TestPostRepositoryMarkPublishing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE posts").
		WithArgs(models.PostStatusPublishing, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostRepository(db)
	require.NoError(t, r.MarkPublishing(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryMarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	nextRetry := time.Now().Add(time.Minute)

	mock.ExpectExec("UPDATE posts").
		WithArgs(models.PostStatusFailed, sqlmock.AnyArg(), "upstream unreachable",
			sqlmock.AnyArg(), nextRetry, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostRepository(db)
	results := map[string]models.PlatformResult{
		"facebook": {Success: false, Error: "upstream unreachable"},
	}
	err = r.MarkFailed(context.Background(), 1, results, "upstream unreachable",
		map[string]any{"http_status": 500}, &nextRetry)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewPostRepository(db)

	mock.ExpectExec("UPDATE posts").
		WithArgs(models.PostStatusCancelled, int64(1), models.PostStatusDraft, models.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cancelled, err := r.Cancel(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, cancelled)

	// A post already claimed by the dispatcher matches no rows.
	mock.ExpectExec("UPDATE posts").
		WithArgs(models.PostStatusCancelled, int64(2), models.PostStatusDraft, models.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	cancelled, err = r.Cancel(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, cancelled)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryGetByIDMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM posts").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := NewPostRepository(db)
	post, err := r.GetByID(context.Background(), 99)

	require.NoError(t, err)
	assert.Nil(t, post)
	assert.NoError(t, mock.ExpectationsWereMet())
}
