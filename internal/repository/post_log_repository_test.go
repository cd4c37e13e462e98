package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/publishflow/internal/models"
)

func TestPostLogRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	accountID := int64(5)

	mock.ExpectQuery("INSERT INTO post_logs").
		WithArgs(int64(10), int64(1), &accountID, "facebook",
			models.LogActionPublishAttempt, "unified", nil,
			models.LogStatusPending, "", 1, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	r := NewPostLogRepository(db)
	id, err := r.Create(context.Background(), &models.PostLog{
		UserID:        10,
		PostID:        1,
		AccountID:     &accountID,
		Platform:      "facebook",
		Action:        models.LogActionPublishAttempt,
		PublishMethod: "unified",
		Status:        models.LogStatusPending,
		AttemptNumber: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostLogRepositoryMarkSuccessOnlyTouchesPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE post_logs").
		WithArgs(models.LogStatusSuccess, models.LogActionPublishSuccess,
			sqlmock.AnyArg(), "fb-1", "https://facebook.com/p/fb-1",
			nil, int64(120), int64(7), models.LogStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostLogRepository(db)
	err = r.MarkSuccess(context.Background(), 7, json.RawMessage(`{"id":"x"}`),
		"fb-1", "https://facebook.com/p/fb-1", nil, 120)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostLogRepositoryMarkFailureOnlyTouchesPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	status := 502

	mock.ExpectExec("UPDATE post_logs").
		WithArgs(models.LogStatusFailed, models.LogActionPublishFailed,
			"webhook request failed: 502", sqlmock.AnyArg(),
			&status, int64(80), int64(7), models.LogStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostLogRepository(db)
	err = r.MarkFailure(context.Background(), 7, "webhook request failed: 502",
		json.RawMessage(`{"success":false}`), &status, 80)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
