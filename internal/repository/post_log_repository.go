package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/maheshrc27/publishflow/internal/models"
)

// PostLogRepository writes the append-only publish audit trail. Entries are
// created pending and finalized exactly once; there is deliberately no
// delete.
type PostLogRepository interface {
	Create(ctx context.Context, entry *models.PostLog) (int64, error)
	MarkSuccess(ctx context.Context, id int64, response json.RawMessage, platformPostID, platformPostURL string, httpStatus *int, executionMs int64) error
	MarkFailure(ctx context.Context, id int64, errMsg string, details json.RawMessage, httpStatus *int, executionMs int64) error
	GetByID(ctx context.Context, id int64) (*models.PostLog, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostLog, error)
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.PostLog, error)
}

type postLogRepository struct {
	db *sql.DB
}

func NewPostLogRepository(db *sql.DB) PostLogRepository {
	return &postLogRepository{db: db}
}

const postLogColumns = `id, user_id, post_id, account_id, platform, action,
		publish_method, request_payload, response_data, http_status_code,
		status, error_message, error_code, error_details, platform_post_id,
		platform_post_url, execution_time_ms, attempt_number,
		rate_limit_remaining, rate_limit_reset_at, created_at, updated_at`

func (r *postLogRepository) Create(ctx context.Context, entry *models.PostLog) (int64, error) {
	query := `
		INSERT INTO post_logs (user_id, post_id, account_id, platform, action,
			publish_method, request_payload, status, error_message,
			attempt_number, rate_limit_remaining, rate_limit_reset_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		entry.UserID, entry.PostID, entry.AccountID, entry.Platform,
		entry.Action, entry.PublishMethod, nullableJSON(entry.RequestPayload),
		entry.Status, entry.ErrorMessage, entry.AttemptNumber,
		entry.RateLimitRemaining, entry.RateLimitResetAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postLogRepository) MarkSuccess(ctx context.Context, id int64, response json.RawMessage, platformPostID, platformPostURL string, httpStatus *int, executionMs int64) error {
	query := `
		UPDATE post_logs
		SET status = $1,
			action = $2,
			response_data = $3,
			platform_post_id = $4,
			platform_post_url = $5,
			http_status_code = COALESCE($6, 200),
			execution_time_ms = $7,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $8 AND status = $9
	`
	_, err := r.db.ExecContext(ctx, query, models.LogStatusSuccess,
		models.LogActionPublishSuccess, nullableJSON(response), platformPostID,
		platformPostURL, httpStatus, executionMs, id, models.LogStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postLogRepository) MarkFailure(ctx context.Context, id int64, errMsg string, details json.RawMessage, httpStatus *int, executionMs int64) error {
	query := `
		UPDATE post_logs
		SET status = $1,
			action = $2,
			error_message = $3,
			error_details = $4,
			http_status_code = $5,
			execution_time_ms = $6,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $7 AND status = $8
	`
	_, err := r.db.ExecContext(ctx, query, models.LogStatusFailed,
		models.LogActionPublishFailed, errMsg, nullableJSON(details),
		httpStatus, executionMs, id, models.LogStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postLogRepository) GetByID(ctx context.Context, id int64) (*models.PostLog, error) {
	query := `SELECT ` + postLogColumns + ` FROM post_logs WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	entry, err := scanPostLog(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return entry, nil
}

func (r *postLogRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostLog, error) {
	query := `SELECT ` + postLogColumns + ` FROM post_logs WHERE post_id = $1 ORDER BY id`
	return r.list(ctx, query, postID)
}

func (r *postLogRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.PostLog, error) {
	query := `SELECT ` + postLogColumns + ` FROM post_logs WHERE user_id = $1 ORDER BY id DESC LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

func (r *postLogRepository) list(ctx context.Context, query string, args ...any) ([]*models.PostLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.PostLog
	for rows.Next() {
		entry, err := scanPostLog(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return entries, nil
}

func scanPostLog(row rowScanner) (*models.PostLog, error) {
	var entry models.PostLog
	var requestPayload, responseData, errorDetails []byte

	err := row.Scan(&entry.ID, &entry.UserID, &entry.PostID, &entry.AccountID,
		&entry.Platform, &entry.Action, &entry.PublishMethod, &requestPayload,
		&responseData, &entry.HTTPStatusCode, &entry.Status,
		&entry.ErrorMessage, &entry.ErrorCode, &errorDetails,
		&entry.PlatformPostID, &entry.PlatformPostURL, &entry.ExecutionTimeMs,
		&entry.AttemptNumber, &entry.RateLimitRemaining,
		&entry.RateLimitResetAt, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}

	entry.RequestPayload = requestPayload
	entry.ResponseData = responseData
	entry.ErrorDetails = errorDetails

	return &entry, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
