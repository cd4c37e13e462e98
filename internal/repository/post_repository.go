package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/publishflow/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	MarkPublishing(ctx context.Context, id int64) error
	MarkPublished(ctx context.Context, id int64, results map[string]models.PlatformResult) error
	MarkPartiallyPublished(ctx context.Context, id int64, results map[string]models.PlatformResult, errMsg string) error
	MarkFailed(ctx context.Context, id int64, results map[string]models.PlatformResult, errMsg string, details map[string]any, nextRetryAt *time.Time) error
	Cancel(ctx context.Context, id int64) (bool, error)
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, content, title, media_urls, media_type, link_url,
		platforms, account_ids, platform_settings, scheduled_at, status,
		error_message, error_details, attempts, max_attempts, last_attempt_at,
		next_retry_at, published_at, publish_results, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, content, title, media_urls, media_type, link_url,
			platforms, account_ids, platform_settings, scheduled_at, status, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	settings, err := json.Marshal(post.PlatformSettings)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	args := []any{
		post.UserID, post.Content, post.Title, pq.Array(post.MediaURLs),
		post.MediaType, post.LinkURL, pq.Array(post.Platforms),
		pq.Array(post.AccountIDs), settings, post.ScheduledAt, post.Status,
		post.MaxAttempts,
	}

	var id int64
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY scheduled_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// MarkPublishing claims the post for one attempt: status publishing, attempt
// counter incremented, attempt start time recorded.
func (r *postRepository) MarkPublishing(ctx context.Context, id int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			attempts = attempts + 1,
			last_attempt_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkPublished(ctx context.Context, id int64, results map[string]models.PlatformResult) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		UPDATE posts
		SET status = $1,
			publish_results = $2,
			published_at = CURRENT_TIMESTAMP,
			error_message = '',
			error_details = NULL,
			next_retry_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err = r.db.ExecContext(ctx, query, models.PostStatusPublished, resultsJSON, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkPartiallyPublished(ctx context.Context, id int64, results map[string]models.PlatformResult, errMsg string) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		UPDATE posts
		SET status = $1,
			publish_results = $2,
			published_at = CURRENT_TIMESTAMP,
			error_message = $3,
			next_retry_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`
	_, err = r.db.ExecContext(ctx, query, models.PostStatusPartiallyPublished, resultsJSON, errMsg, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, id int64, results map[string]models.PlatformResult, errMsg string, details map[string]any, nextRetryAt *time.Time) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		UPDATE posts
		SET status = $1,
			publish_results = $2,
			error_message = $3,
			error_details = $4,
			next_retry_at = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
	`
	_, err = r.db.ExecContext(ctx, query, models.PostStatusFailed, resultsJSON, errMsg, detailsJSON, nextRetryAt, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Cancel succeeds only while the post has not been claimed yet. Returns false
// when the post was already publishing or terminal.
func (r *postRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status IN ($3, $4)
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusCancelled, id,
		models.PostStatusDraft, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1
			AND attempts < max_attempts
			AND next_retry_at IS NOT NULL
			AND next_retry_at <= $2
		ORDER BY next_retry_at ASC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, models.PostStatusFailed, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var settings, errorDetails, publishResults []byte

	err := row.Scan(&post.ID, &post.UserID, &post.Content, &post.Title,
		pq.Array(&post.MediaURLs), &post.MediaType, &post.LinkURL,
		pq.Array(&post.Platforms), pq.Array(&post.AccountIDs), &settings,
		&post.ScheduledAt, &post.Status, &post.ErrorMessage, &errorDetails,
		&post.Attempts, &post.MaxAttempts, &post.LastAttemptAt,
		&post.NextRetryAt, &post.PublishedAt, &publishResults,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &post.PlatformSettings); err != nil {
			return nil, err
		}
	}
	if len(errorDetails) > 0 {
		if err := json.Unmarshal(errorDetails, &post.ErrorDetails); err != nil {
			return nil, err
		}
	}
	if len(publishResults) > 0 {
		if err := json.Unmarshal(publishResults, &post.PublishResults); err != nil {
			return nil, err
		}
	}

	return &post, nil
}
