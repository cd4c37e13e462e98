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

type SocialAccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	ListEligible(ctx context.Context, userID int64, platforms []string) ([]*models.SocialAccount, error)
	ListByTokenExpiry(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	Reactivate(ctx context.Context, id int64) error
	UpdateRateLimit(ctx context.Context, id int64, remaining int, resetAt *time.Time) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	MarkRefreshed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, lastError string) error
	SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error
	Remove(ctx context.Context, id int64) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const socialAccountColumns = `id, user_id, platform, platform_user_id, username,
		display_name, profile_picture_url, access_token, refresh_token,
		token_expires_at, platform_data, status, failed_attempts, last_error,
		rate_limit_remaining, rate_limit_reset_at, last_used_at,
		last_token_refresh_at, created_at, updated_at`

func (r *socialAccountRepository) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts(
			user_id,
			platform,
			platform_user_id,
			username,
			display_name,
			profile_picture_url,
			access_token,
			refresh_token,
			token_expires_at,
			platform_data,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, platform, platform_user_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			status = EXCLUDED.status,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	platformData, err := json.Marshal(sa.PlatformData)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	status := sa.Status
	if status == "" {
		status = models.AccountStatusActive
	}

	args := []any{
		sa.UserID, sa.Platform, sa.PlatformUserID, sa.Username, sa.DisplayName,
		sa.ProfilePicture, sa.AccessToken, sa.RefreshToken, sa.TokenExpiresAt,
		platformData, status,
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

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	sa, err := scanSocialAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return sa, nil
}

func (r *socialAccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE user_id = $1 ORDER BY id`
	return r.list(ctx, query, userID)
}

// ListEligible returns accounts that may be publishable for the given
// platforms: active ones plus rate_limited ones, the latter so the caller can
// apply the lazy reactivation rule. Ordered by id so resolution stays
// deterministic.
func (r *socialAccountRepository) ListEligible(ctx context.Context, userID int64, platforms []string) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE user_id = $1
			AND platform = ANY($2)
			AND status IN ($3, $4)
		ORDER BY id`
	return r.list(ctx, query, userID, pq.Array(platforms),
		models.AccountStatusActive, models.AccountStatusRateLimited)
}

func (r *socialAccountRepository) ListByTokenExpiry(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE token_expires_at IS NOT NULL
			AND (token_expires_at BETWEEN $1 AND $2 OR token_expires_at < $1)
			AND status != $3`
	return r.list(ctx, query, initialTime, finalTime, models.AccountStatusSuspended)
}

func (r *socialAccountRepository) list(ctx context.Context, query string, args ...any) ([]*models.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		sa, err := scanSocialAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, sa)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

func (r *socialAccountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	query := "SELECT 1 FROM social_accounts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// Reactivate lifts a lapsed rate limit. Field updates are last-write-wins:
// concurrent dispatcher invocations may race here and that is acceptable.
func (r *socialAccountRepository) Reactivate(ctx context.Context, id int64) error {
	query := `
		UPDATE social_accounts
		SET status = $1,
			rate_limit_remaining = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, models.AccountStatusActive, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) UpdateRateLimit(ctx context.Context, id int64, remaining int, resetAt *time.Time) error {
	status := models.AccountStatusActive
	if remaining == 0 {
		status = models.AccountStatusRateLimited
	}

	query := `
		UPDATE social_accounts
		SET rate_limit_remaining = $1,
			rate_limit_reset_at = $2,
			status = CASE WHEN $3 = $4 THEN $3 ELSE status END,
			last_used_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, remaining, resetAt, status,
		models.AccountStatusRateLimited, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE social_accounts SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) MarkRefreshed(ctx context.Context, id int64) error {
	query := `
		UPDATE social_accounts
		SET status = $1,
			failed_attempts = 0,
			last_token_refresh_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, models.AccountStatusActive, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkFailed bumps the failure counter; three strikes flips the account to
// authentication_failed.
func (r *socialAccountRepository) MarkFailed(ctx context.Context, id int64, lastError string) error {
	query := `
		UPDATE social_accounts
		SET failed_attempts = failed_attempts + 1,
			last_error = $1,
			status = CASE WHEN failed_attempts + 1 >= 3 THEN $2 ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, lastError, models.AccountStatusAuthFailed, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error {
	query := `
		UPDATE social_accounts
		SET access_token = COALESCE(NULLIF($1, ''), access_token),
			refresh_token = COALESCE(NULLIF($2, ''), refresh_token),
			token_expires_at = COALESCE($3, token_expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, accessToken, refreshToken, expiresAt, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func scanSocialAccount(row rowScanner) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	var platformData []byte

	err := row.Scan(&sa.ID, &sa.UserID, &sa.Platform, &sa.PlatformUserID,
		&sa.Username, &sa.DisplayName, &sa.ProfilePicture, &sa.AccessToken,
		&sa.RefreshToken, &sa.TokenExpiresAt, &platformData, &sa.Status,
		&sa.FailedAttempts, &sa.LastError, &sa.RateLimitRemaining,
		&sa.RateLimitResetAt, &sa.LastUsedAt, &sa.LastTokenRefreshAt,
		&sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(platformData) > 0 {
		if err := json.Unmarshal(platformData, &sa.PlatformData); err != nil {
			return nil, err
		}
	}

	return &sa, nil
}
