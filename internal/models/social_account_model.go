package models

import (
	"time"
)

type SocialAccount struct {
	ID                 int64             `db:"id" json:"id"`
	UserID             int64             `db:"user_id" json:"user_id"`
	Platform           string            `db:"platform" json:"platform"`
	PlatformUserID     string            `db:"platform_user_id" json:"platform_user_id"`
	Username           string            `db:"username" json:"username"`
	DisplayName        string            `db:"display_name" json:"display_name"`
	ProfilePicture     string            `db:"profile_picture_url" json:"profile_picture"`
	AccessToken        string            `db:"access_token" json:"-"`
	RefreshToken       string            `db:"refresh_token" json:"-"`
	TokenExpiresAt     *time.Time        `db:"token_expires_at" json:"token_expires_at"`
	PlatformData       map[string]string `db:"platform_data" json:"platform_data"`
	Status             string            `db:"status" json:"status"`
	FailedAttempts     int               `db:"failed_attempts" json:"failed_attempts"`
	LastError          string            `db:"last_error" json:"last_error"`
	RateLimitRemaining *int              `db:"rate_limit_remaining" json:"rate_limit_remaining"`
	RateLimitResetAt   *time.Time        `db:"rate_limit_reset_at" json:"rate_limit_reset_at"`
	LastUsedAt         *time.Time        `db:"last_used_at" json:"last_used_at"`
	LastTokenRefreshAt *time.Time        `db:"last_token_refresh_at" json:"last_token_refresh_at"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

const (
	AccountStatusActive       = "active"
	AccountStatusTokenExpired = "token_expired"
	AccountStatusAuthFailed   = "authentication_failed"
	AccountStatusRateLimited  = "rate_limited"
	AccountStatusSuspended    = "suspended"
)

// RateLimitExpired reports whether a rate_limited account is past its reset
// time and may be treated as active again. Accounts are reactivated lazily at
// resolution time, never swept.
func (a *SocialAccount) RateLimitExpired() bool {
	if a.Status != AccountStatusRateLimited {
		return false
	}
	return a.RateLimitResetAt != nil && a.RateLimitResetAt.Before(time.Now())
}

func (a *SocialAccount) IsTokenExpired() bool {
	if a.TokenExpiresAt == nil {
		return false
	}
	return a.TokenExpiresAt.Before(time.Now())
}
