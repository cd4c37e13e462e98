package models

import (
	"encoding/json"
	"time"
)

// PostLog is one row of the append-only publish audit trail: one entry per
// platform per attempt. Rows transition pending -> success/failed exactly
// once and are never deleted.
type PostLog struct {
	ID                 int64           `db:"id" json:"id"`
	UserID             int64           `db:"user_id" json:"user_id"`
	PostID             int64           `db:"post_id" json:"post_id"`
	AccountID          *int64          `db:"account_id" json:"account_id"`
	Platform           string          `db:"platform" json:"platform"`
	Action             string          `db:"action" json:"action"`
	PublishMethod      string          `db:"publish_method" json:"publish_method"`
	RequestPayload     json.RawMessage `db:"request_payload" json:"request_payload,omitempty"`
	ResponseData       json.RawMessage `db:"response_data" json:"response_data,omitempty"`
	HTTPStatusCode     *int            `db:"http_status_code" json:"http_status_code"`
	Status             string          `db:"status" json:"status"`
	ErrorMessage       string          `db:"error_message" json:"error_message"`
	ErrorCode          string          `db:"error_code" json:"error_code"`
	ErrorDetails       json.RawMessage `db:"error_details" json:"error_details,omitempty"`
	PlatformPostID     string          `db:"platform_post_id" json:"platform_post_id"`
	PlatformPostURL    string          `db:"platform_post_url" json:"platform_post_url"`
	ExecutionTimeMs    *int64          `db:"execution_time_ms" json:"execution_time_ms"`
	AttemptNumber      int             `db:"attempt_number" json:"attempt_number"`
	RateLimitRemaining *int            `db:"rate_limit_remaining" json:"rate_limit_remaining"`
	RateLimitResetAt   *time.Time      `db:"rate_limit_reset_at" json:"rate_limit_reset_at"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

const (
	LogStatusPending  = "pending"
	LogStatusSuccess  = "success"
	LogStatusFailed   = "failed"
	LogStatusRetrying = "retrying"
)

const (
	LogActionPublishAttempt     = "publish_attempt"
	LogActionPublishSuccess     = "publish_success"
	LogActionPublishFailed      = "publish_failed"
	LogActionTokenRefresh       = "token_refresh"
	LogActionTokenRefreshFailed = "token_refresh_failed"
)
