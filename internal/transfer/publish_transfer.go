package transfer

import (
	"encoding/json"
	"time"

	"github.com/maheshrc27/publishflow/internal/models"
)

// PublishResult is what a publisher returns from one delivery attempt.
// Expected failures (network errors, upstream 4xx/5xx, per-platform
// rejections) are carried inside the result; a publisher never returns them
// as Go errors.
type PublishResult struct {
	Success         bool                             `json:"success"`
	PlatformResults map[string]models.PlatformResult `json:"platform_results"`
	UpstreamPostID  string                           `json:"upstream_post_id,omitempty"`
	Error           string                           `json:"error,omitempty"`
	ErrorCode       string                           `json:"error_code,omitempty"`
	Exception       string                           `json:"exception,omitempty"`
	HTTPStatus      int                              `json:"http_status,omitempty"`
	RawResponse     json.RawMessage                  `json:"raw_response,omitempty"`
	ExecutionTimeMs int64                            `json:"execution_time_ms"`
	ManualRequired  bool                             `json:"manual_publishing_required,omitempty"`
	Message         string                           `json:"message,omitempty"`
}

// SucceededCount returns how many per-platform entries report success.
func (r *PublishResult) SucceededCount() int {
	n := 0
	for _, pr := range r.PlatformResults {
		if pr.Success {
			n++
		}
	}
	return n
}

// UnifiedPostRequest is the payload sent to the unified social API.
// Platform-specific settings are attached as one top-level key per platform.
type UnifiedPostRequest struct {
	Post         string   `json:"post"`
	Platforms    []string `json:"platforms"`
	Title        string   `json:"title,omitempty"`
	VideoURL     string   `json:"videoUrl,omitempty"`
	MediaURLs    []string `json:"mediaUrls,omitempty"`
	ScheduleDate string   `json:"scheduleDate,omitempty"`
	ShortenLinks bool     `json:"shorten_links,omitempty"`
	ProfileKeys  []string `json:"profileKeys,omitempty"`
}

// WebhookAccount crosses a deliberate trust boundary: the receiving
// automation system gets the plaintext access token.
type WebhookAccount struct {
	ID             int64  `json:"id"`
	PlatformUserID string `json:"platform_user_id"`
	Username       string `json:"username"`
	AccessToken    string `json:"access_token"`
}

type WebhookLink struct {
	URL string `json:"url,omitempty"`
}

type WebhookMetadata struct {
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
}

type WebhookPayload struct {
	Event            string                    `json:"event"`
	PostID           int64                     `json:"post_id"`
	UserID           int64                     `json:"user_id"`
	Content          string                    `json:"content"`
	Title            string                    `json:"title"`
	MediaURLs        []string                  `json:"media_urls"`
	MediaType        string                    `json:"media_type"`
	Link             WebhookLink               `json:"link"`
	Platforms        []string                  `json:"platforms"`
	PlatformSettings map[string]map[string]any `json:"platform_settings"`
	ScheduledAt      string                    `json:"scheduled_at"`
	Accounts         map[string]WebhookAccount `json:"accounts"`
	Metadata         WebhookMetadata           `json:"metadata"`
}
