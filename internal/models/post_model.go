package models

import "time"

type Post struct {
	ID               int64                     `db:"id" json:"id"`
	UserID           int64                     `db:"user_id" json:"user_id"`
	Content          string                    `db:"content" json:"content"`
	Title            string                    `db:"title" json:"title"`
	MediaURLs        []string                  `db:"media_urls" json:"media_urls"`
	MediaType        string                    `db:"media_type" json:"media_type"`
	LinkURL          string                    `db:"link_url" json:"link_url"`
	Platforms        []string                  `db:"platforms" json:"platforms"`
	AccountIDs       []int64                   `db:"account_ids" json:"account_ids"`
	PlatformSettings map[string]map[string]any `db:"platform_settings" json:"platform_settings"`
	ScheduledAt      time.Time                 `db:"scheduled_at" json:"scheduled_at"`
	Status           string                    `db:"status" json:"status"`
	ErrorMessage     string                    `db:"error_message" json:"error_message"`
	ErrorDetails     map[string]any            `db:"error_details" json:"error_details"`
	Attempts         int                       `db:"attempts" json:"attempts"`
	MaxAttempts      int                       `db:"max_attempts" json:"max_attempts"`
	LastAttemptAt    *time.Time                `db:"last_attempt_at" json:"last_attempt_at"`
	NextRetryAt      *time.Time                `db:"next_retry_at" json:"next_retry_at"`
	PublishedAt      *time.Time                `db:"published_at" json:"published_at"`
	PublishResults   map[string]PlatformResult `db:"publish_results" json:"publish_results"`
	CreatedAt        time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                 `db:"updated_at" json:"updated_at"`
}

// PlatformResult is the per-platform outcome of one publish attempt. It is
// persisted on the post (publish_results) and echoed in attempt log rows.
type PlatformResult struct {
	Success        bool                `json:"success"`
	PostID         string              `json:"post_id,omitempty"`
	PostURL        string              `json:"post_url,omitempty"`
	Error          string              `json:"error,omitempty"`
	ManualRequired bool                `json:"manual_publishing_required,omitempty"`
	Instructions   *ManualInstructions `json:"instructions,omitempty"`
}

// ManualInstructions tell a user how to publish by hand when no automated
// backend can serve a platform.
type ManualInstructions struct {
	URL   string   `json:"url"`
	Steps []string `json:"steps"`
}

const (
	PostStatusDraft              = "draft"
	PostStatusScheduled          = "scheduled"
	PostStatusPublishing         = "publishing"
	PostStatusPublished          = "published"
	PostStatusPartiallyPublished = "partially_published"
	PostStatusFailed             = "failed"
	PostStatusCancelled          = "cancelled"
)

const (
	MediaTypeNone     = "none"
	MediaTypeImage    = "image"
	MediaTypeVideo    = "video"
	MediaTypeCarousel = "carousel"
	MediaTypeLink     = "link"
)

// IsTerminal reports whether no further publish attempts may touch the post.
// A failed post is terminal only once its attempts are exhausted.
func (p *Post) IsTerminal() bool {
	switch p.Status {
	case PostStatusPublished, PostStatusPartiallyPublished, PostStatusCancelled:
		return true
	case PostStatusFailed:
		return !p.CanRetry()
	}
	return false
}

func (p *Post) CanRetry() bool {
	return p.Attempts < p.MaxAttempts
}

// Cancellable is true only before the dispatcher has claimed the post.
func (p *Post) Cancellable() bool {
	return p.Status == PostStatusDraft || p.Status == PostStatusScheduled
}
