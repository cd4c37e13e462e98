package publisher

import (
	"context"

	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/transfer"
)

// Publisher is one pluggable publishing backend. Publish must capture
// ordinary failures (network errors, upstream 4xx/5xx, per-platform
// rejections) inside the returned result; only the dispatcher converts
// anything unexpected into a failure.
type Publisher interface {
	Name() string
	Supports(platform string) bool
	Publish(ctx context.Context, post *models.Post, accounts map[string]*models.SocialAccount) *transfer.PublishResult
	ValidateAccount(ctx context.Context, account *models.SocialAccount) bool
	RefreshToken(ctx context.Context, account *models.SocialAccount) bool
}
