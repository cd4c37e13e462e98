package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	config "github.com/maheshrc27/publishflow/configs"
	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/transfer"
)

// webhookPublisher serializes the whole post, decrypted account tokens
// included, and hands it to an external automation system. It cannot
// distinguish per-platform outcomes: a 2xx means every requested platform
// succeeded, anything else means total failure.
type webhookPublisher struct {
	webhookURL string
	secretKey  string
	client     *http.Client
}

func NewWebhookPublisher(cfg config.Config) Publisher {
	return &webhookPublisher{
		webhookURL: cfg.WebhookURL,
		secretKey:  cfg.SecretKey,
		client:     &http.Client{Timeout: time.Duration(cfg.PublishTimeoutSecs) * time.Second},
	}
}

func (p *webhookPublisher) Name() string {
	return "webhook"
}

// Supports: the receiving automation system decides what it can publish, so
// every platform is accepted here.
func (p *webhookPublisher) Supports(platform string) bool {
	return true
}

func (p *webhookPublisher) Publish(ctx context.Context, post *models.Post, accounts map[string]*models.SocialAccount) *transfer.PublishResult {
	startTime := time.Now()

	if p.webhookURL == "" {
		return &transfer.PublishResult{
			Success:         false,
			Error:           "webhook URL not configured",
			ErrorCode:       "configuration_error",
			ExecutionTimeMs: time.Since(startTime).Milliseconds(),
		}
	}

	payload, err := p.buildPayload(post, accounts)
	if err != nil {
		return failedResult(startTime, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failedResult(startTime, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
	if err != nil {
		return failedResult(startTime, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return failedResult(startTime, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return failedResult(startTime, err)
	}

	executionMs := time.Since(startTime).Milliseconds()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errMsg := fmt.Sprintf("webhook request failed: %d", resp.StatusCode)

		// Total failure for every requested platform, uniformly.
		results := make(map[string]models.PlatformResult, len(post.Platforms))
		for _, platform := range post.Platforms {
			results[platform] = models.PlatformResult{
				Success: false,
				Error:   errMsg,
			}
		}

		return &transfer.PublishResult{
			Success:         false,
			PlatformResults: results,
			Error:           errMsg,
			HTTPStatus:      resp.StatusCode,
			RawResponse:     respBody,
			ExecutionTimeMs: executionMs,
		}
	}

	var data map[string]any
	_ = json.Unmarshal(respBody, &data)
	postID, _ := data["post_id"].(string)
	postURL, _ := data["post_url"].(string)

	results := make(map[string]models.PlatformResult, len(post.Platforms))
	for _, platform := range post.Platforms {
		results[platform] = models.PlatformResult{
			Success: true,
			PostID:  postID,
			PostURL: postURL,
		}
	}

	return &transfer.PublishResult{
		Success:         true,
		PlatformResults: results,
		HTTPStatus:      resp.StatusCode,
		RawResponse:     respBody,
		ExecutionTimeMs: executionMs,
	}
}

func (p *webhookPublisher) buildPayload(post *models.Post, accounts map[string]*models.SocialAccount) (*transfer.WebhookPayload, error) {
	accountsData := make(map[string]transfer.WebhookAccount, len(accounts))
	for platform, account := range accounts {
		creds, err := DecryptCredentials(account, p.secretKey)
		if err != nil {
			return nil, fmt.Errorf("decrypting credentials for %s: %w", platform, err)
		}

		accountsData[platform] = transfer.WebhookAccount{
			ID:             account.ID,
			PlatformUserID: account.PlatformUserID,
			Username:       account.Username,
			AccessToken:    creds.AccessToken,
		}
	}

	scheduledAt := ""
	if !post.ScheduledAt.IsZero() {
		scheduledAt = post.ScheduledAt.Format(time.RFC3339)
	}

	return &transfer.WebhookPayload{
		Event:            "social_post_publish",
		PostID:           post.ID,
		UserID:           post.UserID,
		Content:          post.Content,
		Title:            post.Title,
		MediaURLs:        post.MediaURLs,
		MediaType:        post.MediaType,
		Link:             transfer.WebhookLink{URL: post.LinkURL},
		Platforms:        post.Platforms,
		PlatformSettings: post.PlatformSettings,
		ScheduledAt:      scheduledAt,
		Accounts:         accountsData,
		Metadata: transfer.WebhookMetadata{
			Attempt:   post.Attempts,
			CreatedAt: post.CreatedAt,
		},
	}, nil
}

// ValidateAccount: validation happens on the receiving side.
func (p *webhookPublisher) ValidateAccount(ctx context.Context, account *models.SocialAccount) bool {
	return true
}

func (p *webhookPublisher) RefreshToken(ctx context.Context, account *models.SocialAccount) bool {
	slog.Warn("token refresh not supported by webhook publisher",
		"account_id", account.ID)
	return false
}
