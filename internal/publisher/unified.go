package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	config "github.com/maheshrc27/publishflow/configs"
	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/repository"
	"github.com/maheshrc27/publishflow/internal/transfer"
)

// unifiedPublisher delivers through a single upstream social API: one request
// describes content plus all target platforms, and the single response is
// fanned back out into per-platform results using the <platform>Id /
// <platform>Url naming convention.
type unifiedPublisher struct {
	apiKey  string
	baseURL string
	sa      repository.SocialAccountRepository
	client  *http.Client
}

var unifiedPlatforms = map[string]struct{}{
	"facebook":  {},
	"instagram": {},
	"twitter":   {},
	"linkedin":  {},
	"tiktok":    {},
	"youtube":   {},
	"pinterest": {},
	"threads":   {},
}

func NewUnifiedPublisher(cfg config.Config, sa repository.SocialAccountRepository) Publisher {
	return &unifiedPublisher{
		apiKey:  cfg.UnifiedAPIKey,
		baseURL: cfg.UnifiedAPIBaseURL,
		sa:      sa,
		client:  &http.Client{Timeout: time.Duration(cfg.PublishTimeoutSecs) * time.Second},
	}
}

func (p *unifiedPublisher) Name() string {
	return "unified"
}

func (p *unifiedPublisher) Supports(platform string) bool {
	_, ok := unifiedPlatforms[platform]
	return ok
}

func (p *unifiedPublisher) Publish(ctx context.Context, post *models.Post, accounts map[string]*models.SocialAccount) *transfer.PublishResult {
	startTime := time.Now()

	// A missing API key is a configuration error; it surfaces on the first
	// publish attempt rather than at construction.
	if p.apiKey == "" {
		return &transfer.PublishResult{
			Success:         false,
			Error:           "unified API key not configured",
			ErrorCode:       "configuration_error",
			ExecutionTimeMs: time.Since(startTime).Milliseconds(),
		}
	}

	payload := p.buildPayload(post, accounts)

	body, err := json.Marshal(payload)
	if err != nil {
		return failedResult(startTime, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/post", bytes.NewReader(body))
	if err != nil {
		return failedResult(startTime, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
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
		var errData map[string]any
		_ = json.Unmarshal(respBody, &errData)

		errMsg := "unified API request failed"
		if msg, ok := errData["message"].(string); ok && msg != "" {
			errMsg = msg
		}

		return &transfer.PublishResult{
			Success:         false,
			Error:           errMsg,
			HTTPStatus:      resp.StatusCode,
			RawResponse:     respBody,
			ExecutionTimeMs: executionMs,
		}
	}

	var data map[string]any
	if err := json.Unmarshal(respBody, &data); err != nil {
		slog.Info(err.Error())
		return failedResult(startTime, err)
	}

	p.applyRateLimitHeaders(ctx, resp.Header, accounts)

	upstreamID, _ := data["id"].(string)

	// An accepted request (the response carries an id) counts as overall
	// success even when individual platforms report embedded errors; callers
	// still have to inspect the per-platform map.
	return &transfer.PublishResult{
		Success:         upstreamID != "",
		PlatformResults: parsePlatformResults(data, post.Platforms),
		UpstreamPostID:  upstreamID,
		HTTPStatus:      resp.StatusCode,
		RawResponse:     respBody,
		ExecutionTimeMs: executionMs,
	}
}

func (p *unifiedPublisher) buildPayload(post *models.Post, accounts map[string]*models.SocialAccount) map[string]any {
	payload := map[string]any{
		"post":      post.Content,
		"platforms": post.Platforms,
	}

	if post.Title != "" {
		payload["title"] = post.Title
	}

	if len(post.MediaURLs) > 0 {
		if post.MediaType == models.MediaTypeVideo {
			payload["videoUrl"] = post.MediaURLs[0]
		} else {
			payload["mediaUrls"] = post.MediaURLs
		}
	}

	if post.LinkURL != "" {
		payload["shorten_links"] = true
	}

	// Platform-specific settings pass through as one top-level key per
	// platform.
	for platform, settings := range post.PlatformSettings {
		payload[platform] = settings
	}

	if !post.ScheduledAt.IsZero() && post.ScheduledAt.After(time.Now()) {
		payload["scheduleDate"] = post.ScheduledAt.Format(time.RFC3339)
	}

	var profileKeys []string
	for _, account := range accounts {
		if key, ok := account.PlatformData["profile_key"]; ok && key != "" {
			profileKeys = append(profileKeys, key)
		}
	}
	if len(profileKeys) > 0 {
		payload["profileKeys"] = profileKeys
	}

	return payload
}

func parsePlatformResults(data map[string]any, platforms []string) map[string]models.PlatformResult {
	upstreamID, _ := data["id"].(string)
	errors, _ := data["errors"].(map[string]any)

	results := make(map[string]models.PlatformResult, len(platforms))
	for _, platform := range platforms {
		postID, _ := data[platform+"Id"].(string)
		postURL, _ := data[platform+"Url"].(string)

		var errMsg string
		if e, ok := errors[platform]; ok && e != nil {
			errMsg = fmt.Sprint(e)
		}

		results[platform] = models.PlatformResult{
			Success: upstreamID != "" && errMsg == "",
			PostID:  postID,
			PostURL: postURL,
			Error:   errMsg,
		}
	}

	return results
}

// applyRateLimitHeaders writes the upstream's X-RateLimit-* snapshot onto
// every involved account. Last write wins across concurrent invocations.
func (p *unifiedPublisher) applyRateLimitHeaders(ctx context.Context, header http.Header, accounts map[string]*models.SocialAccount) {
	remainingValue := header.Get("X-RateLimit-Remaining")
	if remainingValue == "" {
		return
	}

	remaining, err := strconv.Atoi(remainingValue)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var resetAt *time.Time
	if resetValue := header.Get("X-RateLimit-Reset"); resetValue != "" {
		if seconds, err := strconv.Atoi(resetValue); err == nil {
			t := time.Now().Add(time.Duration(seconds) * time.Second)
			resetAt = &t
		}
	}

	for _, account := range accounts {
		if err := p.sa.UpdateRateLimit(ctx, account.ID, remaining, resetAt); err != nil {
			slog.Info(err.Error())
		}
	}
}

func (p *unifiedPublisher) ValidateAccount(ctx context.Context, account *models.SocialAccount) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/profiles", nil)
	if err != nil {
		slog.Info(err.Error())
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var profiles []struct {
		Platform string `json:"platform"`
		ID       string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		slog.Info(err.Error())
		return false
	}

	for _, profile := range profiles {
		if profile.Platform == account.Platform && profile.ID == account.PlatformUserID {
			return true
		}
	}

	return false
}

// RefreshToken: the upstream manages platform tokens itself, so refreshing
// amounts to checking the profile is still live.
func (p *unifiedPublisher) RefreshToken(ctx context.Context, account *models.SocialAccount) bool {
	return p.ValidateAccount(ctx, account)
}

func failedResult(startTime time.Time, err error) *transfer.PublishResult {
	return &transfer.PublishResult{
		Success:         false,
		Error:           err.Error(),
		Exception:       fmt.Sprintf("%T", err),
		ExecutionTimeMs: time.Since(startTime).Milliseconds(),
	}
}
