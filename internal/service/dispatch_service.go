package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/publisher"
	"github.com/maheshrc27/publishflow/internal/repository"
	"github.com/maheshrc27/publishflow/internal/transfer"
)

const errCodeConfiguration = "configuration_error"

// publishBackoff is the retry schedule indexed by completed attempts.
var publishBackoff = []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute}

// PublishDispatcher processes one post to completion per invocation: resolve
// accounts, pick a publisher, invoke it, classify the outcome, update the
// post and write the attempt log. It never lets an error escape to the
// caller; every path comes back as a PublishResult.
type PublishDispatcher interface {
	PublishPost(ctx context.Context, postID int64, preferredPublisher string) *transfer.PublishResult
	RefreshAccountToken(ctx context.Context, account *models.SocialAccount) bool
}

type publishDispatcher struct {
	registry    *publisher.Registry
	resolver    AccountResolver
	pr          repository.PostRepository
	lr          repository.PostLogRepository
	sa          repository.SocialAccountRepository
	defaultName string
}

func NewPublishDispatcher(
	registry *publisher.Registry,
	resolver AccountResolver,
	pr repository.PostRepository,
	lr repository.PostLogRepository,
	sa repository.SocialAccountRepository,
	defaultPublisher string) PublishDispatcher {
	return &publishDispatcher{
		registry:    registry,
		resolver:    resolver,
		pr:          pr,
		lr:          lr,
		sa:          sa,
		defaultName: defaultPublisher,
	}
}

// pendingEntry tracks one pre-created log row awaiting its terminal update.
type pendingEntry struct {
	platform string
	logID    int64
}

func (d *publishDispatcher) PublishPost(ctx context.Context, postID int64, preferredPublisher string) (result *transfer.PublishResult) {
	startTime := time.Now()

	post, err := d.pr.GetByID(ctx, postID)
	if err != nil {
		return dispatchFailure(startTime, fmt.Sprintf("loading post %d: %v", postID, err), err)
	}
	if post == nil {
		return dispatchFailure(startTime, fmt.Sprintf("post %d not found", postID), nil)
	}

	if post.Status == models.PostStatusPublished ||
		post.Status == models.PostStatusPartiallyPublished ||
		post.Status == models.PostStatusCancelled {
		return dispatchFailure(startTime, fmt.Sprintf("post %d is %s, not publishable", postID, post.Status), nil)
	}
	if post.Status == models.PostStatusFailed && !post.CanRetry() {
		return dispatchFailure(startTime, fmt.Sprintf("post %d has exhausted its %d attempts", postID, post.MaxAttempts), nil)
	}

	if err := d.pr.MarkPublishing(ctx, post.ID); err != nil {
		return dispatchFailure(startTime, fmt.Sprintf("claiming post %d: %v", postID, err), err)
	}
	post.Status = models.PostStatusPublishing
	post.Attempts++

	// The dispatcher is the containment boundary: a panicking publisher must
	// not crash the worker, so it is converted into a failed result here.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while publishing post", "post_id", post.ID, "panic", rec)
			errMsg := fmt.Sprintf("unexpected error: %v", rec)
			d.markFailed(ctx, post, nil, errMsg,
				map[string]any{"exception": "panic"}, true, startTime)
			result = dispatchFailure(startTime, errMsg, nil)
		}
	}()

	name := preferredPublisher
	if name == "" {
		name = d.defaultName
	}
	pub := d.registry.Get(name)
	if pub == nil {
		errMsg := fmt.Sprintf("publisher %q not available", name)
		d.markFailed(ctx, post, nil, errMsg,
			map[string]any{"error_code": errCodeConfiguration}, false, startTime)
		result := dispatchFailure(startTime, errMsg, nil)
		result.ErrorCode = errCodeConfiguration
		return result
	}

	accounts, err := d.resolver.Resolve(ctx, post)
	if err != nil {
		errMsg := fmt.Sprintf("resolving accounts: %v", err)
		d.markFailed(ctx, post, nil, errMsg,
			map[string]any{"exception": fmt.Sprintf("%T", err)}, true, startTime)
		return dispatchFailure(startTime, errMsg, err)
	}
	if len(accounts) == 0 {
		// Terminal for this attempt: retrying cannot help until new accounts
		// become active, so no retry is scheduled. The failure happens before
		// the publisher is invoked, so no log entries are written.
		errMsg := "no active social accounts found for the target platforms"
		d.markFailed(ctx, post, nil, errMsg, nil, false, startTime)
		return dispatchFailure(startTime, errMsg, nil)
	}

	pending := d.createPendingEntries(ctx, post, accounts, name)

	result = pub.Publish(ctx, post, accounts)
	executionMs := time.Since(startTime).Milliseconds()
	if result.ExecutionTimeMs == 0 {
		result.ExecutionTimeMs = executionMs
	}

	// A publisher that could not produce a per-platform map (transport
	// exception, missing configuration) failed every target uniformly.
	if len(result.PlatformResults) == 0 {
		result.PlatformResults = make(map[string]models.PlatformResult, len(post.Platforms))
		for _, platform := range post.Platforms {
			result.PlatformResults[platform] = models.PlatformResult{
				Success: false,
				Error:   result.Error,
			}
		}
	}

	d.finalizeEntries(ctx, pending, result, executionMs)
	d.recordOutcome(ctx, post, result, startTime)

	return result
}

// createPendingEntries writes one pending log row per target platform, in the
// order platforms appear on the post.
func (d *publishDispatcher) createPendingEntries(ctx context.Context, post *models.Post, accounts map[string]*models.SocialAccount, publisherName string) []pendingEntry {
	entries := make([]pendingEntry, 0, len(post.Platforms))
	for _, platform := range post.Platforms {
		entry := &models.PostLog{
			UserID:        post.UserID,
			PostID:        post.ID,
			Platform:      platform,
			Action:        models.LogActionPublishAttempt,
			PublishMethod: publisherName,
			Status:        models.LogStatusPending,
			AttemptNumber: post.Attempts,
		}
		if account, ok := accounts[platform]; ok {
			entry.AccountID = &account.ID
			entry.RateLimitRemaining = account.RateLimitRemaining
			entry.RateLimitResetAt = account.RateLimitResetAt
		}

		id, err := d.lr.Create(ctx, entry)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		entries = append(entries, pendingEntry{platform: platform, logID: id})
	}
	return entries
}

// finalizeEntries transitions each pending row to success or failed exactly
// once, in platform order.
func (d *publishDispatcher) finalizeEntries(ctx context.Context, pending []pendingEntry, result *transfer.PublishResult, executionMs int64) {
	var httpStatus *int
	if result.HTTPStatus != 0 {
		httpStatus = &result.HTTPStatus
	}

	for _, entry := range pending {
		platformResult, ok := result.PlatformResults[entry.platform]
		if ok && platformResult.Success {
			if err := d.lr.MarkSuccess(ctx, entry.logID, result.RawResponse,
				platformResult.PostID, platformResult.PostURL, httpStatus, executionMs); err != nil {
				slog.Info(err.Error())
			}
			continue
		}

		errMsg := platformResult.Error
		if errMsg == "" {
			errMsg = result.Error
		}
		if errMsg == "" {
			errMsg = "unknown error"
		}

		var details json.RawMessage
		if ok {
			details, _ = json.Marshal(platformResult)
		} else if len(result.RawResponse) > 0 {
			details = result.RawResponse
		}

		if err := d.lr.MarkFailure(ctx, entry.logID, errMsg, details, httpStatus, executionMs); err != nil {
			slog.Info(err.Error())
		}
	}
}

// recordOutcome classifies the attempt purely from the per-platform map: all
// succeeded, a strict subset succeeded, or none did.
func (d *publishDispatcher) recordOutcome(ctx context.Context, post *models.Post, result *transfer.PublishResult, startTime time.Time) {
	succeeded := result.SucceededCount()

	switch {
	case succeeded == len(result.PlatformResults):
		if err := d.pr.MarkPublished(ctx, post.ID, result.PlatformResults); err != nil {
			slog.Info(err.Error())
		}

	case succeeded > 0:
		errMsg := firstFailureError(post.Platforms, result.PlatformResults)
		if errMsg == "" {
			errMsg = "some platforms failed"
		}
		if err := d.pr.MarkPartiallyPublished(ctx, post.ID, result.PlatformResults, errMsg); err != nil {
			slog.Info(err.Error())
		}

	default:
		errMsg := result.Error
		if errMsg == "" {
			errMsg = firstFailureError(post.Platforms, result.PlatformResults)
		}
		if errMsg == "" {
			errMsg = "unknown error"
		}

		details := map[string]any{"execution_time_ms": result.ExecutionTimeMs}
		if result.Exception != "" {
			details["exception"] = result.Exception
		}
		if result.HTTPStatus != 0 {
			details["http_status"] = result.HTTPStatus
		}

		retryable := result.ErrorCode != errCodeConfiguration
		d.markFailedWithResults(ctx, post, result.PlatformResults, errMsg, details, retryable)
	}
}

func firstFailureError(platforms []string, results map[string]models.PlatformResult) string {
	for _, platform := range platforms {
		if r, ok := results[platform]; ok && !r.Success && r.Error != "" {
			return r.Error
		}
	}
	return ""
}

func (d *publishDispatcher) markFailed(ctx context.Context, post *models.Post, results map[string]models.PlatformResult, errMsg string, details map[string]any, retryable bool, startTime time.Time) {
	if details == nil {
		details = make(map[string]any)
	}
	details["execution_time_ms"] = time.Since(startTime).Milliseconds()
	d.markFailedWithResults(ctx, post, results, errMsg, details, retryable)
}

func (d *publishDispatcher) markFailedWithResults(ctx context.Context, post *models.Post, results map[string]models.PlatformResult, errMsg string, details map[string]any, retryable bool) {
	var nextRetryAt *time.Time
	if retryable && post.CanRetry() {
		backoff := publishBackoff[len(publishBackoff)-1]
		if post.Attempts-1 < len(publishBackoff) {
			backoff = publishBackoff[post.Attempts-1]
		}
		t := time.Now().Add(backoff)
		nextRetryAt = &t
	}

	if err := d.pr.MarkFailed(ctx, post.ID, results, errMsg, details, nextRetryAt); err != nil {
		slog.Info(err.Error())
	}
}

// RefreshAccountToken refreshes through the default publisher and records the
// outcome on the account and in the log.
func (d *publishDispatcher) RefreshAccountToken(ctx context.Context, account *models.SocialAccount) bool {
	pub := d.registry.Get(d.defaultName)
	if pub == nil {
		return false
	}

	success := pub.RefreshToken(ctx, account)

	entry := &models.PostLog{
		UserID:        account.UserID,
		PostID:        0,
		AccountID:     &account.ID,
		Platform:      account.Platform,
		PublishMethod: d.defaultName,
	}

	if success {
		if err := d.sa.MarkRefreshed(ctx, account.ID); err != nil {
			slog.Info(err.Error())
		}
		entry.Action = models.LogActionTokenRefresh
		entry.Status = models.LogStatusSuccess
	} else {
		if err := d.sa.UpdateStatus(ctx, account.ID, models.AccountStatusTokenExpired); err != nil {
			slog.Info(err.Error())
		}
		// Repeated refresh failures eventually flip the account to
		// authentication_failed via the failure counter.
		if err := d.sa.MarkFailed(ctx, account.ID, "failed to refresh token"); err != nil {
			slog.Info(err.Error())
		}
		entry.Action = models.LogActionTokenRefreshFailed
		entry.Status = models.LogStatusFailed
		entry.ErrorMessage = "failed to refresh token"
	}

	if _, err := d.lr.Create(ctx, entry); err != nil {
		slog.Info(err.Error())
	}

	return success
}

func dispatchFailure(startTime time.Time, errMsg string, cause error) *transfer.PublishResult {
	result := &transfer.PublishResult{
		Success:         false,
		Error:           errMsg,
		ExecutionTimeMs: time.Since(startTime).Milliseconds(),
	}
	if cause != nil {
		result.Exception = fmt.Sprintf("%T", cause)
	}
	return result
}
