package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/publisher"
	"github.com/maheshrc27/publishflow/internal/transfer"
)

type fakePostRepo struct {
	post *models.Post

	publishingCalls int
	publishedWith   map[string]models.PlatformResult
	partialWith     map[string]models.PlatformResult
	partialErrMsg   string
	failedCalls     int
	failedErrMsg    string
	failedResults   map[string]models.PlatformResult
	failedNextRetry *time.Time
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return 0, nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	if f.post == nil || f.post.ID != id {
		return nil, nil
	}
	copied := *f.post
	return &copied, nil
}

func (f *fakePostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return true, nil
}

func (f *fakePostRepo) MarkPublishing(ctx context.Context, id int64) error {
	f.publishingCalls++
	return nil
}

func (f *fakePostRepo) MarkPublished(ctx context.Context, id int64, results map[string]models.PlatformResult) error {
	f.publishedWith = results
	return nil
}

func (f *fakePostRepo) MarkPartiallyPublished(ctx context.Context, id int64, results map[string]models.PlatformResult, errMsg string) error {
	f.partialWith = results
	f.partialErrMsg = errMsg
	return nil
}

func (f *fakePostRepo) MarkFailed(ctx context.Context, id int64, results map[string]models.PlatformResult, errMsg string, details map[string]any, nextRetryAt *time.Time) error {
	f.failedCalls++
	f.failedResults = results
	f.failedErrMsg = errMsg
	f.failedNextRetry = nextRetryAt
	return nil
}

func (f *fakePostRepo) Cancel(ctx context.Context, id int64) (bool, error) { return false, nil }

func (f *fakePostRepo) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) Remove(ctx context.Context, id int64) error { return nil }

type fakeLogRepo struct {
	entries        []*models.PostLog
	statuses       map[int64]string
	doubleFinalize int
	nextID         int64
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{statuses: make(map[int64]string)}
}

func (f *fakeLogRepo) Create(ctx context.Context, entry *models.PostLog) (int64, error) {
	f.nextID++
	entry.ID = f.nextID
	f.entries = append(f.entries, entry)
	f.statuses[entry.ID] = entry.Status
	return entry.ID, nil
}

func (f *fakeLogRepo) MarkSuccess(ctx context.Context, id int64, response json.RawMessage, platformPostID, platformPostURL string, httpStatus *int, executionMs int64) error {
	return f.finalize(id, models.LogStatusSuccess)
}

func (f *fakeLogRepo) MarkFailure(ctx context.Context, id int64, errMsg string, details json.RawMessage, httpStatus *int, executionMs int64) error {
	return f.finalize(id, models.LogStatusFailed)
}

func (f *fakeLogRepo) finalize(id int64, status string) error {
	if f.statuses[id] != models.LogStatusPending {
		f.doubleFinalize++
		return nil
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeLogRepo) GetByID(ctx context.Context, id int64) (*models.PostLog, error) {
	return nil, nil
}

func (f *fakeLogRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostLog, error) {
	return f.entries, nil
}

func (f *fakeLogRepo) ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.PostLog, error) {
	return f.entries, nil
}

type fakeSocialAccountRepo struct {
	eligible    []*models.SocialAccount
	reactivated []int64
	refreshed   []int64
	failed      []int64
	statuses    map[int64]string
}

func newFakeSocialAccountRepo(accounts ...*models.SocialAccount) *fakeSocialAccountRepo {
	return &fakeSocialAccountRepo{eligible: accounts, statuses: make(map[int64]string)}
}

func (f *fakeSocialAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	return 0, nil
}

func (f *fakeSocialAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	for _, a := range f.eligible {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeSocialAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return f.eligible, nil
}

func (f *fakeSocialAccountRepo) ListEligible(ctx context.Context, userID int64, platforms []string) ([]*models.SocialAccount, error) {
	wanted := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		wanted[p] = struct{}{}
	}
	var out []*models.SocialAccount
	for _, a := range f.eligible {
		if a.UserID != userID {
			continue
		}
		if _, ok := wanted[a.Platform]; !ok {
			continue
		}
		if a.Status != models.AccountStatusActive && a.Status != models.AccountStatusRateLimited {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeSocialAccountRepo) ListByTokenExpiry(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeSocialAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return true, nil
}

func (f *fakeSocialAccountRepo) Reactivate(ctx context.Context, id int64) error {
	f.reactivated = append(f.reactivated, id)
	return nil
}

func (f *fakeSocialAccountRepo) UpdateRateLimit(ctx context.Context, id int64, remaining int, resetAt *time.Time) error {
	return nil
}

func (f *fakeSocialAccountRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeSocialAccountRepo) MarkRefreshed(ctx context.Context, id int64) error {
	f.refreshed = append(f.refreshed, id)
	return nil
}

func (f *fakeSocialAccountRepo) MarkFailed(ctx context.Context, id int64, lastError string) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeSocialAccountRepo) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error {
	return nil
}

func (f *fakeSocialAccountRepo) Remove(ctx context.Context, id int64) error { return nil }

type stubResolver struct {
	accounts map[string]*models.SocialAccount
	err      error
}

func (s *stubResolver) Resolve(ctx context.Context, post *models.Post) (map[string]*models.SocialAccount, error) {
	return s.accounts, s.err
}

type stubPublisher struct {
	name      string
	result    *transfer.PublishResult
	panicMsg  string
	refreshOK bool
	calls     int
}

func (s *stubPublisher) Name() string                  { return s.name }
func (s *stubPublisher) Supports(platform string) bool { return true }

func (s *stubPublisher) Publish(ctx context.Context, post *models.Post, accounts map[string]*models.SocialAccount) *transfer.PublishResult {
	s.calls++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.result
}

func (s *stubPublisher) ValidateAccount(ctx context.Context, account *models.SocialAccount) bool {
	return true
}

func (s *stubPublisher) RefreshToken(ctx context.Context, account *models.SocialAccount) bool {
	return s.refreshOK
}

func schedulablePost(platforms ...string) *models.Post {
	return &models.Post{
		ID:          1,
		UserID:      10,
		Content:     "hello",
		Platforms:   platforms,
		Status:      models.PostStatusScheduled,
		MaxAttempts: 3,
	}
}

func resolvedAccounts(platforms ...string) map[string]*models.SocialAccount {
	accounts := make(map[string]*models.SocialAccount, len(platforms))
	for i, p := range platforms {
		accounts[p] = &models.SocialAccount{
			ID:       int64(i + 1),
			UserID:   10,
			Platform: p,
			Status:   models.AccountStatusActive,
		}
	}
	return accounts
}

func newTestDispatcher(pr *fakePostRepo, lr *fakeLogRepo, sa *fakeSocialAccountRepo, resolver AccountResolver, pubs ...publisher.Publisher) PublishDispatcher {
	return NewPublishDispatcher(publisher.NewRegistry(pubs...), resolver, pr, lr, sa, "stub")
}

func TestPublishPostAllPlatformsSucceed(t *testing.T) {
	pr := &fakePostRepo{post: schedulablePost("facebook", "twitter")}
	lr := newFakeLogRepo()
	sa := newFakeSocialAccountRepo()

	pub := &stubPublisher{
		name: "stub",
		result: &transfer.PublishResult{
			Success: true,
			PlatformResults: map[string]models.PlatformResult{
				"facebook": {Success: true, PostID: "fb-1"},
				"twitter":  {Success: true, PostID: "tw-1"},
			},
		},
	}

	d := newTestDispatcher(pr, lr, sa, &stubResolver{accounts: resolvedAccounts("facebook", "twitter")}, pub)
	result := d.PublishPost(context.Background(), 1, "")

	require.True(t, result.Success)
	assert.Equal(t, 1, pr.publishingCalls)
	assert.Equal(t, 1, pub.calls)
	require.NotNil(t, pr.publishedWith)
	assert.Equal(t, 0, pr.failedCalls)

	// One audit row per platform, in the post's platform order, each
	// finalized exactly once.
	require.Len(t, lr.entries, 2)
	assert.Equal(t, "facebook", lr.entries[0].Platform)
	assert.Equal(t, "twitter", lr.entries[1].Platform)
	assert.Equal(t, 0, lr.doubleFinalize)
	for _, entry := range lr.entries {
		assert.Equal(t, models.LogStatusSuccess, lr.statuses[entry.ID])
		assert.Equal(t, 1, entry.AttemptNumber)
		assert.NotNil(t, entry.AccountID)
	}
}

func TestPublishPostPartialSuccess(t *testing.T) {
	pr := &fakePostRepo{post: schedulablePost("facebook", "twitter")}
	lr := newFakeLogRepo()

	pub := &stubPublisher{
		name: "stub",
		result: &transfer.PublishResult{
			Success: true,
			PlatformResults: map[string]models.PlatformResult{
				"facebook": {Success: true, PostID: "fb-1"},
				"twitter":  {Success: false, Error: "duplicate content"},
			},
		},
	}

	d := newTestDispatcher(pr, lr, newFakeSocialAccountRepo(), &stubResolver{accounts: resolvedAccounts("facebook", "twitter")}, pub)
	d.PublishPost(context.Background(), 1, "")

	require.NotNil(t, pr.partialWith)
	assert.Equal(t, "duplicate content", pr.partialErrMsg)
	assert.Nil(t, pr.publishedWith)
	assert.Equal(t, 0, pr.failedCalls)

	assert.Equal(t, models.LogStatusSuccess, lr.statuses[lr.entries[0].ID])
	assert.Equal(t, models.LogStatusFailed, lr.statuses[lr.entries[1].ID])
}

func TestPublishPostAllFailSchedulesRetry(t *testing.T) {
	pr := &fakePostRepo{post: schedulablePost("facebook")}
	lr := newFakeLogRepo()

	pub := &stubPublisher{
		name: "stub",
		result: &transfer.PublishResult{
			Success: false,
			Error:   "upstream unreachable",
			PlatformResults: map[string]models.PlatformResult{
				"facebook": {Success: false, Error: "upstream unreachable"},
			},
		},
	}

	d := newTestDispatcher(pr, lr, newFakeSocialAccountRepo(), &stubResolver{accounts: resolvedAccounts("facebook")}, pub)
	result := d.PublishPost(context.Background(), 1, "")

	assert.False(t, result.Success)
	require.Equal(t, 1, pr.failedCalls)
	assert.Equal(t, "upstream unreachable", pr.failedErrMsg)

	// First attempt failed, so the retry lands one minute out.
	require.NotNil(t, pr.failedNextRetry)
	assert.WithinDuration(t, time.Now().Add(time.Minute), *pr.failedNextRetry, 5*time.Second)
}

func TestPublishPostLastAttemptGetsNoRetry(t *testing.T) {
	post := schedulablePost("facebook")
	post.Status = models.PostStatusFailed
	post.Attempts = 2
	pr := &fakePostRepo{post: post}

	pub := &stubPublisher{
		name: "stub",
		result: &transfer.PublishResult{
			Success: false,
			Error:   "still down",
			PlatformResults: map[string]models.PlatformResult{
				"facebook": {Success: false, Error: "still down"},
			},
		},
	}

	d := newTestDispatcher(pr, newFakeLogRepo(), newFakeSocialAccountRepo(), &stubResolver{accounts: resolvedAccounts("facebook")}, pub)
	d.PublishPost(context.Background(), 1, "")

	require.Equal(t, 1, pr.failedCalls)
	assert.Nil(t, pr.failedNextRetry)
}

func TestPublishPostNoEligibleAccounts(t *testing.T) {
	pr := &fakePostRepo{post: schedulablePost("facebook")}
	lr := newFakeLogRepo()
	pub := &stubPublisher{name: "stub", result: &transfer.PublishResult{Success: true}}

	d := newTestDispatcher(pr, lr, newFakeSocialAccountRepo(), &stubResolver{accounts: map[string]*models.SocialAccount{}}, pub)
	result := d.PublishPost(context.Background(), 1, "")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no active social accounts")

	// The failure happens before the publisher runs: no publish call, no
	// audit rows, no retry.
	assert.Equal(t, 0, pub.calls)
	assert.Empty(t, lr.entries)
	require.Equal(t, 1, pr.failedCalls)
	assert.Nil(t, pr.failedNextRetry)
}

func TestPublishPostResolverErrorIsRetryable(t *testing.T) {
	pr := &fakePostRepo{post: schedulablePost("facebook")}
	pub := &stubPublisher{name: "stub", result: &transfer.PublishResult{Success: true}}

	d := newTestDispatcher(pr, newFakeLogRepo(), newFakeSocialAccountRepo(), &stubResolver{err: errors.New("db down")}, pub)
	result := d.PublishPost(context.Background(), 1, "")

	assert.False(t, result.Success)
	assert.Equal(t, 0, pub.calls)
	require.Equal(t, 1, pr.failedCalls)
	assert.NotNil(t, pr.failedNextRetry)
}

func TestPublishPostPanicContained(t *testing.T) {
	pr := &fakePostRepo{post: schedulablePost("facebook")}
	lr := newFakeLogRepo()
	pub := &stubPublisher{name: "stub", panicMsg: "nil map write"}

	d := newTestDispatcher(pr, lr, newFakeSocialAccountRepo(), &stubResolver{accounts: resolvedAccounts("facebook")}, pub)

	var result *transfer.PublishResult
	require.NotPanics(t, func() {
		result = d.PublishPost(context.Background(), 1, "")
	})

	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "nil map write")
	require.Equal(t, 1, pr.failedCalls)
	assert.NotNil(t, pr.failedNextRetry)
}

func TestPublishPostUnknownPublisher(t *testing.T) {
	pr := &fakePostRepo{post: schedulablePost("facebook")}
	pub := &stubPublisher{name: "stub", result: &transfer.PublishResult{Success: true}}

	d := newTestDispatcher(pr, newFakeLogRepo(), newFakeSocialAccountRepo(), &stubResolver{accounts: resolvedAccounts("facebook")}, pub)
	result := d.PublishPost(context.Background(), 1, "missing")

	assert.False(t, result.Success)
	assert.Equal(t, "configuration_error", result.ErrorCode)
	assert.Equal(t, 0, pub.calls)

	// Misconfiguration cannot be fixed by retrying.
	require.Equal(t, 1, pr.failedCalls)
	assert.Nil(t, pr.failedNextRetry)
}

func TestPublishPostEmptyResultMapSynthesized(t *testing.T) {
	pr := &fakePostRepo{post: schedulablePost("facebook", "twitter")}
	lr := newFakeLogRepo()

	pub := &stubPublisher{
		name:   "stub",
		result: &transfer.PublishResult{Success: false, Error: "connection refused"},
	}

	d := newTestDispatcher(pr, lr, newFakeSocialAccountRepo(), &stubResolver{accounts: resolvedAccounts("facebook", "twitter")}, pub)
	result := d.PublishPost(context.Background(), 1, "")

	require.Len(t, result.PlatformResults, 2)
	for _, prr := range result.PlatformResults {
		assert.False(t, prr.Success)
		assert.Equal(t, "connection refused", prr.Error)
	}

	require.Len(t, lr.entries, 2)
	for _, entry := range lr.entries {
		assert.Equal(t, models.LogStatusFailed, lr.statuses[entry.ID])
	}
}

func TestPublishPostRejectsTerminalStates(t *testing.T) {
	for _, status := range []string{
		models.PostStatusPublished,
		models.PostStatusPartiallyPublished,
		models.PostStatusCancelled,
	} {
		post := schedulablePost("facebook")
		post.Status = status
		pr := &fakePostRepo{post: post}
		pub := &stubPublisher{name: "stub", result: &transfer.PublishResult{Success: true}}

		d := newTestDispatcher(pr, newFakeLogRepo(), newFakeSocialAccountRepo(), &stubResolver{accounts: resolvedAccounts("facebook")}, pub)
		result := d.PublishPost(context.Background(), 1, "")

		assert.False(t, result.Success, status)
		assert.Equal(t, 0, pr.publishingCalls, status)
		assert.Equal(t, 0, pub.calls, status)
	}
}

func TestPublishPostRejectsExhaustedAttempts(t *testing.T) {
	post := schedulablePost("facebook")
	post.Status = models.PostStatusFailed
	post.Attempts = 3
	pr := &fakePostRepo{post: post}
	pub := &stubPublisher{name: "stub", result: &transfer.PublishResult{Success: true}}

	d := newTestDispatcher(pr, newFakeLogRepo(), newFakeSocialAccountRepo(), &stubResolver{accounts: resolvedAccounts("facebook")}, pub)
	result := d.PublishPost(context.Background(), 1, "")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "exhausted")
	assert.Equal(t, 0, pr.publishingCalls)
}

func TestRefreshAccountToken(t *testing.T) {
	account := &models.SocialAccount{ID: 7, UserID: 10, Platform: "facebook"}

	t.Run("success", func(t *testing.T) {
		sa := newFakeSocialAccountRepo()
		lr := newFakeLogRepo()
		pub := &stubPublisher{name: "stub", refreshOK: true}

		d := newTestDispatcher(&fakePostRepo{}, lr, sa, &stubResolver{}, pub)

		assert.True(t, d.RefreshAccountToken(context.Background(), account))
		assert.Equal(t, []int64{7}, sa.refreshed)
		require.Len(t, lr.entries, 1)
		assert.Equal(t, models.LogActionTokenRefresh, lr.entries[0].Action)
	})

	t.Run("failure", func(t *testing.T) {
		sa := newFakeSocialAccountRepo()
		lr := newFakeLogRepo()
		pub := &stubPublisher{name: "stub", refreshOK: false}

		d := newTestDispatcher(&fakePostRepo{}, lr, sa, &stubResolver{}, pub)

		assert.False(t, d.RefreshAccountToken(context.Background(), account))
		assert.Equal(t, models.AccountStatusTokenExpired, sa.statuses[7])
		assert.Equal(t, []int64{7}, sa.failed)
		require.Len(t, lr.entries, 1)
		assert.Equal(t, models.LogActionTokenRefreshFailed, lr.entries[0].Action)
	})
}
