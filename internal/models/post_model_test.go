package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostIsTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		PostStatusDraft:              false,
		PostStatusScheduled:          false,
		PostStatusPublishing:         false,
		PostStatusPublished:          true,
		PostStatusPartiallyPublished: true,
		PostStatusCancelled:          true,
	} {
		p := &Post{Status: status, Attempts: 0, MaxAttempts: 3}
		assert.Equal(t, terminal, p.IsTerminal(), status)
	}

	// Failed is terminal only once attempts run out.
	retryable := &Post{Status: PostStatusFailed, Attempts: 1, MaxAttempts: 3}
	assert.False(t, retryable.IsTerminal())

	exhausted := &Post{Status: PostStatusFailed, Attempts: 3, MaxAttempts: 3}
	assert.True(t, exhausted.IsTerminal())
}

func TestPostCancellable(t *testing.T) {
	assert.True(t, (&Post{Status: PostStatusDraft}).Cancellable())
	assert.True(t, (&Post{Status: PostStatusScheduled}).Cancellable())
	assert.False(t, (&Post{Status: PostStatusPublishing}).Cancellable())
	assert.False(t, (&Post{Status: PostStatusFailed}).Cancellable())
}

func TestRateLimitExpired(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	lapsed := &SocialAccount{Status: AccountStatusRateLimited, RateLimitResetAt: &past}
	assert.True(t, lapsed.RateLimitExpired())

	pending := &SocialAccount{Status: AccountStatusRateLimited, RateLimitResetAt: &future}
	assert.False(t, pending.RateLimitExpired())

	noReset := &SocialAccount{Status: AccountStatusRateLimited}
	assert.False(t, noReset.RateLimitExpired())

	active := &SocialAccount{Status: AccountStatusActive, RateLimitResetAt: &past}
	assert.False(t, active.RateLimitExpired())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Twitter / X", PlatformLabel("twitter"))
	assert.Equal(t, "mastodon", PlatformLabel("mastodon"))
	assert.Equal(t, "Partially published", PostStatusLabel(PostStatusPartiallyPublished))
	assert.Equal(t, "Token expired", AccountStatusLabel(AccountStatusTokenExpired))
}
