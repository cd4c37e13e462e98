package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/publishflow/internal/models"
)

func eligibleAccount(id int64, platform, status string) *models.SocialAccount {
	return &models.SocialAccount{
		ID:       id,
		UserID:   10,
		Platform: platform,
		Status:   status,
	}
}

func TestResolvePicksOneAccountPerPlatform(t *testing.T) {
	sa := newFakeSocialAccountRepo(
		eligibleAccount(1, "facebook", models.AccountStatusActive),
		eligibleAccount(2, "twitter", models.AccountStatusActive),
	)
	r := NewAccountResolver(sa)

	post := schedulablePost("facebook", "twitter")
	resolved, err := r.Resolve(context.Background(), post)

	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, int64(1), resolved["facebook"].ID)
	assert.Equal(t, int64(2), resolved["twitter"].ID)
}

func TestResolveNoPlatformsIsAnError(t *testing.T) {
	r := NewAccountResolver(newFakeSocialAccountRepo())

	_, err := r.Resolve(context.Background(), schedulablePost())
	assert.Error(t, err)
}

func TestResolveFirstAccountWinsForDuplicatePlatform(t *testing.T) {
	sa := newFakeSocialAccountRepo(
		eligibleAccount(3, "facebook", models.AccountStatusActive),
		eligibleAccount(8, "facebook", models.AccountStatusActive),
	)
	r := NewAccountResolver(sa)

	resolved, err := r.Resolve(context.Background(), schedulablePost("facebook"))

	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, int64(3), resolved["facebook"].ID)
}

func TestResolveHonorsAccountAllowlist(t *testing.T) {
	sa := newFakeSocialAccountRepo(
		eligibleAccount(3, "facebook", models.AccountStatusActive),
		eligibleAccount(8, "facebook", models.AccountStatusActive),
	)
	r := NewAccountResolver(sa)

	post := schedulablePost("facebook")
	post.AccountIDs = []int64{8}

	resolved, err := r.Resolve(context.Background(), post)

	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, int64(8), resolved["facebook"].ID)
}

func TestResolveReactivatesLapsedRateLimit(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	limited := eligibleAccount(5, "facebook", models.AccountStatusRateLimited)
	limited.RateLimitResetAt = &past
	remaining := 0
	limited.RateLimitRemaining = &remaining

	sa := newFakeSocialAccountRepo(limited)
	r := NewAccountResolver(sa)

	resolved, err := r.Resolve(context.Background(), schedulablePost("facebook"))

	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, models.AccountStatusActive, resolved["facebook"].Status)
	assert.Nil(t, resolved["facebook"].RateLimitRemaining)
	assert.Equal(t, []int64{5}, sa.reactivated)
}

func TestResolveSkipsActiveRateLimit(t *testing.T) {
	future := time.Now().Add(time.Hour)
	limited := eligibleAccount(5, "facebook", models.AccountStatusRateLimited)
	limited.RateLimitResetAt = &future

	sa := newFakeSocialAccountRepo(limited)
	r := NewAccountResolver(sa)

	resolved, err := r.Resolve(context.Background(), schedulablePost("facebook"))

	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Empty(t, sa.reactivated)
}

func TestResolveIgnoresUnrequestedPlatforms(t *testing.T) {
	sa := newFakeSocialAccountRepo(
		eligibleAccount(1, "facebook", models.AccountStatusActive),
		eligibleAccount(2, "linkedin", models.AccountStatusActive),
	)
	r := NewAccountResolver(sa)

	resolved, err := r.Resolve(context.Background(), schedulablePost("facebook"))

	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Contains(t, resolved, "facebook")
}
