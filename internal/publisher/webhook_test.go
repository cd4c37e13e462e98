package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/transfer"
	"github.com/maheshrc27/publishflow/pkg/utils"
)

const webhookTestKey = "0123456789abcdef0123456789abcdef"

func newTestWebhook(url string) *webhookPublisher {
	return &webhookPublisher{
		webhookURL: url,
		secretKey:  webhookTestKey,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func encryptedToken(t *testing.T, plaintext string) string {
	t.Helper()
	token, err := utils.Encrypt([]byte(plaintext), []byte(webhookTestKey))
	require.NoError(t, err)
	return token
}

func TestWebhookPublishSuccess(t *testing.T) {
	var gotPayload transfer.WebhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(map[string]any{
			"post_id":  "ext-1",
			"post_url": "https://example.com/p/ext-1",
		})
	}))
	defer server.Close()

	p := newTestWebhook(server.URL)

	post := testPost("facebook", "mastodon")
	accounts := map[string]*models.SocialAccount{
		"facebook": {
			ID:             5,
			Platform:       "facebook",
			PlatformUserID: "fb-user",
			Username:       "someone",
			AccessToken:    encryptedToken(t, "plain-token"),
		},
	}

	result := p.Publish(context.Background(), post, accounts)

	require.True(t, result.Success)
	require.Len(t, result.PlatformResults, 2)
	for _, platform := range post.Platforms {
		pr := result.PlatformResults[platform]
		assert.True(t, pr.Success)
		assert.Equal(t, "ext-1", pr.PostID)
		assert.Equal(t, "https://example.com/p/ext-1", pr.PostURL)
	}

	assert.Equal(t, "social_post_publish", gotPayload.Event)
	assert.Equal(t, post.ID, gotPayload.PostID)
	assert.Equal(t, post.Platforms, gotPayload.Platforms)

	// The receiving system gets the decrypted token.
	require.Contains(t, gotPayload.Accounts, "facebook")
	assert.Equal(t, "plain-token", gotPayload.Accounts["facebook"].AccessToken)
}

func TestWebhookPublishNon2xxFailsEveryPlatform(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := newTestWebhook(server.URL)
	result := p.Publish(context.Background(), testPost("facebook", "twitter", "linkedin"), nil)

	assert.False(t, result.Success)
	assert.Equal(t, http.StatusBadGateway, result.HTTPStatus)
	require.Len(t, result.PlatformResults, 3)
	for platform, pr := range result.PlatformResults {
		assert.False(t, pr.Success, platform)
		assert.Equal(t, "webhook request failed: 502", pr.Error)
	}
}

func TestWebhookPublishMissingURL(t *testing.T) {
	p := newTestWebhook("")
	result := p.Publish(context.Background(), testPost("facebook"), nil)

	assert.False(t, result.Success)
	assert.Equal(t, "configuration_error", result.ErrorCode)
}

func TestWebhookSupportsEverything(t *testing.T) {
	p := newTestWebhook("http://example.com")

	assert.True(t, p.Supports("facebook"))
	assert.True(t, p.Supports("mastodon"))
	assert.True(t, p.Supports("anything"))
}

func TestWebhookRefreshTokenUnsupported(t *testing.T) {
	p := newTestWebhook("http://example.com")
	assert.False(t, p.RefreshToken(context.Background(), &models.SocialAccount{ID: 1}))
}
