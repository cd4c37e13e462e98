package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/transfer"
)

// manualPublisher is the universal fallback: it never publishes anything.
// Every platform comes back failed with manual_publishing_required set and
// step-by-step instructions for the user.
type manualPublisher struct{}

func NewManualPublisher() Publisher {
	return &manualPublisher{}
}

func (p *manualPublisher) Name() string {
	return "manual"
}

func (p *manualPublisher) Supports(platform string) bool {
	return true
}

func (p *manualPublisher) Publish(ctx context.Context, post *models.Post, accounts map[string]*models.SocialAccount) *transfer.PublishResult {
	startTime := time.Now()

	results := make(map[string]models.PlatformResult, len(post.Platforms))
	for _, platform := range post.Platforms {
		results[platform] = models.PlatformResult{
			Success:        false,
			ManualRequired: true,
			Instructions:   manualInstructions(platform),
		}
	}

	return &transfer.PublishResult{
		Success:         false,
		PlatformResults: results,
		ManualRequired:  true,
		Message:         "This post requires manual publishing. Please use the platform-specific apps or websites.",
		ExecutionTimeMs: time.Since(startTime).Milliseconds(),
	}
}

var manualSteps = map[string]*models.ManualInstructions{
	"facebook": {
		URL: "https://facebook.com",
		Steps: []string{
			"1. Go to Facebook.com and log in",
			"2. Click \"What's on your mind?\"",
			"3. Paste the content",
			"4. Add media files if applicable",
			"5. Click \"Post\"",
		},
	},
	"instagram": {
		URL: "https://instagram.com",
		Steps: []string{
			"1. Open Instagram app or website",
			"2. Click the \"+\" icon",
			"3. Select your media",
			"4. Add caption",
			"5. Share",
		},
	},
	"twitter": {
		URL: "https://twitter.com",
		Steps: []string{
			"1. Go to Twitter.com",
			"2. Click \"What's happening?\"",
			"3. Paste the content",
			"4. Add media if applicable",
			"5. Click \"Tweet\"",
		},
	},
	"linkedin": {
		URL: "https://linkedin.com",
		Steps: []string{
			"1. Go to LinkedIn.com",
			"2. Click \"Start a post\"",
			"3. Paste the content",
			"4. Add media if applicable",
			"5. Click \"Post\"",
		},
	},
}

func manualInstructions(platform string) *models.ManualInstructions {
	if instructions, ok := manualSteps[platform]; ok {
		return instructions
	}
	return &models.ManualInstructions{
		URL: fmt.Sprintf("https://%s.com", platform),
		Steps: []string{
			"1. Visit the platform",
			"2. Create a new post",
			"3. Add your content",
			"4. Publish",
		},
	}
}

func (p *manualPublisher) ValidateAccount(ctx context.Context, account *models.SocialAccount) bool {
	return true
}

func (p *manualPublisher) RefreshToken(ctx context.Context, account *models.SocialAccount) bool {
	return true
}
