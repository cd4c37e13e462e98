package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/repository"
)

// AccountResolver maps a post's target platforms onto the owner's publishable
// accounts. Resolution has no side effects beyond lazily reactivating lapsed
// rate limits.
type AccountResolver interface {
	Resolve(ctx context.Context, post *models.Post) (map[string]*models.SocialAccount, error)
}

type accountResolver struct {
	sa repository.SocialAccountRepository
}

func NewAccountResolver(sa repository.SocialAccountRepository) AccountResolver {
	return &accountResolver{sa: sa}
}

func (r *accountResolver) Resolve(ctx context.Context, post *models.Post) (map[string]*models.SocialAccount, error) {
	if len(post.Platforms) == 0 {
		err := errors.New("post has no target platforms")
		slog.Info(err.Error())
		return nil, err
	}

	candidates, err := r.sa.ListEligible(ctx, post.UserID, post.Platforms)
	if err != nil {
		return nil, fmt.Errorf("listing accounts for user %d: %w", post.UserID, err)
	}

	allowed := make(map[int64]struct{}, len(post.AccountIDs))
	for _, id := range post.AccountIDs {
		allowed[id] = struct{}{}
	}

	resolved := make(map[string]*models.SocialAccount)
	for _, account := range candidates {
		if len(allowed) > 0 {
			if _, ok := allowed[account.ID]; !ok {
				continue
			}
		}

		if account.Status == models.AccountStatusRateLimited {
			if !account.RateLimitExpired() {
				continue
			}
			// Lazy reactivation: the reset time has passed, so the account is
			// active again. Persist that so the next resolution sees it too.
			if err := r.sa.Reactivate(ctx, account.ID); err != nil {
				slog.Info(err.Error())
			}
			account.Status = models.AccountStatusActive
			account.RateLimitRemaining = nil
		}

		// Candidates arrive ordered by id; the first (lowest id) account wins
		// when a user has several for one platform. Callers needing a
		// specific account pass the explicit account-id list.
		if _, exists := resolved[account.Platform]; exists {
			slog.Warn("multiple active accounts for platform, keeping first",
				"user_id", post.UserID, "platform", account.Platform,
				"skipped_account_id", account.ID)
			continue
		}

		resolved[account.Platform] = account
	}

	return resolved, nil
}
