package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/publishflow/internal/models"
	"github.com/maheshrc27/publishflow/internal/repository"
	"github.com/maheshrc27/publishflow/internal/service"
)

type TokenRefreshJob struct {
	sr repository.SocialAccountRepository
	d  service.PublishDispatcher
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, d service.PublishDispatcher) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr: sr,
		d:  d,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListByTokenExpiry(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if ok := c.d.RefreshAccountToken(ctx, acc); !ok {
				slog.Info("unable to refresh token",
					"account_id", acc.ID, "platform", acc.Platform)
			}
		}(acc)
	}

	wg.Wait()
}
