package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/publishflow/internal/queue"
	"github.com/maheshrc27/publishflow/internal/repository"
)

const retryBatchSize = 50

// RetryJob re-enqueues failed posts whose retry window has opened. The
// dispatcher only leaves posts in a re-triable state; the actual re-invoke
// loop lives here.
type RetryJob struct {
	pr     repository.PostRepository
	client *asynq.Client
}

func NewRetryJob(pr repository.PostRepository, client *asynq.Client) *RetryJob {
	return &RetryJob{pr: pr, client: client}
}

func (j *RetryJob) RequeueDuePosts() {
	ctx := context.Background()

	posts, err := j.pr.ListDueRetries(ctx, time.Now(), retryBatchSize)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, post := range posts {
		err := queue.EnqueuePost(j.client, queue.PublishPostPayload{PostID: post.ID}, 0)
		if err != nil {
			slog.Info("unable to requeue post", "post_id", post.ID, "error", err.Error())
			continue
		}
		slog.Info("requeued failed post", "post_id", post.ID, "attempt", post.Attempts)
	}
}
