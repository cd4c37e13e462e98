package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	// The dispatcher owns retry bookkeeping via next_retry_at and the sweep
	// job, so the task always completes here; returning an error would make
	// asynq retry on its own schedule on top of ours.
	result := q.d.PublishPost(ctx, payload.PostID, payload.Publisher)
	if !result.Success {
		slog.Info("publish attempt did not fully succeed",
			"post_id", payload.PostID, "error", result.Error)
	}

	return nil
}
