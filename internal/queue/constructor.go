package queue

import (
	"github.com/maheshrc27/publishflow/internal/service"
)

type Queue struct {
	d service.PublishDispatcher
}

func NewQueue(d service.PublishDispatcher) *Queue {
	return &Queue{d: d}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID    int64  `json:"post_id"`
	Publisher string `json:"publisher,omitempty"`
}
