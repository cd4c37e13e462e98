package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/publishflow/internal/publisher"
	"github.com/maheshrc27/publishflow/internal/queue"
	"github.com/maheshrc27/publishflow/internal/service"
)

type PublishHandler struct {
	ps          service.PostService
	registry    *publisher.Registry
	AsynqClient *asynq.Client
}

func NewPublishHandler(ps service.PostService, registry *publisher.Registry, asynqClient *asynq.Client) *PublishHandler {
	return &PublishHandler{
		ps:          ps,
		registry:    registry,
		AsynqClient: asynqClient,
	}
}

// PublishNow queues an immediate publish attempt for a post the user
// owns. An optional publisher query param overrides the configured
// default backend.
func (h *PublishHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)
	publisherName := c.Query("publisher")

	if publisherName != "" && !h.registry.Has(publisherName) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown publisher",
		})
	}

	post, err := h.ps.PostInfo(c.Context(), int64(postID), userID)
	if err != nil || post == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get post",
		})
	}

	if post.IsTerminal() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Post already reached a final state",
		})
	}

	err = queue.EnqueuePost(h.AsynqClient, queue.PublishPostPayload{
		PostID:    int64(postID),
		Publisher: publisherName,
	}, 0)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error queueing post",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Publish queued",
		"post_id": postID,
	})
}

func (h *PublishHandler) ListPublishers(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"publishers": h.registry.Names(),
	})
}
