package api

import (
	"github.com/athlink/feedengine/pkg/internal/http/exts"
	"github.com/athlink/feedengine/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func getFeed(feed *services.FeedOrchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := feed.Err(); err != nil {
			return c.JSON(fiber.Map{
				"is_loading": false,
				"message":    err.Error(),
				"data":       []any{},
			})
		}

		return c.JSON(fiber.Map{
			"is_loading": feed.IsLoading(),
			"data":       feed.Posts(),
		})
	}
}

func toggleLike(feed *services.FeedOrchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		postID := c.Params("postId")

		if err := feed.ToggleLike(c.UserContext(), postID); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if post, ok := feed.Post(postID); ok {
			return c.JSON(post)
		}
		return c.SendStatus(fiber.StatusOK)
	}
}

func addComment(feed *services.FeedOrchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		postID := c.Params("postId")

		var data struct {
			Content string `json:"content" validate:"required,max=1024"`
		}
		if err := exts.BindAndValidate(c, &data); err != nil {
			return err
		}

		if err := feed.AddComment(c.UserContext(), postID, data.Content); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.SendStatus(fiber.StatusCreated)
	}
}
