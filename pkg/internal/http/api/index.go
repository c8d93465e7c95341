package api

import (
	"github.com/athlink/feedengine/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func MapAPIs(app *fiber.App, feed *services.FeedOrchestrator) {
	api := app.Group("/api").Name("API")
	{
		api.Get("/feed", getFeed(feed))

		posts := api.Group("/posts").Name("Posts API")
		{
			posts.Post("/:postId/like", toggleLike(feed))
			posts.Post("/:postId/comments", addComment(feed))
		}
	}
}
