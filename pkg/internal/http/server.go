package http

import (
	pkg "github.com/athlink/feedengine/pkg/internal"
	"github.com/athlink/feedengine/pkg/internal/http/api"
	"github.com/athlink/feedengine/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type App struct {
	app *fiber.App
}

func NewServer(feed *services.FeedOrchestrator) *App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		EnableIPValidation:    true,
		ServerHeader:          "FeedEngine",
		AppName:               "FeedEngine v" + pkg.AppVersion,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
	})

	api.MapAPIs(app, feed)

	return &App{app}
}

func (v *App) Listen() {
	if err := v.app.Listen(viper.GetString("bind")); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting server...")
	}
}
