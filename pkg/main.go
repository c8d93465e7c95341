package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pkg "github.com/athlink/feedengine/pkg/internal"
	"github.com/athlink/feedengine/pkg/internal/cache"
	"github.com/athlink/feedengine/pkg/internal/database"
	"github.com/athlink/feedengine/pkg/internal/http"
	"github.com/athlink/feedengine/pkg/internal/remote"
	"github.com/athlink/feedengine/pkg/internal/services"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" _____             _ _____             _\n|  ___|__  ___  __| | ____|_ __   __ _(_)_ __   ___\n| |_ / _ \\/ _ \\/ _` |  _| | '_ \\ / _` | | '_ \\ / _ \\\n|  _|  __/  __/ (_| | |___| | | | (_| | | | | |  __/\n|_|  \\___|\\___|\\__,_|_____|_| |_|\\__, |_|_| |_|\\___|\n                                 |___/"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("FeedEngine"), pkg.AppVersion)
	fmt.Printf("The live feed synchronization engine of AthLink\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Prepare the in-process cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when setting up cache.")
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Assemble the feed engine
	store := remote.NewStore(database.C)
	bus := services.NewEventBus()
	mapper := services.NewPostMapper(viper.GetString("feed.current_user"), services.NewLanguageDetector())
	profiles := services.NewProfileCache(store, services.NewImageResolver())
	feed := services.NewFeedOrchestrator(store, mapper, profiles, bus, store, viper.GetString("feed.current_user"))

	if err := feed.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting feed synchronization.")
	}

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoCacheMaintain)
	quartz.Start()

	// Server
	go http.NewServer(feed).Listen()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	quartz.Stop()
	feed.Close()
	_ = bus.Close()
}
