package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/m3rciful/residentbot/bot"
	coreconfig "github.com/m3rciful/residentbot/core/config"
	"github.com/m3rciful/residentbot/core/database"
	"github.com/m3rciful/residentbot/core/logger"
	tg "github.com/m3rciful/residentbot/core/telegram"
	"github.com/m3rciful/residentbot/storage"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := coreconfig.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Shutdown() }()

	if err := run(cfg); err != nil {
		logger.Error(logger.Background(), "app", "app.fatal",
			slog.String("err", err.Error()),
		)
		_ = logger.Shutdown()
		os.Exit(1)
	}
}

func run(cfg *coreconfig.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	app, err := bot.New(ctx, cfg, bot.Stores{
		Residents: storage.NewResidentRepo(db),
		Meters:    storage.NewMeterRepo(db),
		Sanctions: storage.NewSanctionRepo(db),
		Words:     storage.NewWordRepo(db),
	})
	if err != nil {
		return err
	}

	return tg.RunTelegram(ctx, tg.RunOptions{
		Config:      cfg,
		Registry:    app.Registry(),
		Middlewares: app.Middlewares(),
		Routes:      app.Routes(),
		OnStart:     app.OnStart,
		OnStop:      app.OnStop,
	})
}
