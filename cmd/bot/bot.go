package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rmaia/inmet-station/internal/api"
	"github.com/rmaia/inmet-station/internal/config"
	"github.com/rmaia/inmet-station/internal/integration"
	"github.com/rmaia/inmet-station/internal/integration/openai"
	"github.com/rmaia/inmet-station/internal/logging"
	"github.com/rmaia/inmet-station/internal/repository"
	"github.com/rmaia/inmet-station/internal/usecases"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel(), "bot")
	slog.Info("starting weather bot")

	// The agent is optional: without an API key the bot still answers
	// commands, just not free-text questions.
	agent, err := openai.NewWeatherAgent()
	if err != nil {
		slog.Warn("natural-language queries disabled", "reason", err)
		agent = nil
	}

	repo, err := repository.NewSQLiteObservationRepository(cfg.Paths.Database)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	scraper := integration.NewPortalScraper(cfg.Portal.BaseURL, cfg.Station.Name, cfg.PortalTimeout())
	useCase := usecases.NewObservationUseCase(repo, scraper, agent, cfg.Paths.RawDir, cfg.Paths.Combined)

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		slog.Error("TELEGRAM_BOT_TOKEN environment variable is not set")
		os.Exit(1)
	}

	telegramBot, err := api.NewTelegramBot(botToken, useCase)
	if err != nil {
		slog.Error("failed to initialize Telegram bot", "error", err)
		os.Exit(1)
	}

	telegramBot.Start()
}
