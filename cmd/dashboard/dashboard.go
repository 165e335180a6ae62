package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rmaia/inmet-station/internal/config"
	"github.com/rmaia/inmet-station/internal/integration"
	"github.com/rmaia/inmet-station/internal/logging"
	"github.com/rmaia/inmet-station/internal/repository"
	"github.com/rmaia/inmet-station/internal/usecases"
	"github.com/rmaia/inmet-station/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel(), "dashboard")

	addr := flag.String("addr", cfg.Dashboard.HTTPAddr, "HTTP listen address")
	combined := flag.String("combined", cfg.Paths.Combined, "path of the combined CSV")
	refresh := flag.String("refresh", cfg.Dashboard.RefreshCron, "cron spec for scheduled refetch (empty disables)")
	flag.Parse()

	if err := web.LoadTemplates(); err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(*combined)
	if err := server.Load(); err != nil {
		slog.Error("failed to load combined CSV; run the fetch command first", "error", err)
		os.Exit(1)
	}

	// Optional scheduled refresh: re-fetch the current year, rebuild
	// the combined CSV and swap the dashboard dataset.
	var scheduler *cron.Cron
	if *refresh != "" {
		repo, err := repository.NewSQLiteObservationRepository(cfg.Paths.Database)
		if err != nil {
			slog.Error("failed to initialize repository", "error", err)
			os.Exit(1)
		}
		defer repo.Close()

		scraper := integration.NewPortalScraper(cfg.Portal.BaseURL, cfg.Station.Name, cfg.PortalTimeout())
		useCase := usecases.NewObservationUseCase(repo, scraper, nil, cfg.Paths.RawDir, *combined)

		scheduler = cron.New()
		_, err = scheduler.AddFunc(*refresh, func() {
			year := time.Now().Year()
			if _, err := useCase.FetchYears([]int{year}); err != nil {
				slog.Warn("scheduled fetch failed", "year", year, "error", err)
				return
			}
			if _, err := useCase.Combine(); err != nil {
				slog.Warn("scheduled combine failed", "error", err)
				return
			}
			server.Reload()
		})
		if err != nil {
			slog.Error("failed to set up refresh schedule", "spec", *refresh, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		slog.Info("scheduled refresh enabled", "spec", *refresh)
	}

	srv := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(),
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("shutting down")
		if scheduler != nil {
			scheduler.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("dashboard listening", "addr", *addr, "rows", server.Rows())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
