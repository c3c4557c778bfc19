package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/sunlunch/lunchbot/internal/platform/config"
	"github.com/sunlunch/lunchbot/internal/platform/database"
	"github.com/sunlunch/lunchbot/internal/platform/logger"
	"github.com/sunlunch/lunchbot/internal/platform/messagebroker"

	"github.com/sunlunch/lunchbot/internal/lunchbot/app"
	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
	"github.com/sunlunch/lunchbot/internal/lunchbot/ledger"
	"github.com/sunlunch/lunchbot/internal/lunchbot/notifier"
	"github.com/sunlunch/lunchbot/internal/lunchbot/repository/postgres"
	transporthttp "github.com/sunlunch/lunchbot/internal/lunchbot/transport/http"
	"github.com/sunlunch/lunchbot/internal/lunchbot/weather"
)

const (
	serviceName     = "lunchbot"
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	log.Info("Starting service...")

	if cfg.SlackWebhookURL == "" {
		log.Error("No Slack webhook URL configured (secret file or APP_SLACK_WEBHOOK_URL)")
		os.Exit(1)
	}

	startupCtx, startupCancel := context.WithTimeout(mainCtx, startupTimeout)
	dbPool, err := database.NewDBPool(startupCtx, cfg.PostgresDSN)
	startupCancel()
	if err != nil {
		log.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("Database connection pool initialized")

	var publisher domain.EventPublisher
	if cfg.NATSUrl != "" {
		natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, log, serviceName)
		if err != nil {
			log.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = natsClient
		log.Info("NATS connection initialized")
	}

	// Application components.
	recordStore := postgres.NewPgRecordStore(dbPool)
	messageLedger := ledger.New(recordStore, log, ledger.Config{
		WeeklyCap:     cfg.WeeklyMessageCap,
		RetentionDays: cfg.RetentionDays,
	})

	weatherCfg := weather.Config{
		MinTemperatureC: cfg.MinTemperatureC,
		GoodConditions:  cfg.GoodConditions,
		BadConditions:   cfg.BadConditions,
		CheckHour:       cfg.CheckHour,
		Timezone:        cfg.Timezone,
	}
	weatherSvc := weather.NewOpenMeteoClient(log, cfg.WeatherAPIBaseURL, weatherCfg, nil)
	weatherFactory := func(overrideCfg weather.Config) domain.WeatherService {
		return weather.NewOpenMeteoClient(log, cfg.WeatherAPIBaseURL, overrideCfg, nil)
	}

	slackNotifier := notifier.NewSlackNotifier(log, cfg.SlackWebhookURL, nil)

	decisionService := app.NewDecisionService(
		messageLedger,
		weatherSvc,
		weatherFactory,
		slackNotifier,
		publisher,
		log,
		app.DecisionConfig{
			Location:        cfg.LocationName,
			Coordinates:     domain.Coordinates{Latitude: cfg.Latitude, Longitude: cfg.Longitude},
			MinTemperatureC: cfg.MinTemperatureC,
			GoodConditions:  cfg.GoodConditions,
			BadConditions:   cfg.BadConditions,
			CheckHour:       cfg.CheckHour,
			Timezone:        cfg.Timezone,
			WeeklyCap:       cfg.WeeklyMessageCap,
			RetentionDays:   cfg.RetentionDays,
			PublicBaseURL:   cfg.PublicBaseURL,
		},
	)
	replyService := app.NewReplyService(messageLedger, publisher, log, cfg.LocationName)

	handler := transporthttp.NewHandler(decisionService, replyService, messageLedger, log, validator.New(), cfg.LocationName)
	router := transporthttp.NewRouter(handler)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The scheduled check runs daily at the configured hour, local time.
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error("Invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(location))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(cfg.CheckHour), 0, 0))),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(mainCtx, time.Minute)
			defer cancel()
			summary, err := decisionService.Run(runCtx, app.RunRequest{})
			if err != nil {
				// The next scheduled cycle retries; runs are at-least-once.
				log.ErrorContext(runCtx, "Scheduled decision run failed", "error", err)
				return
			}
			log.InfoContext(runCtx, "Scheduled decision run finished", "run_id", summary.RunID, "message", summary.Message)
		}),
	)
	if err != nil {
		log.Error("Failed to register daily job", "error", err)
		os.Exit(1)
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		log.Info("Starting HTTP server...", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("Starting daily weather check...", "check_hour", cfg.CheckHour, "timezone", cfg.Timezone, "location", cfg.LocationName)
		scheduler.Start()
		<-groupCtx.Done()
		return groupCtx.Err()
	})

	// Graceful shutdown on signal or group failure.
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			log.Info("Received shutdown signal", "signal", sig.String())
			mainCancel()
		case <-groupCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := scheduler.Shutdown(); err != nil {
			log.Warn("Scheduler shutdown failed", "error", err)
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown failed", "error", err)
			return err
		}
		log.Info("HTTP server has been shut down.")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Service stopped.")
}
