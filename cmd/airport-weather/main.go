package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/airport-weather/internal/api/http"
	"github.com/i474232898/airport-weather/internal/app"
	"github.com/i474232898/airport-weather/internal/config"
	"github.com/i474232898/airport-weather/internal/observability"
	"github.com/i474232898/airport-weather/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, cfg, log, metrics)
	if err != nil {
		log.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	// Cache warming; one run may cover the directory page plus the detail fan-out.
	sched := scheduler.New(rt.Coordinator, cfg.RefreshInterval, cfg.PageTimeout+cfg.DetailTimeout, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	server := fiber.New(fiber.Config{
		AppName:               "airport-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// A forced refresh holds the request for a full scrape.
		WriteTimeout: cfg.PageTimeout + cfg.DetailTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	server.Use(logger.New())
	server.Use(recover.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "airport-weather",
		})
	})
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(server, httpapi.Dependencies{
		Snapshots: rt.Coordinator,
		Forecasts: rt.Service,
		History:   rt.History,
		Logger:    log,
	})

	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
