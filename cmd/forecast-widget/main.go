package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	httpapi "github.com/forecast-widget/forecast-widget/internal/api/http"
	"github.com/forecast-widget/forecast-widget/internal/config"
	"github.com/forecast-widget/forecast-widget/internal/forecast"
	"github.com/forecast-widget/forecast-widget/internal/forecast/providers"
	"github.com/forecast-widget/forecast-widget/internal/geocode"
	"github.com/forecast-widget/forecast-widget/internal/scheduler"
	"github.com/forecast-widget/forecast-widget/internal/store"
)

func main() {
	log := newLogger()
	defer log.Sync()
	zap.ReplaceGlobals(log)

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.LogLevel != "info" {
		log = newLoggerAt(cfg.LogLevel)
		zap.ReplaceGlobals(log)
	}

	// Places listed without coordinates are geocoded once at startup.
	if len(cfg.PendingPlaces) > 0 {
		resolver := geocode.NewResolver(cfg.GeocoderAPIKey, log)
		cfg.Locations = append(cfg.Locations, resolver.ResolveAll(cfg.PendingPlaces)...)
	}

	// Outbound client for the forecast API, guarded by a rate limiter and a circuit breaker.
	httpCfg := providers.HTTPClientConfig{
		Client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
	if cfg.RateLimitRPS > 0 {
		httpCfg.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	provider := providers.NewSevenTimerProvider(providers.SevenTimerOptions{
		BaseURL: cfg.ForecastBaseURL,
		Breaker: providers.BreakerConfig{Timeout: cfg.BreakerTimeout},
		HTTP:    httpCfg,
		Logger:  log,
	})

	sessions := store.NewMemoryStore(cfg.SessionMaxCount, cfg.SessionMaxIdle)
	service := forecast.NewService(provider, sessions, log)

	pruneEvery := cfg.SessionMaxIdle / 4
	if pruneEvery > 0 && pruneEvery < time.Minute {
		pruneEvery = time.Minute
	}
	sched := scheduler.New(service, cfg.RefreshInterval, pruneEvery, log)
	if err := sched.Start(); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "forecast-widget",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
		TimeFormat: time.RFC3339,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "forecast-widget",
			"provider": provider.Name(),
			"sessions": sessions.Len(),
		})
	})

	opts := httpapi.Options{
		Locations:   cfg.Locations,
		DefaultUnit: cfg.DefaultUnit,
		Logger:      log,
	}
	if def, ok := cfg.Default(); ok {
		opts.Default = &def
	}
	httpapi.RegisterRoutes(app, service, opts)

	go func() {
		addr := ":" + cfg.Port
		log.Info("Starting server", zap.String("address", addr), zap.Int("locations", len(cfg.Locations)))
		if err := app.Listen(addr); err != nil {
			log.Error("Fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}

func newLogger() *zap.Logger {
	log, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func newLoggerAt(level string) *zap.Logger {
	if level == "debug" {
		log, err := zap.NewDevelopment()
		if err == nil {
			return log
		}
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return newLogger()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	log, err := cfg.Build()
	if err != nil {
		return newLogger()
	}
	return log
}
