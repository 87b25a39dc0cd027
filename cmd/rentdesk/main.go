package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"rentdesk/internal/auth"
	"rentdesk/internal/backend"
	"rentdesk/internal/cli"
	"rentdesk/internal/config"
	apphttp "rentdesk/internal/http"
	"rentdesk/internal/log"
	"rentdesk/internal/middleware/ratelimit"
	"rentdesk/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp, (*config.Config).ValidateServer)
	logger.Info("Starting rentdesk server", "port", cfg.Port, "db", cfg.SQLiteDBPath)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	publisher := backend.NewFactory(logger).CreatePublisher(bcfg)

	svc := services.New(repo, publisher)
	defer svc.Close()

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := svc.SeedAdmin(seedCtx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	seedCancel()
	if err != nil {
		logger.Error("Failed to seed admin user", log.FieldError, err)
		os.Exit(1)
	}
	if created {
		logger.Info("Seeded admin user", "email", cfg.AdminEmail)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Service:      svc,
		Tokens:       auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL),
		CookieSecure: cfg.CookieSecure,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
