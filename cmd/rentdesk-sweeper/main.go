package main

import (
	"os"
	"time"

	"rentdesk/internal/backend"
	"rentdesk/internal/cli"
	"rentdesk/internal/config"
	"rentdesk/internal/log"
	"rentdesk/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentSweeper, (*config.Config).Validate)
	logger.Info("Starting rentdesk-sweeper", "interval", cfg.SweepInterval)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	publisher := backend.NewFactory(logger).CreatePublisher(bcfg)
	svc := services.New(repo, publisher)
	defer svc.Close()

	processor := services.NewExpiryProcessor(svc)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	sweep := func(now time.Time) {
		res, err := processor.ProcessExpired(ctx, now)
		if err != nil {
			logger.Error("Expiry sweep failed", log.FieldError, err, log.FieldOperation, log.OpSweep)
			return
		}
		logger.Info("Expiry sweep complete",
			"contracts_completed", res.ContractsCompleted,
			"tenants_deactivated", res.TenantsDeactivated,
			"next_run", now.Add(cfg.SweepInterval).Format(time.RFC3339))
	}

	sweep(time.Now())

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			<-done
			logger.Info("Sweeper stopped")
			return
		case now := <-ticker.C:
			sweep(now)
		}
	}
}
