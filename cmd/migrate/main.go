package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongomigration "flightbook/internal/migrations/mongo"
	"flightbook/pkg/config"
)

const (
	JobName        = "mongo-migration"
	defaultTimeout = 2 * time.Minute
)

func main() {
	cfg := config.Load(JobName)
	defer cfg.GracefulShutdown()

	timeout := defaultTimeout
	if raw := os.Getenv("MIGRATION_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			cfg.Log.Fatal("Invalid MIGRATION_TIMEOUT", "value", raw, "error", err)
		}
		timeout = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg.SetMongo()
	started := time.Now()
	if err := mongomigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed", "database", cfg.MongoDatabaseName, "duration", time.Since(started))
}
