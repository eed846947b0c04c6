package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"flightbook/internal/audit"
	"flightbook/pkg/config"
	"flightbook/pkg/kafka"
	kafka_config "flightbook/pkg/kafka/config"
	kafkamiddleware "flightbook/pkg/kafka/middleware"
)

const ServiceName = "audit-writer"

// audit-writer drains the audit topic into the Audit_logs collection.
func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting audit writer")

	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.Log,
		cfg.AuditTopic,
		cfg.AuditConsumerGroup,
		cfg.AuditDLQTopic,
		audit.ConsumerHandler(audit.NewMongoRepository(cfg)),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create audit consumer", "error", err)
	}
	consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Audit consumer stopped", "error", err)
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close audit consumer", "error", err)
	}
	cfg.Log.Info("Audit writer stopped")
}
