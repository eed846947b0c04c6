package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "flightbook"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultStoreBackend      = StoreMongo

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultSeatHoldDuration  = 15 * time.Minute
	DefaultHoldSweepInterval = 30 * time.Second
	DefaultOrphanHoldGrace   = 0
	DefaultSweepBatchSize    = 100

	DefaultPaymentCurrency = "USD"

	DefaultRedisDB           = 0
	DefaultNotificationQueue = "booking.notifications"

	DefaultAuditEnabled       = true
	DefaultAuditTopic         = "flightbook.audit"
	DefaultAuditDLQTopic      = "flightbook.audit.dlq"
	DefaultAuditConsumerGroup = "flightbook-audit-writer"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)
