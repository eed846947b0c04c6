package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvStoreBackend      = "STORE_BACKEND"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvPaymentWebhookSecret = "PAYMENT_WEBHOOK_SECRET"
	EnvPaymentCurrency      = "PAYMENT_CURRENCY"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSeatHoldDuration  = "SEAT_HOLD_DURATION"
	EnvHoldSweepInterval = "HOLD_SWEEP_INTERVAL"
	EnvOrphanHoldGrace   = "ORPHAN_HOLD_GRACE"
	EnvSweepBatchSize    = "SWEEP_BATCH_SIZE"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvRabbitMQURL       = "RABBITMQ_URL"
	EnvNotificationQueue = "NOTIFICATION_QUEUE"

	EnvAuditEnabled       = "AUDIT_ENABLED"
	EnvAuditTopic         = "AUDIT_TOPIC"
	EnvAuditDLQTopic      = "AUDIT_DLQ_TOPIC"
	EnvAuditConsumerGroup = "AUDIT_CONSUMER_GROUP"
)
