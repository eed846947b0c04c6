package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"flightbook/pkg/client"
	"flightbook/pkg/logger"

	"github.com/joho/godotenv"
)

var (
	currencyRegex   = regexp.MustCompile(`^[A-Z]{3}$`)
	mongoURIRegex   = regexp.MustCompile(`^mongodb(\+srv)?://`)
	credentialRegex = regexp.MustCompile(`((?:mongodb(?:\+srv)?|amqps?)://)[^:/@]+:[^@]+@`)
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	StoreBackend      string

	Port string

	PaymentWebhookSecret string
	PaymentCurrency      string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	SeatHoldDuration  time.Duration
	HoldSweepInterval time.Duration
	OrphanHoldGrace   time.Duration
	SweepBatchSize    int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL       string
	NotificationQueue string

	AuditEnabled       bool
	AuditTopic         string
	AuditDLQTopic      string
	AuditConsumerGroup string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// A missing .env file is normal outside local development.
	envFileErr := godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		StoreBackend:      getEnvStr(EnvStoreBackend, DefaultStoreBackend),

		Port: getEnvStr(EnvPort, DefaultPort),

		PaymentWebhookSecret: getEnvStr(EnvPaymentWebhookSecret, ""),
		PaymentCurrency:      getEnvStr(EnvPaymentCurrency, DefaultPaymentCurrency),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		SeatHoldDuration:  getEnvDuration(EnvSeatHoldDuration, DefaultSeatHoldDuration),
		HoldSweepInterval: getEnvDuration(EnvHoldSweepInterval, DefaultHoldSweepInterval),
		OrphanHoldGrace:   getEnvDuration(EnvOrphanHoldGrace, DefaultOrphanHoldGrace),
		SweepBatchSize:    getEnvNum(EnvSweepBatchSize, DefaultSweepBatchSize),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		RabbitMQURL:       getEnvStr(EnvRabbitMQURL, ""),
		NotificationQueue: getEnvStr(EnvNotificationQueue, DefaultNotificationQueue),

		AuditEnabled:       getEnvBool(EnvAuditEnabled, DefaultAuditEnabled),
		AuditTopic:         getEnvStr(EnvAuditTopic, DefaultAuditTopic),
		AuditDLQTopic:      getEnvStr(EnvAuditDLQTopic, DefaultAuditDLQTopic),
		AuditConsumerGroup: getEnvStr(EnvAuditConsumerGroup, DefaultAuditConsumerGroup),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    getEnvStr(EnvLogFormat, DefaultLogFormat),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if envFileErr == nil {
		cfg.Log.Debug("Loaded environment from .env file")
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects the shared Redis client when REDIS_ADDR is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

// SetRabbitMQ dials the broker when RABBITMQ_URL is configured.
func (cfg *Config) SetRabbitMQ() {
	if cfg.RabbitMQURL == "" {
		return
	}
	cfg.Client.SetRabbitMQ(cfg.Log, cfg.RabbitMQURL)
}

func (cfg *Config) UsesMongo() bool {
	return cfg.StoreBackend == StoreMongo
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.StoreBackend != StoreMongo && cfg.StoreBackend != StoreMemory {
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [mongo, memory], got: %s", cfg.StoreBackend))
	}

	if cfg.StoreBackend == StoreMongo {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !mongoURIRegex.MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}

	if !currencyRegex.MatchString(cfg.PaymentCurrency) {
		errors = append(errors, fmt.Sprintf("PaymentCurrency must be an ISO 4217 code, got: %s", cfg.PaymentCurrency))
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"SeatHoldDuration", cfg.SeatHoldDuration},
		{"HoldSweepInterval", cfg.HoldSweepInterval},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.OrphanHoldGrace < 0 {
		errors = append(errors, fmt.Sprintf("OrphanHoldGrace cannot be negative, got: %s", cfg.OrphanHoldGrace))
	}
	if cfg.SeatHoldDuration > 2*time.Hour {
		errors = append(errors, fmt.Sprintf("SeatHoldDuration must not exceed 2h, got: %s", cfg.SeatHoldDuration))
	}
	if cfg.HoldSweepInterval > cfg.SeatHoldDuration {
		errors = append(errors, fmt.Sprintf("HoldSweepInterval (%s) must not exceed SeatHoldDuration (%s)", cfg.HoldSweepInterval, cfg.SeatHoldDuration))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.SweepBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}
	if cfg.AuditEnabled && cfg.AuditTopic == "" {
		errors = append(errors, "AuditTopic cannot be empty when audit is enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"store_backend", cfg.StoreBackend,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"payment_currency", cfg.PaymentCurrency,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"seat_hold_duration", cfg.SeatHoldDuration,
		"hold_sweep_interval", cfg.HoldSweepInterval,
		"orphan_hold_grace", cfg.OrphanHoldGrace,
		"sweep_batch_size", cfg.SweepBatchSize,
		"redis_enabled", cfg.RedisAddr != "",
		"rabbitmq_url", redactURI(cfg.RabbitMQURL),
		"notification_queue", cfg.NotificationQueue,
		"audit_enabled", cfg.AuditEnabled,
		"audit_topic", cfg.AuditTopic,
	)
}

func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
