package kafka_config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"flightbook/pkg/logger"
)

type ProducerConfig struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 all, 0 none, 1 leader
	Compression  string // none, gzip, snappy, lz4, zstd
	Async        bool
}

type ConsumerConfig struct {
	StartOffset       int64 // -1 newest, -2 oldest
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	CommitInterval    time.Duration // 0 commits synchronously
	HeartbeatInterval time.Duration
	SessionTimeout    time.Duration
	RebalanceTimeout  time.Duration
	MaxRetries        int
}

type Config struct {
	Brokers  []string
	Producer ProducerConfig
	Consumer ConsumerConfig
}

var compressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}

// Load reads the Kafka settings from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Brokers: splitBrokers(envOr(EnvKafkaBrokers, DefaultKafkaBrokers, parseString)),
		Producer: ProducerConfig{
			MaxAttempts:  envOr(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts, strconv.Atoi),
			BatchTimeout: envOr(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout, time.ParseDuration),
			RequireAcks:  envOr(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks, strconv.Atoi),
			Compression:  envOr(EnvKafkaProducerCompression, DefaultProducerCompression, parseString),
			Async:        envOr(EnvKafkaProducerAsync, DefaultProducerAsync, strconv.ParseBool),
		},
		Consumer: ConsumerConfig{
			StartOffset:       envOr(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset, parseInt64),
			MinBytes:          envOr(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes, strconv.Atoi),
			MaxBytes:          envOr(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes, strconv.Atoi),
			MaxWait:           envOr(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait, time.ParseDuration),
			CommitInterval:    envOr(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval, time.ParseDuration),
			HeartbeatInterval: envOr(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval, time.ParseDuration),
			SessionTimeout:    envOr(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout, time.ParseDuration),
			RebalanceTimeout:  envOr(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout, time.ParseDuration),
			MaxRetries:        envOr(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries, strconv.Atoi),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(len(cfg.Brokers) > 0, "at least one Kafka broker is required")
	for i, broker := range cfg.Brokers {
		check(broker != "", "broker %d is empty", i)
	}

	p := cfg.Producer
	check(p.MaxAttempts > 0, "producer max attempts must be positive, got %d", p.MaxAttempts)
	check(p.BatchTimeout > 0, "producer batch timeout must be positive, got %s", p.BatchTimeout)
	check(slices.Contains(compressions, p.Compression), "producer compression must be one of %v, got %q", compressions, p.Compression)
	check(p.RequireAcks >= -1 && p.RequireAcks <= 1, "producer required acks must be -1, 0 or 1, got %d", p.RequireAcks)

	c := cfg.Consumer
	check(c.StartOffset >= -2, "consumer start offset must be -1, -2 or a position, got %d", c.StartOffset)
	check(c.MinBytes > 0 && c.MaxBytes >= c.MinBytes, "consumer byte bounds are invalid: min %d, max %d", c.MinBytes, c.MaxBytes)
	for name, d := range map[string]time.Duration{
		"max wait":           c.MaxWait,
		"heartbeat interval": c.HeartbeatInterval,
		"session timeout":    c.SessionTimeout,
		"rebalance timeout":  c.RebalanceTimeout,
	} {
		check(d > 0, "consumer %s must be positive, got %s", name, d)
	}
	check(c.CommitInterval >= 0, "consumer commit interval cannot be negative, got %s", c.CommitInterval)
	check(c.MaxRetries >= 0, "consumer max retries cannot be negative, got %d", c.MaxRetries)

	if len(errs) > 0 {
		return fmt.Errorf("invalid Kafka configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"producer_max_attempts", cfg.Producer.MaxAttempts,
		"producer_require_acks", cfg.Producer.RequireAcks,
		"producer_compression", cfg.Producer.Compression,
		"producer_async", cfg.Producer.Async,
		"consumer_start_offset", cfg.Consumer.StartOffset,
		"consumer_commit_interval", cfg.Consumer.CommitInterval,
		"consumer_max_retries", cfg.Consumer.MaxRetries,
	)
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// envOr parses key with parse and falls back when it is unset or malformed.
func envOr[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseString(s string) (string, error) { return s, nil }

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
