package kafka_config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != DefaultKafkaBrokers {
		t.Errorf("brokers = %v", cfg.Brokers)
	}
	if cfg.Consumer.StartOffset != -2 {
		t.Errorf("start offset = %d, want oldest", cfg.Consumer.StartOffset)
	}
	if cfg.Consumer.CommitInterval != 0 {
		t.Errorf("commit interval = %s, want synchronous commits", cfg.Consumer.CommitInterval)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv(EnvKafkaProducerCompression, "zstd")
	t.Setenv(EnvKafkaConsumerMaxWait, "2s")
	t.Setenv(EnvKafkaConsumerMaxRetries, "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if strings.Join(cfg.Brokers, ",") != "kafka-1:9092,kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.Brokers)
	}
	if cfg.Producer.Compression != "zstd" {
		t.Errorf("compression = %q", cfg.Producer.Compression)
	}
	if cfg.Consumer.MaxWait != 2*time.Second {
		t.Errorf("max wait = %s", cfg.Consumer.MaxWait)
	}
	if cfg.Consumer.MaxRetries != DefaultConsumerMaxRetries {
		t.Errorf("malformed value should fall back, got %d", cfg.Consumer.MaxRetries)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Setenv(EnvKafkaProducerCompression, "brotli")
	t.Setenv(EnvKafkaProducerRequireAcks, "2")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"compression", "required acks"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
