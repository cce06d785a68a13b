package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Supported BROKER values.
const (
	BrokerKafka = "kafka"
	BrokerNATS  = "nats"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Broker string

	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	NATSURL        string
	NATSQueueGroup string

	// Hierarchical topic roots.
	EventsNamespace string
	AgencyNamespace string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Fan-out configuration.
	RouterWorkers       int
	DispatchConcurrency int
	PublishTimeout      time.Duration

	// Publisher role.
	PublishInterval time.Duration
	PublishSource   string
	RegionPath      string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	publishTimeout, err := parsePositiveDuration("PUBLISH_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	publishInterval, err := parsePositiveDuration("PUBLISH_INTERVAL", "1500ms")
	if err != nil {
		return nil, err
	}

	routerWorkers, err := parsePositiveInt("ROUTER_WORKERS", 8)
	if err != nil {
		return nil, err
	}

	dispatchConcurrency, err := parsePositiveInt("DISPATCH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Broker: sharedcfg.EnvOrDefault("BROKER", BrokerKafka),

		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "crisis-events"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "crisis-agency"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "crisis-router"),

		NATSURL:        sharedcfg.EnvOrDefault("NATS_URL", "nats://127.0.0.1:4222"),
		NATSQueueGroup: sharedcfg.EnvOrDefault("NATS_QUEUE_GROUP", "crisis-router"),

		EventsNamespace: sharedcfg.EnvOrDefault("EVENTS_NAMESPACE", "crisis/events"),
		AgencyNamespace: sharedcfg.EnvOrDefault("AGENCY_NAMESPACE", "crisis/agency"),

		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		RouterWorkers:       routerWorkers,
		DispatchConcurrency: dispatchConcurrency,
		PublishTimeout:      publishTimeout,

		PublishInterval: publishInterval,
		PublishSource:   sharedcfg.EnvOrDefault("PUBLISH_SOURCE", "sensor"),
		RegionPath:      os.Getenv("REGION_PATH"),
	}

	switch cfg.Broker {
	case BrokerKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	case BrokerNATS:
		if cfg.NATSURL == "" {
			return nil, errors.New("NATS_URL is required")
		}
	default:
		return nil, fmt.Errorf("invalid BROKER %q: want %q or %q", cfg.Broker, BrokerKafka, BrokerNATS)
	}
	if cfg.EventsNamespace == "" {
		return nil, errors.New("EVENTS_NAMESPACE is required")
	}
	if cfg.AgencyNamespace == "" {
		return nil, errors.New("AGENCY_NAMESPACE is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
