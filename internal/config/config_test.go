package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BrokerKafka, cfg.Broker)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "crisis-events", cfg.KafkaSourceTopic)
	assert.Equal(t, "crisis-agency", cfg.KafkaSinkTopic)
	assert.Equal(t, "crisis-router", cfg.KafkaGroupID)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Equal(t, "crisis-router", cfg.NATSQueueGroup)
	assert.Equal(t, "crisis/events", cfg.EventsNamespace)
	assert.Equal(t, "crisis/agency", cfg.AgencyNamespace)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, 8, cfg.RouterWorkers)
	assert.Equal(t, 4, cfg.DispatchConcurrency)
	assert.Equal(t, 5*time.Second, cfg.PublishTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.PublishInterval)
	assert.Equal(t, "sensor", cfg.PublishSource)
	assert.Empty(t, cfg.RegionPath)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("BROKER", "nats")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("NATS_QUEUE_GROUP", "routers")
	t.Setenv("EVENTS_NAMESPACE", "ops/events")
	t.Setenv("AGENCY_NAMESPACE", "ops/agency")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("ROUTER_WORKERS", "2")
	t.Setenv("DISPATCH_CONCURRENCY", "7")
	t.Setenv("PUBLISH_TIMEOUT", "250ms")
	t.Setenv("PUBLISH_INTERVAL", "3s")
	t.Setenv("PUBLISH_SOURCE", "cad")
	t.Setenv("REGION_PATH", "ottawa")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BrokerNATS, cfg.Broker)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.Equal(t, "routers", cfg.NATSQueueGroup)
	assert.Equal(t, "ops/events", cfg.EventsNamespace)
	assert.Equal(t, "ops/agency", cfg.AgencyNamespace)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, 2, cfg.RouterWorkers)
	assert.Equal(t, 7, cfg.DispatchConcurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.PublishTimeout)
	assert.Equal(t, 3*time.Second, cfg.PublishInterval)
	assert.Equal(t, "cad", cfg.PublishSource)
	assert.Equal(t, "ottawa", cfg.RegionPath)
}

func TestLoad_InvalidBroker(t *testing.T) {
	t.Setenv("BROKER", "solace")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROKER")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidPublishTimeout(t *testing.T) {
	for _, v := range []string{"bad", "0s", "-1s"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("PUBLISH_TIMEOUT", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "PUBLISH_TIMEOUT")
		})
	}
}

func TestLoad_InvalidPublishInterval(t *testing.T) {
	t.Setenv("PUBLISH_INTERVAL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUBLISH_INTERVAL")
}

func TestLoad_InvalidWorkerCounts(t *testing.T) {
	for _, key := range []string{"ROUTER_WORKERS", "DISPATCH_CONCURRENCY"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "0")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PUBLISH_SOURCE=dotenv\nREGION_PATH=gatineau\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("REGION_PATH", "ottawa")
	t.Cleanup(func() { os.Unsetenv("PUBLISH_SOURCE") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv", cfg.PublishSource)
	assert.Equal(t, "ottawa", cfg.RegionPath, "environment wins over .env")
}
