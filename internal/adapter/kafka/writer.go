package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/config"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"
)

// Message header keys.
const (
	headerTopic       = "topic"
	headerContentType = "content_type"
	headerIncidentID  = "incident_id"

	contentTypeJSON = "application/json"
)

// Writer produces incident payloads to a single Kafka topic. Kafka topic
// names cannot hold the hierarchical topic, so it travels as the message key
// and the "topic" header.
// It implements dispatch.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAgencyWriter creates a producer for the configured sink topic, where
// routed incidents are delivered.
func NewAgencyWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return newWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
}

// NewEventWriter creates a producer for the configured source topic, where
// raw incidents are published.
func NewEventWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	return newWriter(cfg.KafkaBrokers, cfg.KafkaSourceTopic, logger)
}

func newWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one payload addressed to the hierarchical topic. Messages
// with the same topic share a key and therefore a partition.
func (w *Writer) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := w.writer.WriteMessages(ctx, buildMessage(topic, payload)); err != nil {
		return fmt.Errorf("kafka write %s: %w", w.writer.Topic, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// buildMessage wraps a payload in a Kafka message carrying its routing headers.
func buildMessage(topic string, payload []byte) kafkago.Message {
	headers := []kafkago.Header{
		{Key: headerTopic, Value: []byte(topic)},
		{Key: headerContentType, Value: []byte(contentTypeJSON)},
	}
	if id := gjson.GetBytes(payload, "id"); id.Exists() && id.String() != "" {
		headers = append(headers, kafkago.Header{Key: headerIncidentID, Value: []byte(id.String())})
	}
	return kafkago.Message{
		Key:     []byte(topic),
		Value:   payload,
		Headers: headers,
	}
}
