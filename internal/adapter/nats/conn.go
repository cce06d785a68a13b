// Package nats carries incidents over core NATS subjects. Hierarchical topics
// map one-to-one onto subjects by swapping the separator.
package nats

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/config"
	natsgo "github.com/nats-io/nats.go"
)

const (
	clientName    = "crisis-router"
	reconnectWait = 2 * time.Second
)

// Connect dials the configured NATS server. The connection reconnects
// indefinitely; disconnects and reconnects are logged.
func Connect(cfg *config.Config, logger *slog.Logger) (*natsgo.Conn, error) {
	nc, err := natsgo.Connect(cfg.NATSURL,
		natsgo.Name(clientName),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", cfg.NATSURL, err)
	}
	return nc, nil
}

// SubjectFromTopic converts a slash-separated topic into a NATS subject.
func SubjectFromTopic(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

// TopicFromSubject converts a NATS subject back into a slash-separated topic.
func TopicFromSubject(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}
