package nats

import (
	"context"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/tidwall/gjson"
)

// Header keys set on every published message.
const (
	headerContentType = "Content-Type"
	headerIncidentID  = "Incident-Id"

	contentTypeJSON = "application/json"
)

// Publisher sends payloads to the subject derived from their topic.
// It implements dispatch.Publisher.
type Publisher struct {
	conn *natsgo.Conn
}

// NewPublisher creates a Publisher on an established connection.
func NewPublisher(nc *natsgo.Conn) *Publisher {
	return &Publisher{conn: nc}
}

// Publish sends one message and flushes so that a server-side failure
// surfaces on this call rather than a later one.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMsg(topic, payload)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
	}

	var err error
	if _, ok := ctx.Deadline(); ok {
		err = p.conn.FlushWithContext(ctx)
	} else {
		err = p.conn.Flush()
	}
	if err != nil {
		return fmt.Errorf("nats flush %s: %w", msg.Subject, err)
	}
	return nil
}

func buildMsg(topic string, payload []byte) *natsgo.Msg {
	msg := natsgo.NewMsg(SubjectFromTopic(topic))
	msg.Data = payload
	msg.Header.Set(headerContentType, contentTypeJSON)
	if id := gjson.GetBytes(payload, "id").String(); id != "" {
		msg.Header.Set(headerIncidentID, id)
	}
	return msg
}
