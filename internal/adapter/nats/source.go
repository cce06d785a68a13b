package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
	natsgo "github.com/nats-io/nats.go"
)

const pendingBuffer = 1024

// Source receives raw incidents from every subject below the events
// namespace. Core NATS has no acknowledgements, so events carry no commit.
// It implements pipeline.BatchExtractor.
type Source struct {
	sub           *natsgo.Subscription
	msgs          chan *natsgo.Msg
	logger        *slog.Logger
	flushInterval time.Duration
}

// Subscribe joins queue to all subjects under namespace, so replicas of the
// router share the inbound stream.
func Subscribe(nc *natsgo.Conn, namespace, queue string, flushInterval time.Duration, logger *slog.Logger) (*Source, error) {
	s := newSource(make(chan *natsgo.Msg, pendingBuffer), flushInterval, logger)

	subject := SubjectFromTopic(namespace) + ".>"
	sub, err := nc.ChanQueueSubscribe(subject, queue, s.msgs)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.sub = sub
	logger.Info("nats subscribed", "subject", subject, "queue", queue)
	return s, nil
}

func newSource(msgs chan *natsgo.Msg, flushInterval time.Duration, logger *slog.Logger) *Source {
	return &Source{msgs: msgs, logger: logger, flushInterval: flushInterval}
}

// ExtractBatch waits for the first message, then gathers more until
// batchSize is reached or the flush interval elapses.
func (s *Source) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	var batch []domain.RawEvent

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-s.msgs:
		batch = append(batch, mapMsgToRawEvent(msg))
	}

	timer := time.NewTimer(s.flushInterval)
	defer timer.Stop()

	for len(batch) < batchSize {
		select {
		case <-ctx.Done():
			return batch, nil
		case <-timer.C:
			return batch, nil
		case msg := <-s.msgs:
			batch = append(batch, mapMsgToRawEvent(msg))
		}
	}
	return batch, nil
}

// Close drains the subscription so in-flight messages are delivered before
// it is removed.
func (s *Source) Close() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}

func mapMsgToRawEvent(msg *natsgo.Msg) domain.RawEvent {
	headers := make(map[string]string, len(msg.Header))
	for k := range msg.Header {
		headers[k] = msg.Header.Get(k)
	}
	return domain.RawEvent{
		Value:     msg.Data,
		Headers:   headers,
		Topic:     TopicFromSubject(msg.Subject),
		Timestamp: time.Now(),
	}
}
