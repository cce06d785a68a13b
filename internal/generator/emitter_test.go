package generator_test

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/generator"
	"github.com/bless2804/CrisisOps-Mesh/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type published struct {
	topic   string
	payload []byte
}

type chanPublisher struct {
	mu    sync.Mutex
	sent  []published
	err   error
	notif chan struct{}
}

func newChanPublisher() *chanPublisher {
	return &chanPublisher{notif: make(chan struct{}, 16)}
}

func (c *chanPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	c.sent = append(c.sent, published{topic: topic, payload: payload})
	c.mu.Unlock()
	select {
	case c.notif <- struct{}{}:
	default:
	}
	return c.err
}

func (c *chanPublisher) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.sent...)
}

func newTestEmitter(pub *chanPublisher, clock clockwork.Clock, opts generator.EmitterOptions) (*generator.Emitter, *observability.Metrics) {
	gen := generator.New(clock, "", rand.New(rand.NewPCG(3, 4)))
	metrics := observability.NewMetricsForTesting()
	return generator.NewEmitter(gen, pub, clock, opts, slog.Default(), metrics), metrics
}

func TestEmitter_Emit(t *testing.T) {
	pub := newChanPublisher()
	em, metrics := newTestEmitter(pub, clockwork.NewFakeClockAt(fixedNow), generator.EmitterOptions{})

	require.Error(t, em.CheckReadiness(context.Background()))

	inc, err := em.Emit(context.Background())
	require.NoError(t, err)

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	want := "crisis/events/sensor/ottawa_on/" + inc.Type + "/" + inc.Severity
	assert.Equal(t, want, msgs[0].topic)
	assert.Equal(t, inc.ID, gjson.GetBytes(msgs[0].payload, "id").String())
	assert.Equal(t, "2025-09-05T14:30:00Z", gjson.GetBytes(msgs[0].payload, "timestamp").String())

	require.NoError(t, em.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.IncidentsEmitted.WithLabelValues("success")), 0)
}

func TestEmitter_RegionOverrideAndNamespace(t *testing.T) {
	pub := newChanPublisher()
	em, _ := newTestEmitter(pub, clockwork.NewFakeClock(), generator.EmitterOptions{Namespace: "city/events", Region: "ottawa"})

	_, err := em.Emit(context.Background())
	require.NoError(t, err)

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].topic, "city/events/sensor/ottawa/"), msgs[0].topic)
}

func TestEmitter_EmitFailure(t *testing.T) {
	pub := newChanPublisher()
	pub.err = errors.New("broker unavailable")
	em, metrics := newTestEmitter(pub, clockwork.NewFakeClock(), generator.EmitterOptions{})

	_, err := em.Emit(context.Background())
	require.ErrorContains(t, err, "broker unavailable")
	require.Error(t, em.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.IncidentsEmitted.WithLabelValues("failed")), 0)
}

func TestEmitter_EmitBatch(t *testing.T) {
	pub := newChanPublisher()
	em, _ := newTestEmitter(pub, clockwork.NewFakeClock(), generator.EmitterOptions{})

	n, err := em.EmitBatch(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, generator.MaxBatch, n)
	assert.Len(t, pub.messages(), generator.MaxBatch)
}

func TestEmitter_EmitBatchStopsOnFailure(t *testing.T) {
	pub := newChanPublisher()
	pub.err = errors.New("broker unavailable")
	em, _ := newTestEmitter(pub, clockwork.NewFakeClock(), generator.EmitterOptions{})

	n, err := em.EmitBatch(context.Background(), 10)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Len(t, pub.messages(), 1)
}

func TestEmitter_RunTicksOnClock(t *testing.T) {
	pub := newChanPublisher()
	clock := clockwork.NewFakeClock()
	em, _ := newTestEmitter(pub, clock, generator.EmitterOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- em.Run(runCtx, 1500*time.Millisecond) }()

	waitPublish(ctx, t, pub)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(1500 * time.Millisecond)
	waitPublish(ctx, t, pub)

	stop()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, len(pub.messages()), 2)
}

func waitPublish(ctx context.Context, t *testing.T, pub *chanPublisher) {
	t.Helper()
	select {
	case <-pub.notif:
	case <-ctx.Done():
		t.Fatal("timed out waiting for publish")
	}
}
