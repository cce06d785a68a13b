package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/dispatch"
	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
	"github.com/bless2804/CrisisOps-Mesh/internal/observability"
	"github.com/bless2804/CrisisOps-Mesh/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockClassifier struct {
	err error
}

func (m *mockClassifier) Classify(_ context.Context, raw domain.RawEvent) (domain.Incident, error) {
	if m.err != nil {
		return domain.Incident{}, m.err
	}
	inc, err := domain.ParseIncident(raw.Value)
	if err != nil {
		return domain.Incident{}, err
	}
	return domain.Classify(inc), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return r.err
}

func (r *recordingPublisher) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func newTestPipeline(ext pipeline.BatchExtractor, cls pipeline.Classifier, pub dispatch.Publisher, metrics *observability.Metrics) *pipeline.Pipeline {
	d := dispatch.New(pub, dispatch.Options{Namespace: "crisis/agency", Concurrency: 4}, slog.Default(), metrics)
	return pipeline.New(ext, cls, d, slog.Default(), metrics, 10, 4)
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawEvent(t, `{"id":"evt-1","type":"flood","severity":"critical","jurisdiction":"Ottawa, ON","shelterNeeded":true,"powerOutage":true}`)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	pub := &recordingPublisher{}
	metrics := newTestMetrics()
	p := newTestPipeline(ext, &mockClassifier{}, pub, metrics)

	runFor(t, p, 500*time.Millisecond)

	want := []string{
		"crisis/agency/fire/ottawa_on/flood/critical",
		"crisis/agency/law/ottawa_on/flood/critical",
		"crisis/agency/ngos/ottawa_on/flood/critical",
		"crisis/agency/utilities/ottawa_on/flood/critical",
	}
	assert.ElementsMatch(t, want, pub.published())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.IncidentsRouted), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no events, will block
	pub := &recordingPublisher{}
	p := newTestPipeline(ext, &mockClassifier{}, pub, newTestMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, pub.published())
}

func TestPipeline_Run_ClassifyError(t *testing.T) {
	raw := makeRawEvent(t, `{"id":"evt-2","type":"fire"}`)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	pub := &recordingPublisher{}
	metrics := newTestMetrics()
	p := newTestPipeline(ext, &mockClassifier{err: errors.New("bad data")}, pub, metrics)

	runFor(t, p, 500*time.Millisecond)

	assert.Empty(t, pub.published())
	require.Error(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ParseErrors), 0)
}

func TestPipeline_Run_MalformedMessageDoesNotStopBatch(t *testing.T) {
	bad := makeRawEvent(t, `not json`)
	good := makeRawEvent(t, `{"id":"evt-3","type":"assault","severity":"high"}`)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{bad, good}}}
	pub := &recordingPublisher{}
	metrics := newTestMetrics()
	p := newTestPipeline(ext, pipeline.NewClassifier(slog.Default()), pub, metrics)

	runFor(t, p, 500*time.Millisecond)

	assert.Equal(t, []string{"crisis/agency/law/unknown/assault/high"}, pub.published())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ParseErrors), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.IncidentsRouted), 0)
}

func TestPipeline_Run_CommitsAfterDispatch(t *testing.T) {
	var commits atomic.Int32
	commit := func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	routed := makeRawEvent(t, `{"id":"evt-4","type":"fire"}`)
	routed.Commit = commit
	malformed := makeRawEvent(t, `[1,2,3]`)
	malformed.Commit = commit

	ext := &mockExtractor{batches: [][]domain.RawEvent{{routed, malformed}}}
	p := newTestPipeline(ext, pipeline.NewClassifier(slog.Default()), &recordingPublisher{}, newTestMetrics())

	runFor(t, p, 500*time.Millisecond)

	assert.Equal(t, int32(2), commits.Load(), "malformed messages are committed too")
}

func TestPipeline_Run_CommitsDespitePublishFailures(t *testing.T) {
	committed := false
	raw := makeRawEvent(t, `{"id":"evt-5","type":"fire"}`)
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	pub := &recordingPublisher{err: errors.New("sink unavailable")}
	metrics := newTestMetrics()
	p := newTestPipeline(ext, &mockClassifier{}, pub, metrics)

	runFor(t, p, 500*time.Millisecond)

	assert.True(t, committed)
	assert.Len(t, pub.published(), 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Publishes.WithLabelValues("fire", dispatch.StatusFailed)), 0)
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("broker down")}
	pub := &recordingPublisher{}
	p := newTestPipeline(ext, &mockClassifier{}, pub, newTestMetrics())

	start := time.Now()
	runFor(t, p, 300*time.Millisecond)

	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
	assert.Empty(t, pub.published())
}

func TestPipeline_Run_RoutesWholeBatch(t *testing.T) {
	batch := []domain.RawEvent{
		makeRawEvent(t, `{"id":"a","type":"assault"}`),
		makeRawEvent(t, `{"id":"b","type":"disease","emsInbound":true}`),
		makeRawEvent(t, `{"id":"c","type":"unknown"}`),
		makeRawEvent(t, `{"id":"d","type":"weather","lanesBlocked":1}`),
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{batch}}
	pub := &recordingPublisher{}
	metrics := newTestMetrics()
	p := newTestPipeline(ext, &mockClassifier{}, pub, metrics)

	runFor(t, p, 500*time.Millisecond)

	want := []string{
		"crisis/agency/law/unknown/assault/low",
		"crisis/agency/hospitals/unknown/disease/low",
		"crisis/agency/transport/unknown/weather/low",
	}
	assert.ElementsMatch(t, want, pub.published())
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.IncidentsRouted), 0)
}

func TestIncidentClassifier_Classify(t *testing.T) {
	cls := pipeline.NewClassifier(slog.Default())

	raw := makeRawEvent(t, `{"id":"evt-6","type":"accident","severity":"med","injuredCount":2,"agencyTargets":["NGOs"]}`)
	inc, err := cls.Classify(context.Background(), raw)
	require.NoError(t, err)

	want := []domain.Agency{domain.AgencyEMS, domain.AgencyLaw, domain.AgencyNGOs, domain.AgencyTransport}
	if diff := cmp.Diff(want, inc.AgencyTargets); diff != "" {
		t.Fatalf("agency targets mismatch (-want +got):\n%s", diff)
	}
}

func TestIncidentClassifier_RejectsNonObject(t *testing.T) {
	cls := pipeline.NewClassifier(slog.Default())

	_, err := cls.Classify(context.Background(), makeRawEvent(t, `"just a string"`))
	require.ErrorIs(t, err, domain.ErrNotObject)
}

// --- helpers ---

func makeRawEvent(t *testing.T, payload string) domain.RawEvent {
	t.Helper()
	return domain.RawEvent{
		Value: []byte(payload),
		Topic: "crisis/events/sensor/ottawa_on/unknown/low",
	}
}
