package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/dispatch"
	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
	"github.com/bless2804/CrisisOps-Mesh/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Outcome labels for IncidentsEmitted.
const (
	outcomeSuccess = "success"
	outcomeFailed  = "failed"
)

// Emitter publishes generated incidents to their inbound topic.
type Emitter struct {
	gen       *Generator
	publisher dispatch.Publisher
	clock     clockwork.Clock
	namespace string
	region    string
	logger    *slog.Logger
	metrics   *observability.Metrics
	emitted   atomic.Bool
}

// EmitterOptions configures an Emitter.
type EmitterOptions struct {
	// Namespace is the inbound topic root. Empty means domain.DefaultEventsNamespace.
	Namespace string
	// Region overrides the region segment. Empty derives it from each
	// incident's jurisdiction.
	Region string
}

// NewEmitter creates an Emitter publishing through p.
func NewEmitter(gen *Generator, p dispatch.Publisher, clock clockwork.Clock, opts EmitterOptions, logger *slog.Logger, metrics *observability.Metrics) *Emitter {
	if opts.Namespace == "" {
		opts.Namespace = domain.DefaultEventsNamespace
	}
	return &Emitter{
		gen:       gen,
		publisher: p,
		clock:     clock,
		namespace: opts.Namespace,
		region:    opts.Region,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one incident has been published.
func (e *Emitter) CheckReadiness(_ context.Context) error {
	if !e.emitted.Load() {
		return errors.New("no incidents published yet")
	}
	return nil
}

// Topic returns the inbound topic an incident is published to.
func (e *Emitter) Topic(inc domain.Incident) string {
	region := e.region
	if region == "" {
		region = inc.Region()
	}
	return domain.InboundTopic(e.namespace, inc.Source, region, inc.Kind(), inc.Level())
}

// Emit generates and publishes one incident.
func (e *Emitter) Emit(ctx context.Context) (domain.Incident, error) {
	inc := e.gen.Next()

	payload, err := domain.SerializeIncident(inc)
	if err != nil {
		e.metrics.IncidentsEmitted.WithLabelValues(outcomeFailed).Inc()
		return inc, err
	}

	topic := e.Topic(inc)
	if err := e.publisher.Publish(ctx, topic, payload); err != nil {
		e.metrics.IncidentsEmitted.WithLabelValues(outcomeFailed).Inc()
		return inc, fmt.Errorf("publish %s: %w", topic, err)
	}

	e.metrics.IncidentsEmitted.WithLabelValues(outcomeSuccess).Inc()
	e.emitted.Store(true)
	e.logger.Debug("incident published", "incident_id", inc.ID, "topic", topic)
	return inc, nil
}

// EmitBatch publishes n incidents, n clamped to [1, MaxBatch]. It stops at
// the first failure and reports how many were published.
func (e *Emitter) EmitBatch(ctx context.Context, n int) (int, error) {
	n = ClampBatch(n)
	for i := range n {
		if _, err := e.Emit(ctx); err != nil {
			return i, err
		}
	}
	return n, nil
}

// Run publishes one incident immediately and then one per interval until
// ctx is cancelled. Publish failures are logged and do not stop the loop.
func (e *Emitter) Run(ctx context.Context, interval time.Duration) error {
	e.logger.Info("publisher started", "interval", interval, "namespace", e.namespace)

	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := e.Emit(ctx); err != nil && ctx.Err() == nil {
			e.logger.Warn("publish incident failed", "error", err)
		}

		select {
		case <-ctx.Done():
			e.logger.Info("publisher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}
