package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/dispatch"
	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
	"github.com/bless2804/CrisisOps-Mesh/internal/observability"
	"golang.org/x/sync/errgroup"
)

// BatchExtractor reads up to batchSize raw events from the inbound topic space.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Classifier parses a raw event and attaches its agency targets.
type Classifier interface {
	Classify(ctx context.Context, raw domain.RawEvent) (domain.Incident, error)
}

// Dispatcher fans a classified incident out to its agencies.
type Dispatcher interface {
	Dispatch(ctx context.Context, inc domain.Incident, agencies []domain.Agency) (dispatch.Report, error)
}

// Pipeline orchestrates the consume-route-dispatch loop.
type Pipeline struct {
	extractor  BatchExtractor
	classifier Classifier
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
	batchSize  int
	workers    int
}

// New creates a Pipeline with the given stages and observability. Up to
// workers incidents of one batch are routed concurrently.
func New(e BatchExtractor, c Classifier, d Dispatcher, logger *slog.Logger, metrics *observability.Metrics, batchSize, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		extractor:  e,
		classifier: c,
		dispatcher: d,
		logger:     logger,
		metrics:    metrics,
		batchSize:  batchSize,
		workers:    workers,
	}
}

// CheckReadiness returns nil once the pipeline has routed at least one
// incident, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not routed any incidents yet")
	}
	return nil
}

// Run executes the batch routing loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "workers", p.workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// result summarizes the handling of one message.
type result struct {
	routed    bool
	attempted int
	delivered int
}

// processBatch runs one consume-route-dispatch cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	results := p.routeBatch(ctx, rawBatch)

	// Per-agency failures are final; every message is committed once handled.
	for _, raw := range rawBatch {
		p.commitOffset(ctx, raw)
	}

	var routed, attempted, delivered int
	for _, r := range results {
		if r.routed {
			routed++
		}
		attempted += r.attempted
		delivered += r.delivered
	}

	if routed > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}

	// Nothing got through: the sink is likely down, slow the loop.
	if attempted > 0 && delivered == 0 {
		p.logger.Warn("no publishes succeeded in batch", "batch_size", len(rawBatch), "attempted", attempted)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}
	return true
}

// routeBatch classifies and dispatches every message of the batch with a
// bounded worker pool and waits for all of them.
func (p *Pipeline) routeBatch(ctx context.Context, rawBatch []domain.RawEvent) []result {
	results := make([]result, len(rawBatch))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, raw := range rawBatch {
		g.Go(func() error {
			results[i] = p.handle(ctx, raw)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// handle routes one message. Failures are logged and counted, never returned.
func (p *Pipeline) handle(ctx context.Context, raw domain.RawEvent) result {
	inc, err := p.classifier.Classify(ctx, raw)
	if err != nil {
		p.logger.Warn("classify failed, skipping message",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
		p.metrics.ParseErrors.Inc()
		return result{}
	}

	p.metrics.IncidentsRouted.Inc()
	p.metrics.AgenciesPerIncident.Observe(float64(len(inc.AgencyTargets)))

	report, err := p.dispatcher.Dispatch(ctx, inc, inc.AgencyTargets)
	if err != nil {
		p.logger.Error("dispatch aborted", "incident_id", inc.ID, "error", err)
		return result{routed: true}
	}

	for _, o := range report.Failed() {
		p.logger.Warn("publish failed",
			"incident_id", inc.ID,
			"agency", o.Agency,
			"topic", o.Topic,
			"error", o.Err,
		)
	}

	return result{
		routed:    true,
		attempted: len(report.Outcomes),
		delivered: report.Succeeded(),
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
