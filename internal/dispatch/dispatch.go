// Package dispatch fans a classified incident out to its agency topics.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
	"github.com/bless2804/CrisisOps-Mesh/internal/observability"
	"golang.org/x/sync/errgroup"
)

// ErrSerialize marks a fan-out that was abandoned before any publish because
// the incident could not be encoded.
var ErrSerialize = errors.New("serialize incident")

// otherAgencyLabel is the metric label for agencies outside the known set.
// Agency names can come from inbound payloads, so they are not used as
// label values directly.
const otherAgencyLabel = "other"

// Publisher delivers one payload to one hierarchical topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, topic string, payload []byte) error

// Publish calls f(ctx, topic, payload).
func (f PublisherFunc) Publish(ctx context.Context, topic string, payload []byte) error {
	return f(ctx, topic, payload)
}

// Options tunes a Dispatcher.
type Options struct {
	// Namespace is the outbound topic root. Empty means domain.DefaultAgencyNamespace.
	Namespace string
	// Concurrency bounds simultaneous publishes for one incident. Values
	// below 1 publish sequentially.
	Concurrency int
	// PublishTimeout bounds each publish. Zero means no per-publish deadline.
	PublishTimeout time.Duration
}

// Dispatcher publishes an incident once per target agency.
// It holds no per-incident state and is safe for concurrent use.
type Dispatcher struct {
	publisher Publisher
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Dispatcher that publishes through p.
func New(p Publisher, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if opts.Namespace == "" {
		opts.Namespace = domain.DefaultAgencyNamespace
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Dispatcher{
		publisher: p,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Dispatch publishes inc to the outbound topic of every agency. The payload
// carries the full sorted target list, identical for every recipient.
//
// A publish failure is recorded in the report and never stops the remaining
// publishes. The only error returned wraps ErrSerialize, in which case
// nothing was published. An empty agency list publishes nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, inc domain.Incident, agencies []domain.Agency) (Report, error) {
	report := Report{IncidentID: inc.ID}
	targets := domain.NewAgencySet(agencies...).Sorted()
	if len(targets) == 0 {
		return report, nil
	}

	inc.AgencyTargets = targets
	payload, err := domain.SerializeIncident(inc)
	if err != nil {
		d.metrics.SerializeErrors.Inc()
		return report, fmt.Errorf("%w: %w", ErrSerialize, err)
	}

	start := time.Now()
	region, kind, level := inc.Region(), inc.Kind(), inc.Level()

	report.Outcomes = make([]Outcome, len(targets))
	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for i, agency := range targets {
		topic := domain.OutboundTopic(d.opts.Namespace, agency, region, kind, level)
		report.Outcomes[i] = Outcome{Agency: agency, Topic: topic}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					report.Outcomes[i].Err = fmt.Errorf("publish %s: panic: %v", topic, r)
				}
			}()
			report.Outcomes[i].Err = d.publish(ctx, topic, payload)
			return nil
		})
	}
	_ = g.Wait() // goroutines record errors in their outcome and never return one

	for _, o := range report.Outcomes {
		d.metrics.Publishes.WithLabelValues(agencyLabel(o.Agency), o.Status()).Inc()
		if o.OK() {
			d.logger.Debug("incident routed", "incident_id", inc.ID, "agency", o.Agency, "topic", o.Topic)
		}
	}
	d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	return report, nil
}

func agencyLabel(a domain.Agency) string {
	if a.Known() {
		return string(a)
	}
	return otherAgencyLabel
}

func (d *Dispatcher) publish(ctx context.Context, topic string, payload []byte) error {
	if d.opts.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.PublishTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	if err := d.publisher.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
