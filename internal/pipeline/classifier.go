package pipeline

import (
	"context"
	"log/slog"

	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
)

// IncidentClassifier implements Classifier using the domain rule table.
type IncidentClassifier struct {
	logger *slog.Logger
}

// NewClassifier creates an IncidentClassifier.
func NewClassifier(logger *slog.Logger) *IncidentClassifier {
	return &IncidentClassifier{logger: logger}
}

func (c *IncidentClassifier) Classify(ctx context.Context, raw domain.RawEvent) (domain.Incident, error) {
	inc, err := domain.ParseIncident(raw.Value)
	if err != nil {
		return domain.Incident{}, err
	}

	inc = domain.Classify(inc)

	if c.logger.Enabled(ctx, slog.LevelDebug) {
		c.logger.DebugContext(ctx, "incident classified",
			"incident_id", inc.ID,
			"inbound_topic", raw.Topic,
			"agencies", inc.AgencyTargets,
			"trace", domain.Trace(inc),
		)
	}
	return inc, nil
}
