package dispatch

import "github.com/bless2804/CrisisOps-Mesh/internal/domain"

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Outcome is the result of publishing one incident to one agency.
type Outcome struct {
	Agency domain.Agency
	Topic  string
	Err    error
}

// OK reports whether the publish succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Status returns StatusSuccess or StatusFailed.
func (o Outcome) Status() string {
	if o.Err != nil {
		return StatusFailed
	}
	return StatusSuccess
}

// Report collects the per-agency outcomes of one fan-out, in the sorted
// agency order the publishes were issued in.
type Report struct {
	IncidentID string
	Outcomes   []Outcome
}

// Succeeded returns the number of successful publishes.
func (r Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the outcomes whose publish failed.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
