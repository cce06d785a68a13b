// Package generator produces synthetic incidents for exercising the router
// and publishes them into the inbound topic space.
package generator

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// MaxBatch bounds a single Batch call.
const MaxBatch = 50

// Defaults for generated incidents: an area around Ottawa.
const (
	DefaultSource       = "sensor"
	DefaultJurisdiction = "Ottawa, ON"

	centerLat = 45.3215
	centerLng = -75.8572
	spanLat   = 0.35
	spanLng   = 0.55
)

// Types and Severities are the values the generator draws from.
var (
	Types      = []string{"flood", "accident", "assault", "disease", "earthquake", "fire"}
	Severities = []string{"low", "med", "high", "critical"}
)

// Generator builds random but internally consistent incidents. Lane
// blockage implies road closure; power outages, shelter needs, and
// displacement only occur with floods. It is safe for concurrent use.
type Generator struct {
	clock  clockwork.Clock
	source string

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Generator. A nil rng draws from a randomly seeded source.
func New(clock clockwork.Clock, source string, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if source == "" {
		source = DefaultSource
	}
	return &Generator{clock: clock, source: source, rng: rng}
}

// Next returns one synthetic incident.
func (g *Generator) Next() domain.Incident {
	g.mu.Lock()
	defer g.mu.Unlock()

	kind := Types[g.rng.IntN(len(Types))]
	severity := Severities[g.rng.IntN(len(Severities))]
	flood := kind == "flood"

	lanes := 0
	if g.rng.Float64() < 0.4 {
		lanes = g.rng.IntN(3)
	}
	injured := 0
	if g.rng.Float64() < 0.35 {
		injured = g.rng.IntN(3)
	}
	displaced := 0
	if flood {
		displaced = g.rng.IntN(201)
	}

	ts := g.clock.Now().UTC()
	return domain.Incident{
		ID:        g.newID(),
		Timestamp: &ts,
		Type:      kind,
		Severity:  severity,
		Source:    g.source,
		Headline:  strings.ToUpper(kind[:1]) + kind[1:] + " reported",
		Summary:   "Synthetic incident from the crisis publisher",
		Location: &domain.Location{
			Lat:     centerLat + (g.rng.Float64()-0.5)*spanLat,
			Lng:     centerLng + (g.rng.Float64()-0.5)*spanLng,
			City:    "Ottawa",
			Country: "CA",
		},
		Jurisdiction:    DefaultJurisdiction,
		InjuredCount:    injured,
		LanesBlocked:    lanes,
		RoadClosed:      lanes >= 2,
		PowerOutage:     flood && g.rng.Float64() < 0.3,
		ShelterNeeded:   flood && severity != "low" && g.rng.Float64() < 0.4,
		DisplacedPeople: displaced,
	}
}

// Batch returns n incidents, with n clamped to [1, MaxBatch].
func (g *Generator) Batch(n int) []domain.Incident {
	n = ClampBatch(n)
	out := make([]domain.Incident, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// ClampBatch limits a requested batch size to [1, MaxBatch].
func ClampBatch(n int) int {
	return min(max(n, 1), MaxBatch)
}

// newID draws the id from g.rng so a seeded generator replays the same ids.
// The caller holds g.mu.
func (g *Generator) newID() string {
	id, err := uuid.NewRandomFromReader(rngReader{g.rng})
	if err != nil {
		// rngReader never fails
		panic(err)
	}
	return "gen_" + strings.ReplaceAll(id.String(), "-", "")[:8]
}

// rngReader adapts a math/rand source to io.Reader.
type rngReader struct {
	rng *rand.Rand
}

func (r rngReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := r.rng.Uint64()
		for j := i; j < len(p) && j < i+8; j++ {
			p[j] = byte(v)
			v >>= 8
		}
	}
	return len(p), nil
}
