package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the inbound topic space.
// Topic holds the hierarchical topic the message was published on when the
// transport carries one (NATS subject, Kafka "topic" header).
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Location is the geographic position reported with an incident.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
}

// Incident is the normalized in-memory form of one crisis report.
type Incident struct {
	ID           string     `json:"id"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	Type         string     `json:"type"`
	Severity     string     `json:"severity"`
	Source       string     `json:"source,omitempty"`
	Headline     string     `json:"headline,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Location     *Location  `json:"location,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`

	InjuredCount    int  `json:"injuredCount"`
	LanesBlocked    int  `json:"lanesBlocked"`
	DisplacedPeople int  `json:"displacedPeople"`
	RoadClosed      bool `json:"roadClosed"`
	PowerOutage     bool `json:"powerOutage"`
	ShelterNeeded   bool `json:"shelterNeeded"`

	// Need signals. Absent from most sensor feeds.
	MedicalNeed       bool `json:"medicalNeed,omitempty"`
	MassCasualty      bool `json:"massCasualty,omitempty"`
	EMSInbound        bool `json:"emsInbound,omitempty"`
	ExpectedSurge     bool `json:"expectedSurge,omitempty"`
	DownedLines       bool `json:"downedLines,omitempty"`
	WaterMainBreak    bool `json:"waterMainBreak,omitempty"`
	TransitDisruption bool `json:"transitDisruption,omitempty"`

	AgencyTargets []Agency `json:"agencyTargets"`

	// Extras holds inbound keys the model does not know about.
	Extras map[string]any `json:"-"`
}

// Region returns the topic region segment derived from the jurisdiction.
func (i Incident) Region() string {
	return DeriveRegionSegment(i.Jurisdiction)
}

// Kind returns the lower-cased incident type, "unknown" when empty.
func (i Incident) Kind() string {
	return normalizeType(i.Type)
}

// Level returns the lower-cased severity, "low" when empty.
func (i Incident) Level() string {
	return normalizeSeverity(i.Severity)
}
