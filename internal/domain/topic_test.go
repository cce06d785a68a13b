package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveRegionSegment(t *testing.T) {
	tests := []struct {
		jurisdiction string
		want         string
	}{
		{"Ottawa, ON", "ottawa_on"},
		{"", "unknown"},
		{"   ", "unknown"},
		{"New York City", "new_york_city"},
		{"Gatineau, QC, Canada", "gatineau_qc_canada"},
		{"ottawa", "ottawa"},
	}
	for _, tt := range tests {
		t.Run(tt.jurisdiction, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveRegionSegment(tt.jurisdiction))
		})
	}
}

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"flood", "flood"},
		{"FLOOD", "flood"},
		{"fire/smoke", "fire_smoke"},
		{"vehicle_fire", "vehicle_fire"},
		{"multi-car", "multi-car"},
		{"Montréal", "montr_al"},
		{"a.b*c>", "a_b_c_"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeSegment(tt.in))
		})
	}
}

func TestInboundTopic(t *testing.T) {
	assert.Equal(t, "crisis/events/sensor/ottawa/flood/high",
		InboundTopic("crisis/events", "sensor", "ottawa", "flood", "high"))
	assert.Equal(t, "crisis/events/unknown/unknown/unknown/unknown",
		InboundTopic("", "", "", "", ""))
}

func TestOutboundTopic(t *testing.T) {
	t.Run("standard", func(t *testing.T) {
		assert.Equal(t, "crisis/agency/law/ottawa_on/accident/med",
			OutboundTopic("crisis/agency", AgencyLaw, "ottawa_on", "accident", "med"))
	})

	t.Run("embedded slash never splits a segment", func(t *testing.T) {
		assert.Equal(t, "crisis/agency/fire/ottawa_on/fire_smoke/high",
			OutboundTopic("crisis/agency", AgencyFire, "ottawa_on", "Fire/Smoke", "HIGH"))
	})

	t.Run("namespace is normalized per segment", func(t *testing.T) {
		assert.Equal(t, "ops/crisis_v2/ems/unknown/fire/low",
			OutboundTopic("/ops//Crisis.V2/", AgencyEMS, "", "fire", "low"))
	})

	t.Run("empty namespace falls back to default", func(t *testing.T) {
		assert.Equal(t, "crisis/agency/ngos/ottawa_on/flood/critical",
			OutboundTopic("", AgencyNGOs, "ottawa_on", "flood", "critical"))
	})
}
