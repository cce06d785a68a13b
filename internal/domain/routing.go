package domain

import (
	"slices"
)

// Rule is one independent classification rule: when Matches reports true,
// every agency in Agencies receives the incident.
type Rule struct {
	Name     string
	Agencies []Agency
	Reason   string
	Matches  func(Incident) bool
}

// defaultTraceReason is reported by Trace when no rule fires.
const defaultTraceReason = "Default routing policy applied."

// rules is the fixed routing table. Order only affects Trace output; Route
// returns a set, so reordering never changes the result.
var rules = []Rule{
	{
		Name:     "public-safety",
		Agencies: []Agency{AgencyLaw},
		Reason:   "Type indicates police for scene safety.",
		Matches:  typeIn("assault", "robbery", "riot", "theft"),
	},
	{
		Name:     "fire-rescue",
		Agencies: []Agency{AgencyFire},
		Reason:   "Type indicates fire and rescue as primary.",
		Matches:  typeIn("fire", "vehicle_fire", "smoke", "hazmat", "collapse", "rescue"),
	},
	{
		Name:     "collision",
		Agencies: []Agency{AgencyLaw, AgencyTransport},
		Reason:   "Crash: police and transportation for traffic control.",
		Matches:  typeIn("accident", "crash"),
	},
	{
		Name:     "disaster",
		Agencies: []Agency{AgencyFire, AgencyUtilities, AgencyLaw},
		Reason:   "Disaster type: fire, utilities for infrastructure, police for perimeter.",
		Matches:  typeIn("flood", "earthquake", "wildfire", "storm"),
	},
	{
		Name:     "casualties",
		Agencies: []Agency{AgencyEMS},
		Reason:   "Injuries or medical need present: EMS.",
		Matches: func(i Incident) bool {
			return i.InjuredCount > 0 || i.MedicalNeed || i.MassCasualty
		},
	},
	{
		Name:     "hospital-surge",
		Agencies: []Agency{AgencyHospitals},
		Reason:   "EMS inbound or surge expected: hospitals.",
		Matches: func(i Incident) bool {
			return i.EMSInbound || i.ExpectedSurge
		},
	},
	{
		Name:     "infrastructure",
		Agencies: []Agency{AgencyUtilities},
		Reason:   "Infrastructure outage: utilities.",
		Matches: func(i Incident) bool {
			return i.PowerOutage || i.DownedLines || i.WaterMainBreak
		},
	},
	{
		Name:     "traffic",
		Agencies: []Agency{AgencyTransport},
		Reason:   "Lanes blocked or transit disrupted: transportation authority.",
		Matches: func(i Incident) bool {
			return i.LanesBlocked >= 1 || i.TransitDisruption || i.RoadClosed
		},
	},
	{
		Name:     "population-impact",
		Agencies: []Agency{AgencyNGOs},
		Reason:   "Population impact: relief and NGOs.",
		Matches: func(i Incident) bool {
			if i.ShelterNeeded {
				return true
			}
			return typeIn("flood", "earthquake")(i) && severityIn("high", "critical")(i)
		},
	},
}

// Rules returns a copy of the fixed routing table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		r.Agencies = slices.Clone(r.Agencies)
		out[i] = r
	}
	return out
}

// Route returns the sorted set of agencies that should receive the incident:
// every agency contributed by a matching rule, unioned with any pre-seeded
// AgencyTargets. It never fails; an incident matching nothing yields an
// empty, non-nil slice.
func Route(inc Incident) []Agency {
	set := NewAgencySet(inc.AgencyTargets...)
	for _, r := range rules {
		if r.Matches(inc) {
			set.Add(r.Agencies...)
		}
	}
	return set.Sorted()
}

// Classify returns the incident with AgencyTargets set to Route(inc).
func Classify(inc Incident) Incident {
	inc.AgencyTargets = Route(inc)
	return inc
}

// Trace explains a routing decision, one reason per matching rule in table
// order.
func Trace(inc Incident) []string {
	var out []string
	for _, r := range rules {
		if r.Matches(inc) {
			out = append(out, r.Reason)
		}
	}
	if len(out) == 0 {
		return []string{defaultTraceReason}
	}
	return out
}

func typeIn(types ...string) func(Incident) bool {
	return func(i Incident) bool {
		return slices.Contains(types, i.Kind())
	}
}

func severityIn(levels ...string) func(Incident) bool {
	return func(i Incident) bool {
		return slices.Contains(levels, i.Level())
	}
}
