package domain

import (
	"slices"
	"strings"
)

// Agency identifies a responder category that can receive routed incidents.
type Agency string

const (
	AgencyLaw       Agency = "law"
	AgencyFire      Agency = "fire"
	AgencyEMS       Agency = "ems"
	AgencyHospitals Agency = "hospitals"
	AgencyUtilities Agency = "utilities"
	AgencyTransport Agency = "transport"
	AgencyNGOs      Agency = "ngos"
)

// Known reports whether a is one of the agencies the rule table can emit.
// Pre-seeded targets may name others.
func (a Agency) Known() bool {
	switch a {
	case AgencyLaw, AgencyFire, AgencyEMS, AgencyHospitals, AgencyUtilities, AgencyTransport, AgencyNGOs:
		return true
	}
	return false
}

// AgencySet is an unordered set of agencies. Use Sorted for a stable view.
type AgencySet map[Agency]struct{}

// NewAgencySet builds a set from the given agencies, normalizing names and
// dropping blanks.
func NewAgencySet(agencies ...Agency) AgencySet {
	s := make(AgencySet, len(agencies))
	s.Add(agencies...)
	return s
}

// Add inserts agencies into the set.
func (s AgencySet) Add(agencies ...Agency) {
	for _, a := range agencies {
		a = Agency(strings.ToLower(strings.TrimSpace(string(a))))
		if a == "" {
			continue
		}
		s[a] = struct{}{}
	}
}

// Has reports whether the agency is in the set.
func (s AgencySet) Has(a Agency) bool {
	_, ok := s[a]
	return ok
}

// Sorted returns the members in lexicographic order. Never nil.
func (s AgencySet) Sorted() []Agency {
	out := make([]Agency, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
