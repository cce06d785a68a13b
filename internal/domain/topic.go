package domain

import (
	"strings"
)

const (
	// DefaultEventsNamespace is the inbound topic root.
	DefaultEventsNamespace = "crisis/events"
	// DefaultAgencyNamespace is the outbound topic root.
	DefaultAgencyNamespace = "crisis/agency"

	unknownSegment = "unknown"
)

// regionReplacer applies the jurisdiction rules in order: ", " first so
// "Ottawa, ON" yields one underscore, not two.
var regionReplacer = strings.NewReplacer(", ", "_", " ", "_")

// DeriveRegionSegment turns a jurisdiction into a topic region segment:
// lower-cased, with ", " and " " replaced by "_". Blank input yields "unknown".
func DeriveRegionSegment(jurisdiction string) string {
	j := strings.TrimSpace(jurisdiction)
	if j == "" {
		return unknownSegment
	}
	return regionReplacer.Replace(strings.ToLower(j))
}

// InboundTopic builds {namespace}/{source}/{region}/{type}/{severity}.
func InboundTopic(namespace, source, region, eventType, severity string) string {
	return joinTopic(namespace, DefaultEventsNamespace, source, region, eventType, severity)
}

// OutboundTopic builds {namespace}/{agency}/{region}/{type}/{severity}.
func OutboundTopic(namespace string, agency Agency, region, eventType, severity string) string {
	return joinTopic(namespace, DefaultAgencyNamespace, string(agency), region, eventType, severity)
}

// SanitizeSegment lower-cases s and replaces every character outside
// [a-z0-9_-] with "_". A literal "/" can therefore never split a segment.
// Empty input yields "unknown".
func SanitizeSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return unknownSegment
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// joinTopic sanitizes the namespace segment by segment, keeping its own "/"
// separators, then appends each value as exactly one sanitized segment.
func joinTopic(namespace, fallback string, segments ...string) string {
	parts := namespaceSegments(namespace)
	if len(parts) == 0 {
		parts = namespaceSegments(fallback)
	}
	for _, s := range segments {
		parts = append(parts, SanitizeSegment(s))
	}
	return strings.Join(parts, "/")
}

func namespaceSegments(namespace string) []string {
	var parts []string
	for _, p := range strings.Split(namespace, "/") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		parts = append(parts, SanitizeSegment(p))
	}
	return parts
}
