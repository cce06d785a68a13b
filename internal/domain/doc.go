// Package domain models crisis incidents and the rules that decide which
// responder agencies receive them.
//
// # Data Source
//
// Incidents arrive as flat JSON objects on the inbound topic space, either
// from field sensors or from the synthetic publisher in cmd/publisher. The
// router never trusts the shape of a payload beyond "it is a JSON object":
// every field is optional and read through the coercion helpers in
// coerce.go.
//
// # Field Conventions
//
// Type and severity:
//
//	Lower-cased and trimmed. A missing type becomes "unknown", a missing
//	severity becomes "low". Values outside the known vocabulary are kept
//	as-is; they simply satisfy no routing rule.
//
// Counters (injuredCount, lanesBlocked, displacedPeople):
//
//	JSON numbers only. Strings, booleans, negative and non-finite values
//	read as zero.
//
// Flags (roadClosed, powerOutage, shelterNeeded and the need signals):
//
//	True only for the JSON literal true.
//
// Timestamp:
//
//	RFC 3339 with offset, read from "timestamp" or the legacy "ts" key.
//	An unparsable value is kept verbatim as an extra field.
//
// Unknown keys:
//
//	Preserved in [Incident.Extras] and written back by [SerializeIncident],
//	so downstream agencies see everything the sensor sent. Numbers keep
//	their exact digits.
//
// # Topic Space
//
// Inbound:  {namespace}/{source}/{region}/{type}/{severity}
// Outbound: {namespace}/{agency}/{region}/{type}/{severity}
//
// The region segment comes from the jurisdiction: "Ottawa, ON" becomes
// "ottawa_on". See [DeriveRegionSegment] and [InboundTopic].
//
// # Routing
//
// [Route] evaluates a fixed table of independent rules and returns the
// sorted union of the agencies they contribute, merged with any targets the
// sender pre-seeded in agencyTargets. Sorting gives a reproducible fan-out
// order; it carries no priority.
package domain
