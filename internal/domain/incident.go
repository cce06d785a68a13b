package domain

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ErrNotObject is returned by ParseIncident when the payload is not a JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

// knownFields are the inbound keys consumed by FromMap. Everything else lands
// in Incident.Extras.
var knownFields = map[string]struct{}{
	"id": {}, "timestamp": {}, "ts": {}, "type": {}, "severity": {}, "source": {},
	"headline": {}, "summary": {}, "location": {}, "jurisdiction": {},
	"injuredCount": {}, "lanesBlocked": {}, "displacedPeople": {},
	"roadClosed": {}, "powerOutage": {}, "shelterNeeded": {},
	"medicalNeed": {}, "massCasualty": {}, "emsInbound": {}, "expectedSurge": {},
	"downedLines": {}, "waterMainBreak": {}, "transitDisruption": {},
	"agencyTargets": {},
}

// ParseIncident decodes a JSON object payload into a normalized Incident.
// Numbers are decoded as json.Number so extras keep their exact digits.
func ParseIncident(raw []byte) (Incident, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return Incident{}, fmt.Errorf("parse incident: %w", ErrNotObject)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return Incident{}, fmt.Errorf("parse incident: %w: %w", ErrNotObject, err)
	}
	return FromMap(m), nil
}

// FromMap builds a normalized Incident from a decoded JSON object. It never
// fails: missing or mistyped fields fall back to their defaults.
func FromMap(m map[string]any) Incident {
	inc := Incident{
		ID:           asString(m["id"]),
		Type:         normalizeType(asString(m["type"])),
		Severity:     normalizeSeverity(asString(m["severity"])),
		Source:       asString(m["source"]),
		Headline:     asString(m["headline"]),
		Summary:      asString(m["summary"]),
		Jurisdiction: asString(m["jurisdiction"]),

		InjuredCount:    asCount(m["injuredCount"]),
		LanesBlocked:    asCount(m["lanesBlocked"]),
		DisplacedPeople: asCount(m["displacedPeople"]),
		RoadClosed:      asFlag(m["roadClosed"]),
		PowerOutage:     asFlag(m["powerOutage"]),
		ShelterNeeded:   asFlag(m["shelterNeeded"]),

		MedicalNeed:       asFlag(m["medicalNeed"]),
		MassCasualty:      asFlag(m["massCasualty"]),
		EMSInbound:        asFlag(m["emsInbound"]),
		ExpectedSurge:     asFlag(m["expectedSurge"]),
		DownedLines:       asFlag(m["downedLines"]),
		WaterMainBreak:    asFlag(m["waterMainBreak"]),
		TransitDisruption: asFlag(m["transitDisruption"]),

		AgencyTargets: asAgencies(m["agencyTargets"]),
	}

	extras := make(map[string]any)
	for k, v := range m {
		if _, ok := knownFields[k]; !ok {
			extras[k] = v
		}
	}

	// Keep unreadable timestamps and locations verbatim rather than dropping them.
	for _, key := range []string{"timestamp", "ts"} {
		v, present := m[key]
		if !present {
			continue
		}
		t, ok := asTime(v)
		switch {
		case !ok:
			extras[key] = v
		case inc.Timestamp == nil:
			inc.Timestamp = &t
		}
	}
	if v, present := m["location"]; present {
		if loc, ok := asLocation(v); ok {
			inc.Location = loc
		} else {
			extras["location"] = v
		}
	}

	if len(extras) > 0 {
		inc.Extras = extras
	}
	return inc
}

// SerializeIncident encodes the incident as a JSON object: every modeled
// field, the preserved extras, and agencyTargets as a sorted array. Extras
// are appended as raw members, so any key is accepted, including "".
func SerializeIncident(inc Incident) ([]byte, error) {
	inc.AgencyTargets = NewAgencySet(inc.AgencyTargets...).Sorted()
	if inc.Timestamp != nil {
		ts := inc.Timestamp.UTC()
		inc.Timestamp = &ts
	}

	body, err := json.Marshal(inc)
	if err != nil {
		return nil, fmt.Errorf("encode incident %s: %w", inc.ID, err)
	}
	if len(inc.Extras) == 0 {
		return body, nil
	}

	modeled := make(map[string]struct{})
	gjson.ParseBytes(body).ForEach(func(key, _ gjson.Result) bool {
		modeled[key.String()] = struct{}{}
		return true
	})

	out := bytes.NewBuffer(make([]byte, 0, len(body)+64*len(inc.Extras)))
	out.Write(body[:len(body)-1])
	for _, key := range slices.Sorted(maps.Keys(inc.Extras)) {
		if _, ok := modeled[key]; ok {
			continue
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("encode incident %s field %q: %w", inc.ID, key, err)
		}
		value, err := json.Marshal(inc.Extras[key])
		if err != nil {
			return nil, fmt.Errorf("encode incident %s field %q: %w", inc.ID, key, err)
		}
		out.WriteByte(',')
		out.Write(name)
		out.WriteByte(':')
		out.Write(value)
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}
