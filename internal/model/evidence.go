package model

import (
	"fmt"
	"strings"
)

// Presence is the tri-state claim status of a tracked signal
type Presence string

const (
	PresencePresent       Presence = "present"
	PresenceAbsent        Presence = "absent"
	PresenceIndeterminate Presence = "indeterminate"
)

// Valid reports whether p is one of the known presence values
func (p Presence) Valid() bool {
	switch p {
	case PresencePresent, PresenceAbsent, PresenceIndeterminate:
		return true
	}
	return false
}

// ParsePresence coerces an untrusted value into a Presence.
// Anything unrecognized becomes PresenceIndeterminate.
func ParsePresence(v any) Presence {
	s, ok := asString(v)
	if !ok {
		return PresenceIndeterminate
	}
	p := Presence(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return PresenceIndeterminate
	}
	return p
}

// EvidenceSource identifies the detector that produced an evidence span
type EvidenceSource string

const (
	SourceExternal   EvidenceSource = "llm"         // External model backend (and heuristic baseline)
	SourceRule       EvidenceSource = "rule"        // Pattern/rule engine
	SourceCueMatcher EvidenceSource = "cue_matcher" // Taxonomy cue annotator
)

// Valid reports whether s is one of the known evidence sources
func (s EvidenceSource) Valid() bool {
	switch s {
	case SourceExternal, SourceRule, SourceCueMatcher:
		return true
	}
	return false
}

// EvidenceSpan is a quoted substring supporting a claim.
// When Start and End are set, Text == original[*Start:*End] (byte offsets).
type EvidenceSpan struct {
	Text    string         `json:"text"`
	Start   *int           `json:"start"`
	End     *int           `json:"end"`
	Source  EvidenceSource `json:"source"`
	Pattern string         `json:"pattern,omitempty"` // Originating pattern category, when the detector declares one
}

// NewEvidenceSpan builds a span with known offsets
func NewEvidenceSpan(text string, start, end int, source EvidenceSource) EvidenceSpan {
	return EvidenceSpan{
		Text:   text,
		Start:  intPtr(start),
		End:    intPtr(end),
		Source: source,
	}
}

// HasOffsets reports whether both offsets are known
func (e EvidenceSpan) HasOffsets() bool {
	return e.Start != nil && e.End != nil
}

// Anchored reports whether the span offsets point at its text inside original
func (e EvidenceSpan) Anchored(original string) bool {
	if !e.HasOffsets() {
		return false
	}
	s, end := *e.Start, *e.End
	if s < 0 || end < s || end > len(original) {
		return false
	}
	return original[s:end] == e.Text
}

func (e EvidenceSpan) String() string {
	if !e.HasOffsets() {
		return fmt.Sprintf("%q[?:?]", e.Text)
	}
	return fmt.Sprintf("%q[%d:%d]", e.Text, *e.Start, *e.End)
}

// Temporal is the coarse recency classification of the narrative's central event
type Temporal string

const (
	TemporalCurrent Temporal = "current"
	TemporalRecent  Temporal = "recent"
	TemporalPast    Temporal = "past"
	TemporalFuture  Temporal = "future"
	TemporalUnknown Temporal = "unknown"
)

// Valid reports whether t is one of the known temporal values
func (t Temporal) Valid() bool {
	switch t {
	case TemporalCurrent, TemporalRecent, TemporalPast, TemporalFuture, TemporalUnknown:
		return true
	}
	return false
}

// ParseTemporal coerces an untrusted value into a Temporal, defaulting to TemporalUnknown
func ParseTemporal(v any) Temporal {
	s, ok := asString(v)
	if !ok {
		return TemporalUnknown
	}
	t := Temporal(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return TemporalUnknown
	}
	return t
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case Presence:
		return string(x), true
	case Temporal:
		return string(x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}

func intPtr(v int) *int {
	return &v
}
