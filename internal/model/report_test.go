package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePresence(t *testing.T) {
	tests := []struct {
		in   any
		want Presence
	}{
		{"present", PresencePresent},
		{" Absent ", PresenceAbsent},
		{"indeterminate", PresenceIndeterminate},
		{"bogus", PresenceIndeterminate},
		{"", PresenceIndeterminate},
		{nil, PresenceIndeterminate},
		{42, PresenceIndeterminate},
		{[]any{"present"}, PresenceIndeterminate},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePresence(tt.in), "input %#v", tt.in)
	}
}

func TestParseTemporal(t *testing.T) {
	assert.Equal(t, TemporalFuture, ParseTemporal("future"))
	assert.Equal(t, TemporalRecent, ParseTemporal("RECENT"))
	assert.Equal(t, TemporalUnknown, ParseTemporal("soon"))
	assert.Equal(t, TemporalUnknown, ParseTemporal(3.5))
	assert.Equal(t, TemporalUnknown, ParseTemporal(nil))
}

func TestNewSignals_NoSharedState(t *testing.T) {
	a := NewSignals()
	b := NewSignals()

	a.UncertaintyCues = append(a.UncertaintyCues, "x")
	a.Plan.Evidence = append(a.Plan.Evidence, NewEvidenceSpan("x", 0, 1, SourceRule))

	assert.Empty(t, b.UncertaintyCues)
	assert.Empty(t, b.Plan.Evidence)
	assert.Equal(t, PresenceIndeterminate, b.Plan.Presence)
	assert.Equal(t, TemporalUnknown, b.Temporal)
}

func TestEvidenceSpan_Anchored(t *testing.T) {
	text := "I want to die today"

	assert.True(t, NewEvidenceSpan("want to die", 2, 13, SourceRule).Anchored(text))
	assert.False(t, NewEvidenceSpan("want to die", 3, 14, SourceRule).Anchored(text))
	assert.False(t, NewEvidenceSpan("today", 14, 99, SourceRule).Anchored(text))
	assert.False(t, EvidenceSpan{Text: "today"}.Anchored(text))
}

func TestExtractionResult_JSONFieldOrder(t *testing.T) {
	res := ExtractionResult{
		Text:    "hello",
		Signals: NewSignals(),
		CueHits: NewCueHits(),
		Meta: Meta{
			ExtractorName:    ExtractorName,
			ExtractorVersion: ExtractorVersion,
			Backend:          "rules",
			Language:         "en",
			CreatedAt:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)
	s := string(data)

	iText := strings.Index(s, `"text"`)
	iSignals := strings.Index(s, `"signals"`)
	iCues := strings.Index(s, `"cue_hits"`)
	iMeta := strings.Index(s, `"meta"`)
	assert.True(t, iText < iSignals && iSignals < iCues && iCues < iMeta, "unexpected order: %s", s)

	var back ExtractionResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, res, back)
}

func TestExtractionResult_Spans(t *testing.T) {
	res := ExtractionResult{Signals: NewSignals(), CueHits: NewCueHits()}
	res.Signals.Plan.Evidence = []EvidenceSpan{NewEvidenceSpan("b", 1, 2, SourceRule)}
	res.Signals.SuicidalIdeation.Evidence = []EvidenceSpan{NewEvidenceSpan("a", 0, 1, SourceRule)}
	res.CueHits.Ambiguous = []CueHit{{Cue: "c", Evidence: []EvidenceSpan{NewEvidenceSpan("c", 2, 3, SourceCueMatcher)}}}

	spans := res.Spans()
	require.Len(t, spans, 3)
	assert.Equal(t, "a", spans[0].Text)
	assert.Equal(t, "b", spans[1].Text)
	assert.Equal(t, SourceCueMatcher, spans[2].Source)
}
