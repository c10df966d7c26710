package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/narrascan/internal/model"
)

func sampleResult() *model.ExtractionResult {
	text := "I want to die <now> & then | more."
	sig := model.NewSignals()
	sig.SuicidalIdeation.Presence = model.PresencePresent
	sig.SuicidalIdeation.Evidence = []model.EvidenceSpan{
		model.NewEvidenceSpan("want to die", 2, 13, model.SourceRule),
	}
	sig.Temporal = model.TemporalCurrent
	return &model.ExtractionResult{
		Text:    text,
		Signals: sig,
		CueHits: model.NewCueHits(),
		Meta: model.Meta{
			ExtractorName:    model.ExtractorName,
			ExtractorVersion: model.ExtractorVersion,
			Backend:          "rules",
			Language:         "en",
			CreatedAt:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

func TestHighlight_MergesOverlaps(t *testing.T) {
	text := "I want to die now"
	spans := []model.EvidenceSpan{
		model.NewEvidenceSpan("want to", 2, 9, model.SourceExternal),
		model.NewEvidenceSpan("to die", 7, 13, model.SourceRule),
		model.NewEvidenceSpan("now", 14, 17, model.SourceRule),
	}
	assert.Equal(t, "I **want to die** **now**", Highlight(text, spans))
}

func TestHighlight_SkipsUnanchored(t *testing.T) {
	text := "hello world"
	bad := model.NewEvidenceSpan("nope", 0, 4, model.SourceExternal)
	noOffsets := model.EvidenceSpan{Text: "world", Source: model.SourceExternal}
	assert.Equal(t, text, Highlight(text, []model.EvidenceSpan{bad, noOffsets}))
}

func TestEncodeJSON_NoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, map[string]string{"text": "<now> & then"}))
	assert.Contains(t, buf.String(), "<now> & then")
	assert.Contains(t, buf.String(), "\n  ")
}

func TestDocument_FieldOrder(t *testing.T) {
	cr := &CaseResult{Case: model.Case{ID: "c1"}, Result: sampleResult()}

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, cr.Document()))
	out := buf.String()

	order := []string{`"text"`, `"signals"`, `"cue_hits"`, `"meta"`, `"case_id"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(out, key)
		require.GreaterOrEqual(t, idx, 0, key)
		assert.Greater(t, idx, last, "key %s out of order", key)
		last = idx
	}
	assert.NotContains(t, out, `"projections"`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "c1", decoded["case_id"])
}

func TestRenderer_Markdown(t *testing.T) {
	cr := &CaseResult{
		Case:        model.Case{ID: "c1"},
		Result:      sampleResult(),
		Projections: map[string]any{"phq9_item9": map[string]any{"item9_presence": "present"}},
	}

	md := NewRenderer().Markdown(cr)
	assert.Contains(t, md, "# Extraction report: c1")
	assert.Contains(t, md, "| suicidal_ideation | present | \"want to die\" |")
	assert.Contains(t, md, "I **want to die** <now> & then | more.")
	assert.Contains(t, md, "**Temporal:** current")
	assert.Contains(t, md, "## Framework projections")
	assert.Contains(t, md, "2024-01-02T03:04:05Z")
}

func TestRenderer_WriteFiles(t *testing.T) {
	dir := t.TempDir()
	cr := &CaseResult{Case: model.Case{ID: "c1"}, Result: sampleResult()}
	r := NewRenderer()

	jsonPath := filepath.Join(dir, "out.json")
	mdPath := filepath.Join(dir, "out.md")
	require.NoError(t, r.RenderJSON(cr, jsonPath))
	require.NoError(t, r.RenderMarkdown(cr, mdPath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	var summary bytes.Buffer
	r.RenderSummary(&summary, cr)
	assert.Equal(t, "c1: ideation=present self_harm=indeterminate intent=indeterminate plan=indeterminate past=indeterminate temporal=current cues=0\n", summary.String())
}
