package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/narrascan/internal/model"
)

// Document is the JSON shape written for one case.
// Result fields come first so the wire order stays text, signals, cue_hits, meta.
type Document struct {
	*model.ExtractionResult
	CaseID      string         `json:"case_id,omitempty"`
	Projections map[string]any `json:"projections,omitempty"`
}

// Renderer writes case results as JSON, Markdown and a console summary
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Document builds the JSON document for cr
func (cr *CaseResult) Document() Document {
	return Document{
		ExtractionResult: cr.Result,
		CaseID:           cr.Case.ID,
		Projections:      cr.Projections,
	}
}

// EncodeJSON writes v indented, without HTML escaping so quoted narrative stays readable
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderJSON writes the case document to path
func (r *Renderer) RenderJSON(cr *CaseResult, path string) error {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, cr.Document()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(cr *CaseResult, path string) error {
	return os.WriteFile(path, []byte(r.Markdown(cr)), 0o644)
}

// Markdown renders a human-readable report with evidence highlighted in the narrative
func (r *Renderer) Markdown(cr *CaseResult) string {
	res := cr.Result
	var b strings.Builder

	title := "Extraction report"
	if cr.Case.ID != "" {
		title += ": " + cr.Case.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("> Structured evidence only. No risk score, no recommendation.\n\n")

	b.WriteString("## Signals\n\n")
	b.WriteString("| Signal | Presence | Evidence |\n")
	b.WriteString("|---|---|---|\n")
	for _, name := range model.SignalNames {
		sig := res.Signals.ByName(name)
		quotes := make([]string, 0, len(sig.Evidence))
		for _, ev := range sig.Evidence {
			quotes = append(quotes, fmt.Sprintf("%q", ev.Text))
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", name, sig.Presence, escapeCell(strings.Join(quotes, ", ")))
	}
	fmt.Fprintf(&b, "\n**Temporal:** %s\n\n", res.Signals.Temporal)

	writeList(&b, "Uncertainty cues", res.Signals.UncertaintyCues)
	writeList(&b, "Missing information", res.Signals.MissingInformation)

	b.WriteString("## Cue hits\n\n")
	if res.CueHits.Count() == 0 {
		b.WriteString("_none_\n\n")
	} else {
		for _, group := range []struct {
			name string
			hits []model.CueHit
		}{
			{"contextual", res.CueHits.Contextual},
			{"subjective", res.CueHits.Subjective},
			{"ambiguous", res.CueHits.Ambiguous},
		} {
			for _, hit := range group.hits {
				fmt.Fprintf(&b, "- %s: %q (%d)\n", group.name, hit.Cue, len(hit.Evidence))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Narrative\n\n")
	b.WriteString(Highlight(res.Text, res.Spans()))
	b.WriteString("\n\n")

	if len(cr.Projections) > 0 {
		b.WriteString("## Framework projections\n\n```json\n")
		var buf bytes.Buffer
		if err := EncodeJSON(&buf, cr.Projections); err == nil {
			b.Write(buf.Bytes())
		}
		b.WriteString("```\n\n")
	}

	m := res.Meta
	fmt.Fprintf(&b, "---\n%s %s | backend %s | language %s | taxonomy %s | %s\n",
		m.ExtractorName, m.ExtractorVersion, m.Backend, m.Language, m.TaxonomyVersion,
		m.CreatedAt.Format("2006-01-02T15:04:05Z"))

	return b.String()
}

// RenderSummary prints a short per-case summary
func (r *Renderer) RenderSummary(w io.Writer, cr *CaseResult) {
	s := cr.Result.Signals
	fmt.Fprintf(w, "%s: ideation=%s self_harm=%s intent=%s plan=%s past=%s temporal=%s cues=%d\n",
		cr.Case.ID,
		s.SuicidalIdeation.Presence, s.SelfHarm.Presence, s.Intent.Presence,
		s.Plan.Presence, s.PastBehavior.Presence, s.Temporal, cr.Result.CueHits.Count())
}

// Highlight wraps every anchored span of text in **…**. Overlapping spans are
// merged for display only; spans without valid offsets are skipped.
func Highlight(text string, spans []model.EvidenceSpan) string {
	type interval struct{ start, end int }

	var ivs []interval
	for _, sp := range spans {
		if sp.Anchored(text) && *sp.End > *sp.Start {
			ivs = append(ivs, interval{*sp.Start, *sp.End})
		}
	}
	if len(ivs) == 0 {
		return text
	}

	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].start != ivs[j].start {
			return ivs[i].start < ivs[j].start
		}
		return ivs[i].end > ivs[j].end
	})

	merged := []interval{ivs[0]}
	for _, iv := range ivs[1:] {
		last := &merged[len(merged)-1]
		if iv.start <= last.end {
			if iv.end > last.end {
				last.end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}

	var b strings.Builder
	pos := 0
	for _, iv := range merged {
		b.WriteString(text[pos:iv.start])
		b.WriteString("**")
		b.WriteString(text[iv.start:iv.end])
		b.WriteString("**")
		pos = iv.end
	}
	b.WriteString(text[pos:])
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "**%s:**", title)
	if len(items) == 0 {
		b.WriteString(" none\n\n")
		return
	}
	b.WriteString("\n\n")
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
