package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/narrascan/internal/backend"
	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/span"
)

// Normalize maps an untrusted backend bundle onto the canonical signal schema.
//
// Unknown enum values fall back to indeterminate/unknown, malformed shapes are
// skipped and missing collections become empty. Evidence provenance comes from
// the backend kind; per-span source and pattern are only honored for kinds that
// declare span provenance. Normalize never panics.
func Normalize(raw map[string]any, text string, kind backend.Kind) model.Signals {
	signals := model.NewSignals()
	if raw == nil {
		return signals
	}

	source := model.SourceExternal
	if kind == backend.KindRules {
		source = model.SourceRule
	}
	trust := kind.DeclaresSpanProvenance()

	for _, name := range model.SignalNames {
		*signals.ByName(name) = NormalizeSignal(raw[name], text, source, trust)
	}
	signals.Temporal = model.ParseTemporal(raw["temporal"])
	signals.UncertaintyCues = stringList(raw["uncertainty_cues"])
	signals.MissingInformation = stringList(raw["missing_information"])
	return signals
}

// NormalizeSignal converts one raw signal block. Evidence items get source
// unless trustSpanSource is set and the item names a valid source itself.
func NormalizeSignal(raw any, text string, source model.EvidenceSource, trustSpanSource bool) model.Signal {
	sig := model.NewSignal()
	block, ok := raw.(map[string]any)
	if !ok {
		return sig
	}
	sig.Presence = model.ParsePresence(block["presence"])

	for _, item := range anyList(block["evidence"]) {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ev, ok := normalizeSpan(fields, text, source, trustSpanSource)
		if !ok {
			continue
		}
		sig.Evidence = append(sig.Evidence, ev)
	}
	return sig
}

func normalizeSpan(fields map[string]any, text string, source model.EvidenceSource, trust bool) (model.EvidenceSpan, bool) {
	quoted := scalarString(fields["text"])
	if strings.TrimSpace(quoted) == "" {
		return model.EvidenceSpan{}, false
	}

	ev := model.EvidenceSpan{Text: quoted, Source: source}
	if trust {
		if s, ok := fields["source"].(string); ok && model.EvidenceSource(s).Valid() {
			ev.Source = model.EvidenceSource(s)
		}
		if p, ok := fields["pattern"].(string); ok {
			ev.Pattern = p
		}
	}

	start, okStart := toInt(fields["start"])
	end, okEnd := toInt(fields["end"])
	if okStart && okEnd && start >= 0 && start <= end && end <= len(text) && text[start:end] == quoted {
		ev.Start, ev.End = &start, &end
		return ev, true
	}

	// Offsets missing or wrong: anchor to the first occurrence, if any
	if matches := span.FindAll(text, quoted); len(matches) > 0 {
		m := matches[0]
		ev.Text = m.Text
		ev.Start, ev.End = &m.Start, &m.End
	}
	return ev, true
}

// anyList accepts the list shapes a JSON decoder or an in-process backend produces
func anyList(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case []map[string]any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	}
	return nil
}

func stringList(v any) []string {
	out := []string{}
	switch x := v.(type) {
	case []string:
		out = append(out, x...)
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64, int, int64, bool:
		return fmt.Sprint(x)
	}
	return ""
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
