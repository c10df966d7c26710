package model

import "time"

const (
	ExtractorName    = "narrascan-extractor"
	ExtractorVersion = "0.2.0"
)

// Signal is one tracked clinical dimension
type Signal struct {
	Presence Presence       `json:"presence"`
	Evidence []EvidenceSpan `json:"evidence"`
}

// NewSignal returns an indeterminate signal with an empty evidence list
func NewSignal() Signal {
	return Signal{
		Presence: PresenceIndeterminate,
		Evidence: []EvidenceSpan{},
	}
}

// Signals bundles the five tracked dimensions plus temporal context.
// It structures narrative evidence only; it never scores or recommends.
type Signals struct {
	SuicidalIdeation Signal `json:"suicidal_ideation"`
	SelfHarm         Signal `json:"self_harm"`
	Intent           Signal `json:"intent"`
	Plan             Signal `json:"plan"`
	PastBehavior     Signal `json:"past_behavior"`

	Temporal           Temporal `json:"temporal"`
	UncertaintyCues    []string `json:"uncertainty_cues"`
	MissingInformation []string `json:"missing_information"`
}

// NewSignals returns a fresh default bundle. Nothing is shared between calls.
func NewSignals() Signals {
	return Signals{
		SuicidalIdeation:   NewSignal(),
		SelfHarm:           NewSignal(),
		Intent:             NewSignal(),
		Plan:               NewSignal(),
		PastBehavior:       NewSignal(),
		Temporal:           TemporalUnknown,
		UncertaintyCues:    []string{},
		MissingInformation: []string{},
	}
}

// SignalNames lists the tracked dimensions in wire order
var SignalNames = []string{"suicidal_ideation", "self_harm", "intent", "plan", "past_behavior"}

// ByName returns a pointer to the named signal, or nil for unknown names
func (s *Signals) ByName(name string) *Signal {
	switch name {
	case "suicidal_ideation":
		return &s.SuicidalIdeation
	case "self_harm":
		return &s.SelfHarm
	case "intent":
		return &s.Intent
	case "plan":
		return &s.Plan
	case "past_behavior":
		return &s.PastBehavior
	}
	return nil
}

// CueHit is one taxonomy phrase that matched, with every located occurrence
type CueHit struct {
	Cue      string         `json:"cue"`
	Evidence []EvidenceSpan `json:"evidence"`
}

// CueHits groups hits by taxonomy category
type CueHits struct {
	Contextual []CueHit `json:"contextual"`
	Subjective []CueHit `json:"subjective"`
	Ambiguous  []CueHit `json:"ambiguous"`
}

// NewCueHits returns empty (non-nil) category lists
func NewCueHits() CueHits {
	return CueHits{
		Contextual: []CueHit{},
		Subjective: []CueHit{},
		Ambiguous:  []CueHit{},
	}
}

// Count returns the number of hits across all categories
func (c CueHits) Count() int {
	return len(c.Contextual) + len(c.Subjective) + len(c.Ambiguous)
}

// Meta records extractor identity for reproducibility
type Meta struct {
	ExtractorName    string    `json:"extractor_name"`
	ExtractorVersion string    `json:"extractor_version"`
	Backend          string    `json:"llm_backend"`
	Model            string    `json:"model,omitempty"`
	Language         string    `json:"language"`
	TaxonomyVersion  string    `json:"taxonomy_version,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ExtractionResult is the root aggregate returned for one extraction call.
// JSON field order is text, signals, cue_hits, meta.
type ExtractionResult struct {
	Text    string  `json:"text"`
	Signals Signals `json:"signals"`
	CueHits CueHits `json:"cue_hits"`
	Meta    Meta    `json:"meta"`
}

// Spans returns every evidence span in the result: signals first (wire order), then cue hits
func (r *ExtractionResult) Spans() []EvidenceSpan {
	var out []EvidenceSpan
	for _, name := range SignalNames {
		out = append(out, r.Signals.ByName(name).Evidence...)
	}
	for _, group := range [][]CueHit{r.CueHits.Contextual, r.CueHits.Subjective, r.CueHits.Ambiguous} {
		for _, hit := range group {
			out = append(out, hit.Evidence...)
		}
	}
	return out
}
