// Package projection maps an ExtractionResult onto the field layout of
// established screening frameworks. The mapping is purely structural: no
// item is scored, summed or thresholded.
package projection

import (
	"github.com/ppiankov/narrascan/internal/model"
)

// Framework names used as projection keys
const (
	FrameworkCSSRS     = "cssrs"
	FrameworkPHQ9Item9 = "phq9_item9"
)

// CSSRSInspired mirrors the C-SSRS screening fields without scoring them
type CSSRSInspired struct {
	PassiveIdeation    model.Presence `json:"passive_ideation"`
	ActiveIdeation     model.Presence `json:"active_ideation"`
	Intent             model.Presence `json:"intent"`
	Plan               model.Presence `json:"plan"`
	MethodSpecified    model.Presence `json:"method_specified"`
	AccessToMeans      model.Presence `json:"access_to_means"`
	TimeframeSpecified model.Presence `json:"timeframe_specified"`

	PastSuicidalBehavior model.Presence `json:"past_suicidal_behavior"`
	PreparatoryBehaviors model.Presence `json:"preparatory_behaviors"`

	Temporal           model.Temporal       `json:"temporal"`
	Evidence           []model.EvidenceSpan `json:"evidence"`
	MissingInformation []string             `json:"missing_information"`
	Notes              string               `json:"notes,omitempty"`
}

// PHQ9Item9 structures whether the narrative contains thoughts of death or self-harm
type PHQ9Item9 struct {
	Item9Presence      model.Presence       `json:"item9_presence"`
	Evidence           []model.EvidenceSpan `json:"evidence"`
	MissingInformation []string             `json:"missing_information"`
	Notes              string               `json:"notes,omitempty"`
}

// Missing-information entries added by projections
const (
	MissingIdeationType        = "passive_vs_active_ideation_not_distinguished"
	MissingMethod              = "method_not_structured"
	MissingAccessToMeans       = "access_to_means_not_structured"
	MissingPreparatoryBehavior = "preparatory_behaviors_not_structured"
	MissingTimeframe           = "timeframe_not_specified"
)

// Notes explaining why ideation stays indeterminate. They describe the
// narrative only and never score or recommend.
const (
	NoteConflictingEvidence = "Ideation language appears alongside denial or other countervailing statements; presence left indeterminate for human review."
	NoteNoExplicitEvidence  = "The narrative has no explicit ideation evidence; presence left indeterminate."
)

// CSSRS projects r onto the C-SSRS-inspired layout
func CSSRS(r *model.ExtractionResult) CSSRSInspired {
	s := r.Signals
	out := CSSRSInspired{
		PassiveIdeation:      model.PresenceIndeterminate,
		ActiveIdeation:       model.PresenceIndeterminate,
		Intent:               s.Intent.Presence,
		Plan:                 s.Plan.Presence,
		MethodSpecified:      model.PresenceIndeterminate,
		AccessToMeans:        model.PresenceIndeterminate,
		TimeframeSpecified:   model.PresenceIndeterminate,
		PastSuicidalBehavior: s.PastBehavior.Presence,
		PreparatoryBehaviors: model.PresenceIndeterminate,
		Temporal:             s.Temporal,
		Evidence:             mergeEvidence(s.SuicidalIdeation, s.Intent, s.Plan, s.PastBehavior),
		MissingInformation:   append([]string{}, s.MissingInformation...),
	}

	switch s.SuicidalIdeation.Presence {
	case model.PresenceAbsent:
		out.PassiveIdeation = model.PresenceAbsent
		out.ActiveIdeation = model.PresenceAbsent
	case model.PresencePresent:
		out.MissingInformation = append(out.MissingInformation, MissingIdeationType)
	default:
		out.Notes = ambiguityNote(s.SuicidalIdeation)
	}

	if s.Temporal != model.TemporalUnknown {
		out.TimeframeSpecified = model.PresencePresent
	} else {
		out.MissingInformation = append(out.MissingInformation, MissingTimeframe)
	}

	out.MissingInformation = append(out.MissingInformation,
		MissingMethod, MissingAccessToMeans, MissingPreparatoryBehavior)
	return out
}

// PHQ9 projects r onto PHQ-9 item 9
func PHQ9(r *model.ExtractionResult) PHQ9Item9 {
	s := r.Signals
	presence := model.PresenceIndeterminate
	switch {
	case s.SuicidalIdeation.Presence == model.PresencePresent || s.SelfHarm.Presence == model.PresencePresent:
		presence = model.PresencePresent
	case s.SuicidalIdeation.Presence == model.PresenceAbsent && s.SelfHarm.Presence == model.PresenceAbsent:
		presence = model.PresenceAbsent
	}
	out := PHQ9Item9{
		Item9Presence:      presence,
		Evidence:           mergeEvidence(s.SuicidalIdeation, s.SelfHarm),
		MissingInformation: append([]string{}, s.MissingInformation...),
	}
	if presence == model.PresenceIndeterminate && s.SuicidalIdeation.Presence == model.PresenceIndeterminate {
		out.Notes = ambiguityNote(s.SuicidalIdeation)
	}
	return out
}

func ambiguityNote(ideation model.Signal) string {
	if len(ideation.Evidence) > 0 {
		return NoteConflictingEvidence
	}
	return NoteNoExplicitEvidence
}

// All returns every projection keyed by framework name
func All(r *model.ExtractionResult) map[string]any {
	return map[string]any{
		FrameworkCSSRS:     CSSRS(r),
		FrameworkPHQ9Item9: PHQ9(r),
	}
}

// Frameworks lists projection keys in a stable order
func Frameworks() []string {
	return []string{FrameworkCSSRS, FrameworkPHQ9Item9}
}

// mergeEvidence concatenates signal evidence, dropping repeated spans
func mergeEvidence(signals ...model.Signal) []model.EvidenceSpan {
	type key struct {
		text       string
		start, end int
		located    bool
	}
	seen := make(map[key]bool)
	out := []model.EvidenceSpan{}
	for _, sig := range signals {
		for _, ev := range sig.Evidence {
			k := key{text: ev.Text, located: ev.HasOffsets()}
			if k.located {
				k.start, k.end = *ev.Start, *ev.End
			}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, ev)
		}
	}
	return out
}
