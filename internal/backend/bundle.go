package backend

import (
	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/span"
)

// bundle assembles the raw mapping returned by the built-in backends.
// Values use the same dynamic shapes a JSON decoder would produce.
type bundle struct {
	signals     map[string]map[string]any
	temporal    model.Temporal
	uncertainty []any
	missing     []any
}

func newBundle() *bundle {
	b := &bundle{
		signals:     make(map[string]map[string]any, len(model.SignalNames)),
		temporal:    model.TemporalUnknown,
		uncertainty: []any{},
		missing:     []any{},
	}
	for _, name := range model.SignalNames {
		b.set(name, model.PresenceIndeterminate, nil)
	}
	return b
}

func (b *bundle) set(name string, presence model.Presence, evidence []any) {
	if evidence == nil {
		evidence = []any{}
	}
	b.signals[name] = map[string]any{
		"presence": string(presence),
		"evidence": evidence,
	}
}

func (b *bundle) presence(name string) model.Presence {
	return model.ParsePresence(b.signals[name]["presence"])
}

func (b *bundle) addCue(cue string) {
	b.uncertainty = append(b.uncertainty, cue)
}

func (b *bundle) addMissing(item string) {
	b.missing = append(b.missing, item)
}

func (b *bundle) raw() map[string]any {
	out := make(map[string]any, len(b.signals)+3)
	for name, sig := range b.signals {
		out[name] = sig
	}
	out[keyTemporal] = string(b.temporal)
	out[keyUncertaintyCues] = b.uncertainty
	out[keyMissingInformation] = b.missing
	return out
}

// evidenceItems converts matches to raw evidence entries. When withPattern is
// set, each entry carries the match category as its pattern.
func evidenceItems(source model.EvidenceSource, withPattern bool, groups ...[]span.Match) []any {
	items := []any{}
	for _, group := range groups {
		for _, m := range group {
			item := map[string]any{
				"text":   m.Text,
				"start":  m.Start,
				"end":    m.End,
				"source": string(source),
			}
			if withPattern && m.Category != "" {
				item["pattern"] = m.Category
			}
			items = append(items, item)
		}
	}
	return items
}
