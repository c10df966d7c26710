package backend

import (
	"context"

	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/span"
)

// directIdeationCues are literal phrases the heuristic backend scans for
var directIdeationCues = []string{
	"kill myself",
	"suicide",
	"want to die",
	"wish i were dead",
	"end it all",
	"better off dead",
	"eu queria nao acordar amanha",
	"vou por uma bala na minha cabeca",
}

// heuristicTemporal lists marker buckets in the order they are checked
var heuristicTemporal = []struct {
	temporal model.Temporal
	markers  *span.Family
}{
	{model.TemporalCurrent, span.NewFamily("current", `\bnow\b`, `\bright now\b`, `\btoday\b`, `\bemergency department\b`)},
	{model.TemporalRecent, span.NewFamily("recent", `\byesterday\b`, `\blast night\b`, `\bearlier today\b`)},
	{model.TemporalFuture, span.NewFamily("future", `\btonight\b`, `\btomorrow\b`, `\bnext week\b`)},
	{model.TemporalPast, span.NewFamily("past", `\byears ago\b`, `\bmonths ago\b`, `\blast year\b`)},
}

// Heuristic is a lightweight keyword baseline for smoke tests and demos.
// It is not clinical inference.
type Heuristic struct{}

// NewHeuristic creates the keyword baseline backend
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Kind() Kind   { return KindHeuristic }
func (h *Heuristic) Name() string { return string(KindHeuristic) }

// GenerateJSON scans prompt for direct ideation phrases and coarse temporal markers
func (h *Heuristic) GenerateJSON(ctx context.Context, prompt string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hits []span.Match
	for _, cue := range directIdeationCues {
		for _, m := range span.FindAll(prompt, cue) {
			m.Category = "direct_ideation"
			hits = append(hits, m)
		}
	}
	hits = span.Dedupe(hits)

	b := newBundle()
	for _, bucket := range heuristicTemporal {
		if bucket.markers.MatchString(prompt) {
			b.temporal = bucket.temporal
			break
		}
	}

	if len(hits) > 0 {
		b.set(keySuicidalIdeation, model.PresencePresent, evidenceItems(model.SourceExternal, true, hits))
		b.addMissing(MissingMethodOrPlanDetail)
	} else {
		b.addCue(CueInsufficientEvidence)
	}
	return b.raw(), nil
}
