package backend

import (
	"context"
	"regexp"

	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/span"
)

// Evidence families
var (
	denialFamily = span.NewFamily("denial",
		`\bdenies suicidal ideation\b`,
		`\bdenies suicide ideation\b`,
		`\bdenies suicidal thoughts\b`,
		`\bdenies SI\b`,
	)
	ideationFamily = span.NewFamily("ideation",
		`\bi want to die\b`,
		`\bwant to die\b`,
		`\bwish i were dead\b`,
		`\bend it all\b`,
		`\bkill myself\b`,
		`\bsuicide\b`,
		`\bbetter off dead\b`,
	)
	attemptFamily = span.NewFamily("attempt",
		`\bsuicide attempt\b`,
		`\battempted suicide\b`,
		`\bexogenous intoxication\b`,
		`\boverdose\b`,
		`\bintoxication\b`,
	)
	firearmFamily = span.NewFamily("firearm",
		`\bgunshot\b`,
		`\bfirearm\b`,
		`\bfirearm injury\b`,
		`\btraumatic brain injury\b`,
		`\bleft temporal region\b`,
	)
	indirectFamily = span.NewFamily("indirect_intent",
		`\bfarewell messages\b`,
		`\bfarewell message\b`,
		`\bleft a letter\b`,
		`\bleft (?:a )?note\b`,
	)
)

// Temporal context markers
var (
	currentMarkers = span.NewFamily("current",
		`\bemergency department\b`,
		`\bat triage\b`,
		`\bchief complaint\b`,
		`\btoday\b`,
		`\bnow\b`,
		`\bright now\b`,
	)
	recentMarkers = span.NewFamily("recent",
		`\byesterday\b`,
		`\blast night\b`,
		`\bearlier today\b`,
		`\bthree months ago\b`,
		`\b(\d+)\s+months?\s+ago\b`,
		`\brecent\b`,
		`\boutpatient\b`,
		`\bpsychiatric assessment\b`,
	)
	pastMarkers = span.NewFamily("past",
		`\bdeath was confirmed\b`,
		`\bwithout vital signs\b`,
		`\bmedical examiner\b`,
		`\bpost-mortem\b`,
		`\bambulance\b`,
		`\bsamu\b`,
	)
	futureMarkers = span.NewFamily("future",
		`\btonight\b`,
		`\btomorrow\b`,
		`\bnext week\b`,
	)
)

var textBlockRe = regexp.MustCompile(`(?is)<<<TEXT>>>\s*(.*?)\s*<<<END_TEXT>>>`)

// Rules is the offline, deterministic pattern backend.
// Every evidence span it returns carries source "rule" and its pattern category.
type Rules struct{}

// NewRules creates the pattern/rule backend
func NewRules() *Rules {
	return &Rules{}
}

func (r *Rules) Kind() Kind   { return KindRules }
func (r *Rules) Name() string { return string(KindRules) }

// GenerateJSON analyzes prompt. When prompt wraps the narrative in
// <<<TEXT>>> ... <<<END_TEXT>>> markers only the enclosed text is analyzed
// and offsets are relative to it.
func (r *Rules) GenerateJSON(ctx context.Context, prompt string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := TextBlock(prompt)
	if text == "" {
		text = prompt
	}
	return analyzeRules(text).raw(), nil
}

// TextBlock returns the narrative enclosed in <<<TEXT>>> markers, or "" if none
func TextBlock(prompt string) string {
	m := textBlockRe.FindStringSubmatch(prompt)
	if m == nil {
		return ""
	}
	return m[1]
}

func analyzeRules(text string) *bundle {
	denial := denialFamily.FindAll(text)
	ideation := ideationFamily.FindAll(text)
	attempt := attemptFamily.FindAll(text)
	firearm := firearmFamily.FindAll(text)
	indirect := indirectFamily.FindAll(text)

	behavioral := len(attempt) > 0 || len(firearm) > 0 || len(indirect) > 0
	ev := func(groups ...[]span.Match) []any {
		return evidenceItems(model.SourceRule, true, groups...)
	}

	b := newBundle()

	switch {
	case len(ideation) > 0 && len(denial) > 0:
		// A denial downgrades certainty; it never flips explicit ideation to absent
		b.set(keySuicidalIdeation, model.PresenceIndeterminate, ev(ideation, denial))
		b.addCue(CueDenialWithIdeation)
	case len(ideation) > 0:
		b.set(keySuicidalIdeation, model.PresencePresent, ev(ideation))
	case behavioral:
		b.set(keySuicidalIdeation, model.PresencePresent, ev(attempt, firearm, indirect))
		if len(indirect) > 0 {
			b.addCue(CueRetrospective)
		}
	default:
		b.addCue(CueInsufficientEvidence)
	}

	if behavioral {
		b.set(keyPastBehavior, model.PresencePresent, ev(attempt, firearm, indirect))
	}

	intentPresence := model.PresenceIndeterminate
	var intentGroups [][]span.Match
	switch {
	case len(attempt) > 0:
		intentPresence, intentGroups = model.PresencePresent, [][]span.Match{attempt}
	case len(firearm) > 0:
		intentPresence, intentGroups = model.PresencePresent, [][]span.Match{firearm, indirect}
	case len(indirect) > 0:
		intentPresence, intentGroups = model.PresencePresent, [][]span.Match{indirect}
	case len(denial) > 0 && len(ideation) == 0:
		intentPresence, intentGroups = model.PresenceAbsent, [][]span.Match{denial}
	}
	b.set(keyIntent, intentPresence, ev(intentGroups...))
	b.set(keyPlan, intentPresence, ev(intentGroups...))

	b.temporal = inferTemporal(text, attempt, firearm, indirect)

	if b.presence(keySuicidalIdeation) == model.PresencePresent {
		switch b.presence(keyPlan) {
		case model.PresenceIndeterminate, model.PresenceAbsent:
			b.addMissing(MissingMethodOrPlanDetail)
		}
	}
	return b
}

// inferTemporal applies the marker precedence chain; the first rule that fires wins
func inferTemporal(text string, attempt, firearm, indirect []span.Match) model.Temporal {
	switch {
	case len(attempt) > 0 && currentMarkers.MatchString(text):
		return model.TemporalCurrent
	case (len(firearm) > 0 || len(indirect) > 0) && pastMarkers.MatchString(text):
		return model.TemporalPast
	case recentMarkers.MatchString(text):
		return model.TemporalRecent
	case len(indirect) > 0:
		return model.TemporalPast
	case futureMarkers.MatchString(text):
		return model.TemporalFuture
	}
	return model.TemporalUnknown
}
