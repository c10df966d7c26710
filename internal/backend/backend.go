// Package backend defines the contract every extraction backend implements
// and ships the three built-in variants: a heuristic keyword matcher, a
// pattern/rule engine and an external language-model adapter.
//
// Every backend returns the same loosely typed bundle: five signal blocks
// (suicidal_ideation, self_harm, intent, plan, past_behavior) shaped as
// {"presence": ..., "evidence": [...]}, plus "temporal", "uncertainty_cues"
// and "missing_information". The bundle is untrusted; callers normalize it.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is the explicit identity of a backend, fixed at construction
type Kind string

const (
	KindHeuristic Kind = "heuristic"
	KindRules     Kind = "rules"
	KindExternal  Kind = "external"
)

// ErrUnknownKind is returned when a configured backend kind is not recognized
var ErrUnknownKind = errors.New("unknown backend kind")

// ParseKind resolves a configured kind name
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindHeuristic, KindRules, KindExternal:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q (supported: heuristic, rules, external)", ErrUnknownKind, s)
}

func (k Kind) String() string {
	return string(k)
}

// DeclaresSpanProvenance reports whether backends of this kind tag each
// evidence span with its own source and pattern category. Only the rule
// engine does; spans from other kinds get their provenance assigned centrally.
func (k Kind) DeclaresSpanProvenance() bool {
	return k == KindRules
}

// Backend produces a raw signal bundle for a piece of narrative text
type Backend interface {
	// Kind returns the backend identity set at construction
	Kind() Kind

	// Name returns a display name such as "rules" or "external:openai"
	Name() string

	// GenerateJSON analyzes prompt and returns the raw signal bundle
	GenerateJSON(ctx context.Context, prompt string) (map[string]any, error)
}

// Generator produces free text for a prompt. The external backend delegates
// to a Generator and parses its output.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f(ctx, prompt)
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ParseError reports model output that could not be parsed as a JSON object
type ParseError struct {
	Raw string // Unparsed model output
	Err error  // Underlying decode error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable model output (%d bytes): %v", len(e.Raw), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Signal block keys in wire order
const (
	keySuicidalIdeation   = "suicidal_ideation"
	keySelfHarm           = "self_harm"
	keyIntent             = "intent"
	keyPlan               = "plan"
	keyPastBehavior       = "past_behavior"
	keyTemporal           = "temporal"
	keyUncertaintyCues    = "uncertainty_cues"
	keyMissingInformation = "missing_information"
)

// Cue and missing-information identifiers emitted by the built-in backends
const (
	CueDenialWithIdeation     = "explicit_denial_with_ideation_language"
	CueRetrospective          = "retrospective_or_third_party_evidence"
	CueInsufficientEvidence   = "insufficient_explicit_ideation_evidence"
	MissingMethodOrPlanDetail = "method_or_plan_details_not_specified"
)
