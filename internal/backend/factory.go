package backend

import (
	"errors"

	"github.com/ppiankov/narrascan/internal/model"
)

// New creates a backend from configuration. gen is only used by the
// external kind and must be non-nil for it.
func New(cfg model.BackendConfig, gen Generator) (Backend, error) {
	kind, err := ParseKind(cfg.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindHeuristic:
		return NewHeuristic(), nil
	case KindRules:
		return NewRules(), nil
	default:
		if gen == nil {
			return nil, errors.New("external backend requires an LLM provider (set llm.provider)")
		}
		return NewExternal(gen), nil
	}
}
