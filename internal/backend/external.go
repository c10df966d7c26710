package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// External delegates analysis to a language model behind a Generator and
// parses the reply as the raw signal bundle
type External struct {
	gen      Generator
	provider string
}

// ExternalOption configures an External backend
type ExternalOption func(*External)

// WithProvider sets the provider label used in Name
func WithProvider(name string) ExternalOption {
	return func(e *External) {
		e.provider = name
	}
}

// NewExternal creates an external-model backend around gen.
// If gen exposes Name() string it becomes the provider label.
func NewExternal(gen Generator, opts ...ExternalOption) *External {
	e := &External{gen: gen}
	if named, ok := gen.(interface{ Name() string }); ok {
		e.provider = named.Name()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *External) Kind() Kind { return KindExternal }

func (e *External) Name() string {
	if e.provider == "" {
		return string(KindExternal)
	}
	return string(KindExternal) + ":" + e.provider
}

// GenerateJSON wraps text in the extraction prompt, calls the generator and
// parses its reply. Generator errors are returned wrapped; unparsable replies
// return *ParseError. There is no retry.
func (e *External) GenerateJSON(ctx context.Context, text string) (map[string]any, error) {
	if e.gen == nil {
		return nil, errors.New("external backend: no generator configured")
	}
	out, err := e.gen.Generate(ctx, BuildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("external backend %s: %w", e.Name(), err)
	}
	return ParseJSON(out)
}

// ParseJSON decodes model output into a JSON object. The whole (trimmed)
// reply is tried first, then every balanced {...} substring in order of
// appearance, which also covers fenced ```json blocks and surrounding prose.
func ParseJSON(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	obj, err := decodeObject(trimmed)
	if err == nil {
		return obj, nil
	}
	firstErr := err

	for start := strings.IndexByte(trimmed, '{'); start >= 0; {
		end := balancedEnd(trimmed, start)
		if end < 0 {
			break
		}
		if obj, err := decodeObject(trimmed[start:end]); err == nil {
			return obj, nil
		}
		next := strings.IndexByte(trimmed[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, &ParseError{Raw: raw, Err: firstErr}
}

func decodeObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, errors.New("empty output")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("output is not a JSON object")
	}
	// Trailing content means the whole string was not one object
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return obj, nil
}

// balancedEnd returns the index just past the brace that closes the one at
// start, skipping braces inside JSON strings, or -1 if it never closes
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
