// Package extract turns narrative text into a normalized ExtractionResult.
//
// The Extractor calls one injected backend, normalizes its untrusted output,
// runs the cue annotator over the same text and stamps metadata. Each call is
// independent; the only shared state (compiled patterns, taxonomy) is
// read-only, so one Extractor may serve concurrent callers as long as its
// backend is reentrant.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/narrascan/internal/backend"
	"github.com/ppiankov/narrascan/internal/model"
)

// Extractor runs a backend plus the cue annotator over narrative text
type Extractor struct {
	backend   backend.Backend
	cues      *CueAnnotator
	now       func() time.Time
	logger    *zap.Logger
	modelName string
}

// Option configures an Extractor
type Option func(*Extractor)

// WithClock overrides the timestamp source for meta.created_at
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTaxonomy replaces the embedded cue taxonomy
func WithTaxonomy(t *Taxonomy) Option {
	return func(e *Extractor) {
		if t != nil {
			e.cues = NewCueAnnotator(t)
		}
	}
}

// WithLogger sets the logger. Narrative text is never logged.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithModelName records the external model identifier in meta
func WithModelName(name string) Option {
	return func(e *Extractor) {
		e.modelName = name
	}
}

// New creates an Extractor around backend b
func New(b backend.Backend, opts ...Option) *Extractor {
	e := &Extractor{
		backend: b,
		cues:    NewCueAnnotator(nil),
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract analyzes text. Only backend failures are returned as errors;
// malformed backend output is normalized to safe defaults.
func (e *Extractor) Extract(ctx context.Context, text string) (*model.ExtractionResult, error) {
	if e.backend == nil {
		return nil, errors.New("extract: no backend configured")
	}

	started := time.Now()
	raw, err := e.backend.GenerateJSON(ctx, text)
	if err != nil {
		e.logger.Debug("backend failed",
			zap.String("backend", e.backend.Name()),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return nil, fmt.Errorf("extract: backend %s: %w", e.backend.Name(), err)
	}

	result := &model.ExtractionResult{
		Text:    text,
		Signals: Normalize(raw, text, e.backend.Kind()),
		CueHits: e.cues.Annotate(text),
		Meta: model.Meta{
			ExtractorName:    model.ExtractorName,
			ExtractorVersion: model.ExtractorVersion,
			Backend:          e.backend.Name(),
			Model:            e.modelName,
			Language:         DetectLanguage(text),
			TaxonomyVersion:  e.cues.Version(),
			CreatedAt:        e.now().UTC(),
		},
	}

	e.logger.Debug("extraction complete",
		zap.String("backend", result.Meta.Backend),
		zap.String("language", result.Meta.Language),
		zap.Int("text_bytes", len(text)),
		zap.Int("evidence_spans", len(result.Spans())),
		zap.Int("cue_hits", result.CueHits.Count()),
		zap.Duration("elapsed", time.Since(started)))

	return result, nil
}
