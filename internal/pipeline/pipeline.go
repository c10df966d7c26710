// Package pipeline wires case loading, extraction, projection and
// persistence together for the command line.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/narrascan/internal/backend"
	"github.com/ppiankov/narrascan/internal/extract"
	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/projection"
)

// BackendFactory returns a fresh backend for one extraction
type BackendFactory func() (backend.Backend, error)

// Recorder persists one processed case
type Recorder interface {
	Record(ctx context.Context, c model.Case, result *model.ExtractionResult, projections map[string]any) error
}

// CaseResult is the outcome of processing one case
type CaseResult struct {
	Case        model.Case
	Result      *model.ExtractionResult
	Projections map[string]any
}

// Pipeline orchestrates extraction for single cases
type Pipeline struct {
	newBackend  BackendFactory
	extractOpts []extract.Option
	projections bool
	recorder    Recorder
	renderer    *Renderer
	logger      *zap.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithExtractOptions passes options to every Extractor the pipeline builds
func WithExtractOptions(opts ...extract.Option) Option {
	return func(p *Pipeline) { p.extractOpts = append(p.extractOpts, opts...) }
}

// WithProjections toggles framework projections
func WithProjections(on bool) Option {
	return func(p *Pipeline) { p.projections = on }
}

// WithRecorder enables persistence of every processed case
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a new pipeline
func New(newBackend BackendFactory, opts ...Option) *Pipeline {
	p := &Pipeline{
		newBackend: newBackend,
		renderer:   NewRenderer(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Renderer returns the pipeline's renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Process extracts one case with a backend of its own. Persistence failures are
// logged and do not fail the case.
func (p *Pipeline) Process(ctx context.Context, c model.Case) (*CaseResult, error) {
	if p.newBackend == nil {
		return nil, fmt.Errorf("pipeline: no backend factory")
	}
	b, err := p.newBackend()
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	result, err := extract.New(b, p.extractOpts...).Extract(ctx, c.Text)
	if err != nil {
		return nil, err
	}
	if c.Language != "" {
		result.Meta.Language = c.Language
	}

	cr := &CaseResult{Case: c, Result: result}
	if p.projections {
		cr.Projections = projection.All(result)
	}

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, c, result, projection.All(result)); err != nil {
			p.logger.Warn("persist case failed", zap.String("case_id", c.ID), zap.Error(err))
		}
	}

	return cr, nil
}

// Write renders cr to the JSON and Markdown paths that are non-empty
func (p *Pipeline) Write(cr *CaseResult, jsonPath, mdPath string) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(cr, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		p.logger.Info("wrote JSON", zap.String("path", jsonPath))
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(cr, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		p.logger.Info("wrote Markdown", zap.String("path", mdPath))
	}

	return nil
}

// WriteToDir writes <dir>/<case_id>.json and .md
func (p *Pipeline) WriteToDir(cr *CaseResult, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Join(dir, safeName(cr.Case.ID))
	return p.Write(cr, base+".json", base+".md")
}

func safeName(id string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, id)
	if name == "" || name == "." || name == ".." {
		return "case"
	}
	return name
}
