package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/narrascan/internal/backend"
	"github.com/ppiankov/narrascan/internal/cache"
	"github.com/ppiankov/narrascan/internal/extract"
	"github.com/ppiankov/narrascan/internal/llm"
	"github.com/ppiankov/narrascan/internal/logging"
	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/pipeline"
	"github.com/ppiankov/narrascan/internal/store"
	"github.com/ppiankov/narrascan/internal/worker"
)

// app holds everything a command needs to run extractions
type app struct {
	cfg       *model.Config
	logger    *zap.Logger
	pipeline  *pipeline.Pipeline
	modelName string
	closers   []func() error
}

// bindExtractionFlags registers the flags shared by extract and batch
func bindExtractionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("backend", "", "extraction backend (heuristic, rules, external)")
	f.String("provider", "", "external model provider (openai, anthropic, ollama, gemini)")
	f.String("model", "", "external model name")
	f.Bool("project", false, "add framework projections (C-SSRS-inspired, PHQ-9 item 9)")
	f.String("taxonomy", "", "uncertainty cue taxonomy YAML (default: embedded)")
	f.Bool("cache", false, "cache external model responses")
	f.String("store-dsn", "", "Postgres DSN for archiving runs (optional)")
}

// bindToViper maps command flags onto config keys. Called from PreRunE so
// commands sharing flag names do not steal each other's bindings.
func bindToViper(cmd *cobra.Command) error {
	bindings := map[string]string{
		"backend":   "backend.kind",
		"provider":  "llm.provider",
		"model":     "llm.model",
		"project":   "output.projections",
		"cache":     "cache.enabled",
		"store-dsn": "store.dsn",
	}
	for flag, key := range bindings {
		if fl := cmd.Flags().Lookup(flag); fl != nil {
			if err := viper.BindPFlag(key, fl); err != nil {
				return fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}
	return nil
}

// newApp resolves config and wires backend, generator middleware, store and pipeline
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	factory, modelName, err := backendFactory(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.modelName = modelName

	extractOpts := []extract.Option{
		extract.WithLogger(logger),
		extract.WithModelName(modelName),
	}
	if path, _ := cmd.Flags().GetString("taxonomy"); path != "" {
		tax, err := extract.LoadTaxonomy(path)
		if err != nil {
			return nil, err
		}
		extractOpts = append(extractOpts, extract.WithTaxonomy(tax))
	}

	opts := []pipeline.Option{
		pipeline.WithExtractOptions(extractOpts...),
		pipeline.WithProjections(cfg.Output.Projections),
		pipeline.WithLogger(logger),
	}

	if cfg.Store.DSN != "" {
		st, err := store.Open(ctx, cfg.Store.DSN, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		if err := st.EnsureSchema(ctx); err != nil {
			_ = a.close()
			return nil, err
		}
		runID, err := st.CreateRun(ctx, modelName)
		if err != nil {
			_ = a.close()
			return nil, err
		}
		logger.Info("archiving run", zap.Int64("run_id", runID))
		opts = append(opts, pipeline.WithRecorder(st.ForRun(runID)))
	}

	a.pipeline = pipeline.New(factory, opts...)
	return a, nil
}

func (a *app) close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = a.logger.Sync()
	return firstErr
}

// backendFactory returns a constructor for fresh backends plus the model name
// recorded in result metadata
func backendFactory(ctx context.Context, cfg *model.Config, logger *zap.Logger) (pipeline.BackendFactory, string, error) {
	kind, err := backend.ParseKind(cfg.Backend.Kind)
	if err != nil {
		return nil, "", err
	}

	if kind != backend.KindExternal {
		return func() (backend.Backend, error) {
			return backend.New(cfg.Backend, nil)
		}, kind.String(), nil
	}

	provider, err := llm.NewProvider(ctx, llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, "", err
	}
	if provider == nil {
		return nil, "", fmt.Errorf("external backend requires an LLM provider (--provider or llm.provider)")
	}
	modelName := provider.Name() + "/" + provider.Model()

	// Shared across jobs so the limit and cache apply to the whole run.
	// Cache hits skip the limiter
	var gen llm.Provider = provider
	if cfg.LLM.RatePerSecond > 0 {
		gen = llm.RateLimited(gen, worker.NewLimiter(cfg.LLM.RatePerSecond, cfg.LLM.Burst))
	}
	if c := cache.New(cfg.Cache); c != nil {
		gen = llm.Cached(gen, c, cfg.Cache.DiskTTL)
		logger.Debug("response cache enabled", zap.String("dir", cfg.Cache.Dir))
	}

	return func() (backend.Backend, error) {
		return backend.New(cfg.Backend, gen)
	}, modelName, nil
}
