// Package store archives cases, extraction runs, outputs and framework
// projections in Postgres.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/ppiankov/narrascan/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// knownCases bounds the set of case IDs remembered as already stored
const knownCases = 4096

// ErrCaseConflict is returned when a case ID is already archived with other text.
// Stored outputs carry offsets into the archived text, so it is never rewritten.
var ErrCaseConflict = errors.New("case already stored with different text")

type textDigest [sha256.Size]byte

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is the Postgres archive
type Store struct {
	db     *sql.DB
	known  *lru.Cache[string, textDigest]
	logger *zap.Logger
}

// Open connects to dsn with the pgx driver and verifies the connection
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s, err := New(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle
func New(db *sql.DB, logger *zap.Logger) (*Store, error) {
	known, err := lru.New[string, textDigest](knownCases)
	if err != nil {
		return nil, fmt.Errorf("create case cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, known: known, logger: logger}, nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the archive tables when missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func schemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// CreateRun registers one extraction run and returns its ID
func (s *Store) CreateRun(ctx context.Context, modelName string) (int64, error) {
	query, args, err := insertRun(modelName, model.ExtractorVersion).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build run insert: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	s.logger.Debug("created extraction run", zap.Int64("run_id", id), zap.String("model", modelName))
	return id, nil
}

// SaveCase archives a case once. Saving the same ID again is a no-op when
// the text matches and ErrCaseConflict otherwise.
func (s *Store) SaveCase(ctx context.Context, c model.Case) error {
	digest := textDigest(sha256.Sum256([]byte(c.Text)))
	if known, ok := s.known.Get(c.ID); ok {
		if known != digest {
			return fmt.Errorf("save case %s: %w", c.ID, ErrCaseConflict)
		}
		return nil
	}

	query, args, err := insertCase(c).ToSql()
	if err != nil {
		return fmt.Errorf("build case insert: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save case %s: %w", c.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		stored, err := s.caseText(ctx, c.ID)
		if err != nil {
			return err
		}
		if stored != c.Text {
			s.logger.Warn("case text differs from archived case", zap.String("case_id", c.ID))
			return fmt.Errorf("save case %s: %w", c.ID, ErrCaseConflict)
		}
	}

	s.known.Add(c.ID, digest)
	return nil
}

func (s *Store) caseText(ctx context.Context, id string) (string, error) {
	query, args, err := selectCaseText(id).ToSql()
	if err != nil {
		return "", fmt.Errorf("build case select: %w", err)
	}
	var text string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&text); err != nil {
		return "", fmt.Errorf("load case %s: %w", id, err)
	}
	return text, nil
}

// SaveOutput stores one extraction result and returns the output ID
func (s *Store) SaveOutput(ctx context.Context, runID int64, caseID string, result *model.ExtractionResult) (int64, error) {
	row, err := NewOutputRow(runID, caseID, result)
	if err != nil {
		return 0, err
	}

	query, args, err := insertOutput(row).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build output insert: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("save output for %s: %w", caseID, err)
	}
	return id, nil
}

// SaveProjection stores one framework projection for an output
func (s *Store) SaveProjection(ctx context.Context, outputID int64, framework string, projection any) error {
	payload, err := json.Marshal(projection)
	if err != nil {
		return fmt.Errorf("encode %s projection: %w", framework, err)
	}

	query, args, err := insertProjection(outputID, framework, string(payload)).ToSql()
	if err != nil {
		return fmt.Errorf("build projection insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save %s projection: %w", framework, err)
	}
	return nil
}

// ForRun returns a recorder that files every case under runID
func (s *Store) ForRun(runID int64) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// RunRecorder persists processed cases for one run
type RunRecorder struct {
	store *Store
	runID int64
}

// Record stores the case, its output and every projection
func (r *RunRecorder) Record(ctx context.Context, c model.Case, result *model.ExtractionResult, projections map[string]any) error {
	if c.Language == "" {
		c.Language = result.Meta.Language
	}
	if err := r.store.SaveCase(ctx, c); err != nil {
		return err
	}

	outputID, err := r.store.SaveOutput(ctx, r.runID, c.ID, result)
	if err != nil {
		return err
	}

	for framework, p := range projections {
		if err := r.store.SaveProjection(ctx, outputID, framework, p); err != nil {
			return err
		}
	}
	return nil
}

// OutputRow is the extracted_outputs payload for one result
type OutputRow struct {
	RunID                    int64
	CaseID                   string
	SuicidalIdeationPresence string
	EvidenceJSON             string
	UncertaintyCuesJSON      string
	MissingInformationJSON   string
	RawOutputJSON            string
}

// NewOutputRow flattens result into column values
func NewOutputRow(runID int64, caseID string, result *model.ExtractionResult) (OutputRow, error) {
	if result == nil {
		return OutputRow{}, fmt.Errorf("output row: nil result")
	}

	evidence := make(map[string][]model.EvidenceSpan, len(model.SignalNames))
	for _, name := range model.SignalNames {
		evidence[name] = result.Signals.ByName(name).Evidence
	}

	row := OutputRow{
		RunID:                    runID,
		CaseID:                   caseID,
		SuicidalIdeationPresence: string(result.Signals.SuicidalIdeation.Presence),
	}

	fields := []struct {
		dst *string
		v   any
	}{
		{&row.EvidenceJSON, evidence},
		{&row.UncertaintyCuesJSON, result.Signals.UncertaintyCues},
		{&row.MissingInformationJSON, result.Signals.MissingInformation},
		{&row.RawOutputJSON, result},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.v)
		if err != nil {
			return OutputRow{}, fmt.Errorf("output row: %w", err)
		}
		*f.dst = string(data)
	}
	return row, nil
}

func insertRun(modelName, version string) sq.InsertBuilder {
	return psql.Insert("extraction_runs").
		Columns("model_name", "extractor_version").
		Values(modelName, version).
		Suffix("RETURNING run_id")
}

// Case rows are append-only
func insertCase(c model.Case) sq.InsertBuilder {
	return psql.Insert("synthetic_cases").
		Columns("case_id", "text", "language", "notes").
		Values(c.ID, c.Text, nullable(c.Language), nullable(c.Notes)).
		Suffix("ON CONFLICT (case_id) DO NOTHING")
}

func selectCaseText(id string) sq.SelectBuilder {
	return psql.Select("text").From("synthetic_cases").Where(sq.Eq{"case_id": id})
}

func insertOutput(r OutputRow) sq.InsertBuilder {
	return psql.Insert("extracted_outputs").
		Columns("run_id", "case_id", "suicidal_ideation_presence",
			"evidence_json", "uncertainty_cues_json", "missing_information_json", "raw_output_json").
		Values(r.RunID, r.CaseID, r.SuicidalIdeationPresence,
			r.EvidenceJSON, r.UncertaintyCuesJSON, r.MissingInformationJSON, r.RawOutputJSON).
		Suffix("RETURNING output_id")
}

func insertProjection(outputID int64, framework, payload string) sq.InsertBuilder {
	return psql.Insert("framework_projections").
		Columns("output_id", "framework", "projection_json").
		Values(outputID, framework, payload)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
