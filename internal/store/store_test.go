package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/projection"
)

func sampleResult() *model.ExtractionResult {
	sig := model.NewSignals()
	sig.SuicidalIdeation.Presence = model.PresencePresent
	sig.SuicidalIdeation.Evidence = []model.EvidenceSpan{
		model.NewEvidenceSpan("kill myself", 3, 14, model.SourceRule),
	}
	sig.MissingInformation = []string{"method_or_plan_detail"}
	return &model.ExtractionResult{
		Text:    "I'd kill myself",
		Signals: sig,
		CueHits: model.NewCueHits(),
		Meta:    model.Meta{ExtractorName: model.ExtractorName, Backend: "rules", Language: "en", CreatedAt: time.Unix(0, 0).UTC()},
	}
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements()
	require.Len(t, stmts, 4)
	for i, table := range []string{"synthetic_cases", "extraction_runs", "extracted_outputs", "framework_projections"} {
		assert.True(t, strings.HasPrefix(stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" "), table)
		assert.NotContains(t, stmts[i], ";")
	}
}

func TestInsertRun_SQL(t *testing.T) {
	query, args, err := insertRun("rules", model.ExtractorVersion).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO extraction_runs (model_name,extractor_version) VALUES ($1,$2) RETURNING run_id", query)
	assert.Equal(t, []any{"rules", model.ExtractorVersion}, args)
}

func TestInsertCase_SQL(t *testing.T) {
	query, args, err := insertCase(model.Case{ID: "c1", Text: "t"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO synthetic_cases (case_id,text,language,notes) VALUES ($1,$2,$3,$4) ON CONFLICT (case_id) DO NOTHING", query)
	assert.NotContains(t, query, "UPDATE")
	require.Len(t, args, 4)
	assert.Equal(t, sql.NullString{}, args[2], "empty language is stored as NULL")

	query, args, err = selectCaseText("c1").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT text FROM synthetic_cases WHERE case_id = $1", query)
	assert.Equal(t, []any{"c1"}, args)
}

func TestInsertOutputAndProjection_SQL(t *testing.T) {
	row, err := NewOutputRow(7, "c1", sampleResult())
	require.NoError(t, err)

	query, args, err := insertOutput(row).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING output_id")
	assert.Equal(t, int64(7), args[0])
	assert.Equal(t, "c1", args[1])
	assert.Equal(t, "present", args[2])

	query, args, err = insertProjection(3, projection.FrameworkCSSRS, "{}").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO framework_projections (output_id,framework,projection_json) VALUES ($1,$2,$3)", query)
	assert.Equal(t, []any{int64(3), "cssrs", "{}"}, args)
}

func TestNewOutputRow(t *testing.T) {
	row, err := NewOutputRow(1, "c1", sampleResult())
	require.NoError(t, err)

	assert.Equal(t, "present", row.SuicidalIdeationPresence)
	assert.JSONEq(t, `["method_or_plan_detail"]`, row.MissingInformationJSON)
	assert.JSONEq(t, `[]`, row.UncertaintyCuesJSON)

	var evidence map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(row.EvidenceJSON), &evidence))
	assert.Len(t, evidence, len(model.SignalNames))
	require.Len(t, evidence["suicidal_ideation"], 1)
	assert.Equal(t, "kill myself", evidence["suicidal_ideation"][0]["text"])

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(row.RawOutputJSON), &raw))
	assert.Equal(t, "I'd kill myself", raw["text"])

	_, err = NewOutputRow(1, "c1", nil)
	assert.Error(t, err)
}

func TestSaveCase_SkipsKnown(t *testing.T) {
	s, err := New(nil, nil)
	require.NoError(t, err)

	s.known.Add("seen", textDigest(sha256.Sum256([]byte("x"))))
	// A nil db would panic if the known case were written again
	assert.NoError(t, s.SaveCase(context.Background(), model.Case{ID: "seen", Text: "x"}))
}

func TestSaveCase_KnownWithDifferentText(t *testing.T) {
	s, err := New(nil, nil)
	require.NoError(t, err)

	s.known.Add("a", textDigest(sha256.Sum256([]byte("I want to die."))))
	err = s.SaveCase(context.Background(), model.Case{ID: "a", Text: "Denies SI."})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCaseConflict)

	rec := s.ForRun(1)
	res := sampleResult()
	err = rec.Record(context.Background(), model.Case{ID: "a", Text: res.Text}, res, nil)
	assert.ErrorIs(t, err, ErrCaseConflict, "no output row may reference another case's text")
}

func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("NARRASCAN_TEST_DSN")
	if dsn == "" {
		t.Skip("NARRASCAN_TEST_DSN not set")
	}
	ctx := context.Background()

	s, err := Open(ctx, dsn, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.EnsureSchema(ctx))

	runID, err := s.CreateRun(ctx, "rules")
	require.NoError(t, err)

	res := sampleResult()
	rec := s.ForRun(runID)
	require.NoError(t, rec.Record(ctx, model.Case{ID: "store-test", Text: res.Text}, res, projection.All(res)))

	// A second Store has no cache entry and must check the archived row
	other, err := New(s.db, nil)
	require.NoError(t, err)
	require.NoError(t, other.SaveCase(ctx, model.Case{ID: "store-test", Text: res.Text}))
	assert.ErrorIs(t, other.SaveCase(ctx, model.Case{ID: "store-test", Text: "rewritten"}), ErrCaseConflict)
}
