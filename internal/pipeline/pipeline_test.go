package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/narrascan/internal/backend"
	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/projection"
)

type memRecorder struct {
	mu      sync.Mutex
	records map[string]map[string]any
	err     error
}

func (m *memRecorder) Record(_ context.Context, c model.Case, _ *model.ExtractionResult, projections map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.records == nil {
		m.records = map[string]map[string]any{}
	}
	m.records[c.ID] = projections
	return nil
}

func rulesFactory() (backend.Backend, error) {
	return backend.New(model.BackendConfig{Kind: "rules"}, nil)
}

func TestPipeline_Process(t *testing.T) {
	rec := &memRecorder{}
	p := New(rulesFactory, WithProjections(true), WithRecorder(rec))

	c := model.Case{ID: "c1", Text: "Patient attempted overdose last year.", Language: "en"}
	cr, err := p.Process(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, "c1", cr.Case.ID)
	assert.Equal(t, model.PresencePresent, cr.Result.Signals.PastBehavior.Presence)
	assert.Equal(t, "rules", cr.Result.Meta.Backend)
	assert.Contains(t, cr.Projections, projection.FrameworkCSSRS)
	assert.Contains(t, cr.Projections, projection.FrameworkPHQ9Item9)
	assert.Contains(t, rec.records, "c1")
}

func TestPipeline_ProjectionsOff(t *testing.T) {
	rec := &memRecorder{}
	p := New(rulesFactory, WithRecorder(rec))

	cr, err := p.Process(context.Background(), model.Case{ID: "c2", Text: "No concerns."})
	require.NoError(t, err)
	assert.Nil(t, cr.Projections)
	// Persistence always stores projections
	assert.Len(t, rec.records["c2"], 2)
}

func TestPipeline_RecorderFailureDoesNotFail(t *testing.T) {
	p := New(rulesFactory, WithRecorder(&memRecorder{err: errors.New("db down")}))
	_, err := p.Process(context.Background(), model.Case{ID: "c3", Text: "text"})
	assert.NoError(t, err)
}

func TestPipeline_FactoryError(t *testing.T) {
	p := New(func() (backend.Backend, error) { return nil, errors.New("no key") })
	_, err := p.Process(context.Background(), model.Case{ID: "c", Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key")

	_, err = New(nil).Process(context.Background(), model.Case{})
	assert.Error(t, err)
}

func TestPipeline_FreshBackendPerCase(t *testing.T) {
	calls := 0
	p := New(func() (backend.Backend, error) {
		calls++
		return rulesFactory()
	})
	for i := 0; i < 3; i++ {
		_, err := p.Process(context.Background(), model.Case{ID: "x", Text: "x"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestPipeline_WriteToDir(t *testing.T) {
	p := New(rulesFactory)
	cr, err := p.Process(context.Background(), model.Case{ID: "dir/case:1", Text: "Denies SI."})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, p.WriteToDir(cr, dir))

	for _, name := range []string{"dir_case_1.json", "dir_case_1.md"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
