package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/narrascan/internal/backend"
	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/pipeline"
)

// mockProcessor implements Processor
type mockProcessor struct {
	failOn string
	calls  int32
}

func (m *mockProcessor) Process(ctx context.Context, c model.Case) (*pipeline.CaseResult, error) {
	atomic.AddInt32(&m.calls, 1)
	time.Sleep(5 * time.Millisecond)
	if c.ID == m.failOn {
		return nil, errors.New("extract error")
	}
	return &pipeline.CaseResult{Case: c, Result: &model.ExtractionResult{Text: c.Text}}, nil
}

func TestBatchProcessor_ProcessCases_Ordered(t *testing.T) {
	proc := &mockProcessor{}
	bp := NewBatchProcessor(proc, 4)

	var cases []model.Case
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		cases = append(cases, model.Case{ID: id, Text: "text " + id})
	}

	outcomes := bp.ProcessCases(context.Background(), cases)
	if len(outcomes) != len(cases) {
		t.Fatalf("expected %d outcomes, got %d", len(cases), len(outcomes))
	}
	for i, o := range outcomes {
		if o.Index != i || o.Case.ID != cases[i].ID {
			t.Errorf("outcome %d out of order: %+v", i, o.Case)
		}
		if o.Error != nil {
			t.Errorf("unexpected error for %s: %v", o.Case.ID, o.Error)
		}
		if o.Output == nil || o.Output.Result.Text != cases[i].Text {
			t.Errorf("unexpected output for %s", o.Case.ID)
		}
	}
	if atomic.LoadInt32(&proc.calls) != int32(len(cases)) {
		t.Errorf("expected %d calls, got %d", len(cases), proc.calls)
	}
}

func TestBatchProcessor_ProcessCases_Error(t *testing.T) {
	bp := NewBatchProcessor(&mockProcessor{failOn: "b"}, 2)

	outcomes := bp.ProcessCases(context.Background(), []model.Case{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	failed := Failed(outcomes)
	if len(failed) != 1 || failed[0].Case.ID != "b" {
		t.Fatalf("expected only b to fail, got %v", failed)
	}
	if failed[0].Output != nil {
		t.Error("expected nil output on error")
	}
}

func TestBatchProcessor_ProcessCases_Empty(t *testing.T) {
	bp := NewBatchProcessor(&mockProcessor{}, 2)
	if got := bp.ProcessCases(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected 0 outcomes, got %d", len(got))
	}
}

func TestBatchProcessor_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bp := NewBatchProcessor(&mockProcessor{}, 2)
	outcomes := bp.ProcessCases(ctx, []model.Case{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o == nil {
			t.Fatal("every case must have an outcome")
		}
	}
}

// blockingProcessor holds every case until its context is done
type blockingProcessor struct {
	started chan struct{}
	once    atomic.Bool
}

func (b *blockingProcessor) Process(ctx context.Context, c model.Case) (*pipeline.CaseResult, error) {
	if b.once.CompareAndSwap(false, true) {
		close(b.started)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestBatchProcessor_CanceledWhileSubmitting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proc := &blockingProcessor{started: make(chan struct{})}
	go func() {
		<-proc.started
		cancel()
	}()

	cases := make([]model.Case, 20)
	for i := range cases {
		cases[i] = model.Case{ID: string(rune('a' + i))}
	}

	done := make(chan []*CaseOutcome)
	go func() { done <- NewBatchProcessor(proc, 1).ProcessCases(ctx, cases) }()

	select {
	case outcomes := <-done:
		if len(outcomes) != len(cases) {
			t.Fatalf("expected %d outcomes, got %d", len(cases), len(outcomes))
		}
		for i, o := range outcomes {
			if o.Index != i || o.Case.ID != cases[i].ID {
				t.Errorf("outcome %d out of order: %+v", i, o)
			}
			if !errors.Is(o.Error, context.Canceled) {
				t.Errorf("case %s: expected context.Canceled, got %v", o.Case.ID, o.Error)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch did not stop after cancellation")
	}
}

func TestBatchProcessor_ProcessPath_RealPipeline(t *testing.T) {
	dir := t.TempDir()
	lines := []string{
		`{"case_id": "one", "text": "Patient denies suicidal ideation."}`,
		`{"case_id": "two", "text": "Reports a suicide attempt last year."}`,
	}
	path := filepath.Join(dir, "cases.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}

	p := pipeline.New(func() (backend.Backend, error) {
		return backend.New(model.BackendConfig{Kind: "rules"}, nil)
	})
	bp := NewBatchProcessor(p, 2)

	outcomes, err := bp.ProcessPath(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessPath failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if got := outcomes[1].Output.Result.Signals.PastBehavior.Presence; got != model.PresencePresent {
		t.Errorf("expected past behavior present for case two, got %s", got)
	}
}

func TestBatchProcessor_ProcessPath_NonExistent(t *testing.T) {
	bp := NewBatchProcessor(&mockProcessor{}, 2)
	if _, err := bp.ProcessPath(context.Background(), "no_such_file.jsonl"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestCaseOutcome_GetError(t *testing.T) {
	r1 := &CaseOutcome{Case: model.Case{ID: "x"}}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("extract failed")
	r2 := &CaseOutcome{Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
