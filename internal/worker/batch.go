package worker

import (
	"context"
	"fmt"
	"sort"

	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/pipeline"
)

// Processor defines the interface for processing one case
type Processor interface {
	Process(ctx context.Context, c model.Case) (*pipeline.CaseResult, error)
}

// CaseJob represents one case extraction
type CaseJob struct {
	Index     int
	Case      model.Case
	Processor Processor
}

// Execute executes the case job
func (j *CaseJob) Execute(ctx context.Context) Result {
	out, err := j.Processor.Process(ctx, j.Case)
	return &CaseOutcome{
		Index:  j.Index,
		Case:   j.Case,
		Output: out,
		Error:  err,
	}
}

// CaseOutcome represents the result of a case job
type CaseOutcome struct {
	Index  int
	Case   model.Case
	Output *pipeline.CaseResult
	Error  error
}

// GetError returns the error from the outcome
func (r *CaseOutcome) GetError() error {
	return r.Error
}

// BatchProcessor processes many cases concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessCases processes cases concurrently and returns outcomes in input order
func (b *BatchProcessor) ProcessCases(ctx context.Context, cases []model.Case) []*CaseOutcome {
	if len(cases) == 0 {
		return []*CaseOutcome{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, c := range cases {
		pool.Submit(&CaseJob{
			Index:     i,
			Case:      c,
			Processor: b.processor,
		})
	}

	var results []Result
	if ctx.Err() != nil {
		// Canceled while submitting: stop the workers instead of draining the queue
		results = pool.Shutdown()
	} else {
		results = pool.Wait()
	}

	outcomes := make([]*CaseOutcome, len(cases))
	for _, result := range results {
		o := result.(*CaseOutcome)
		outcomes[o.Index] = o
	}

	// Jobs dropped by cancellation before they ran still get an outcome
	for i, o := range outcomes {
		if o == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("case %s was not processed", cases[i].ID)
			}
			outcomes[i] = &CaseOutcome{Index: i, Case: cases[i], Error: err}
		}
	}

	return outcomes
}

// ProcessPath loads cases from a file or directory and processes them
func (b *BatchProcessor) ProcessPath(ctx context.Context, path string) ([]*CaseOutcome, error) {
	cases, err := pipeline.LoadCases(path)
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}

	return b.ProcessCases(ctx, cases), nil
}

// Failed returns the outcomes that carry an error, in input order
func Failed(outcomes []*CaseOutcome) []*CaseOutcome {
	var failed []*CaseOutcome
	for _, o := range outcomes {
		if o.Error != nil {
			failed = append(failed, o)
		}
	}
	sort.SliceStable(failed, func(i, j int) bool { return failed[i].Index < failed[j].Index })
	return failed
}
