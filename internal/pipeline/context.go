package pipeline

import (
	"context"

	"github.com/leapstack-labs/queryflow/pkg/core"
	"github.com/leapstack-labs/queryflow/pkg/writer"
)

// ExecContext carries one execution's continuation slots and its writer. It
// is constructed fresh per execution, threaded explicitly through every
// stage, and discarded at completion; no state is shared across concurrent
// executions. Stages compose continuations by wrapping the slot they found,
// never by replacing it outright, so every downstream effect still runs.
//
// One execution is single-threaded by contract, so stages may rewrite slots
// on the context they were handed.
type ExecContext struct {
	// Preprocessed observes or rewrites the query before compilation.
	Preprocessed func(q *core.Query) (*core.Query, error)

	// Native observes or rewrites the compiled native form.
	Native func(n *core.NativeQuery) (*core.NativeQuery, error)

	// Metadata observes or rewrites the result metadata the driver returned,
	// before the writer's Begin.
	Metadata func(m *core.ResultMetadata) (*core.ResultMetadata, error)

	// RowTransform rewrites each result row on its way to the writer. Stages
	// whose transform depends on result metadata compose it from inside their
	// Metadata wrapper; the terminal executor reads the slot after the
	// Metadata chain has run.
	RowTransform func(row core.Row) core.Row

	// Writer receives the execution's result stream.
	Writer writer.Writer

	// ExecutionID tags the execution's log records.
	ExecutionID string
}

// NewExecContext returns a context with identity continuations writing to w.
func NewExecContext(w writer.Writer) *ExecContext {
	return &ExecContext{
		Preprocessed: func(q *core.Query) (*core.Query, error) { return q, nil },
		Native:       func(n *core.NativeQuery) (*core.NativeQuery, error) { return n, nil },
		Metadata:     func(m *core.ResultMetadata) (*core.ResultMetadata, error) { return m, nil },
		RowTransform: func(row core.Row) core.Row { return row },
		Writer:       w,
	}
}

// Step executes the remainder of the chain.
type Step func(ctx context.Context, q *core.Query, ec *ExecContext) error

// Stage is one transformation stage of the pipeline. Run may rewrite the
// query and wrap continuations on ec, and must invoke next exactly once
// unless it fails.
type Stage interface {
	Name() string
	Run(ctx context.Context, q *core.Query, ec *ExecContext, next Step) error
}
