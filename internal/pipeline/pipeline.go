// Package pipeline composes an ordered chain of transformation stages around
// a terminal executor that runs the native query and streams rows into a
// result writer. The chain is an explicit stage list applied by an
// interpreter loop, built once at startup; per-execution state lives in the
// ExecContext threaded through every call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/leapstack-labs/queryflow/pkg/core"
	"github.com/leapstack-labs/queryflow/pkg/driver"
	"github.com/leapstack-labs/queryflow/pkg/writer"
)

// ErrConfiguration marks errors detected by pre-dispatch validation. They are
// fatal and never retried.
var ErrConfiguration = errors.New("pipeline configuration error")

// DriverResolver resolves the connected driver serving a database id. It must
// be safe for concurrent read access.
type DriverResolver interface {
	DriverFor(ctx context.Context, id core.DatabaseID) (driver.Driver, error)
}

// StaticResolver resolves drivers from a fixed map.
type StaticResolver map[core.DatabaseID]driver.Driver

func (r StaticResolver) DriverFor(_ context.Context, id core.DatabaseID) (driver.Driver, error) {
	d, ok := r[id]
	if !ok {
		return nil, fmt.Errorf("%w: no driver for database %d", ErrConfiguration, id)
	}
	return d, nil
}

// Pipeline is the executable chain. Build it once at startup; Run may be
// called concurrently, one isolated ExecContext per call.
type Pipeline struct {
	stages   []Stage
	resolver DriverResolver
	logger   *slog.Logger
}

// New creates a pipeline over the given stage list, in order.
func New(resolver DriverResolver, stages []Stage, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{stages: stages, resolver: resolver, logger: logger}
}

// Stages returns the chain's stage names, in dispatch order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes one query through the chain, streaming results into w.
func (p *Pipeline) Run(ctx context.Context, q *core.Query, w writer.Writer) error {
	ec := NewExecContext(w)
	ec.ExecutionID = uuid.NewString()

	if err := p.validate(q, ec); err != nil {
		return err
	}

	p.logger.Debug("executing query",
		"execution_id", ec.ExecutionID,
		"type", q.Type,
		"database", q.Database)

	return p.dispatch(ctx, q, ec, 0)
}

// validate runs before dispatch; a violation is a configuration error with no
// side effects.
func (p *Pipeline) validate(q *core.Query, ec *ExecContext) error {
	if q == nil {
		return fmt.Errorf("%w: nil query", ErrConfiguration)
	}
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if p.resolver == nil {
		return fmt.Errorf("%w: no driver resolver", ErrConfiguration)
	}
	if ec.Writer == nil {
		return fmt.Errorf("%w: no result writer", ErrConfiguration)
	}
	if ec.Preprocessed == nil || ec.Native == nil || ec.Metadata == nil || ec.RowTransform == nil {
		return fmt.Errorf("%w: missing continuation", ErrConfiguration)
	}
	return nil
}

// dispatch interprets the stage list from position i; past the end it runs
// the terminal executor.
func (p *Pipeline) dispatch(ctx context.Context, q *core.Query, ec *ExecContext, i int) error {
	if i >= len(p.stages) {
		return p.execute(ctx, q, ec)
	}
	stage := p.stages[i]
	p.logger.Debug("running stage", "execution_id", ec.ExecutionID, "stage", stage.Name())
	return stage.Run(ctx, q, ec, func(ctx context.Context, q *core.Query, ec *ExecContext) error {
		return p.dispatch(ctx, q, ec, i+1)
	})
}

// execute is the terminal step: it resolves the driver, runs the native
// form, and drives every row through the row-transform chain into the
// writer. The cursor is closed and the writer finished on every exit path
// once begun; partial output on error is left as written.
func (p *Pipeline) execute(ctx context.Context, q *core.Query, ec *ExecContext) error {
	drv, err := p.resolver.DriverFor(ctx, q.Database)
	if err != nil {
		return err
	}
	if q.Native == nil {
		return fmt.Errorf("%w: query reached the executor without a native form", ErrConfiguration)
	}

	meta, cursor, err := drv.Execute(ctx, q.Native)
	if err != nil {
		return err
	}
	defer cursor.Close()

	meta, err = ec.Metadata(meta)
	if err != nil {
		return err
	}
	// Metadata wrappers may have composed row transforms; read the slot only
	// now.
	transform := ec.RowTransform

	if err := ec.Writer.Begin(meta); err != nil {
		_ = ec.Writer.Finish(meta)
		return err
	}

	rows := 0
	var rowErr error
	for cursor.Next() {
		if err := ctx.Err(); err != nil {
			rowErr = err
			break
		}
		if err := ec.Writer.WriteRow(transform(cursor.Row()), rows); err != nil {
			rowErr = err
			break
		}
		rows++
	}
	if rowErr == nil {
		rowErr = cursor.Err()
	}

	meta.SetDataExtra("row_count", rows)
	finishErr := ec.Writer.Finish(meta)

	p.logger.Debug("execution finished",
		"execution_id", ec.ExecutionID,
		"rows", rows,
		"err", rowErr)

	if rowErr != nil {
		return rowErr
	}
	return finishErr
}
