package pipeline

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/queryflow/internal/remap"
	"github.com/leapstack-labs/queryflow/internal/timezone"
	"github.com/leapstack-labs/queryflow/pkg/core"
)

// DefaultStages is the standard chain: remapping rewrites the query before
// compilation, and the timezone annotation wraps the metadata the remap
// stage produced.
func DefaultStages(resolver DriverResolver, store remap.DimensionSource, tz timezone.Resolver) []Stage {
	return []Stage{
		&RemapStage{Store: store},
		&CompileStage{Resolver: resolver},
		&TimezoneStage{Resolver: tz},
	}
}

// CompileStage turns a structured query into its native form through the
// database's driver. The native form is attached to the query without
// changing its type; a native query passes through with its existing
// payload. Compile errors propagate unmodified, no retry.
type CompileStage struct {
	Resolver DriverResolver
}

func (s *CompileStage) Name() string { return "compile" }

func (s *CompileStage) Run(ctx context.Context, q *core.Query, ec *ExecContext, next Step) error {
	q, err := ec.Preprocessed(q)
	if err != nil {
		return err
	}

	native := q.Native
	if q.Type == core.QueryTypeStructured {
		drv, err := s.Resolver.DriverFor(ctx, q.Database)
		if err != nil {
			return err
		}
		native, err = drv.Compile(ctx, q.Body)
		if err != nil {
			return fmt.Errorf("compile query for database %d: %w", q.Database, err)
		}
	}

	native, err = ec.Native(native)
	if err != nil {
		return err
	}

	out := q.Clone()
	out.Native = native
	return next(ctx, out, ec)
}

// RemapStage applies dimension remapping: it rewrites the query before
// compilation so external dimensions fetch their human-readable columns, and
// wraps the Metadata continuation so the returned columns and rows are
// rewritten to present the substitutes. The row transform is composed inside
// the metadata wrapper, once the result's columns are known.
type RemapStage struct {
	Store remap.DimensionSource
}

func (s *RemapStage) Name() string { return "remap" }

func (s *RemapStage) Run(ctx context.Context, q *core.Query, ec *ExecContext, next Step) error {
	tuples, q, err := remap.AddFKRemaps(ctx, s.Store, q)
	if err != nil {
		return fmt.Errorf("resolve remapped dimensions: %w", err)
	}

	inner := ec.Metadata
	ec.Metadata = func(meta *core.ResultMetadata) (*core.ResultMetadata, error) {
		meta, err := inner(meta)
		if err != nil {
			return nil, err
		}
		if q.Type == core.QueryTypeStructured {
			remap.BindColumnRefs(meta.Columns, q.Body.Fields)
		}
		meta, transform, err := remap.NewResultTransform(ctx, s.Store, tuples, meta)
		if err != nil {
			return nil, err
		}
		prev := ec.RowTransform
		ec.RowTransform = func(row core.Row) core.Row {
			return transform(prev(row))
		}
		return meta, nil
	}
	return next(ctx, q, ec)
}

// TimezoneStage wraps the Metadata continuation to annotate results with the
// resolved timezone identifiers. It never inspects or alters rows; it is the
// template simple middleware should follow.
type TimezoneStage struct {
	Resolver timezone.Resolver
}

func (s *TimezoneStage) Name() string { return "timezone" }

func (s *TimezoneStage) Run(ctx context.Context, q *core.Query, ec *ExecContext, next Step) error {
	inner := ec.Metadata
	ec.Metadata = func(meta *core.ResultMetadata) (*core.ResultMetadata, error) {
		meta, err := inner(meta)
		if err != nil {
			return nil, err
		}
		if tz := s.Resolver.ResultsTimezoneID(); tz != "" {
			meta.SetDataExtra("results_timezone", tz)
		}
		if tz := s.Resolver.RequestedTimezoneID(); tz != "" {
			meta.SetDataExtra("requested_timezone", tz)
		}
		return meta, nil
	}
	return next(ctx, q, ec)
}
