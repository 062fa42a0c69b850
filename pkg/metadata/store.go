// Package metadata provides the metadata store the pipeline resolves field,
// table, and dimension definitions from.
//
// The store is a read-mostly collaborator: many concurrent query executions
// share one store, so implementations must be safe for concurrent reads.
package metadata

import (
	"context"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

// Store resolves identifiers and dimension definitions for the pipeline.
type Store interface {
	core.FieldResolver

	// DimensionsFor returns the dimensions configured for exactly the given
	// fields, keyed by field id. Fields without a dimension are absent from
	// the result. One batched lookup per call.
	DimensionsFor(ctx context.Context, fieldIDs []core.FieldID) (map[core.FieldID]*core.Dimension, error)

	// HydrateColumns fills field-level metadata, dimension definitions, and
	// value tables into the given columns in one batched fetch. The input
	// slice is not mutated; the returned slice carries the hydrated copies.
	HydrateColumns(ctx context.Context, cols []core.Column) ([]core.Column, error)

	// Close releases the store's resources.
	Close() error
}
