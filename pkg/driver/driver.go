// Package driver defines the contract concrete database drivers implement
// and the name-keyed registry the pipeline resolves them from.
//
// Concrete driver implementations live in pkg/drivers/ subdirectories and
// register themselves in their init() functions.
package driver

import (
	"context"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

// Driver is the pluggable per-database collaborator of the pipeline. It
// compiles an abstract query body into a native query and executes native
// queries, returning result metadata and a lazy row cursor.
//
// Compile and execution errors propagate to the caller unmodified; drivers
// perform no retries. Timeouts are the driver's responsibility, surfaced as
// ordinary execution errors.
type Driver interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg core.DriverConfig) error

	// Close closes the database connection and releases resources.
	Close() error

	// Compile turns an abstract query body into a native query.
	Compile(ctx context.Context, body *core.QueryBody) (*core.NativeQuery, error)

	// Execute runs a native query. The returned cursor is lazy, finite and
	// single-pass; the caller must close it on every exit path.
	Execute(ctx context.Context, native *core.NativeQuery) (*core.ResultMetadata, core.RowCursor, error)
}
