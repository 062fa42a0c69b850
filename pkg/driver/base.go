package driver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

// BaseSQLDriver provides common database/sql functionality for drivers.
// Embed this struct in concrete driver implementations to get standard
// Close, Compile, and Execute implementations.
type BaseSQLDriver struct {
	DB       *sql.DB
	Cfg      core.DriverConfig
	Logger   *slog.Logger
	Resolver core.FieldResolver
	Dialect  *Dialect
}

// FieldResolverSetter is implemented by drivers whose native compilation
// needs metadata lookups. The pipeline wiring injects the metadata store
// through it as an ordinary argument; there is no ambient current-store.
type FieldResolverSetter interface {
	SetFieldResolver(resolver core.FieldResolver)
}

// SetFieldResolver attaches the metadata lookup used by Compile.
func (b *BaseSQLDriver) SetFieldResolver(resolver core.FieldResolver) {
	b.Resolver = resolver
}

// Close closes the database connection.
func (b *BaseSQLDriver) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLDriver) IsConnected() bool {
	return b.DB != nil
}

// Compile turns an abstract query body into a SQL native query using the
// configured dialect and field resolver.
func (b *BaseSQLDriver) Compile(ctx context.Context, body *core.QueryBody) (*core.NativeQuery, error) {
	if b.Resolver == nil {
		return nil, fmt.Errorf("no field resolver configured")
	}
	return CompileBody(ctx, body, b.Resolver, b.Dialect)
}

// Execute runs a native query and returns result metadata plus a lazy
// cursor over the raw rows. The caller owns the cursor and must close it.
func (b *BaseSQLDriver) Execute(ctx context.Context, native *core.NativeQuery) (*core.ResultMetadata, core.RowCursor, error) {
	if b.DB == nil {
		return nil, nil, fmt.Errorf("database connection not established")
	}
	if native == nil || native.SQL == "" {
		return nil, nil, fmt.Errorf("empty native query")
	}

	if b.Logger != nil {
		b.Logger.Debug("executing native query", slog.String("sql", native.SQL))
	}

	//nolint:rowserrcheck // rows.Err() is surfaced through the cursor's Err
	rows, err := b.DB.QueryContext(ctx, native.SQL, native.Params...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute query: %w", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	meta := &core.ResultMetadata{Columns: make([]core.Column, len(cols))}
	for i, name := range cols {
		meta.Columns[i] = core.Column{Name: name, DisplayName: name}
	}

	return meta, &sqlCursor{rows: rows, width: len(cols)}, nil
}

// sqlCursor adapts sql.Rows to the core.RowCursor contract.
type sqlCursor struct {
	rows    *sql.Rows
	width   int
	current core.Row
	err     error
}

func (c *sqlCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}

	vals := make([]any, c.width)
	ptrs := make([]any, c.width)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = err
		return false
	}

	// Convert byte slices to strings for serialization.
	row := make(core.Row, c.width)
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			row[i] = string(b)
		} else {
			row[i] = v
		}
	}
	c.current = row
	return true
}

func (c *sqlCursor) Row() core.Row {
	return c.current
}

func (c *sqlCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *sqlCursor) Close() error {
	return c.rows.Close()
}
