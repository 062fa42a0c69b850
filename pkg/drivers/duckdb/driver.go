// Package duckdb provides a DuckDB driver for queryflow.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/queryflow/pkg/core"
	"github.com/leapstack-labs/queryflow/pkg/driver"

	_ "github.com/marcboeker/go-duckdb" // duckdb database/sql driver
)

// Driver implements the driver.Driver interface for DuckDB.
type Driver struct {
	driver.BaseSQLDriver
}

// New creates a new DuckDB driver instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		BaseSQLDriver: driver.BaseSQLDriver{
			Logger: logger,
			Dialect: &driver.Dialect{
				Name:          "duckdb",
				DefaultSchema: "main",
				Quote:         `"`,
				Placeholder:   driver.PlaceholderQuestion,
			},
		},
	}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (d *Driver) Connect(ctx context.Context, cfg core.DriverConfig) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	d.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	d.DB = db
	d.Cfg = cfg
	return nil
}

// Ensure Driver implements the driver.Driver interface.
var _ driver.Driver = (*Driver)(nil)
