// This file registers the DuckDB driver with the driver registry.
// Import this package with a blank identifier to register the driver:
//
//	import _ "github.com/leapstack-labs/queryflow/pkg/drivers/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/queryflow/pkg/driver"
)

func init() {
	driver.Register("duckdb", func(logger *slog.Logger) driver.Driver { return New(logger) })
}
