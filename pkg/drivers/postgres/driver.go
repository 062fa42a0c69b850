// Package postgres provides a PostgreSQL driver for queryflow.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/queryflow/pkg/core"
	"github.com/leapstack-labs/queryflow/pkg/driver"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// Driver implements the driver.Driver interface for PostgreSQL.
type Driver struct {
	driver.BaseSQLDriver
}

// New creates a new PostgreSQL driver instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		BaseSQLDriver: driver.BaseSQLDriver{
			Logger: logger,
			Dialect: &driver.Dialect{
				Name:          "postgres",
				DefaultSchema: "public",
				Quote:         `"`,
				Placeholder:   driver.PlaceholderDollar,
			},
		},
	}
}

// Connect establishes a connection to PostgreSQL.
func (d *Driver) Connect(ctx context.Context, cfg core.DriverConfig) error {
	dsn := buildDSN(cfg)

	d.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	d.DB = db
	d.Cfg = cfg
	return nil
}

// buildDSN constructs a PostgreSQL key=value connection string.
func buildDSN(cfg core.DriverConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// Ensure Driver implements the driver.Driver interface.
var _ driver.Driver = (*Driver)(nil)
