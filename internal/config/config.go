// Package config loads queryflow's project configuration from
// queryflow.yaml, environment variables and CLI flags.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/leapstack-labs/queryflow/pkg/core"
	"github.com/leapstack-labs/queryflow/pkg/driver"
	"github.com/leapstack-labs/queryflow/pkg/writer"
)

// Default configuration values.
const (
	DefaultMetadataPath = "queryflow.db"
	DefaultOutput       = "table"
	DefaultDatabaseID   = 1
)

// TargetConfig holds the database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb, postgres

	// File-based databases (DuckDB)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// Validate checks the target against the driver registry.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !driver.IsRegistered(strings.ToLower(t.Type)) {
		return &driver.UnknownDriverError{Type: t.Type, Available: driver.List()}
	}
	return nil
}

// ApplyDefaults fills in type-specific defaults.
func (t *TargetConfig) ApplyDefaults() {
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}

// ToDriverConfig converts the target to the driver connection config.
func (t *TargetConfig) ToDriverConfig() core.DriverConfig {
	return core.DriverConfig{
		Type:     t.Type,
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
	}
}

// Config is the full project configuration.
type Config struct {
	// MetadataPath is the SQLite metadata store location.
	MetadataPath string `koanf:"metadata_path"`

	// DatabaseID is the id the configured target is registered under; queries
	// name their database by id.
	DatabaseID int64 `koanf:"database_id"`

	// Output is the result writer format name.
	Output string `koanf:"output"`

	Verbose bool `koanf:"verbose"`

	Target *TargetConfig `koanf:"target"`
}

// Validate checks the configuration against the driver and format
// registries.
func (c *Config) Validate() error {
	if c.Output != "" && !writer.IsRegistered(c.Output) {
		return &writer.UnknownFormatError{Format: c.Output, Available: writer.List()}
	}
	if c.Target == nil {
		return fmt.Errorf("no target configured")
	}
	return c.Target.Validate()
}

// envVarPattern matches ${VAR} references in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars substitutes ${VAR} references with environment values,
// leaving unknown references untouched.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in sensitive target
// fields.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
	t.User = expandEnvVars(t.User)
	t.Password = expandEnvVars(t.Password)
}
