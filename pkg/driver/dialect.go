package driver

import (
	"fmt"
	"strings"
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. (PostgreSQL).
	PlaceholderDollar
)

// Dialect holds the static SQL dialect configuration a driver compiles
// against: identifier quoting, parameter placeholders, default schema.
type Dialect struct {
	Name          string
	DefaultSchema string
	Quote         string
	Placeholder   PlaceholderStyle
}

// FormatPlaceholder returns a placeholder for the given parameter index
// (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	if d.Placeholder == PlaceholderDollar {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}

// QuoteIdentifier quotes an identifier using the dialect's quote character,
// escaping embedded quotes by doubling.
func (d *Dialect) QuoteIdentifier(name string) string {
	q := d.Quote
	if q == "" {
		q = `"`
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}
