package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/leapstack-labs/queryflow/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver for the metadata database
)

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open metadata database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping metadata database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const fieldColumns = `id, table_id, name, display_name, base_type, special_type, visibility_type, description, fk_target_field_id`

// Field returns the field with the given id.
func (s *SQLiteStore) Field(ctx context.Context, id core.FieldID) (*core.Field, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fieldColumns+` FROM fields WHERE id = ?`, id)
	f, err := scanField(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("field %d not found", id)
	}
	return f, err
}

// Table returns the table with the given id.
func (s *SQLiteStore) Table(ctx context.Context, id core.TableID) (*core.Table, error) {
	var t core.Table
	err := s.db.QueryRowContext(ctx,
		`SELECT id, schema_name, name FROM tables WHERE id = ?`, id).
		Scan(&t.ID, &t.Schema, &t.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load table %d: %w", id, err)
	}
	return &t, nil
}

// SaveTable inserts or replaces a table definition.
func (s *SQLiteStore) SaveTable(ctx context.Context, t *core.Table) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tables (id, schema_name, name) VALUES (?, ?, ?)`,
		t.ID, t.Schema, t.Name)
	if err != nil {
		return fmt.Errorf("save table %q: %w", t.Name, err)
	}
	return nil
}

// SaveField inserts or replaces a field definition.
func (s *SQLiteStore) SaveField(ctx context.Context, f *core.Field) error {
	var fkTarget sql.NullInt64
	if f.FKTargetFieldID != nil {
		fkTarget = sql.NullInt64{Int64: int64(*f.FKTargetFieldID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO fields
		 (id, table_id, name, display_name, base_type, special_type, visibility_type, description, fk_target_field_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.TableID, f.Name, f.DisplayName, f.BaseType, f.SpecialType,
		f.VisibilityType, f.Description, fkTarget)
	if err != nil {
		return fmt.Errorf("save field %q: %w", f.Name, err)
	}
	return nil
}

// SaveDimension inserts or replaces a dimension definition together with its
// value table (for internal dimensions).
func (s *SQLiteStore) SaveDimension(ctx context.Context, d *core.Dimension) error {
	if len(d.Values) != len(d.HumanReadableValues) {
		return fmt.Errorf("dimension %q: values and labels must be the same length", d.Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save dimension: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var hrField sql.NullInt64
	if d.HumanReadableFieldID != nil {
		hrField = sql.NullInt64{Int64: int64(*d.HumanReadableFieldID), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO dimensions (field_id, kind, name, human_readable_field_id)
		 VALUES (?, ?, ?, ?)`,
		d.FieldID, string(d.Kind), d.Name, hrField); err != nil {
		return fmt.Errorf("save dimension %q: %w", d.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dimension_values WHERE field_id = ?`, d.FieldID); err != nil {
		return fmt.Errorf("clear dimension values: %w", err)
	}

	for i := range d.Values {
		value, err := json.Marshal(d.Values[i])
		if err != nil {
			return fmt.Errorf("encode dimension value: %w", err)
		}
		label, err := json.Marshal(d.HumanReadableValues[i])
		if err != nil {
			return fmt.Errorf("encode dimension label: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dimension_values (field_id, ordinal, value_json, label_json)
			 VALUES (?, ?, ?, ?)`,
			d.FieldID, i, string(value), string(label)); err != nil {
			return fmt.Errorf("save dimension value: %w", err)
		}
	}

	return tx.Commit()
}

// DimensionsFor returns the dimensions for exactly the given fields in one
// batched lookup, value tables included.
func (s *SQLiteStore) DimensionsFor(ctx context.Context, fieldIDs []core.FieldID) (map[core.FieldID]*core.Dimension, error) {
	dims := make(map[core.FieldID]*core.Dimension)
	if len(fieldIDs) == 0 {
		return dims, nil
	}

	query := `SELECT field_id, kind, name, human_readable_field_id
	          FROM dimensions WHERE field_id IN (` + placeholders(len(fieldIDs)) + `)`
	rows, err := s.db.QueryContext(ctx, query, idArgs(fieldIDs)...)
	if err != nil {
		return nil, fmt.Errorf("load dimensions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var internalIDs []core.FieldID
	for rows.Next() {
		var d core.Dimension
		var kind string
		var hrField sql.NullInt64
		if err := rows.Scan(&d.FieldID, &kind, &d.Name, &hrField); err != nil {
			return nil, fmt.Errorf("scan dimension: %w", err)
		}
		d.Kind = core.DimensionKind(kind)
		if hrField.Valid {
			id := core.FieldID(hrField.Int64)
			d.HumanReadableFieldID = &id
		}
		dims[d.FieldID] = &d
		if d.Kind == core.DimensionInternal {
			internalIDs = append(internalIDs, d.FieldID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dimensions: %w", err)
	}

	if err := s.loadValueTables(ctx, dims, internalIDs); err != nil {
		return nil, err
	}
	return dims, nil
}

// loadValueTables fills Values/HumanReadableValues for internal dimensions
// in one batched fetch.
func (s *SQLiteStore) loadValueTables(ctx context.Context, dims map[core.FieldID]*core.Dimension, internalIDs []core.FieldID) error {
	if len(internalIDs) == 0 {
		return nil
	}

	query := `SELECT field_id, value_json, label_json FROM dimension_values
	          WHERE field_id IN (` + placeholders(len(internalIDs)) + `)
	          ORDER BY field_id, ordinal`
	rows, err := s.db.QueryContext(ctx, query, idArgs(internalIDs)...)
	if err != nil {
		return fmt.Errorf("load dimension values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var fieldID core.FieldID
		var valueJSON, labelJSON string
		if err := rows.Scan(&fieldID, &valueJSON, &labelJSON); err != nil {
			return fmt.Errorf("scan dimension value: %w", err)
		}

		value, err := decodeScalar(valueJSON)
		if err != nil {
			return fmt.Errorf("decode dimension value: %w", err)
		}
		label, err := decodeScalar(labelJSON)
		if err != nil {
			return fmt.Errorf("decode dimension label: %w", err)
		}

		d := dims[fieldID]
		d.Values = append(d.Values, value)
		d.HumanReadableValues = append(d.HumanReadableValues, label)
	}
	return rows.Err()
}

// HydrateColumns fills field metadata, dimensions, and value tables into the
// given columns. Everything is fetched in batched queries, never one per
// column.
func (s *SQLiteStore) HydrateColumns(ctx context.Context, cols []core.Column) ([]core.Column, error) {
	out := make([]core.Column, len(cols))
	copy(out, cols)

	var ids []core.FieldID
	for _, col := range out {
		if col.ID != nil {
			ids = append(ids, *col.ID)
		}
	}
	if len(ids) == 0 {
		return out, nil
	}

	fields, err := s.fieldsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Batched second fetch for FK target fields not already loaded.
	var targetIDs []core.FieldID
	for _, f := range fields {
		if f.FKTargetFieldID != nil {
			if _, ok := fields[*f.FKTargetFieldID]; !ok {
				targetIDs = append(targetIDs, *f.FKTargetFieldID)
			}
		}
	}
	targets := fields
	if len(targetIDs) > 0 {
		extra, err := s.fieldsByID(ctx, targetIDs)
		if err != nil {
			return nil, err
		}
		targets = make(map[core.FieldID]*core.Field, len(fields)+len(extra))
		for id, f := range fields {
			targets[id] = f
		}
		for id, f := range extra {
			targets[id] = f
		}
	}

	dims, err := s.DimensionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range out {
		col := &out[i]
		if col.ID == nil {
			continue
		}
		f, ok := fields[*col.ID]
		if !ok {
			return nil, fmt.Errorf("field %d not found", *col.ID)
		}

		if col.Name == "" {
			col.Name = f.Name
		}
		if col.DisplayName == "" || col.DisplayName == col.Name {
			if f.DisplayName != "" {
				col.DisplayName = f.DisplayName
			}
		}
		if col.BaseType == "" {
			col.BaseType = f.BaseType
		}
		if col.SpecialType == "" {
			col.SpecialType = f.SpecialType
		}
		if col.VisibilityType == "" {
			col.VisibilityType = f.VisibilityType
		}
		if col.Description == "" {
			col.Description = f.Description
		}
		if col.TableID == nil {
			tableID := f.TableID
			col.TableID = &tableID
		}
		if f.FKTargetFieldID != nil {
			col.Target = targets[*f.FKTargetFieldID]
		}
		col.Dimension = dims[*col.ID]
	}

	return out, nil
}

// fieldsByID loads the given fields in one query.
func (s *SQLiteStore) fieldsByID(ctx context.Context, ids []core.FieldID) (map[core.FieldID]*core.Field, error) {
	query := `SELECT ` + fieldColumns + ` FROM fields WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	fields := make(map[core.FieldID]*core.Field, len(ids))
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		fields[f.ID] = f
	}
	return fields, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanField(row scanner) (*core.Field, error) {
	var f core.Field
	var fkTarget sql.NullInt64
	err := row.Scan(&f.ID, &f.TableID, &f.Name, &f.DisplayName, &f.BaseType,
		&f.SpecialType, &f.VisibilityType, &f.Description, &fkTarget)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan field: %w", err)
	}
	if fkTarget.Valid {
		id := core.FieldID(fkTarget.Int64)
		f.FKTargetFieldID = &id
	}
	return &f, nil
}

// decodeScalar decodes a JSON-encoded scalar. Whole-number floats are
// narrowed to int64 so stored values compare equal to database integers.
func decodeScalar(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	if f, ok := v.(float64); ok && f == math.Trunc(f) {
		return int64(f), nil
	}
	return v, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []core.FieldID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// Ensure SQLiteStore implements the Store interface.
var _ Store = (*SQLiteStore)(nil)
