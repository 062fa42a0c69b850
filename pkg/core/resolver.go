package core

import "context"

// Field describes a field as known to the metadata store.
type Field struct {
	ID             FieldID  `json:"id"`
	TableID        TableID  `json:"table_id"`
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	BaseType       string   `json:"base_type,omitempty"`
	SpecialType    string   `json:"special_type,omitempty"`
	VisibilityType string   `json:"visibility_type,omitempty"`
	Description    string   `json:"description,omitempty"`

	// FKTargetFieldID is set when the field is a foreign key; it names the
	// field (usually a primary key) the key points at. FK-traversal
	// references join through it.
	FKTargetFieldID *FieldID `json:"fk_target_field_id,omitempty"`
}

// Table describes a table as known to the metadata store.
type Table struct {
	ID     TableID `json:"id"`
	Schema string  `json:"schema,omitempty"`
	Name   string  `json:"name"`
}

// QualifiedName returns schema.name, or just name when schema is empty.
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// FieldResolver resolves field and table identifiers during native
// compilation. Implementations must be safe for concurrent reads.
type FieldResolver interface {
	Field(ctx context.Context, id FieldID) (*Field, error)
	Table(ctx context.Context, id TableID) (*Table, error)
}

// DriverConfig holds configuration for connecting a driver to a database.
type DriverConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
}
