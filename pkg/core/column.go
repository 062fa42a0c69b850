package core

// Column is the presentation metadata for one result column.
//
// RemappedFrom is set on a substitute column and names the original column
// it labels; RemappedTo is set on the original column and names the display
// name of its substitute. At most one substitute exists per remapped column.
type Column struct {
	ID             *FieldID `json:"id,omitempty"`
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	TableID        *TableID `json:"table_id,omitempty"`
	BaseType       string   `json:"base_type,omitempty"`
	SpecialType    string   `json:"special_type,omitempty"`
	FKFieldID      *FieldID `json:"fk_field_id,omitempty"`
	VisibilityType string   `json:"visibility_type,omitempty"`
	RemappedFrom   string   `json:"remapped_from,omitempty"`
	RemappedTo     string   `json:"remapped_to,omitempty"`
	Description    string   `json:"description,omitempty"`
	Target         *Field   `json:"target,omitempty"`

	// Ref is the field reference the column was selected by, when known.
	// External remapping locates its pre-fetched column through it.
	Ref FieldRef `json:"-"`

	// Dimension is filled in by metadata hydration.
	Dimension *Dimension `json:"-"`
}

// ResultMetadata describes an executed result set. DataExtras are emitted by
// the structured-document writer as siblings of the "rows" key, RootExtras
// as siblings of the "data" key.
type ResultMetadata struct {
	Columns    []Column
	DataExtras map[string]any
	RootExtras map[string]any
}

// SetDataExtra records a sibling key of "rows", allocating lazily.
func (m *ResultMetadata) SetDataExtra(key string, value any) {
	if m.DataExtras == nil {
		m.DataExtras = make(map[string]any)
	}
	m.DataExtras[key] = value
}

// SetRootExtra records a sibling key of "data", allocating lazily.
func (m *ResultMetadata) SetRootExtra(key string, value any) {
	if m.RootExtras == nil {
		m.RootExtras = make(map[string]any)
	}
	m.RootExtras[key] = value
}
