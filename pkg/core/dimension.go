package core

// DimensionKind discriminates the two remapping strategies.
type DimensionKind string

const (
	// DimensionInternal carries an inline value -> label table; no extra
	// column is fetched for it.
	DimensionInternal DimensionKind = "internal"

	// DimensionExternal points at another field whose fetched values serve
	// as labels; the pipeline fetches that field as an extra column.
	DimensionExternal DimensionKind = "external"
)

// Dimension describes how a field's raw values are relabeled for display.
// A field maps to at most one dimension.
type Dimension struct {
	FieldID FieldID       `json:"field_id"`
	Kind    DimensionKind `json:"kind"`
	Name    string        `json:"name"`

	// HumanReadableFieldID is set for external dimensions.
	HumanReadableFieldID *FieldID `json:"human_readable_field_id,omitempty"`

	// Values and HumanReadableValues are the index-aligned lookup table
	// carried by internal dimensions.
	Values              []any `json:"values,omitempty"`
	HumanReadableValues []any `json:"human_readable_values,omitempty"`
}
