package core

import (
	"encoding/json"
	"fmt"
)

// DatabaseID identifies a registered database connection.
type DatabaseID int64

// TableID identifies a table in the metadata store.
type TableID int64

// FieldID identifies a field in the metadata store.
type FieldID int64

// FieldRef is the abstract, recursive reference to a field. It appears both
// inside query bodies (selected fields, order-by targets) and as dimension
// lookup keys. Equality is structural.
type FieldRef interface {
	// Equal reports whether other is structurally identical to this reference.
	Equal(other FieldRef) bool

	fmt.Stringer
	json.Marshaler

	// fieldRef seals the interface to the variants defined in this package.
	fieldRef()
}

// FieldByID references a field directly by its metadata-store id.
type FieldByID struct {
	ID FieldID
}

func (f FieldByID) fieldRef() {}

// Equal reports structural equality.
func (f FieldByID) Equal(other FieldRef) bool {
	o, ok := other.(FieldByID)
	return ok && o.ID == f.ID
}

func (f FieldByID) String() string {
	return fmt.Sprintf("field(%d)", f.ID)
}

// MarshalJSON encodes the reference as a tagged object.
func (f FieldByID) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldRefJSON{Type: "field", ID: &f.ID})
}

// FieldViaFK references a field reached by traversing a foreign key: Source
// is the FK column on the query's source table, Dest the field on the table
// it points at.
type FieldViaFK struct {
	Source FieldRef
	Dest   FieldRef
}

func (f FieldViaFK) fieldRef() {}

// Equal reports structural equality.
func (f FieldViaFK) Equal(other FieldRef) bool {
	o, ok := other.(FieldViaFK)
	return ok && f.Source.Equal(o.Source) && f.Dest.Equal(o.Dest)
}

func (f FieldViaFK) String() string {
	return fmt.Sprintf("fk(%s -> %s)", f.Source, f.Dest)
}

// MarshalJSON encodes the reference as a tagged object.
func (f FieldViaFK) MarshalJSON() ([]byte, error) {
	src, err := json.Marshal(f.Source)
	if err != nil {
		return nil, err
	}
	dst, err := json.Marshal(f.Dest)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldRefJSON{Type: "fk", Source: src, Dest: dst})
}

// fieldRefJSON is the wire form shared by both variants.
type fieldRefJSON struct {
	Type   string          `json:"type"`
	ID     *FieldID        `json:"id,omitempty"`
	Source json.RawMessage `json:"source,omitempty"`
	Dest   json.RawMessage `json:"dest,omitempty"`
}

// UnmarshalFieldRef decodes a tagged field reference produced by the
// MarshalJSON methods above.
func UnmarshalFieldRef(data []byte) (FieldRef, error) {
	var raw fieldRefJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode field reference: %w", err)
	}

	switch raw.Type {
	case "field":
		if raw.ID == nil {
			return nil, fmt.Errorf("field reference missing id")
		}
		return FieldByID{ID: *raw.ID}, nil
	case "fk":
		if raw.Source == nil || raw.Dest == nil {
			return nil, fmt.Errorf("fk reference missing source or dest")
		}
		src, err := UnmarshalFieldRef(raw.Source)
		if err != nil {
			return nil, err
		}
		dst, err := UnmarshalFieldRef(raw.Dest)
		if err != nil {
			return nil, err
		}
		return FieldViaFK{Source: src, Dest: dst}, nil
	default:
		return nil, fmt.Errorf("unknown field reference type %q", raw.Type)
	}
}
