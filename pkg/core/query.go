package core

import (
	"encoding/json"
	"fmt"
)

// QueryType discriminates the two query variants.
type QueryType string

const (
	// QueryTypeStructured is an abstract, driver-independent query carrying
	// a Body that must be compiled to a native form before execution.
	QueryTypeStructured QueryType = "query"

	// QueryTypeNative is a driver-specific query carrying a ready-to-run
	// Native payload.
	QueryTypeNative QueryType = "native"
)

// OrderDirection is the direction of an order-by clause.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// Query is the unit of work the pipeline executes. A structured query always
// carries a non-nil Body; a native query always carries a non-nil Native
// payload. The pipeline attaches a compiled Native form onto a structured
// query without changing its Type.
type Query struct {
	Type     QueryType    `json:"type"`
	Database DatabaseID   `json:"database"`
	Body     *QueryBody   `json:"body,omitempty"`
	Native   *NativeQuery `json:"native,omitempty"`
}

// Validate checks the type/payload invariant. It is called by the pipeline
// runtime before dispatch; a failure is a configuration error.
func (q *Query) Validate() error {
	switch q.Type {
	case QueryTypeStructured:
		if q.Body == nil {
			return fmt.Errorf("query of type %q has no body", q.Type)
		}
	case QueryTypeNative:
		if q.Native == nil {
			return fmt.Errorf("query of type %q has no native payload", q.Type)
		}
	default:
		return fmt.Errorf("unrecognized query type %q", q.Type)
	}
	return nil
}

// Clone returns a copy of the query whose Body slices are independent, so
// middleware can rewrite the copy without mutating the caller's query.
func (q *Query) Clone() *Query {
	out := *q
	if q.Body != nil {
		out.Body = q.Body.Clone()
	}
	if q.Native != nil {
		native := *q.Native
		out.Native = &native
	}
	return &out
}

// QueryBody is the abstract query representation compiled to a native query.
type QueryBody struct {
	SourceTable TableID       `json:"source_table"`
	Fields      []FieldRef    `json:"fields"`
	OrderBy     []OrderClause `json:"order_by,omitempty"`
	Limit       int           `json:"limit,omitempty"`
}

// Clone returns a copy with independent Fields and OrderBy slices.
func (b *QueryBody) Clone() *QueryBody {
	out := *b
	out.Fields = make([]FieldRef, len(b.Fields))
	copy(out.Fields, b.Fields)
	out.OrderBy = make([]OrderClause, len(b.OrderBy))
	copy(out.OrderBy, b.OrderBy)
	return &out
}

// UnmarshalJSON decodes the body, resolving the tagged field references.
func (b *QueryBody) UnmarshalJSON(data []byte) error {
	var raw struct {
		SourceTable TableID           `json:"source_table"`
		Fields      []json.RawMessage `json:"fields"`
		OrderBy     []json.RawMessage `json:"order_by"`
		Limit       int               `json:"limit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.SourceTable = raw.SourceTable
	b.Limit = raw.Limit

	b.Fields = make([]FieldRef, 0, len(raw.Fields))
	for _, f := range raw.Fields {
		ref, err := UnmarshalFieldRef(f)
		if err != nil {
			return err
		}
		b.Fields = append(b.Fields, ref)
	}

	b.OrderBy = nil
	for _, o := range raw.OrderBy {
		var clause OrderClause
		if err := clause.UnmarshalJSON(o); err != nil {
			return err
		}
		b.OrderBy = append(b.OrderBy, clause)
	}
	return nil
}

// OrderClause orders the result by a field reference.
type OrderClause struct {
	Field     FieldRef       `json:"field"`
	Direction OrderDirection `json:"direction"`
}

// UnmarshalJSON decodes the clause, resolving the tagged field reference.
func (c *OrderClause) UnmarshalJSON(data []byte) error {
	var raw struct {
		Field     json.RawMessage `json:"field"`
		Direction OrderDirection  `json:"direction"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ref, err := UnmarshalFieldRef(raw.Field)
	if err != nil {
		return err
	}
	c.Field = ref
	c.Direction = raw.Direction
	if c.Direction == "" {
		c.Direction = OrderAsc
	}
	return nil
}

// NativeQuery is a driver-specific, directly executable query form.
type NativeQuery struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}
