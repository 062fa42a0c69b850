// Package remap implements dimension remapping: rewriting a structured query
// so it also fetches human-readable substitute values (the pre-processing
// half), and rewriting result rows and column metadata so those substitutes
// are presented instead of raw codes (the post-processing half). The two
// halves share the Tuple type.
package remap

import (
	"context"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

// DimensionSource is the slice of the metadata store the engine needs.
type DimensionSource interface {
	DimensionsFor(ctx context.Context, ids []core.FieldID) (map[core.FieldID]*core.Dimension, error)
	HydrateColumns(ctx context.Context, cols []core.Column) ([]core.Column, error)
}

// Tuple links an original selected field, the FK-traversal reference derived
// from its external dimension, and the dimension driving the substitution.
// Tuples are produced only for external dimensions; internal dimensions need
// no extra fetched column since their lookup table is already resident.
type Tuple struct {
	Original  core.FieldRef
	Remapped  core.FieldRef
	Dimension *core.Dimension
}

// AddFKRemaps rewrites a structured query so every selected field carrying an
// external dimension also fetches its human-readable column. For each such
// field it appends a FK-traversal reference to the selection and returns one
// Tuple; order-by clauses targeting a remapped field are rewritten to order
// by the traversal reference instead, preserving direction and position.
//
// When nothing applies the original query is returned unchanged, same
// pointer, with no tuples.
func AddFKRemaps(ctx context.Context, store DimensionSource, q *core.Query) ([]Tuple, *core.Query, error) {
	if q.Type != core.QueryTypeStructured || q.Body == nil {
		return nil, q, nil
	}

	ids := make([]core.FieldID, 0, len(q.Body.Fields))
	for _, ref := range q.Body.Fields {
		if id, ok := LeafFieldID(ref); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, q, nil
	}

	dims, err := store.DimensionsFor(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	var tuples []Tuple
	for _, ref := range q.Body.Fields {
		id, ok := LeafFieldID(ref)
		if !ok {
			continue
		}
		dim := dims[id]
		if dim == nil || dim.Kind != core.DimensionExternal || dim.HumanReadableFieldID == nil {
			continue
		}
		tuples = append(tuples, Tuple{
			Original:  ref,
			Remapped:  core.FieldViaFK{Source: ref, Dest: core.FieldByID{ID: *dim.HumanReadableFieldID}},
			Dimension: dim,
		})
	}
	if len(tuples) == 0 {
		return nil, q, nil
	}

	out := q.Clone()
	for _, t := range tuples {
		out.Body.Fields = append(out.Body.Fields, t.Remapped)
	}
	for i, clause := range out.Body.OrderBy {
		for _, t := range tuples {
			if clause.Field.Equal(t.Original) {
				out.Body.OrderBy[i].Field = t.Remapped
				break
			}
		}
	}
	return tuples, out, nil
}

// LeafFieldID returns the metadata-store id a reference ultimately resolves
// to: the id itself for a direct reference, the destination's id for an FK
// traversal.
func LeafFieldID(ref core.FieldRef) (core.FieldID, bool) {
	switch r := ref.(type) {
	case core.FieldByID:
		return r.ID, true
	case core.FieldViaFK:
		return LeafFieldID(r.Dest)
	default:
		return 0, false
	}
}

// BindColumnRefs attaches field references and ids to driver-produced result
// columns, positionally from the selection list they were compiled from. The
// post-processing half locates external remap columns by reference identity
// and hydrates dimensions by field id, neither of which a driver reports.
func BindColumnRefs(cols []core.Column, fields []core.FieldRef) {
	for i := range cols {
		if i >= len(fields) {
			return
		}
		cols[i].Ref = fields[i]
		if id, ok := LeafFieldID(fields[i]); ok && cols[i].ID == nil {
			fieldID := id
			cols[i].ID = &fieldID
		}
	}
}
