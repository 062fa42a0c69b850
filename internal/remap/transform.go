package remap

import (
	"context"
	"math"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

// RowTransform rewrites one result row. Implementations must not retain the
// input slice.
type RowTransform func(core.Row) core.Row

// Identity returns its input row untouched.
func Identity(row core.Row) core.Row { return row }

// labelInsert records one internal-dimension substitution: a label looked up
// from the value at column srcIdx is inserted directly after that column.
type labelInsert struct {
	srcIdx int
	labels map[any]any
}

// NewResultTransform builds the post-processing half of the engine: given the
// tuples from pre-processing and the metadata the driver returned, it
// rewrites the column metadata once and returns a per-row transform.
//
// External tuples relabel their already-fetched traversal column in place.
// Columns hydrated with an internal dimension gain a synthetic label column
// inserted directly after them, and the transform inserts the looked-up label
// (nil when the raw value has no table entry) at the matching row position.
// External remapping takes precedence on a column both could apply to.
//
// When nothing applies the original metadata is returned unchanged, same
// pointer, with the identity transform. A hydration failure is fatal for the
// execution; the unremapped result is never silently substituted.
func NewResultTransform(ctx context.Context, store DimensionSource, tuples []Tuple, meta *core.ResultMetadata) (*core.ResultMetadata, RowTransform, error) {
	cols, err := store.HydrateColumns(ctx, meta.Columns)
	if err != nil {
		return nil, nil, err
	}

	external := make(map[int]bool, len(tuples))
	relabeled := false
	for _, t := range tuples {
		srcIdx := columnIndex(cols, t.Original)
		dstIdx := columnIndex(cols, t.Remapped)
		if srcIdx < 0 || dstIdx < 0 {
			continue
		}
		cols[srcIdx].RemappedTo = t.Dimension.Name
		cols[dstIdx].RemappedFrom = cols[srcIdx].Name
		cols[dstIdx].DisplayName = t.Dimension.Name
		external[srcIdx] = true
		relabeled = true
	}

	var inserts []labelInsert
	for i, col := range cols {
		dim := col.Dimension
		if dim == nil || dim.Kind != core.DimensionInternal || external[i] {
			continue
		}
		inserts = append(inserts, labelInsert{srcIdx: i, labels: labelIndex(dim)})
	}

	if !relabeled && len(inserts) == 0 {
		return meta, Identity, nil
	}

	out := &core.ResultMetadata{
		Columns:    cols,
		DataExtras: meta.DataExtras,
		RootExtras: meta.RootExtras,
	}
	if len(inserts) == 0 {
		return out, Identity, nil
	}

	// Splice the synthetic label columns in, walking the inserts in column
	// order so earlier insertions shift later positions consistently.
	spliced := make([]core.Column, 0, len(cols)+len(inserts))
	next := 0
	for i, col := range cols {
		spliced = append(spliced, col)
		if next < len(inserts) && inserts[next].srcIdx == i {
			dim := col.Dimension
			spliced[len(spliced)-1].RemappedTo = dim.Name
			spliced = append(spliced, core.Column{
				Name:         dim.Name,
				DisplayName:  dim.Name,
				RemappedFrom: col.Name,
			})
			next++
		}
	}
	out.Columns = spliced

	transform := func(row core.Row) core.Row {
		rewritten := make(core.Row, 0, len(row)+len(inserts))
		next := 0
		for i, v := range row {
			rewritten = append(rewritten, v)
			if next < len(inserts) && inserts[next].srcIdx == i {
				rewritten = append(rewritten, inserts[next].labels[normalizeKey(v)])
				next++
			}
		}
		return rewritten
	}
	return out, transform, nil
}

// columnIndex locates a column by the identity of its field reference.
func columnIndex(cols []core.Column, ref core.FieldRef) int {
	for i, col := range cols {
		if col.Ref != nil && col.Ref.Equal(ref) {
			return i
		}
	}
	return -1
}

// labelIndex builds the raw value to label mapping from the dimension's
// index-aligned value table.
func labelIndex(dim *core.Dimension) map[any]any {
	labels := make(map[any]any, len(dim.Values))
	for i, v := range dim.Values {
		if i >= len(dim.HumanReadableValues) {
			break
		}
		labels[normalizeKey(v)] = dim.HumanReadableValues[i]
	}
	return labels
}

// normalizeKey folds the integer widths a driver or a decoded value table may
// produce into one comparable key, so int(4) from a stored table matches
// int64(4) from a database row.
func normalizeKey(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return normalizeKey(float64(n))
	case float64:
		if n == math.Trunc(n) {
			return int64(n)
		}
		return n
	case []byte:
		return string(n)
	default:
		return v
	}
}
