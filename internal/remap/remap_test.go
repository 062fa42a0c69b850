package remap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

// fakeStore is a DimensionSource with a fixed dimension table.
type fakeStore struct {
	dims       map[core.FieldID]*core.Dimension
	hydrateErr error

	requested [][]core.FieldID
}

func (s *fakeStore) DimensionsFor(_ context.Context, ids []core.FieldID) (map[core.FieldID]*core.Dimension, error) {
	s.requested = append(s.requested, ids)
	out := make(map[core.FieldID]*core.Dimension)
	for _, id := range ids {
		if d, ok := s.dims[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func (s *fakeStore) HydrateColumns(_ context.Context, cols []core.Column) ([]core.Column, error) {
	if s.hydrateErr != nil {
		return nil, s.hydrateErr
	}
	out := make([]core.Column, len(cols))
	copy(out, cols)
	for i := range out {
		if out[i].ID == nil {
			continue
		}
		if d, ok := s.dims[*out[i].ID]; ok {
			out[i].Dimension = d
		}
	}
	return out, nil
}

func fieldID(id core.FieldID) *core.FieldID { return &id }

func externalDim(field, target core.FieldID, name string) *core.Dimension {
	return &core.Dimension{
		FieldID:              field,
		Kind:                 core.DimensionExternal,
		Name:                 name,
		HumanReadableFieldID: fieldID(target),
	}
}

func internalDim(field core.FieldID, name string, values, labels []any) *core.Dimension {
	return &core.Dimension{
		FieldID:             field,
		Kind:                core.DimensionInternal,
		Name:                name,
		Values:              values,
		HumanReadableValues: labels,
	}
}

func structuredQuery(body *core.QueryBody) *core.Query {
	return &core.Query{Type: core.QueryTypeStructured, Database: 1, Body: body}
}

func TestAddFKRemaps_NothingToRemap(t *testing.T) {
	store := &fakeStore{dims: map[core.FieldID]*core.Dimension{}}
	q := structuredQuery(&core.QueryBody{
		SourceTable: 1,
		Fields:      []core.FieldRef{core.FieldByID{ID: 1}, core.FieldByID{ID: 2}},
	})

	tuples, out, err := AddFKRemaps(context.Background(), store, q)
	require.NoError(t, err)
	assert.Empty(t, tuples)
	assert.Same(t, q, out)
}

func TestAddFKRemaps_NativeQueryUntouched(t *testing.T) {
	store := &fakeStore{dims: map[core.FieldID]*core.Dimension{}}
	q := &core.Query{Type: core.QueryTypeNative, Database: 1, Native: &core.NativeQuery{SQL: "SELECT 1"}}

	tuples, out, err := AddFKRemaps(context.Background(), store, q)
	require.NoError(t, err)
	assert.Empty(t, tuples)
	assert.Same(t, q, out)
	assert.Empty(t, store.requested)
}

func TestAddFKRemaps_ExternalDimension(t *testing.T) {
	store := &fakeStore{dims: map[core.FieldID]*core.Dimension{
		3: externalDim(3, 11, "Category"),
	}}
	q := structuredQuery(&core.QueryBody{
		SourceTable: 1,
		Fields:      []core.FieldRef{core.FieldByID{ID: 1}, core.FieldByID{ID: 3}},
		OrderBy: []core.OrderClause{
			{Field: core.FieldByID{ID: 3}, Direction: core.OrderDesc},
			{Field: core.FieldByID{ID: 1}, Direction: core.OrderAsc},
		},
	})

	tuples, out, err := AddFKRemaps(context.Background(), store, q)
	require.NoError(t, err)

	wantRemapped := core.FieldViaFK{Source: core.FieldByID{ID: 3}, Dest: core.FieldByID{ID: 11}}

	require.Len(t, tuples, 1)
	assert.True(t, tuples[0].Original.Equal(core.FieldByID{ID: 3}))
	assert.True(t, tuples[0].Remapped.Equal(wantRemapped))
	assert.Equal(t, "Category", tuples[0].Dimension.Name)

	// Exactly one traversal reference appended per remapped field.
	require.Len(t, out.Body.Fields, 3)
	assert.True(t, out.Body.Fields[2].Equal(wantRemapped))

	// The order-by on the remapped field is replaced in place, same
	// direction; the other clause is untouched.
	require.Len(t, out.Body.OrderBy, 2)
	assert.True(t, out.Body.OrderBy[0].Field.Equal(wantRemapped))
	assert.Equal(t, core.OrderDesc, out.Body.OrderBy[0].Direction)
	assert.True(t, out.Body.OrderBy[1].Field.Equal(core.FieldByID{ID: 1}))

	// The caller's query is not mutated.
	assert.Len(t, q.Body.Fields, 2)
	assert.True(t, q.Body.OrderBy[0].Field.Equal(core.FieldByID{ID: 3}))

	// Dimensions were resolved for exactly the selected fields.
	require.Len(t, store.requested, 1)
	assert.Equal(t, []core.FieldID{1, 3}, store.requested[0])
}

func TestAddFKRemaps_InternalDimensionAddsNothing(t *testing.T) {
	store := &fakeStore{dims: map[core.FieldID]*core.Dimension{
		4: internalDim(4, "Price Tier", []any{1, 2}, []any{"Cheap", "Fancy"}),
	}}
	q := structuredQuery(&core.QueryBody{
		SourceTable: 1,
		Fields:      []core.FieldRef{core.FieldByID{ID: 1}, core.FieldByID{ID: 4}},
	})

	tuples, out, err := AddFKRemaps(context.Background(), store, q)
	require.NoError(t, err)
	assert.Empty(t, tuples)
	assert.Same(t, q, out)
}

func TestBindColumnRefs(t *testing.T) {
	cols := []core.Column{{Name: "ID"}, {Name: "CATEGORY_ID"}, {Name: "NAME__via__CATEGORY_ID"}}
	fields := []core.FieldRef{
		core.FieldByID{ID: 1},
		core.FieldByID{ID: 3},
		core.FieldViaFK{Source: core.FieldByID{ID: 3}, Dest: core.FieldByID{ID: 11}},
	}

	BindColumnRefs(cols, fields)

	require.NotNil(t, cols[0].ID)
	assert.Equal(t, core.FieldID(1), *cols[0].ID)
	assert.True(t, cols[1].Ref.Equal(core.FieldByID{ID: 3}))

	// The traversal column is keyed by its destination field.
	require.NotNil(t, cols[2].ID)
	assert.Equal(t, core.FieldID(11), *cols[2].ID)
	assert.True(t, cols[2].Ref.Equal(fields[2]))
}

func TestNewResultTransform_InternalDimension(t *testing.T) {
	store := &fakeStore{dims: map[core.FieldID]*core.Dimension{
		3: internalDim(3, "Foo", []any{4, 11, 29, 20}, []any{"Foo", "Bar", "Baz", "Qux"}),
	}}
	meta := &core.ResultMetadata{Columns: []core.Column{
		{ID: fieldID(1), Name: "ID", DisplayName: "ID"},
		{ID: fieldID(2), Name: "NAME", DisplayName: "NAME"},
		{ID: fieldID(3), Name: "CATEGORY_ID", DisplayName: "CATEGORY_ID"},
		{ID: fieldID(4), Name: "PRICE", DisplayName: "PRICE"},
	}}

	out, transform, err := NewResultTransform(context.Background(), store, nil, meta)
	require.NoError(t, err)

	// The synthetic label column sits directly after its source column.
	require.Len(t, out.Columns, 5)
	assert.Equal(t, "CATEGORY_ID", out.Columns[2].Name)
	assert.Equal(t, "Foo", out.Columns[2].RemappedTo)
	assert.Equal(t, "Foo", out.Columns[3].DisplayName)
	assert.Equal(t, "CATEGORY_ID", out.Columns[3].RemappedFrom)
	assert.Nil(t, out.Columns[3].ID)
	assert.Nil(t, out.Columns[3].TableID)
	assert.Equal(t, "PRICE", out.Columns[4].Name)

	// The label value is inserted at the matching row position.
	assert.Equal(t, core.Row{int64(1), "Red Medicine", int64(4), "Foo", int64(3)},
		transform(core.Row{int64(1), "Red Medicine", int64(4), int64(3)}))

	// A raw value absent from the value table labels as nil.
	row := transform(core.Row{int64(2), "Stout Burgers", int64(99), int64(2)})
	assert.Nil(t, row[3])
}

func TestNewResultTransform_ExternalDimension(t *testing.T) {
	dim := externalDim(3, 11, "Category")
	store := &fakeStore{dims: map[core.FieldID]*core.Dimension{3: dim}}

	original := core.FieldByID{ID: 3}
	remapped := core.FieldViaFK{Source: original, Dest: core.FieldByID{ID: 11}}
	tuples := []Tuple{{Original: original, Remapped: remapped, Dimension: dim}}

	meta := &core.ResultMetadata{Columns: []core.Column{
		{ID: fieldID(1), Name: "ID", DisplayName: "ID", Ref: core.FieldByID{ID: 1}},
		{ID: fieldID(3), Name: "CATEGORY_ID", DisplayName: "CATEGORY_ID", Ref: original},
		{ID: fieldID(11), Name: "NAME__via__CATEGORY_ID", DisplayName: "NAME__via__CATEGORY_ID", Ref: remapped},
	}}

	out, transform, err := NewResultTransform(context.Background(), store, tuples, meta)
	require.NoError(t, err)

	// No column added or removed; the fetched column is relabeled in place.
	require.Len(t, out.Columns, 3)
	assert.Equal(t, "Category", out.Columns[1].RemappedTo)
	assert.Equal(t, "CATEGORY_ID", out.Columns[2].RemappedFrom)
	assert.Equal(t, "Category", out.Columns[2].DisplayName)

	// Row values are untouched, same slice.
	row := core.Row{int64(1), int64(4), "Widgets"}
	assert.Equal(t, core.Row{int64(1), int64(4), "Widgets"}, transform(row))
	assert.Same(t, &row[0], &transform(row)[0])
}

func TestNewResultTransform_ExternalPrecedence(t *testing.T) {
	// A field carrying both kinds should not occur, but when it does the
	// pre-fetched external remap wins and no label column is synthesized.
	dim := externalDim(3, 11, "Category")
	store := &fakeStore{dims: map[core.FieldID]*core.Dimension{
		3: internalDim(3, "Inline", []any{4}, []any{"Foo"}),
	}}

	original := core.FieldByID{ID: 3}
	remapped := core.FieldViaFK{Source: original, Dest: core.FieldByID{ID: 11}}
	tuples := []Tuple{{Original: original, Remapped: remapped, Dimension: dim}}

	meta := &core.ResultMetadata{Columns: []core.Column{
		{ID: fieldID(3), Name: "CATEGORY_ID", Ref: original},
		{ID: fieldID(11), Name: "NAME__via__CATEGORY_ID", Ref: remapped},
	}}

	out, transform, err := NewResultTransform(context.Background(), store, tuples, meta)
	require.NoError(t, err)
	require.Len(t, out.Columns, 2)
	assert.Equal(t, "Category", out.Columns[0].RemappedTo)
	assert.Len(t, transform(core.Row{int64(4), "Widgets"}), 2)
}

func TestNewResultTransform_NoOp(t *testing.T) {
	store := &fakeStore{dims: map[core.FieldID]*core.Dimension{}}
	meta := &core.ResultMetadata{Columns: []core.Column{
		{ID: fieldID(1), Name: "ID"},
		{Name: "literal"},
	}}

	out, transform, err := NewResultTransform(context.Background(), store, nil, meta)
	require.NoError(t, err)
	assert.Same(t, meta, out)

	row := core.Row{int64(1), "x"}
	assert.Same(t, &row[0], &transform(row)[0])
}

func TestNewResultTransform_HydrationFailureIsFatal(t *testing.T) {
	store := &fakeStore{hydrateErr: assert.AnError}
	meta := &core.ResultMetadata{Columns: []core.Column{{ID: fieldID(1), Name: "ID"}}}

	out, transform, err := NewResultTransform(context.Background(), store, nil, meta)
	require.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, out)
	assert.Nil(t, transform)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, int64(4), normalizeKey(4))
	assert.Equal(t, int64(4), normalizeKey(int32(4)))
	assert.Equal(t, int64(4), normalizeKey(4.0))
	assert.Equal(t, 4.5, normalizeKey(4.5))
	assert.Equal(t, "abc", normalizeKey([]byte("abc")))
	assert.Equal(t, "abc", normalizeKey("abc"))
	assert.Nil(t, normalizeKey(nil))
}
