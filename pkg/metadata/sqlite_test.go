package metadata

import (
	"context"
	"testing"

	"github.com/leapstack-labs/queryflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldID(id core.FieldID) *core.FieldID { return &id }

// openTestStore returns a migrated in-memory store seeded with the
// venues/categories fixture.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s := NewSQLiteStore(nil)
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate())

	ctx := context.Background()
	require.NoError(t, s.SaveTable(ctx, &core.Table{ID: 1, Name: "venues"}))
	require.NoError(t, s.SaveTable(ctx, &core.Table{ID: 2, Name: "categories"}))

	fields := []*core.Field{
		{ID: 1, TableID: 1, Name: "ID", DisplayName: "ID", BaseType: "type/Integer"},
		{ID: 2, TableID: 1, Name: "NAME", DisplayName: "Name", BaseType: "type/Text"},
		{ID: 3, TableID: 1, Name: "CATEGORY_ID", DisplayName: "Category ID", BaseType: "type/Integer", SpecialType: "type/FK", FKTargetFieldID: fieldID(10)},
		{ID: 4, TableID: 1, Name: "PRICE", DisplayName: "Price", BaseType: "type/Integer"},
		{ID: 10, TableID: 2, Name: "ID", DisplayName: "ID", BaseType: "type/Integer"},
		{ID: 11, TableID: 2, Name: "NAME", DisplayName: "Name", BaseType: "type/Text"},
	}
	for _, f := range fields {
		require.NoError(t, s.SaveField(ctx, f))
	}
	return s
}

func TestSQLiteStore_FieldAndTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	f, err := s.Field(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "CATEGORY_ID", f.Name)
	require.NotNil(t, f.FKTargetFieldID)
	assert.Equal(t, core.FieldID(10), *f.FKTargetFieldID)

	tbl, err := s.Table(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "categories", tbl.Name)

	_, err = s.Field(ctx, 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_DimensionsFor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDimension(ctx, &core.Dimension{
		FieldID:             4,
		Kind:                core.DimensionInternal,
		Name:                "Price Tier",
		Values:              []any{1, 2, 3},
		HumanReadableValues: []any{"Cheap", "Medium", "Fancy"},
	}))
	require.NoError(t, s.SaveDimension(ctx, &core.Dimension{
		FieldID:              3,
		Kind:                 core.DimensionExternal,
		Name:                 "Category",
		HumanReadableFieldID: fieldID(11),
	}))

	t.Run("only requested fields are resolved", func(t *testing.T) {
		dims, err := s.DimensionsFor(ctx, []core.FieldID{3, 1})
		require.NoError(t, err)
		require.Len(t, dims, 1)

		d := dims[3]
		require.NotNil(t, d)
		assert.Equal(t, core.DimensionExternal, d.Kind)
		assert.Equal(t, "Category", d.Name)
		require.NotNil(t, d.HumanReadableFieldID)
		assert.Equal(t, core.FieldID(11), *d.HumanReadableFieldID)
	})

	t.Run("internal dimension carries its value table", func(t *testing.T) {
		dims, err := s.DimensionsFor(ctx, []core.FieldID{4})
		require.NoError(t, err)

		d := dims[4]
		require.NotNil(t, d)
		assert.Equal(t, []any{int64(1), int64(2), int64(3)}, d.Values)
		assert.Equal(t, []any{"Cheap", "Medium", "Fancy"}, d.HumanReadableValues)
	})

	t.Run("empty request", func(t *testing.T) {
		dims, err := s.DimensionsFor(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, dims)
	})
}

func TestSQLiteStore_HydrateColumns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDimension(ctx, &core.Dimension{
		FieldID:             4,
		Kind:                core.DimensionInternal,
		Name:                "Price Tier",
		Values:              []any{1, 2},
		HumanReadableValues: []any{"Cheap", "Medium"},
	}))

	cols := []core.Column{
		{ID: fieldID(3), Name: "CATEGORY_ID", DisplayName: "CATEGORY_ID"},
		{ID: fieldID(4), Name: "PRICE", DisplayName: "PRICE"},
		{Name: "literal"}, // no field id, left alone
	}

	hydrated, err := s.HydrateColumns(ctx, cols)
	require.NoError(t, err)
	require.Len(t, hydrated, 3)

	// Field metadata is filled in.
	assert.Equal(t, "Category ID", hydrated[0].DisplayName)
	assert.Equal(t, "type/Integer", hydrated[0].BaseType)
	require.NotNil(t, hydrated[0].TableID)
	assert.Equal(t, core.TableID(1), *hydrated[0].TableID)

	// FK target is hydrated in the same batch.
	require.NotNil(t, hydrated[0].Target)
	assert.Equal(t, core.FieldID(10), hydrated[0].Target.ID)

	// Dimension and value table are attached.
	require.NotNil(t, hydrated[1].Dimension)
	assert.Equal(t, "Price Tier", hydrated[1].Dimension.Name)
	assert.Equal(t, []any{int64(1), int64(2)}, hydrated[1].Dimension.Values)

	// Column without an id is untouched.
	assert.Equal(t, "literal", hydrated[2].Name)
	assert.Nil(t, hydrated[2].Dimension)

	// Input slice is not mutated.
	assert.Equal(t, "CATEGORY_ID", cols[0].DisplayName)
	assert.Nil(t, cols[1].Dimension)
}

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Migrate())
}
