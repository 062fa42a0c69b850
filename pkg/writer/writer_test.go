package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

func testMeta(names ...string) *core.ResultMetadata {
	meta := &core.ResultMetadata{}
	for _, name := range names {
		meta.Columns = append(meta.Columns, core.Column{Name: name, DisplayName: name})
	}
	return meta
}

// closeRecorder tracks whether Finish released the sink.
type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func writeAll(t *testing.T, w Writer, meta *core.ResultMetadata, rows []core.Row) {
	t.Helper()
	require.NoError(t, w.Begin(meta))
	for i, row := range rows {
		require.NoError(t, w.WriteRow(row, i))
	}
	require.NoError(t, w.Finish(meta))
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "table"}, List())
	assert.True(t, IsRegistered("json"))
	assert.False(t, IsRegistered("xml"))

	_, err := New("xml", &bytes.Buffer{})
	require.Error(t, err)
	var unknownErr *UnknownFormatError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "xml", unknownErr.Format)
	assert.Contains(t, err.Error(), "csv")
}

func TestCSVWriter(t *testing.T) {
	t.Run("header and rows", func(t *testing.T) {
		var buf bytes.Buffer
		writeAll(t, NewCSV(&buf), testMeta("ID", "Name"), []core.Row{
			{int64(1), "Red Medicine"},
			{int64(2), nil},
		})

		assert.Equal(t, "ID,Name\n1,Red Medicine\n2,\n", buf.String())
	})

	t.Run("values with separators are quoted", func(t *testing.T) {
		var buf bytes.Buffer
		writeAll(t, NewCSV(&buf), testMeta("Name"), []core.Row{
			{`Stout Burgers, "Beers"`},
		})

		assert.Equal(t, "Name\n\"Stout Burgers, \"\"Beers\"\"\"\n", buf.String())
	})

	t.Run("header is committed before rows", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewCSV(&buf)
		require.NoError(t, w.Begin(testMeta("ID")))
		assert.Equal(t, "ID\n", buf.String())
	})
}

func TestJSONWriter(t *testing.T) {
	t.Run("empty result set", func(t *testing.T) {
		var buf bytes.Buffer
		writeAll(t, NewJSON(&buf), testMeta("ID"), nil)

		assert.Equal(t, `{"data":{"rows":[]}}`, strings.TrimSpace(buf.String()))
	})

	t.Run("single row takes no separator", func(t *testing.T) {
		var buf bytes.Buffer
		writeAll(t, NewJSON(&buf), testMeta("ID", "Name"), []core.Row{
			{int64(1), "Red Medicine"},
		})

		assert.Equal(t, `{"data":{"rows":[[1,"Red Medicine"]]}}`, strings.TrimSpace(buf.String()))
	})

	t.Run("rows are comma joined", func(t *testing.T) {
		var buf bytes.Buffer
		writeAll(t, NewJSON(&buf), testMeta("ID"), []core.Row{
			{int64(1)}, {int64(2)}, {int64(3)},
		})

		assert.Equal(t, `{"data":{"rows":[[1],[2],[3]]}}`, strings.TrimSpace(buf.String()))
	})

	t.Run("extras are emitted in key order", func(t *testing.T) {
		meta := testMeta("ID")
		meta.SetDataExtra("row_count", 1)
		meta.SetDataExtra("native_form", map[string]any{"query": "SELECT 1"})
		meta.SetRootExtra("status", "completed")

		var buf bytes.Buffer
		writeAll(t, NewJSON(&buf), meta, []core.Row{{int64(1)}})

		assert.Equal(t,
			`{"data":{"rows":[[1]],"native_form":{"query":"SELECT 1"},"row_count":1},"status":"completed"}`,
			strings.TrimSpace(buf.String()))
	})
}

func TestTableWriter(t *testing.T) {
	var buf bytes.Buffer
	writeAll(t, NewTable(&buf), testMeta("ID", "Name"), []core.Row{
		{int64(1), "Red Medicine"},
		{int64(2), nil},
	})

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Red Medicine")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
}

func TestFinishReleasesSink(t *testing.T) {
	for _, format := range List() {
		t.Run(format, func(t *testing.T) {
			sink := &closeRecorder{}
			w, err := New(format, sink)
			require.NoError(t, err)

			writeAll(t, w, testMeta("ID"), []core.Row{{int64(1)}})
			assert.True(t, sink.closed)
		})
	}
}
