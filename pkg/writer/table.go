package writer

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

func init() {
	Register("table", NewTable)
}

// tableWriter renders a result set as an aligned text table. Unlike the
// delimited formats it buffers rows until Finish, since column widths are
// only known once every row has been seen.
type tableWriter struct {
	sink io.Writer
	tw   table.Writer
	rows int
}

// NewTable creates a pretty-printed table writer over sink.
func NewTable(sink io.Writer) Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(sink)
	tw.SetStyle(table.StyleLight)
	return &tableWriter{sink: sink, tw: tw}
}

func (w *tableWriter) Begin(meta *core.ResultMetadata) error {
	header := make(table.Row, len(meta.Columns))
	for i, col := range meta.Columns {
		header[i] = col.DisplayName
	}
	w.tw.AppendHeader(header)
	return nil
}

func (w *tableWriter) WriteRow(row core.Row, _ int) error {
	cells := make(table.Row, len(row))
	for i, v := range row {
		cells[i] = formatValue(v, "NULL")
	}
	w.tw.AppendRow(cells)
	w.rows++
	return nil
}

func (w *tableWriter) Finish(_ *core.ResultMetadata) error {
	w.tw.Render()
	_, err := fmt.Fprintf(w.sink, "(%d rows)\n", w.rows)
	if closeErr := releaseSink(w.sink); err == nil {
		err = closeErr
	}
	return err
}
