package writer

import (
	"encoding/csv"
	"io"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

func init() {
	Register("csv", NewCSV)
}

// csvWriter streams a result set as RFC 4180 delimited text. The header row
// carries the display name of each column; every subsequent record is one
// result row in column order.
type csvWriter struct {
	sink io.Writer
	enc  *csv.Writer
}

// NewCSV creates a delimited-text writer over sink.
func NewCSV(sink io.Writer) Writer {
	return &csvWriter{sink: sink, enc: csv.NewWriter(sink)}
}

func (w *csvWriter) Begin(meta *core.ResultMetadata) error {
	header := make([]string, len(meta.Columns))
	for i, col := range meta.Columns {
		header[i] = col.DisplayName
	}
	if err := w.enc.Write(header); err != nil {
		return err
	}
	// Commit the header before any row is written.
	w.enc.Flush()
	return w.enc.Error()
}

func (w *csvWriter) WriteRow(row core.Row, _ int) error {
	record := make([]string, len(row))
	for i, v := range row {
		record[i] = formatValue(v, "")
	}
	if err := w.enc.Write(record); err != nil {
		return err
	}
	w.enc.Flush()
	return w.enc.Error()
}

func (w *csvWriter) Finish(_ *core.ResultMetadata) error {
	w.enc.Flush()
	err := w.enc.Error()
	if closeErr := releaseSink(w.sink); err == nil {
		err = closeErr
	}
	return err
}
