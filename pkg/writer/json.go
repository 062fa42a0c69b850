package writer

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

func init() {
	Register("json", NewJSON)
}

// jsonWriter streams a result set as a structured document:
//
//	{"data":{"rows":[<row>,<row>,...],<data extras>},<root extras>}
//
// Rows are written incrementally as a comma-joined sequence; extras are
// appended in Finish, and only when non-empty.
type jsonWriter struct {
	sink io.Writer
	bw   *bufio.Writer
}

// NewJSON creates a structured-document writer over sink.
func NewJSON(sink io.Writer) Writer {
	return &jsonWriter{sink: sink, bw: bufio.NewWriter(sink)}
}

func (w *jsonWriter) Begin(_ *core.ResultMetadata) error {
	if _, err := w.bw.WriteString(`{"data":{"rows":[`); err != nil {
		return err
	}
	// Commit the preamble before any row is written.
	return w.bw.Flush()
}

func (w *jsonWriter) WriteRow(row core.Row, index int) error {
	if index > 0 {
		if err := w.bw.WriteByte(','); err != nil {
			return err
		}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = w.bw.Write(data)
	return err
}

func (w *jsonWriter) Finish(meta *core.ResultMetadata) error {
	err := w.writeTrailer(meta)
	if flushErr := w.bw.Flush(); err == nil {
		err = flushErr
	}
	if closeErr := releaseSink(w.sink); err == nil {
		err = closeErr
	}
	return err
}

func (w *jsonWriter) writeTrailer(meta *core.ResultMetadata) error {
	if err := w.bw.WriteByte(']'); err != nil {
		return err
	}
	if meta != nil {
		if err := w.writeExtras(meta.DataExtras); err != nil {
			return err
		}
	}
	if err := w.bw.WriteByte('}'); err != nil {
		return err
	}
	if meta != nil {
		if err := w.writeExtras(meta.RootExtras); err != nil {
			return err
		}
	}
	if err := w.bw.WriteByte('}'); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

// writeExtras appends `,"key":<value>` pairs in stable key order.
func (w *jsonWriter) writeExtras(extras map[string]any) error {
	for _, key := range sortedKeys(extras) {
		if err := w.bw.WriteByte(','); err != nil {
			return err
		}
		name, err := json.Marshal(key)
		if err != nil {
			return err
		}
		if _, err := w.bw.Write(name); err != nil {
			return err
		}
		if err := w.bw.WriteByte(':'); err != nil {
			return err
		}
		value, err := json.Marshal(extras[key])
		if err != nil {
			return err
		}
		if _, err := w.bw.Write(value); err != nil {
			return err
		}
	}
	return nil
}
