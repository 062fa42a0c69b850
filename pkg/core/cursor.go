package core

// Row is one result record, values in column order.
type Row []any

// RowCursor is a lazy, finite, single-pass iterator over native result rows.
// It must not be iterated more than once and is not safe to resume after a
// failed Next. Close releases the underlying native cursor and must be
// called on every exit path.
type RowCursor interface {
	// Next advances to the next row, returning false at the end of the
	// sequence or on error.
	Next() bool

	// Row returns the current row. Only valid after a true Next.
	Row() Row

	// Err returns the error that terminated iteration, if any.
	Err() error

	// Close releases the underlying cursor. Safe to call more than once.
	Close() error
}

// SliceCursor is an in-memory RowCursor over a fixed set of rows, used by
// tests and fixtures.
type SliceCursor struct {
	rows   []Row
	pos    int
	closed bool
}

// NewSliceCursor returns a cursor over the given rows.
func NewSliceCursor(rows ...Row) *SliceCursor {
	return &SliceCursor{rows: rows}
}

// Next advances the cursor.
func (c *SliceCursor) Next() bool {
	if c.closed || c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

// Row returns the current row.
func (c *SliceCursor) Row() Row {
	return c.rows[c.pos-1]
}

// Err always returns nil.
func (c *SliceCursor) Err() error { return nil }

// Close marks the cursor closed.
func (c *SliceCursor) Close() error {
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *SliceCursor) Closed() bool { return c.closed }
