package csvload

import "github.com/cuemby/ruzudb/pkg/types"

// rowBuffer is the pre-allocated outer vector of row vectors described by
// spec.md's Row Buffer glossary entry: capacity fixed at construction, and
// clear preserves that capacity so a long-running import never re-grows the
// slice after the first few batches.
type rowBuffer struct {
	rows []map[string]types.Value
	cap  int
}

func newRowBuffer(capacity int) *rowBuffer {
	return &rowBuffer{rows: make([]map[string]types.Value, 0, capacity), cap: capacity}
}

func (b *rowBuffer) add(row map[string]types.Value) {
	b.rows = append(b.rows, row)
}

func (b *rowBuffer) full() bool {
	return len(b.rows) >= b.cap
}

func (b *rowBuffer) len() int {
	return len(b.rows)
}

// take returns the buffered rows and clears the buffer, preserving capacity.
func (b *rowBuffer) take() []map[string]types.Value {
	out := b.rows
	b.rows = b.rows[:0]
	return out
}
