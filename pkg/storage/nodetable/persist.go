package nodetable

import (
	"github.com/cuemby/ruzudb/pkg/storage/buffer"
	"github.com/cuemby/ruzudb/pkg/storage/page"
	"github.com/cuemby/ruzudb/pkg/storage/wire"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// encode appends one table's column data (not its schema, which lives
// in the catalog) to w.
func (t *Table) encode(w *wire.Writer) {
	w.WriteUint64(uint64(len(t.Schema.Columns)))
	rows := t.RowCount()
	w.WriteUint64(uint64(rows))
	for c := range t.Schema.Columns {
		for r := 0; r < rows; r++ {
			w.WriteValue(t.columns[c][r])
		}
	}
}

// decodeTable reconstructs a Table's column data and PK index from the wire
// form produced by encode; the schema itself must already be known (from the
// catalog) and is supplied by the caller.
func decodeTable(r *wire.Reader, schema *types.NodeSchema) (*Table, error) {
	t := New(schema)
	nCols := int(r.ReadUint64())
	if nCols != len(schema.Columns) {
		return nil, storeerr.New(storeerr.Corrupted, "node table column count does not match schema").WithTable(schema.Name)
	}
	rows := int(r.ReadUint64())
	for c := 0; c < nCols; c++ {
		t.columns[c] = make([]types.Value, rows)
		for i := 0; i < rows; i++ {
			t.columns[c][i] = r.ReadValue()
		}
	}
	// Rebuild the PK index from the decoded columns (spec.md §4.5: "PK index
	// reconstructable from columns").
	for offset := 0; offset < rows; offset++ {
		row := t.Row(offset)
		key, err := t.pkKey(row)
		if err != nil {
			return nil, storeerr.Wrap(storeerr.Corrupted, "rebuild primary key index", err).WithTable(schema.Name)
		}
		t.pkIndex[key] = offset
	}
	return t, nil
}

// Collection is the set of all node tables, keyed by table name, as
// persisted in the node-metadata page range (spec.md §4.5, §6).
type Collection struct {
	Tables map[string]*Table
	order  []string
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{Tables: make(map[string]*Table)}
}

// Put registers (or replaces) a table, preserving first-seen order.
func (c *Collection) Put(t *Table) {
	if _, exists := c.Tables[t.Schema.Name]; !exists {
		c.order = append(c.order, t.Schema.Name)
	}
	c.Tables[t.Schema.Name] = t
}

// Encode serializes every table's data as a length-prefixed blob. The
// in-page bound (one page minus 4 bytes, spec.md §4.5) is enforced by the
// caller via SaveToRange.
func (c *Collection) Encode() []byte {
	w := wire.NewWriter()
	w.WriteUint64(uint64(len(c.order)))
	for _, name := range c.order {
		w.WriteString(name)
		c.Tables[name].encode(w)
	}
	return wire.LengthPrefix(w.Bytes())
}

// Decode parses a Collection from bytes produced by Encode. schemas supplies
// the already-loaded catalog's node schemas, keyed by table name; every
// decoded table name must have a matching schema (spec.md §4.6's analogous
// rule, applied here to node tables too).
func Decode(buf []byte, schemas map[string]*types.NodeSchema) (*Collection, error) {
	payload, err := wire.ParseLengthPrefix(buf)
	if err != nil {
		return nil, err
	}
	r := wire.NewReader(payload)
	c := NewCollection()

	n := r.ReadUint64()
	for i := uint64(0); i < n; i++ {
		name := r.ReadString()
		schema, ok := schemas[name]
		if !ok {
			return nil, storeerr.New(storeerr.Corrupted, "node table has no matching catalog schema").WithTable(name)
		}
		t, err := decodeTable(r, schema)
		if err != nil {
			return nil, err
		}
		c.Put(t)
	}
	if r.Err() != nil {
		return nil, storeerr.Wrap(storeerr.Corrupted, "decode node table collection", r.Err())
	}
	return c, nil
}

// SaveToRange persists the collection across the node-metadata page range,
// which spec.md §4.5 caps at a single page (page_size - 4 bytes).
func (c *Collection) SaveToRange(pool *buffer.Pool, r page.Range) error {
	blob := c.Encode()
	if int64(len(blob)) > page.Size-4 {
		// Multi-page node-metadata ranges are reserved for a future version
		// (spec.md §9 open question); Phase 2 enforces the single-page bound.
		return storeerr.New(storeerr.MetadataTooLarge, "node metadata exceeds single-page bound")
	}
	return buffer.WriteBlob(pool, r.Start, r.Count, blob)
}

// LoadFromRange loads a Collection previously persisted by SaveToRange.
func LoadFromRange(pool *buffer.Pool, r page.Range, schemas map[string]*types.NodeSchema) (*Collection, error) {
	if r.Empty() {
		return NewCollection(), nil
	}
	blob, err := buffer.ReadBlob(pool, r.Start, r.Count)
	if err != nil {
		return nil, err
	}
	return Decode(blob, schemas)
}
