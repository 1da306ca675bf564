package reltable

import (
	"github.com/cuemby/ruzudb/pkg/storage/buffer"
	"github.com/cuemby/ruzudb/pkg/storage/page"
	"github.com/cuemby/ruzudb/pkg/storage/wire"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

func writeGroup(w *wire.Writer, g *Group) {
	w.WriteInt64(int64(g.GroupID))
	w.WriteInt64(int64(g.Offsets[0]))
	w.WriteInt64(int64(g.Offsets[1]))
	w.WriteUint64(uint64(len(g.Neighbors)))
	for i, n := range g.Neighbors {
		w.WriteInt64(int64(n))
		w.WriteUint64(g.RelIDs[i])
	}
}

func readGroup(r *wire.Reader) *Group {
	g := &Group{GroupID: int(r.ReadInt64())}
	g.Offsets[0] = int(r.ReadInt64())
	g.Offsets[1] = int(r.ReadInt64())
	n := int(r.ReadUint64())
	g.Neighbors = make([]int, n)
	g.RelIDs = make([]uint64, n)
	for i := 0; i < n; i++ {
		g.Neighbors[i] = int(r.ReadInt64())
		g.RelIDs[i] = r.ReadUint64()
	}
	return g
}

func writeGroupMap(w *wire.Writer, groups map[int]*Group) {
	w.WriteUint64(uint64(len(groups)))
	for id, g := range groups {
		_ = id
		writeGroup(w, g)
	}
}

func readGroupMap(r *wire.Reader) map[int]*Group {
	n := r.ReadUint64()
	out := make(map[int]*Group, n)
	for i := uint64(0); i < n; i++ {
		g := readGroup(r)
		out[g.GroupID] = g
	}
	return out
}

// encode appends one relationship table's adjacency groups and edge
// properties to w; the schema itself lives in the catalog.
func (t *Table) encode(w *wire.Writer) {
	writeGroupMap(w, t.forward)
	writeGroupMap(w, t.backward)
	w.WriteUint64(uint64(len(t.properties)))
	for relID, props := range t.properties {
		w.WriteUint64(relID)
		w.WriteUint64(uint64(len(props)))
		for _, v := range props {
			w.WriteValue(v)
		}
	}
}

// decodeTable reconstructs a relationship Table's adjacency groups and
// properties from the wire form produced by encode; schema is supplied by
// the caller from the already-loaded catalog.
func decodeTable(r *wire.Reader, schema *types.RelSchema) (*Table, error) {
	t := New(schema)
	t.forward = readGroupMap(r)
	t.backward = readGroupMap(r)

	n := r.ReadUint64()
	for i := uint64(0); i < n; i++ {
		relID := r.ReadUint64()
		nProps := int(r.ReadUint64())
		props := make([]types.Value, nProps)
		for j := range props {
			props[j] = r.ReadValue()
		}
		t.properties[relID] = props
	}
	if r.Err() != nil {
		return nil, storeerr.Wrap(storeerr.Corrupted, "decode relationship table", r.Err()).WithTable(schema.Name)
	}
	if err := t.CheckInvariants(); err != nil {
		return nil, storeerr.Wrap(storeerr.Corrupted, "relationship table failed invariant check on load", err).WithTable(schema.Name)
	}
	return t, nil
}

// Collection is the set of all relationship tables, keyed by table name, as
// persisted in the relationship-metadata page range (spec.md §4.6, §6).
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

// Encode serializes every table's adjacency data as a length-prefixed blob.
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
// the already-loaded catalog's relationship schemas, keyed by table name;
// every decoded table name must have a matching schema (spec.md §4.6).
func Decode(buf []byte, schemas map[string]*types.RelSchema) (*Collection, error) {
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
			return nil, storeerr.New(storeerr.Corrupted, "relationship table has no matching catalog schema").WithTable(name)
		}
		t, err := decodeTable(r, schema)
		if err != nil {
			return nil, err
		}
		c.Put(t)
	}
	if r.Err() != nil {
		return nil, storeerr.Wrap(storeerr.Corrupted, "decode relationship table collection", r.Err())
	}
	return c, nil
}

// SaveToRange persists the collection across the relationship-metadata page
// range (spec.md §4.6, §4.7).
func (c *Collection) SaveToRange(pool *buffer.Pool, r page.Range) error {
	blob := c.Encode()
	if int64(len(blob)) > r.Count*(page.Size-4) {
		return storeerr.New(storeerr.MetadataTooLarge, "relationship metadata exceeds assigned page range")
	}
	return buffer.WriteBlob(pool, r.Start, r.Count, blob)
}

// LoadFromRange loads a Collection previously persisted by SaveToRange.
func LoadFromRange(pool *buffer.Pool, r page.Range, schemas map[string]*types.RelSchema) (*Collection, error) {
	if r.Empty() {
		return NewCollection(), nil
	}
	blob, err := buffer.ReadBlob(pool, r.Start, r.Count)
	if err != nil {
		return nil, err
	}
	return Decode(blob, schemas)
}
