package catalog

import (
	"github.com/cuemby/ruzudb/pkg/storage/wire"
	"github.com/cuemby/ruzudb/pkg/storeerr"
)

// Encode serializes the catalog to a length-prefixed binary blob (spec.md
// §4.4, §6): a 4-byte little-endian length followed by the payload. The
// payload format is a flat sequence of node schemas then relationship
// schemas, each self-delimiting via wire's length-prefixed fields.
func (c *Catalog) Encode() []byte {
	w := wire.NewWriter()
	w.WriteUint64(uint64(len(c.nodeOrder)))
	for _, name := range c.nodeOrder {
		w.WriteNodeSchema(c.nodeSchemas[name])
	}
	w.WriteUint64(uint64(len(c.relOrder)))
	for _, name := range c.relOrder {
		w.WriteRelSchema(c.relSchemas[name])
	}
	return wire.LengthPrefix(w.Bytes())
}

// Decode parses a catalog from the bytes produced by Encode, including the
// leading 4-byte length prefix.
func Decode(buf []byte) (*Catalog, error) {
	payload, err := wire.ParseLengthPrefix(buf)
	if err != nil {
		return nil, err
	}

	r := wire.NewReader(payload)
	c := New()

	nNode := r.ReadUint64()
	for i := uint64(0); i < nNode; i++ {
		s := r.ReadNodeSchema()
		c.nodeSchemas[s.Name] = s
		c.nodeOrder = append(c.nodeOrder, s.Name)
	}
	nRel := r.ReadUint64()
	for i := uint64(0); i < nRel; i++ {
		s := r.ReadRelSchema()
		c.relSchemas[s.Name] = s
		c.relOrder = append(c.relOrder, s.Name)
	}
	if r.Err() != nil {
		return nil, storeerr.Wrap(storeerr.Corrupted, "decode catalog", r.Err())
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
