package catalog

import (
	"github.com/cuemby/ruzudb/pkg/storage/buffer"
	"github.com/cuemby/ruzudb/pkg/storage/page"
)

// SaveToRange persists the catalog's encoded form across the page range
// assigned by the header (spec.md §4.7 close algorithm).
func (c *Catalog) SaveToRange(pool *buffer.Pool, r page.Range) error {
	return buffer.WriteBlob(pool, r.Start, r.Count, c.Encode())
}

// LoadFromRange loads a catalog previously persisted by SaveToRange.
func LoadFromRange(pool *buffer.Pool, r page.Range) (*Catalog, error) {
	blob, err := buffer.ReadBlob(pool, r.Start, r.Count)
	if err != nil {
		return nil, err
	}
	return Decode(blob)
}
