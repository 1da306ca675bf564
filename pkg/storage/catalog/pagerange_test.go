package catalog

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/ruzudb/pkg/storage/buffer"
	"github.com/cuemby/ruzudb/pkg/storage/disk"
	"github.com/cuemby/ruzudb/pkg/storage/page"
)

func TestSaveAndLoadFromRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	d, err := disk.Open(path)
	if err != nil {
		t.Fatalf("disk.Open() error = %v", err)
	}
	defer d.Close()
	pool := buffer.New(d, 8)

	start, _ := d.AllocatePage()
	d.AllocatePage()
	r := page.Range{Start: start, Count: 2}

	c := New()
	c.CreateNodeTable(personSchema())

	if err := c.SaveToRange(pool, r); err != nil {
		t.Fatalf("SaveToRange() error = %v", err)
	}
	if err := pool.FlushAll(); err != nil {
		t.Fatalf("FlushAll() error = %v", err)
	}

	loaded, err := LoadFromRange(pool, r)
	if err != nil {
		t.Fatalf("LoadFromRange() error = %v", err)
	}
	s, ok := loaded.NodeSchema("person")
	if !ok || len(s.Columns) != 2 {
		t.Fatalf("loaded catalog missing person schema: %+v, %v", s, ok)
	}
}
