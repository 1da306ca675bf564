package buffer

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/ruzudb/pkg/storage/disk"
	"github.com/cuemby/ruzudb/pkg/storage/page"
	"github.com/cuemby/ruzudb/pkg/storeerr"
)

func newTestPool(t *testing.T, capacity int) (*Pool, *disk.Manager) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	d, err := disk.Open(path)
	if err != nil {
		t.Fatalf("disk.Open() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return New(d, capacity), d
}

func TestPinReadsFromDiskOnMiss(t *testing.T) {
	pool, d := newTestPool(t, 4)
	id, err := d.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error = %v", err)
	}

	h, err := pool.Pin(id)
	if err != nil {
		t.Fatalf("Pin() error = %v", err)
	}
	pool.Unpin(h, false)

	stats := pool.Stats()
	if stats.PagesUsed != 1 {
		t.Errorf("PagesUsed = %d, want 1", stats.PagesUsed)
	}
}

func TestPinReturnsSameFrameOnHit(t *testing.T) {
	pool, d := newTestPool(t, 4)
	id, _ := d.AllocatePage()

	h1, _ := pool.Pin(id)
	h1.Page()[0] = 42
	pool.Unpin(h1, true)

	h2, err := pool.Pin(id)
	if err != nil {
		t.Fatalf("Pin() error = %v", err)
	}
	if h2.Page()[0] != 42 {
		t.Errorf("second Pin() did not see the first pin's in-memory write")
	}
	pool.Unpin(h2, false)
}

func TestUnpinMarksDirtyAndFlushPersists(t *testing.T) {
	pool, d := newTestPool(t, 4)
	id, _ := d.AllocatePage()

	h, _ := pool.Pin(id)
	h.Page()[0] = 7
	pool.Unpin(h, true)

	if err := pool.Flush(id); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got, err := d.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage() error = %v", err)
	}
	if got[0] != 7 {
		t.Errorf("Flush() did not persist the write: got %d, want 7", got[0])
	}
}

func TestEvictionWritesBackDirtyFrame(t *testing.T) {
	pool, d := newTestPool(t, 1)

	id1, _ := d.AllocatePage()
	h1, _ := pool.Pin(id1)
	h1.Page()[0] = 1
	pool.Unpin(h1, true)

	id2, _ := d.AllocatePage()
	h2, err := pool.Pin(id2)
	if err != nil {
		t.Fatalf("Pin() on second page should evict the first: %v", err)
	}
	pool.Unpin(h2, false)

	got, err := d.ReadPage(id1)
	if err != nil {
		t.Fatalf("ReadPage() error = %v", err)
	}
	if got[0] != 1 {
		t.Error("evicted dirty frame was not flushed to disk before eviction")
	}

	stats := pool.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestPinFailsWhenAllFramesPinned(t *testing.T) {
	pool, d := newTestPool(t, 1)

	id1, _ := d.AllocatePage()
	h1, err := pool.Pin(id1)
	if err != nil {
		t.Fatalf("Pin() error = %v", err)
	}

	id2, _ := d.AllocatePage()
	_, err = pool.Pin(id2)
	if err == nil {
		t.Fatal("Pin() should fail when the only frame is pinned and capacity is exhausted")
	}
	if kind, ok := storeerr.KindOf(err); !ok || kind != storeerr.OutOfFrames {
		t.Errorf("KindOf(err) = %v, %v; want OutOfFrames, true", kind, ok)
	}

	pool.Unpin(h1, false)
}

func TestStatsHitRate(t *testing.T) {
	pool, d := newTestPool(t, 4)
	id, _ := d.AllocatePage()

	h1, _ := pool.Pin(id) // miss
	pool.Unpin(h1, false)
	h2, _ := pool.Pin(id) // hit
	pool.Unpin(h2, false)

	stats := pool.Stats()
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
}

func TestFlushAllPersistsEveryDirtyFrame(t *testing.T) {
	pool, d := newTestPool(t, 4)

	id1, _ := d.AllocatePage()
	id2, _ := d.AllocatePage()

	h1, _ := pool.Pin(id1)
	h1.Page()[0] = 1
	pool.Unpin(h1, true)

	h2, _ := pool.Pin(id2)
	h2.Page()[0] = 2
	pool.Unpin(h2, true)

	if err := pool.FlushAll(); err != nil {
		t.Fatalf("FlushAll() error = %v", err)
	}

	got1, _ := d.ReadPage(id1)
	got2, _ := d.ReadPage(id2)
	if got1[0] != 1 || got2[0] != 2 {
		t.Errorf("FlushAll() did not persist both pages: got %d, %d", got1[0], got2[0])
	}
}

func TestWriteBlobAndReadBlobRoundTrip(t *testing.T) {
	pool, d := newTestPool(t, 8)

	start, err := d.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error = %v", err)
	}
	d.AllocatePage()

	blob := []byte("a multi-page blob that should round trip")
	if err := WriteBlob(pool, start, 2, blob); err != nil {
		t.Fatalf("WriteBlob() error = %v", err)
	}

	got, err := ReadBlob(pool, start, 2)
	if err != nil {
		t.Fatalf("ReadBlob() error = %v", err)
	}
	if string(got[:len(blob)]) != string(blob) {
		t.Errorf("ReadBlob() = %q, want prefix %q", got[:len(blob)], blob)
	}
	for _, b := range got[len(blob):] {
		if b != 0 {
			t.Fatal("ReadBlob() trailing bytes should be zero-padded")
		}
	}
}

func TestWriteBlobTooLarge(t *testing.T) {
	pool, d := newTestPool(t, 4)
	start, _ := d.AllocatePage()

	blob := make([]byte, page.Size+1)
	err := WriteBlob(pool, start, 1, blob)
	if err == nil {
		t.Fatal("WriteBlob() should fail when the blob exceeds the page range capacity")
	}
	if kind, ok := storeerr.KindOf(err); !ok || kind != storeerr.MetadataTooLarge {
		t.Errorf("KindOf(err) = %v, %v; want MetadataTooLarge, true", kind, ok)
	}
}

// TestWriteBlobRejectsChecksumReservedBytes verifies WriteBlob's capacity
// excludes each page's trailing checksum bytes, not just page.Size.
func TestWriteBlobRejectsChecksumReservedBytes(t *testing.T) {
	pool, d := newTestPool(t, 4)
	start, _ := d.AllocatePage()

	blob := make([]byte, page.Size-3)
	if err := WriteBlob(pool, start, 1, blob); err == nil {
		t.Fatal("WriteBlob() should reject a blob that would spill into the checksum bytes")
	}
}

// TestWriteBlobSurvivesFlushAtPayloadBoundary fills a single page right up to
// its checksum-reserved bytes, flushes (which stamps the checksum over those
// reserved bytes), reopens the pool fresh, and confirms the full payload
// still reads back untouched.
func TestWriteBlobSurvivesFlushAtPayloadBoundary(t *testing.T) {
	pool, d := newTestPool(t, 4)
	start, _ := d.AllocatePage()

	blob := make([]byte, page.Size-4)
	for i := range blob {
		blob[i] = byte(i)
	}
	if err := WriteBlob(pool, start, 1, blob); err != nil {
		t.Fatalf("WriteBlob() error = %v", err)
	}
	if err := pool.FlushAll(); err != nil {
		t.Fatalf("FlushAll() error = %v", err)
	}

	fresh := New(d, 4)
	got, err := ReadBlob(fresh, start, 1)
	if err != nil {
		t.Fatalf("ReadBlob() error = %v", err)
	}
	if string(got) != string(blob) {
		t.Fatal("ReadBlob() payload was corrupted by the page checksum")
	}
}
