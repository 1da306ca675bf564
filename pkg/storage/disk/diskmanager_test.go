package disk

import (
	"path/filepath"
	"testing"

	"github.com/cuemby/ruzudb/pkg/storage/page"
	"github.com/cuemby/ruzudb/pkg/storeerr"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestAllocateThenWriteThenRead(t *testing.T) {
	m := openTestManager(t)

	id, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error = %v", err)
	}

	p := page.New()
	copy(p[:], []byte("payload"))
	if err := m.WritePage(id, p); err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}

	got, err := m.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage() error = %v", err)
	}
	if string(got[:7]) != "payload" {
		t.Errorf("ReadPage() payload = %q, want %q", got[:7], "payload")
	}
}

func TestReadPastEndOfFile(t *testing.T) {
	m := openTestManager(t)
	_, err := m.ReadPage(99)
	if err == nil {
		t.Fatal("ReadPage() past EOF should fail")
	}
	if kind, ok := storeerr.KindOf(err); !ok || kind != storeerr.Corrupted {
		t.Errorf("KindOf(err) = %v, %v; want Corrupted, true", kind, ok)
	}
}

func TestAllocatePageGrowsNextPage(t *testing.T) {
	m := openTestManager(t)
	start := m.NextPage()

	id1, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error = %v", err)
	}
	id2, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error = %v", err)
	}

	if id1 != start || id2 != start+1 {
		t.Errorf("AllocatePage() ids = %d, %d; want %d, %d", id1, id2, start, start+1)
	}
	if m.NextPage() != start+2 {
		t.Errorf("NextPage() = %d, want %d", m.NextPage(), start+2)
	}
}

func TestReopenPreservesNextPageHighWaterMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	m.AllocatePage()
	m.AllocatePage()
	want := m.NextPage()
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	m2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	defer m2.Close()
	if m2.NextPage() != want {
		t.Errorf("reopened NextPage() = %d, want %d", m2.NextPage(), want)
	}
}

func TestCorruptedChecksumDetected(t *testing.T) {
	m := openTestManager(t)
	id, _ := m.AllocatePage()

	p := page.New()
	copy(p[:], []byte("data"))
	m.WritePage(id, p)

	// Corrupt the payload directly on disk, bypassing WritePage so no fresh
	// checksum is stamped: the page's checksum was computed before the
	// corruption.
	bad := page.New()
	copy(bad[:], []byte("data"))
	bad.PutChecksum()
	bad[0] ^= 0xFF
	if _, err := m.file.WriteAt(bad[:], int64(id)*page.Size); err != nil {
		t.Fatalf("direct write error = %v", err)
	}

	_, err := m.ReadPage(id)
	if err == nil {
		t.Fatal("ReadPage() should detect checksum mismatch")
	}
	if kind, ok := storeerr.KindOf(err); !ok || kind != storeerr.Corrupted {
		t.Errorf("KindOf(err) = %v, %v; want Corrupted, true", kind, ok)
	}
}
