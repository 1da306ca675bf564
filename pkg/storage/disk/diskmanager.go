// Package disk implements fixed-size page I/O against a single backing file
// (spec.md §4.1).
package disk

import (
	"os"
	"sync"

	"github.com/cuemby/ruzudb/pkg/log"
	"github.com/cuemby/ruzudb/pkg/storage/page"
	"github.com/cuemby/ruzudb/pkg/storeerr"
)

// Manager provides read_page/write_page/allocate_page/sync against one
// backing file. It is stateless apart from the open handle and the
// next-free-page high-water mark (spec.md §4.1).
type Manager struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	nextPage page.ID
}

// Open opens path, creating it if absent, and positions the next-free-page
// high-water mark at the end of the existing file (spec.md §4.1).
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, storeerr.Wrap(storeerr.IO, "open data file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, storeerr.Wrap(storeerr.IO, "stat data file", err)
	}

	size := info.Size()
	if size%page.Size != 0 {
		// Truncate-extend to a multiple of the page size (spec.md §4.1).
		padded := (size/page.Size + 1) * page.Size
		if err := f.Truncate(padded); err != nil {
			f.Close()
			return nil, storeerr.Wrap(storeerr.IO, "extend data file to page boundary", err)
		}
		size = padded
	}

	m := &Manager{
		file:     f,
		path:     path,
		nextPage: page.ID(size / page.Size),
	}
	log.WithComponent("disk").Debug().Str("path", path).Int64("pages", int64(m.nextPage)).Msg("disk manager opened")
	return m, nil
}

// ReadPage reads exactly one page. A read past the current EOF, or into a
// page whose stored checksum doesn't verify, surfaces as Corrupted.
func (m *Manager) ReadPage(id page.ID) (*page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id < 0 || id >= m.nextPage {
		return nil, storeerr.New(storeerr.Corrupted, "read past end of file").WithPage(int64(id))
	}

	p := page.New()
	off := int64(id) * page.Size
	if _, err := m.file.ReadAt(p[:], off); err != nil {
		return nil, storeerr.Wrap(storeerr.IO, "read page", err).WithPage(int64(id))
	}
	if !p.VerifyChecksum() {
		return nil, storeerr.New(storeerr.Corrupted, "page checksum mismatch").WithPage(int64(id))
	}
	return p, nil
}

// WritePage writes exactly one page, stamping its checksum first.
func (m *Manager) WritePage(id page.ID, p *page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writePageLocked(id, p)
}

func (m *Manager) writePageLocked(id page.ID, p *page.Page) error {
	if id < 0 {
		return storeerr.New(storeerr.Internal, "negative page id").WithPage(int64(id))
	}
	p.PutChecksum()
	off := int64(id) * page.Size
	if _, err := m.file.WriteAt(p[:], off); err != nil {
		return storeerr.Wrap(storeerr.IO, "write page", err).WithPage(int64(id))
	}
	if id >= m.nextPage {
		m.nextPage = id + 1
	}
	return nil
}

// AllocatePage reserves the next free page index, growing the file.
func (m *Manager) AllocatePage() (page.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextPage
	blank := page.New()
	if err := m.writePageLocked(id, blank); err != nil {
		return page.Invalid, err
	}
	return id, nil
}

// NextPage reports the current next-free-page high-water mark.
func (m *Manager) NextPage() page.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextPage
}

// Sync fsyncs the backing file.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.file.Sync(); err != nil {
		return storeerr.Wrap(storeerr.IO, "fsync data file", err)
	}
	return nil
}

// Close closes the backing file handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.file.Close(); err != nil {
		return storeerr.Wrap(storeerr.IO, "close data file", err)
	}
	return nil
}

// Path returns the backing file's path.
func (m *Manager) Path() string { return m.path }
