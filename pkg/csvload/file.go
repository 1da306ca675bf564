package csvload

import (
	"bytes"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/cuemby/ruzudb/pkg/log"
	"github.com/cuemby/ruzudb/pkg/storeerr"
)

// openedFile is a CSV source opened per spec.md §4.8 step 1: mmap'd if the
// file is at or above mmap_threshold and mapping succeeds, buffered
// otherwise. Close releases the mapping (if any) and the file handle.
type openedFile struct {
	f    *os.File
	m    mmap.MMap
	size int64
}

func openSource(path string, opts Options) (*openedFile, io.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, storeerr.Wrap(storeerr.IO, "open CSV file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, storeerr.Wrap(storeerr.IO, "stat CSV file", err)
	}

	of := &openedFile{f: f, size: info.Size()}

	if opts.UseMmap && info.Size() >= opts.MmapThreshold {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			log.WithComponent("csvload").Warn().Err(err).Str("path", path).Msg("mmap failed, falling back to buffered read")
		} else {
			of.m = m
			return of, bytes.NewReader(m), nil
		}
	}
	return of, io.NewSectionReader(f, 0, info.Size()), nil
}

func (of *openedFile) Close() error {
	var err error
	if of.m != nil {
		err = of.m.Unmap()
	}
	if cerr := of.f.Close(); err == nil {
		err = cerr
	}
	return err
}
