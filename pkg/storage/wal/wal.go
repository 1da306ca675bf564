package wal

import (
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/cuemby/ruzudb/pkg/log"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/storeerr"
)

// HeaderSize is the fixed WAL file header (spec.md §6).
const HeaderSize = 64

var walMagic = [8]byte{'R', 'U', 'Z', 'U', 'W', 'A', 'L', 0}

// Header is the fixed 64-byte WAL file preamble.
type Header struct {
	Version          uint32
	ChecksumsEnabled bool
	DatabaseUUID     uuid.UUID
	FirstLSN         uint64
	LastCheckpoint   uint64
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], walMagic[:])
	buf[8], buf[9], buf[10], buf[11] = byte(h.Version), byte(h.Version>>8), byte(h.Version>>16), byte(h.Version>>24)
	if h.ChecksumsEnabled {
		buf[12] = 1
	}
	copy(buf[16:32], h.DatabaseUUID[:])
	putU64(buf[32:40], h.FirstLSN)
	putU64(buf[40:48], h.LastCheckpoint)
	return buf
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func decodeHeader(buf []byte, dbUUID uuid.UUID) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, storeerr.New(storeerr.Corrupted, "WAL header shorter than fixed size")
	}
	if string(buf[0:8]) != string(walMagic[:]) {
		return Header{}, storeerr.New(storeerr.Corrupted, "WAL magic mismatch")
	}
	h := Header{
		Version:          readUint32(buf[8:12]),
		ChecksumsEnabled: buf[12] != 0,
		FirstLSN:         readUint64(buf[32:40]),
		LastCheckpoint:   readUint64(buf[40:48]),
	}
	copy(h.DatabaseUUID[:], buf[16:32])
	if h.DatabaseUUID != dbUUID {
		return Header{}, storeerr.New(storeerr.Corrupted, "WAL database UUID does not match main file")
	}
	return h, nil
}

// WAL is the append-only write-ahead log for one open database. A single
// writer owns it exclusively (spec.md §4.3, §5 "the WAL writer is owned
// exclusively by the writer path").
type WAL struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	header    Header
	checksums bool
	lastLSN   uint64
	buffered  []byte // records appended but not yet flushed

	// PendingReplay holds the records found in a pre-existing WAL file at
	// Open time, for the database orchestrator to apply and then discard via
	// Truncate (spec.md §4.3 replay).
	PendingReplay []Record
}

// Open creates or opens the WAL file at path. If the file is empty, a fresh
// header is written. dbUUID must match the main data file's UUID. If the
// file already held records, they are parsed (truncating at the first
// corrupt or incomplete tail record) and exposed via PendingReplay.
func Open(path string, dbUUID uuid.UUID, checksums bool) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, storeerr.Wrap(storeerr.IO, "open WAL file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, storeerr.Wrap(storeerr.IO, "stat WAL file", err)
	}

	w := &WAL{file: f, path: path}
	if info.Size() == 0 {
		w.header = Header{Version: 1, ChecksumsEnabled: checksums, DatabaseUUID: dbUUID}
		if _, err := f.WriteAt(w.header.encode(), 0); err != nil {
			f.Close()
			return nil, storeerr.Wrap(storeerr.IO, "write WAL header", err)
		}
		w.checksums = checksums
		return w, nil
	}

	headerBuf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		f.Close()
		return nil, storeerr.Wrap(storeerr.Corrupted, "read WAL header", err)
	}
	h, err := decodeHeader(headerBuf, dbUUID)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.header = h
	w.checksums = h.ChecksumsEnabled

	records, err := parseBody(f, h.ChecksumsEnabled)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.PendingReplay = records
	w.lastLSN = h.FirstLSN
	for _, rec := range records {
		if rec.LSN > w.lastLSN {
			w.lastLSN = rec.LSN
		}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, storeerr.Wrap(storeerr.IO, "seek WAL to end", err)
	}
	return w, nil
}

// Append adds one record to the in-memory buffer; it is not durable until
// Flush (normally called by Commit) succeeds.
func (w *WAL) Append(rec Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if rec.LSN > w.lastLSN {
		w.lastLSN = rec.LSN
	}
	w.buffered = append(w.buffered, encodeFrame(rec, w.checksums)...)
	metrics.WALAppendedRecordsTotal.WithLabelValues(rec.Type.String()).Inc()
	metrics.WALLastLSN.Set(float64(w.lastLSN))
}

// NextLSN returns the next LSN to assign, strictly greater than every LSN
// appended so far (spec.md §5: "each committed operation's WAL LSN is
// strictly greater than prior ones").
func (w *WAL) NextLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastLSN++
	return w.lastLSN
}

// Flush writes the buffered records to disk and fsyncs. Until it returns
// nil, none of the buffered records are durable (spec.md §4.3 write path).
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buffered) == 0 {
		return nil
	}
	timer := metrics.NewTimer()
	if _, err := w.file.Write(w.buffered); err != nil {
		return storeerr.Wrap(storeerr.IO, "append WAL records", err)
	}
	if err := w.file.Sync(); err != nil {
		return storeerr.Wrap(storeerr.IO, "fsync WAL", err)
	}
	timer.ObserveDuration(metrics.WALFlushDuration)
	w.buffered = w.buffered[:0]
	return nil
}

// Checkpoint appends a Checkpoint record (the caller is responsible for
// flushing dirty buffer-pool pages first, per spec.md §4.3 ordering) and
// flushes it durably.
func (w *WAL) Checkpoint(id uint64) error {
	w.Append(Record{Type: Checkpoint, LSN: w.NextLSN(), Payload: PayloadCheckpoint{ID: id}})
	return w.Flush()
}

// Truncate resets the WAL back to just its header, for use after a
// successful checkpoint (spec.md §4.3) or after a clean replay at open
// (spec.md §4.3 step 6).
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Truncate(HeaderSize); err != nil {
		return storeerr.Wrap(storeerr.IO, "truncate WAL", err)
	}
	if _, err := w.file.Seek(HeaderSize, io.SeekStart); err != nil {
		return storeerr.Wrap(storeerr.IO, "seek WAL after truncate", err)
	}
	w.buffered = w.buffered[:0]
	return nil
}

// Close syncs and closes the underlying file.
func (w *WAL) Close() error {
	if err := w.file.Sync(); err != nil {
		return storeerr.Wrap(storeerr.IO, "sync WAL on close", err)
	}
	return w.file.Close()
}

// Path returns the WAL file's path.
func (w *WAL) Path() string { return w.path }

// parseBody reads every well-formed record following the header in f,
// truncating at the last good record on corruption or an incomplete tail
// (spec.md §4.3 step 3). It reads from the file's current contents but does
// not modify its seek position's meaning for the caller (Open repositions to
// EOF afterward); it never itself truncates or writes.
func parseBody(f *os.File, checksums bool) ([]Record, error) {
	data, err := io.ReadAll(io.NewSectionReader(f, HeaderSize, 1<<62))
	if err != nil {
		return nil, storeerr.Wrap(storeerr.IO, "read WAL body for replay", err)
	}

	logger := log.WithComponent("wal")
	var records []Record
	buf := data
	for len(buf) > 0 {
		if len(buf) < 4 {
			logger.Warn().Int("trailing_bytes", len(buf)).Msg("truncating incomplete WAL tail")
			break
		}
		length := int(readUint32(buf[:4]))
		if length <= 0 || 4+length > len(buf) {
			logger.Warn().Int("trailing_bytes", len(buf)).Msg("truncating incomplete or invalid WAL record")
			break
		}
		rec, err := decodeFrame(buf[4:4+length], checksums)
		if err != nil {
			logger.Warn().Err(err).Msg("truncating WAL at first corrupt record")
			break
		}
		records = append(records, rec)
		buf = buf[4+length:]
	}
	return records, nil
}
