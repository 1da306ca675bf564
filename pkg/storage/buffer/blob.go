package buffer

import (
	"github.com/cuemby/ruzudb/pkg/storage/page"
	"github.com/cuemby/ruzudb/pkg/storeerr"
)

// payloadSize is the portion of each page available to blob data; the
// trailing 4 bytes are reserved for the checksum the disk manager stamps
// into every page on write (page.PutChecksum), so a blob must never use them.
const payloadSize = page.Size - 4

// WriteBlob writes blob across count consecutive pages starting at start,
// zero-padding any trailing space (spec.md §6: "unused trailing bytes are
// zero"). blob is expected to already carry its own leading length prefix.
// Each page's last 4 bytes are left untouched here and overwritten with
// that page's checksum when it is flushed.
func WriteBlob(p *Pool, start page.ID, count int64, blob []byte) error {
	capacity := count * payloadSize
	if int64(len(blob)) > capacity {
		return storeerr.New(storeerr.MetadataTooLarge, "serialized metadata exceeds page range capacity")
	}

	for i := int64(0); i < count; i++ {
		id := start + page.ID(i)
		h, err := p.Pin(id)
		if err != nil {
			return err
		}
		pg := h.Page()
		for j := 0; j < payloadSize; j++ {
			pg[j] = 0
		}
		off := i * payloadSize
		end := off + payloadSize
		if end > int64(len(blob)) {
			end = int64(len(blob))
		}
		if off < int64(len(blob)) {
			copy(pg[:payloadSize], blob[off:end])
		}
		p.Unpin(h, true)
	}
	return nil
}

// ReadBlob reads count consecutive pages starting at start and returns their
// concatenated payload bytes (including any leading length prefix written by
// WriteBlob / trailing zero padding), excluding each page's checksum bytes.
func ReadBlob(p *Pool, start page.ID, count int64) ([]byte, error) {
	out := make([]byte, 0, count*payloadSize)
	for i := int64(0); i < count; i++ {
		id := start + page.ID(i)
		h, err := p.Pin(id)
		if err != nil {
			return nil, err
		}
		out = append(out, h.Page()[:payloadSize]...)
		p.Unpin(h, false)
	}
	return out, nil
}
