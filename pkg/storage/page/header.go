package page

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/cuemby/ruzudb/pkg/storeerr"
)

// Magic is the 8-byte signature stamped at offset 0 of page 0 (spec.md §6).
var Magic = [8]byte{'R', 'U', 'Z', 'U', 'D', 'B', 0, 0}

// CurrentVersion is the header layout version this package writes. Version 1
// is the legacy layout that omits the rel-metadata range (spec.md §4.4).
const CurrentVersion uint32 = 2

// Range is a contiguous run of pages: [Start, Start+Count).
type Range struct {
	Start ID
	Count int64
}

// Empty reports whether the range has no pages (used for an unused
// rel-metadata range on a migrated version-1 header).
func (r Range) Empty() bool { return r.Count == 0 }

// Header is the decoded form of page 0 (spec.md §3.2, §6).
type Header struct {
	Version uint32
	UUID    uuid.UUID

	CatalogRange  Range
	NodeMetaRange Range
	RelMetaRange  Range // zero value for a migrated version-1 database

	NextFreePage ID
	NextNodeID   uint64
	NextRelID    uint64
}

// NewHeader builds a fresh current-version header for a newly created
// database, given the fixed page ranges assigned at creation time.
func NewHeader(dbUUID uuid.UUID, catalog, nodeMeta, relMeta Range, nextFree ID) *Header {
	return &Header{
		Version:       CurrentVersion,
		UUID:          dbUUID,
		CatalogRange:  catalog,
		NodeMetaRange: nodeMeta,
		RelMetaRange:  relMeta,
		NextFreePage:  nextFree,
	}
}

// Encode serializes the header into page 0, always in the current-version
// layout (spec.md §4.4: "Writers only emit current-version layout").
func (h *Header) Encode() *Page {
	p := New()
	b := p[:]

	copy(b[0:8], Magic[:])
	binary.LittleEndian.PutUint32(b[8:12], CurrentVersion)
	// bytes 12:16 reserved, left zero

	copy(b[16:32], h.UUID[:])

	binary.LittleEndian.PutUint32(b[32:36], uint32(h.CatalogRange.Start))
	binary.LittleEndian.PutUint32(b[36:40], uint32(h.CatalogRange.Count))
	binary.LittleEndian.PutUint32(b[40:44], uint32(h.NodeMetaRange.Start))
	binary.LittleEndian.PutUint32(b[44:48], uint32(h.NodeMetaRange.Count))
	binary.LittleEndian.PutUint32(b[48:52], uint32(h.RelMetaRange.Start))
	binary.LittleEndian.PutUint32(b[52:56], uint32(h.RelMetaRange.Count))

	binary.LittleEndian.PutUint64(b[56:64], uint64(h.NextFreePage))
	binary.LittleEndian.PutUint64(b[64:72], h.NextNodeID)
	binary.LittleEndian.PutUint64(b[72:80], h.NextRelID)

	crc := crc32.ChecksumIEEE(b[0:80])
	binary.LittleEndian.PutUint32(b[80:84], crc)
	// bytes 84:4096 zero padding

	return p
}

// Decode parses page 0, tolerating the version-1 layout (spec.md §4.4: the
// migration constructs a version-2 Header in memory with an empty
// RelMetaRange; the caller is responsible for persisting the upgrade on the
// next save).
func Decode(p *Page) (*Header, error) {
	b := p[:]

	if string(b[0:8]) != string(Magic[:]) {
		return nil, storeerr.New(storeerr.Corrupted, "header magic mismatch")
	}
	version := binary.LittleEndian.Uint32(b[8:12])

	switch version {
	case 1:
		return decodeV1(b)
	case 2:
		return decodeV2(b)
	default:
		if version > CurrentVersion {
			return nil, storeerr.New(storeerr.UnsupportedVersion, "header version newer than implementation")
		}
		return nil, storeerr.New(storeerr.Corrupted, "unrecognized header version")
	}
}

func decodeV2(b []byte) (*Header, error) {
	crc := crc32.ChecksumIEEE(b[0:80])
	stored := binary.LittleEndian.Uint32(b[80:84])
	if crc != stored {
		return nil, storeerr.New(storeerr.Corrupted, "header checksum mismatch")
	}

	h := &Header{Version: 2}
	copy(h.UUID[:], b[16:32])
	h.CatalogRange = Range{Start: ID(binary.LittleEndian.Uint32(b[32:36])), Count: int64(binary.LittleEndian.Uint32(b[36:40]))}
	h.NodeMetaRange = Range{Start: ID(binary.LittleEndian.Uint32(b[40:44])), Count: int64(binary.LittleEndian.Uint32(b[44:48]))}
	h.RelMetaRange = Range{Start: ID(binary.LittleEndian.Uint32(b[48:52])), Count: int64(binary.LittleEndian.Uint32(b[52:56]))}
	h.NextFreePage = ID(binary.LittleEndian.Uint64(b[56:64]))
	h.NextNodeID = binary.LittleEndian.Uint64(b[64:72])
	h.NextRelID = binary.LittleEndian.Uint64(b[72:80])
	return h, nil
}

// decodeV1 parses the legacy layout, which omits the rel-metadata range: the
// fields after node-metadata count shift left by 8 bytes relative to the v2
// layout, and the trailing checksum covers only the shorter v1 body.
func decodeV1(b []byte) (*Header, error) {
	crc := crc32.ChecksumIEEE(b[0:72])
	stored := binary.LittleEndian.Uint32(b[72:76])
	if crc != stored {
		return nil, storeerr.New(storeerr.Corrupted, "header checksum mismatch")
	}

	h := &Header{Version: 2} // migrated in memory to the current layout
	copy(h.UUID[:], b[16:32])
	h.CatalogRange = Range{Start: ID(binary.LittleEndian.Uint32(b[32:36])), Count: int64(binary.LittleEndian.Uint32(b[36:40]))}
	h.NodeMetaRange = Range{Start: ID(binary.LittleEndian.Uint32(b[40:44])), Count: int64(binary.LittleEndian.Uint32(b[44:48]))}
	h.RelMetaRange = Range{} // empty: no rel-metadata range in a v1 database
	h.NextFreePage = ID(binary.LittleEndian.Uint64(b[48:56]))
	h.NextNodeID = binary.LittleEndian.Uint64(b[56:64])
	h.NextRelID = binary.LittleEndian.Uint64(b[64:72])
	return h, nil
}
