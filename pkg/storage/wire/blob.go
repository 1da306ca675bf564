package wire

import "github.com/cuemby/ruzudb/pkg/storeerr"

// LengthPrefix prepends a 4-byte little-endian length to payload, matching
// the page-level framing fixed by spec.md §6 ("first 4 bytes are a
// little-endian length; remaining bytes are a serialized map").
func LengthPrefix(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	putUint32(out, uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

// ParseLengthPrefix strips and validates the 4-byte length prefix added by
// LengthPrefix, returning the payload bytes.
func ParseLengthPrefix(buf []byte) ([]byte, error) {
	if len(buf) < 4 {
		return nil, storeerr.New(storeerr.Corrupted, "buffer too short for length prefix")
	}
	n := getUint32(buf)
	if int(n) > len(buf)-4 {
		return nil, storeerr.New(storeerr.Corrupted, "declared length exceeds buffer")
	}
	return buf[4 : 4+n], nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
