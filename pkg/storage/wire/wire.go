// Package wire implements the length-prefixed binary encoding used to
// persist the catalog and node/relationship table data (spec.md §4.4–§4.6,
// §9 "length-prefixed binary encoding... the specific encoding is an
// implementation choice"). It is built on protobuf's low-level wire
// primitives (google.golang.org/protobuf/encoding/protowire) rather than
// full generated messages: there is no .proto schema, just a sequential,
// versioned field order, which keeps the format small and allocation-light
// while still reusing a real wire-format library instead of hand-rolling
// varint encoding.
package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// Writer appends fields to a growing byte slice in a fixed, known order.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteUint64 appends an unsigned varint.
func (w *Writer) WriteUint64(v uint64) { w.buf = protowire.AppendVarint(w.buf, v) }

// WriteInt64 appends a zig-zag encoded signed varint.
func (w *Writer) WriteInt64(v int64) {
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(v))
}

// WriteBool appends a single-byte boolean.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = protowire.AppendVarint(w.buf, 1)
	} else {
		w.buf = protowire.AppendVarint(w.buf, 0)
	}
}

// WriteFloat64 appends a fixed64 IEEE-754 double.
func (w *Writer) WriteFloat64(v float64) {
	w.buf = protowire.AppendFixed64(w.buf, math.Float64bits(v))
}

// WriteString appends a length-delimited UTF-8 string.
func (w *Writer) WriteString(s string) {
	w.buf = protowire.AppendString(w.buf, s)
}

// WriteBytes appends a length-delimited byte slice.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = protowire.AppendBytes(w.buf, b)
}

// Reader consumes fields from a byte slice in the same fixed order a Writer
// produced them.
type Reader struct {
	buf []byte
	err error
}

// NewReader wraps buf for sequential consumption.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Remaining reports how many bytes are left unconsumed.
func (r *Reader) Remaining() int { return len(r.buf) }

func (r *Reader) fail() {
	if r.err == nil {
		r.err = storeerr.New(storeerr.Corrupted, "truncated or malformed wire encoding")
	}
}

// ReadUint64 consumes an unsigned varint.
func (r *Reader) ReadUint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := protowire.ConsumeVarint(r.buf)
	if n < 0 {
		r.fail()
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

// ReadInt64 consumes a zig-zag encoded signed varint.
func (r *Reader) ReadInt64() int64 {
	return protowire.DecodeZigZag(r.ReadUint64())
}

// ReadBool consumes a single-byte boolean.
func (r *Reader) ReadBool() bool {
	return r.ReadUint64() != 0
}

// ReadFloat64 consumes a fixed64 IEEE-754 double.
func (r *Reader) ReadFloat64() float64 {
	if r.err != nil {
		return 0
	}
	v, n := protowire.ConsumeFixed64(r.buf)
	if n < 0 {
		r.fail()
		return 0
	}
	r.buf = r.buf[n:]
	return math.Float64frombits(v)
}

// ReadString consumes a length-delimited UTF-8 string.
func (r *Reader) ReadString() string {
	if r.err != nil {
		return ""
	}
	v, n := protowire.ConsumeString(r.buf)
	if n < 0 {
		r.fail()
		return ""
	}
	r.buf = r.buf[n:]
	return v
}

// ReadBytes consumes a length-delimited byte slice.
func (r *Reader) ReadBytes() []byte {
	if r.err != nil {
		return nil
	}
	v, n := protowire.ConsumeBytes(r.buf)
	if n < 0 {
		r.fail()
		return nil
	}
	r.buf = r.buf[n:]
	return v
}

// WriteValue appends a types.Value as a kind byte followed by its payload.
func (w *Writer) WriteValue(v types.Value) {
	w.WriteUint64(uint64(v.Kind()))
	switch v.Kind() {
	case types.KindNull:
	case types.KindInt64:
		w.WriteInt64(v.AsInt64())
	case types.KindFloat64:
		w.WriteFloat64(v.AsFloat64())
	case types.KindBool:
		w.WriteBool(v.AsBool())
	case types.KindString:
		w.WriteString(v.AsString())
	case types.KindDate:
		w.WriteInt64(int64(v.AsDate()))
	case types.KindTimestamp:
		w.WriteInt64(v.AsTimestamp())
	}
}

// ReadValue consumes a types.Value written by WriteValue.
func (r *Reader) ReadValue() types.Value {
	kind := types.Kind(r.ReadUint64())
	switch kind {
	case types.KindNull:
		return types.Null()
	case types.KindInt64:
		return types.Int64(r.ReadInt64())
	case types.KindFloat64:
		return types.Float64(r.ReadFloat64())
	case types.KindBool:
		return types.Bool(r.ReadBool())
	case types.KindString:
		return types.String(r.ReadString())
	case types.KindDate:
		return types.Date(int32(r.ReadInt64()))
	case types.KindTimestamp:
		return types.Timestamp(r.ReadInt64())
	default:
		r.fail()
		return types.Null()
	}
}
