package wire

import (
	"testing"

	"github.com/cuemby/ruzudb/pkg/types"
)

func TestScalarRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteUint64(42)
	w.WriteInt64(-7)
	w.WriteBool(true)
	w.WriteFloat64(3.25)
	w.WriteString("hello")
	w.WriteBytes([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	if got := r.ReadUint64(); got != 42 {
		t.Errorf("ReadUint64() = %d, want 42", got)
	}
	if got := r.ReadInt64(); got != -7 {
		t.Errorf("ReadInt64() = %d, want -7", got)
	}
	if got := r.ReadBool(); got != true {
		t.Errorf("ReadBool() = %v, want true", got)
	}
	if got := r.ReadFloat64(); got != 3.25 {
		t.Errorf("ReadFloat64() = %v, want 3.25", got)
	}
	if got := r.ReadString(); got != "hello" {
		t.Errorf("ReadString() = %q, want hello", got)
	}
	if got := r.ReadBytes(); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("ReadBytes() = %v", got)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}
}

func TestReadUint64TruncatedBufferFails(t *testing.T) {
	r := NewReader([]byte{0x80}) // incomplete varint continuation byte
	r.ReadUint64()
	if r.Err() == nil {
		t.Fatal("ReadUint64() on a truncated varint should set Err()")
	}
}

func TestReaderShortCircuitsAfterFirstError(t *testing.T) {
	r := NewReader([]byte{0x80})
	r.ReadUint64()
	if got := r.ReadString(); got != "" {
		t.Errorf("ReadString() after a prior error should return zero value, got %q", got)
	}
}

func TestValueRoundTripAllKinds(t *testing.T) {
	values := []types.Value{
		types.Null(),
		types.Int64(-123),
		types.Float64(2.5),
		types.Bool(true),
		types.String("graph"),
		types.Date(19000),
		types.Timestamp(1700000000),
	}

	w := NewWriter()
	for _, v := range values {
		w.WriteValue(v)
	}

	r := NewReader(w.Bytes())
	for _, want := range values {
		got := r.ReadValue()
		if !got.Equal(want) {
			t.Errorf("ReadValue() = %v, want %v", got, want)
		}
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestLengthPrefixRoundTrip(t *testing.T) {
	payload := []byte("some catalog bytes")
	framed := LengthPrefix(payload)

	got, err := ParseLengthPrefix(framed)
	if err != nil {
		t.Fatalf("ParseLengthPrefix() error = %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("ParseLengthPrefix() = %q, want %q", got, payload)
	}
}

func TestParseLengthPrefixRejectsShortBuffer(t *testing.T) {
	if _, err := ParseLengthPrefix([]byte{1, 2}); err == nil {
		t.Fatal("ParseLengthPrefix() should reject a buffer shorter than 4 bytes")
	}
}

func TestParseLengthPrefixRejectsOverstatedLength(t *testing.T) {
	buf := LengthPrefix([]byte("abc"))
	buf = buf[:len(buf)-1] // truncate the payload after framing its length
	if _, err := ParseLengthPrefix(buf); err == nil {
		t.Fatal("ParseLengthPrefix() should reject a declared length exceeding the buffer")
	}
}
