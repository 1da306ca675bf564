package wal

import (
	"testing"

	"github.com/cuemby/ruzudb/pkg/types"
)

func TestRecordTypeString(t *testing.T) {
	tests := []struct {
		rt   RecordType
		want string
	}{
		{BeginTransaction, "BeginTransaction"},
		{Commit, "Commit"},
		{Abort, "Abort"},
		{InsertNode, "InsertNode"},
		{RecordType(255), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.rt.String(); got != tt.want {
			t.Errorf("RecordType(%d).String() = %q, want %q", tt.rt, got, tt.want)
		}
	}
}

func TestEncodeDecodeFrameNoPayload(t *testing.T) {
	rec := Record{Type: Commit, TxnID: 1, LSN: 2, Payload: PayloadNone{}}
	frame := encodeFrame(rec, true)

	bodyLen := readUint32(frame[:4])
	if int(bodyLen) != len(frame)-4 {
		t.Fatalf("length prefix = %d, want %d", bodyLen, len(frame)-4)
	}

	got, err := decodeFrame(frame[4:], true)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if got.Type != Commit || got.TxnID != 1 || got.LSN != 2 {
		t.Errorf("decodeFrame() = %+v, want Type=Commit TxnID=1 LSN=2", got)
	}
}

func TestEncodeDecodeFrameWithPayload(t *testing.T) {
	rec := Record{
		Type:  InsertNode,
		TxnID: 5,
		LSN:   9,
		Payload: PayloadInsertNode{
			Table:  "person",
			Values: map[string]types.Value{"id": types.Int64(1), "name": types.String("ann")},
		},
	}
	frame := encodeFrame(rec, true)
	got, err := decodeFrame(frame[4:], true)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}

	p, ok := got.Payload.(PayloadInsertNode)
	if !ok {
		t.Fatalf("decoded payload type = %T, want PayloadInsertNode", got.Payload)
	}
	if p.Table != "person" {
		t.Errorf("Table = %q, want person", p.Table)
	}
	if !p.Values["id"].Equal(types.Int64(1)) || !p.Values["name"].Equal(types.String("ann")) {
		t.Errorf("Values did not round-trip: %+v", p.Values)
	}
}

func TestEncodeDecodeFrameInsertRel(t *testing.T) {
	rec := Record{
		Type:  InsertRel,
		TxnID: 1,
		LSN:   1,
		Payload: PayloadInsertRel{
			Table:      "knows",
			Src:        3,
			Dst:        4,
			Properties: []types.Value{types.Float64(1.5)},
		},
	}
	frame := encodeFrame(rec, false)
	got, err := decodeFrame(frame[4:], false)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	p := got.Payload.(PayloadInsertRel)
	if p.Table != "knows" || p.Src != 3 || p.Dst != 4 {
		t.Errorf("decoded payload = %+v", p)
	}
	if len(p.Properties) != 1 || !p.Properties[0].Equal(types.Float64(1.5)) {
		t.Errorf("decoded properties = %+v", p.Properties)
	}
}

func TestDecodeFrameDetectsChecksumMismatch(t *testing.T) {
	rec := Record{Type: Commit, TxnID: 1, LSN: 1, Payload: PayloadNone{}}
	frame := encodeFrame(rec, true)
	frame[len(frame)-1] ^= 0xFF // corrupt the trailing checksum byte

	_, err := decodeFrame(frame[4:], true)
	if err == nil {
		t.Fatal("decodeFrame() should detect a corrupted checksum")
	}
}

func TestDecodeFrameRejectsShortBody(t *testing.T) {
	_, err := decodeFrame([]byte{1, 2, 3}, false)
	if err == nil {
		t.Fatal("decodeFrame() should reject a body shorter than the fixed header")
	}
}

func TestDecodeFrameWithoutChecksums(t *testing.T) {
	rec := Record{Type: CreateNodeTable, TxnID: 1, LSN: 1, Payload: PayloadCreateNodeTable{
		Schema: &types.NodeSchema{Name: "person", Columns: []types.Column{{Name: "id", Type: types.KindInt64}}, PrimaryKey: []string{"id"}},
	}}
	frame := encodeFrame(rec, false)
	got, err := decodeFrame(frame[4:], false)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	p := got.Payload.(PayloadCreateNodeTable)
	if p.Schema.Name != "person" {
		t.Errorf("decoded schema name = %q, want person", p.Schema.Name)
	}
}
