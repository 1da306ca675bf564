// Package wal implements the write-ahead log: record framing, the
// append/flush writer discipline, replay at open, and checkpointing
// (spec.md §3.3, §4.3).
package wal

import (
	"hash/crc32"

	"github.com/cuemby/ruzudb/pkg/storage/wire"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// RecordType identifies the payload carried by a Record.
type RecordType uint8

const (
	BeginTransaction RecordType = iota + 1
	Commit
	Abort
	CreateNodeTable
	CreateRelTable
	InsertNode
	InsertRel
	Checkpoint
)

func (t RecordType) String() string {
	switch t {
	case BeginTransaction:
		return "BeginTransaction"
	case Commit:
		return "Commit"
	case Abort:
		return "Abort"
	case CreateNodeTable:
		return "CreateNodeTable"
	case CreateRelTable:
		return "CreateRelTable"
	case InsertNode:
		return "InsertNode"
	case InsertRel:
		return "InsertRel"
	case Checkpoint:
		return "Checkpoint"
	default:
		return "Unknown"
	}
}

// Record is one WAL entry: transaction id, monotonic LSN, typed payload, and
// an optional trailing CRC32 (spec.md §6 WAL record framing).
type Record struct {
	Type    RecordType
	TxnID   uint64
	LSN     uint64
	Payload Payload
}

// Payload is implemented by every WAL record payload variant.
type Payload interface {
	encode(w *wire.Writer)
}

// PayloadNone covers BeginTransaction, Commit, Abort: no payload fields
// beyond the record header.
type PayloadNone struct{}

func (PayloadNone) encode(*wire.Writer) {}

// PayloadCheckpoint carries the checkpoint's own identifying LSN.
type PayloadCheckpoint struct {
	ID uint64
}

func (p PayloadCheckpoint) encode(w *wire.Writer) { w.WriteUint64(p.ID) }

// PayloadCreateNodeTable carries a node table schema to register on replay.
type PayloadCreateNodeTable struct {
	Schema *types.NodeSchema
}

func (p PayloadCreateNodeTable) encode(w *wire.Writer) { w.WriteNodeSchema(p.Schema) }

// PayloadCreateRelTable carries a relationship table schema to register on
// replay.
type PayloadCreateRelTable struct {
	Schema *types.RelSchema
}

func (p PayloadCreateRelTable) encode(w *wire.Writer) { w.WriteRelSchema(p.Schema) }

// PayloadInsertNode carries one row to insert into a node table on replay.
type PayloadInsertNode struct {
	Table  string
	Values map[string]types.Value
}

func (p PayloadInsertNode) encode(w *wire.Writer) {
	w.WriteString(p.Table)
	w.WriteUint64(uint64(len(p.Values)))
	for name, v := range p.Values {
		w.WriteString(name)
		w.WriteValue(v)
	}
}

// PayloadInsertRel carries one edge to insert into a relationship table on
// replay.
type PayloadInsertRel struct {
	Table      string
	Src        int64
	Dst        int64
	Properties []types.Value
}

func (p PayloadInsertRel) encode(w *wire.Writer) {
	w.WriteString(p.Table)
	w.WriteInt64(p.Src)
	w.WriteInt64(p.Dst)
	w.WriteUint64(uint64(len(p.Properties)))
	for _, v := range p.Properties {
		w.WriteValue(v)
	}
}

// encodePayload renders a typed payload to bytes under the given record
// type, so the reader knows which decoder to use.
func encodePayload(t RecordType, p Payload) []byte {
	w := wire.NewWriter()
	if p != nil {
		p.encode(w)
	}
	_ = t
	return w.Bytes()
}

func decodePayload(t RecordType, buf []byte) (Payload, error) {
	r := wire.NewReader(buf)
	var p Payload
	switch t {
	case BeginTransaction, Commit, Abort:
		p = PayloadNone{}
	case Checkpoint:
		p = PayloadCheckpoint{ID: r.ReadUint64()}
	case CreateNodeTable:
		p = PayloadCreateNodeTable{Schema: r.ReadNodeSchema()}
	case CreateRelTable:
		p = PayloadCreateRelTable{Schema: r.ReadRelSchema()}
	case InsertNode:
		table := r.ReadString()
		n := r.ReadUint64()
		values := make(map[string]types.Value, n)
		for i := uint64(0); i < n; i++ {
			name := r.ReadString()
			values[name] = r.ReadValue()
		}
		p = PayloadInsertNode{Table: table, Values: values}
	case InsertRel:
		table := r.ReadString()
		src := r.ReadInt64()
		dst := r.ReadInt64()
		n := r.ReadUint64()
		props := make([]types.Value, n)
		for i := range props {
			props[i] = r.ReadValue()
		}
		p = PayloadInsertRel{Table: table, Src: src, Dst: dst, Properties: props}
	default:
		return nil, storeerr.New(storeerr.Corrupted, "unknown WAL record type")
	}
	if r.Err() != nil {
		return nil, storeerr.Wrap(storeerr.Corrupted, "decode WAL record payload", r.Err())
	}
	return p, nil
}

// frameHeaderSize is the fixed portion before the payload: 4-byte length +
// 1-byte type + 3 reserved + 8-byte txn id + 8-byte LSN (spec.md §6).
const frameHeaderSize = 4 + 1 + 3 + 8 + 8

// crcSize is the trailing CRC32, present only when checksums are enabled.
const crcSize = 4

// encodeFrame renders a full record frame, including its length prefix and
// optional trailing CRC32.
func encodeFrame(rec Record, checksums bool) []byte {
	payload := encodePayload(rec.Type, rec.Payload)
	bodyLen := frameHeaderSize + len(payload)
	if checksums {
		bodyLen += crcSize
	}

	buf := make([]byte, 0, bodyLen)
	buf = appendUint32(buf, uint32(bodyLen))
	buf = append(buf, byte(rec.Type), 0, 0, 0)
	buf = appendUint64(buf, rec.TxnID)
	buf = appendUint64(buf, rec.LSN)
	buf = append(buf, payload...)
	if checksums {
		buf = appendUint32(buf, crc32.ChecksumIEEE(buf))
	}
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

func readUint32(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}

func readUint64(buf []byte) uint64 {
	return uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 |
		uint64(buf[4])<<32 | uint64(buf[5])<<40 | uint64(buf[6])<<48 | uint64(buf[7])<<56
}

// decodeFrame parses one complete frame body (everything after the 4-byte
// length prefix, up to and including the optional CRC32). It returns
// storeerr.Corrupted on a checksum mismatch.
func decodeFrame(body []byte, checksums bool) (Record, error) {
	if len(body) < frameHeaderSize {
		return Record{}, storeerr.New(storeerr.Corrupted, "WAL record shorter than its fixed header")
	}
	recType := RecordType(body[0])
	txnID := readUint64(body[4:12])
	lsn := readUint64(body[12:20])
	rest := body[frameHeaderSize:]

	if checksums {
		if len(rest) < crcSize {
			return Record{}, storeerr.New(storeerr.Corrupted, "WAL record missing trailing checksum")
		}
		payload := rest[:len(rest)-crcSize]
		stored := readUint32(rest[len(rest)-crcSize:])
		computed := crc32.ChecksumIEEE(body[:len(body)-crcSize])
		if stored != computed {
			return Record{}, storeerr.New(storeerr.Corrupted, "WAL record checksum mismatch")
		}
		rest = payload
	}

	p, err := decodePayload(recType, rest)
	if err != nil {
		return Record{}, err
	}
	return Record{Type: recType, TxnID: txnID, LSN: lsn, Payload: p}, nil
}
