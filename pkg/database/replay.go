package database

import (
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/storage/nodetable"
	"github.com/cuemby/ruzudb/pkg/storage/reltable"
	"github.com/cuemby/ruzudb/pkg/storage/wal"
	"github.com/cuemby/ruzudb/pkg/storeerr"
)

// replay partitions records by transaction id, discards any transaction
// without a matching Commit, and applies the remaining committed
// transactions in LSN order to the catalog and node/relationship tables
// (spec.md §4.3 step 4).
func (db *Database) replay(records []wal.Record) error {
	byTxn := make(map[uint64][]wal.Record)
	committed := make(map[uint64]bool)
	order := make(map[uint64]uint64) // txn id -> lowest LSN seen, for ordering transactions

	for _, rec := range records {
		byTxn[rec.TxnID] = append(byTxn[rec.TxnID], rec)
		if lsn, seen := order[rec.TxnID]; !seen || rec.LSN < lsn {
			order[rec.TxnID] = rec.LSN
		}
		if rec.Type == wal.Commit {
			committed[rec.TxnID] = true
		}
	}

	txnIDs := make([]uint64, 0, len(byTxn))
	for id, recs := range byTxn {
		if !committed[id] {
			db.logger.Warn().Uint64("txn_id", id).Msg("discarding uncommitted transaction during replay")
			continue
		}
		txnIDs = append(txnIDs, id)
		_ = recs
	}
	sortByLowestLSN(txnIDs, order)

	for _, id := range txnIDs {
		recs := byTxn[id]
		sortByLSN(recs)
		for _, rec := range recs {
			if err := db.applyRecord(rec); err != nil {
				return storeerr.Wrap(storeerr.Corrupted, "apply WAL record during replay", err)
			}
		}
		metrics.WALReplayedTransactionsTotal.Inc()
	}
	return nil
}

func sortByLowestLSN(ids []uint64, order map[uint64]uint64) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && order[ids[j-1]] > order[ids[j]]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

func sortByLSN(recs []wal.Record) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j-1].LSN > recs[j].LSN; j-- {
			recs[j-1], recs[j] = recs[j], recs[j-1]
		}
	}
}

func (db *Database) applyRecord(rec wal.Record) error {
	switch rec.Type {
	case wal.BeginTransaction, wal.Commit, wal.Abort, wal.Checkpoint:
		return nil
	case wal.CreateNodeTable:
		p := rec.Payload.(wal.PayloadCreateNodeTable)
		if _, exists := db.catalog.NodeSchema(p.Schema.Name); exists {
			return nil
		}
		if err := db.catalog.CreateNodeTable(p.Schema); err != nil {
			return err
		}
		stored, _ := db.catalog.NodeSchema(p.Schema.Name)
		db.nodeTables.Put(nodetable.New(stored))
		return nil
	case wal.CreateRelTable:
		p := rec.Payload.(wal.PayloadCreateRelTable)
		if _, exists := db.catalog.RelSchema(p.Schema.Name); exists {
			return nil
		}
		if err := db.catalog.CreateRelTable(p.Schema); err != nil {
			return err
		}
		stored, _ := db.catalog.RelSchema(p.Schema.Name)
		db.relTables.Put(reltable.New(stored))
		return nil
	case wal.InsertNode:
		p := rec.Payload.(wal.PayloadInsertNode)
		t, ok := db.nodeTables.Tables[p.Table]
		if !ok {
			return storeerr.New(storeerr.Corrupted, "replayed insert into unknown node table").WithTable(p.Table)
		}
		_, err := t.Insert(p.Values)
		return err
	case wal.InsertRel:
		p := rec.Payload.(wal.PayloadInsertRel)
		rt, ok := db.relTables.Tables[p.Table]
		if !ok {
			return storeerr.New(storeerr.Corrupted, "replayed insert into unknown relationship table").WithTable(p.Table)
		}
		srcTable, ok := db.nodeTables.Tables[rt.Schema.FromTable]
		if !ok {
			return storeerr.New(storeerr.Corrupted, "replayed relationship references unknown source table").WithTable(rt.Schema.FromTable)
		}
		dstTable, ok := db.nodeTables.Tables[rt.Schema.ToTable]
		if !ok {
			return storeerr.New(storeerr.Corrupted, "replayed relationship references unknown destination table").WithTable(rt.Schema.ToTable)
		}
		_, err := rt.Insert(srcTable, dstTable, int(p.Src), int(p.Dst), p.Properties)
		return err
	default:
		return storeerr.New(storeerr.Corrupted, "unknown WAL record type during replay")
	}
}
