package database

import (
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/storage/nodetable"
	"github.com/cuemby/ruzudb/pkg/storage/reltable"
	"github.com/cuemby/ruzudb/pkg/storage/wal"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// CreateNodeTable registers a node schema, durably logging the operation
// before applying it in memory (spec.md §4.7: "mutates in-memory state only
// after the WAL flush succeeds").
func (db *Database) CreateNodeTable(schema *types.NodeSchema) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.catalog.CanCreateNodeTable(schema); err != nil {
		return err
	}

	txn := db.wal.NextLSN()
	db.wal.Append(wal.Record{Type: wal.BeginTransaction, TxnID: txn, LSN: db.wal.NextLSN()})
	db.wal.Append(wal.Record{Type: wal.CreateNodeTable, TxnID: txn, LSN: db.wal.NextLSN(), Payload: wal.PayloadCreateNodeTable{Schema: schema}})
	db.wal.Append(wal.Record{Type: wal.Commit, TxnID: txn, LSN: db.wal.NextLSN()})
	if err := db.wal.Flush(); err != nil {
		return err
	}

	if err := db.catalog.CreateNodeTable(schema); err != nil {
		return err
	}
	stored, _ := db.catalog.NodeSchema(schema.Name)
	db.nodeTables.Put(nodetable.New(stored))
	return nil
}

// CreateRelTable registers a relationship schema under the same WAL-then-
// apply discipline as CreateNodeTable.
func (db *Database) CreateRelTable(schema *types.RelSchema) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.catalog.CanCreateRelTable(schema); err != nil {
		return err
	}

	txn := db.wal.NextLSN()
	db.wal.Append(wal.Record{Type: wal.BeginTransaction, TxnID: txn, LSN: db.wal.NextLSN()})
	db.wal.Append(wal.Record{Type: wal.CreateRelTable, TxnID: txn, LSN: db.wal.NextLSN(), Payload: wal.PayloadCreateRelTable{Schema: schema}})
	db.wal.Append(wal.Record{Type: wal.Commit, TxnID: txn, LSN: db.wal.NextLSN()})
	if err := db.wal.Flush(); err != nil {
		return err
	}

	if err := db.catalog.CreateRelTable(schema); err != nil {
		return err
	}
	stored, _ := db.catalog.RelSchema(schema.Name)
	db.relTables.Put(reltable.New(stored))
	return nil
}

// InsertNode inserts one row into table, returning its stable row offset.
func (db *Database) InsertNode(table string, row map[string]types.Value) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.nodeTables.Tables[table]
	if !ok {
		return -1, storeerr.New(storeerr.Schema, "node table does not exist").WithTable(table)
	}
	if err := t.CanInsert(row); err != nil {
		return -1, err
	}

	txn := db.wal.NextLSN()
	db.wal.Append(wal.Record{Type: wal.BeginTransaction, TxnID: txn, LSN: db.wal.NextLSN()})
	db.wal.Append(wal.Record{Type: wal.InsertNode, TxnID: txn, LSN: db.wal.NextLSN(), Payload: wal.PayloadInsertNode{Table: table, Values: row}})
	db.wal.Append(wal.Record{Type: wal.Commit, TxnID: txn, LSN: db.wal.NextLSN()})
	if err := db.wal.Flush(); err != nil {
		return -1, err
	}

	offset, err := t.Insert(row)
	if err != nil {
		// CanInsert already accepted row; this would only fail from a data
		// race the single-writer model rules out.
		return -1, err
	}
	metrics.NodeTableRowsTotal.WithLabelValues(table).Set(float64(t.RowCount()))
	return offset, nil
}

// InsertRel inserts one edge into table.
func (db *Database) InsertRel(table string, src, dst int, properties []types.Value) (uint64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rt, ok := db.relTables.Tables[table]
	if !ok {
		return 0, storeerr.New(storeerr.Schema, "relationship table does not exist").WithTable(table)
	}
	schema := rt.Schema
	srcTable, ok := db.nodeTables.Tables[schema.FromTable]
	if !ok {
		return 0, storeerr.New(storeerr.Schema, "source node table does not exist").WithTable(schema.FromTable)
	}
	dstTable, ok := db.nodeTables.Tables[schema.ToTable]
	if !ok {
		return 0, storeerr.New(storeerr.Schema, "destination node table does not exist").WithTable(schema.ToTable)
	}

	if err := rt.CanInsert(srcTable, dstTable, src, dst, properties); err != nil {
		return 0, err
	}

	txn := db.wal.NextLSN()
	db.wal.Append(wal.Record{Type: wal.BeginTransaction, TxnID: txn, LSN: db.wal.NextLSN()})
	db.wal.Append(wal.Record{Type: wal.InsertRel, TxnID: txn, LSN: db.wal.NextLSN(), Payload: wal.PayloadInsertRel{
		Table: table, Src: int64(src), Dst: int64(dst), Properties: properties,
	}})
	db.wal.Append(wal.Record{Type: wal.Commit, TxnID: txn, LSN: db.wal.NextLSN()})
	if err := db.wal.Flush(); err != nil {
		return 0, err
	}

	relID, err := rt.Insert(srcTable, dstTable, src, dst, properties)
	if err != nil {
		return 0, err
	}
	metrics.RelTableEdgesTotal.WithLabelValues(table).Set(float64(rt.EdgeCount()))
	return relID, nil
}

// ScanNodes returns every row of table in insertion order.
func (db *Database) ScanNodes(table string) ([]map[string]types.Value, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.nodeTables.Tables[table]
	if !ok {
		return nil, storeerr.New(storeerr.Schema, "node table does not exist").WithTable(table)
	}
	return t.Scan(), nil
}

// ForwardNeighbors returns the (destination offset, rel id) pairs for src in
// relTable.
func (db *Database) ForwardNeighbors(relTable string, src int) ([]reltable.Edge, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	rt, ok := db.relTables.Tables[relTable]
	if !ok {
		return nil, storeerr.New(storeerr.Schema, "relationship table does not exist").WithTable(relTable)
	}
	return rt.ForwardNeighbors(src), nil
}

// BackwardNeighbors returns the (source offset, rel id) pairs for dst in
// relTable.
func (db *Database) BackwardNeighbors(relTable string, dst int) ([]reltable.Edge, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	rt, ok := db.relTables.Tables[relTable]
	if !ok {
		return nil, storeerr.New(storeerr.Schema, "relationship table does not exist").WithTable(relTable)
	}
	return rt.BackwardNeighbors(dst), nil
}

// GetProperties returns the property values recorded for relID in relTable.
func (db *Database) GetProperties(relTable string, relID uint64) ([]types.Value, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	rt, ok := db.relTables.Tables[relTable]
	if !ok {
		return nil, storeerr.New(storeerr.Schema, "relationship table does not exist").WithTable(relTable)
	}
	props, ok := rt.GetProperties(relID)
	if !ok {
		return nil, storeerr.New(storeerr.Schema, "relationship id not found").WithTable(relTable)
	}
	return props, nil
}

// NodeSchema exposes a registered node schema, for callers (such as the CSV
// loader) that need column resolution.
func (db *Database) NodeSchema(table string) (*types.NodeSchema, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.catalog.NodeSchema(table)
}

// RelSchema exposes a registered relationship schema.
func (db *Database) RelSchema(table string) (*types.RelSchema, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.catalog.RelSchema(table)
}

// LookupNode resolves a primary-key tuple to its row offset, for callers
// (such as the CSV loader's relationship import path) that receive
// relationship endpoints as key values rather than offsets.
func (db *Database) LookupNode(table string, pk map[string]types.Value) (int, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.nodeTables.Tables[table]
	if !ok {
		return -1, false
	}
	return t.Lookup(pk)
}

// InsertNodeBatch inserts rows into table as a single batch, for the CSV
// loader's buffered pipeline (spec.md §4.8 step 4). It appends one WAL
// transaction per row to preserve per-row replay granularity.
func (db *Database) InsertNodeBatch(table string, rows []map[string]types.Value) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.nodeTables.Tables[table]
	if !ok {
		return -1, storeerr.New(storeerr.Schema, "node table does not exist").WithTable(table)
	}
	if err := t.CanInsertBatch(rows); err != nil {
		return -1, err
	}

	for _, row := range rows {
		txn := db.wal.NextLSN()
		db.wal.Append(wal.Record{Type: wal.BeginTransaction, TxnID: txn, LSN: db.wal.NextLSN()})
		db.wal.Append(wal.Record{Type: wal.InsertNode, TxnID: txn, LSN: db.wal.NextLSN(), Payload: wal.PayloadInsertNode{Table: table, Values: row}})
		db.wal.Append(wal.Record{Type: wal.Commit, TxnID: txn, LSN: db.wal.NextLSN()})
	}
	if err := db.wal.Flush(); err != nil {
		return -1, err
	}

	start, err := t.InsertBatch(rows)
	if err != nil {
		return -1, err
	}
	metrics.NodeTableRowsTotal.WithLabelValues(table).Set(float64(t.RowCount()))
	return start, nil
}

// InsertRelBatch inserts edges into table as a single batch, for the CSV
// loader's relationship import path.
func (db *Database) InsertRelBatch(table string, edges []RelEdge) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rt, ok := db.relTables.Tables[table]
	if !ok {
		return storeerr.New(storeerr.Schema, "relationship table does not exist").WithTable(table)
	}
	schema := rt.Schema
	srcTable, ok := db.nodeTables.Tables[schema.FromTable]
	if !ok {
		return storeerr.New(storeerr.Schema, "source node table does not exist").WithTable(schema.FromTable)
	}
	dstTable, ok := db.nodeTables.Tables[schema.ToTable]
	if !ok {
		return storeerr.New(storeerr.Schema, "destination node table does not exist").WithTable(schema.ToTable)
	}

	for _, e := range edges {
		if err := rt.CanInsert(srcTable, dstTable, e.Src, e.Dst, e.Properties); err != nil {
			return err
		}
	}

	for _, e := range edges {
		txn := db.wal.NextLSN()
		db.wal.Append(wal.Record{Type: wal.BeginTransaction, TxnID: txn, LSN: db.wal.NextLSN()})
		db.wal.Append(wal.Record{Type: wal.InsertRel, TxnID: txn, LSN: db.wal.NextLSN(), Payload: wal.PayloadInsertRel{
			Table: table, Src: int64(e.Src), Dst: int64(e.Dst), Properties: e.Properties,
		}})
		db.wal.Append(wal.Record{Type: wal.Commit, TxnID: txn, LSN: db.wal.NextLSN()})
	}
	if err := db.wal.Flush(); err != nil {
		return err
	}

	for _, e := range edges {
		if _, err := rt.Insert(srcTable, dstTable, e.Src, e.Dst, e.Properties); err != nil {
			return err
		}
	}
	metrics.RelTableEdgesTotal.WithLabelValues(table).Set(float64(rt.EdgeCount()))
	return nil
}

// RelEdge is one edge to insert via InsertRelBatch.
type RelEdge struct {
	Src        int
	Dst        int
	Properties []types.Value
}
