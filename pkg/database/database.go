// Package database composes the storage layers into an open/close database
// handle: page ranges, catalog, node/relationship tables, WAL replay, and
// checkpointing (spec.md §3.2, §4.7).
package database

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/ruzudb/pkg/config"
	"github.com/cuemby/ruzudb/pkg/log"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/storage/buffer"
	"github.com/cuemby/ruzudb/pkg/storage/catalog"
	"github.com/cuemby/ruzudb/pkg/storage/disk"
	"github.com/cuemby/ruzudb/pkg/storage/nodetable"
	"github.com/cuemby/ruzudb/pkg/storage/page"
	"github.com/cuemby/ruzudb/pkg/storage/reltable"
	"github.com/cuemby/ruzudb/pkg/storage/wal"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

const (
	headerPageID     = page.ID(0)
	catalogPageID    = page.ID(1)
	nodeMetaPageID   = page.ID(2)
	relMetaPageID    = page.ID(3)
	initialPageCount = 4
)

// Database is an open handle on one database directory (spec.md §4.7,
// §6 "file layout").
type Database struct {
	mu sync.Mutex

	dir  string
	disk *disk.Manager
	pool *buffer.Pool
	wal  *wal.WAL

	header *page.Header

	catalog    *catalog.Catalog
	nodeTables *nodetable.Collection
	relTables  *reltable.Collection

	logger zerolog.Logger
}

// Open opens (creating if absent) the database directory at dir, replaying
// any crash-left WAL before returning a ready handle (spec.md §4.7 open
// algorithm).
func Open(dir string, cfg config.Config) (*Database, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, storeerr.Wrap(storeerr.IO, "create database directory", err)
	}

	dataPath := filepath.Join(dir, "data")
	isNew := fileAbsentOrEmpty(dataPath)

	diskMgr, err := disk.Open(dataPath)
	if err != nil {
		return nil, err
	}

	db := &Database{
		dir:    dir,
		disk:   diskMgr,
		logger: log.WithComponent("database"),
	}
	db.pool = buffer.New(diskMgr, cfg.BufferPoolCapacity)

	if isNew {
		if err := db.initFresh(); err != nil {
			return nil, err
		}
	} else {
		if err := db.loadExisting(); err != nil {
			return nil, err
		}
	}

	walPath := filepath.Join(dir, "wal")
	w, err := wal.Open(walPath, db.header.UUID, cfg.WALChecksums)
	if err != nil {
		return nil, err
	}
	db.wal = w

	if len(w.PendingReplay) > 0 {
		db.logger.Info().Int("records", len(w.PendingReplay)).Msg("replaying WAL")
		if err := db.replay(w.PendingReplay); err != nil {
			return nil, err
		}
		if err := w.Truncate(); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func fileAbsentOrEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Size() == 0
}

func (db *Database) initFresh() error {
	for i := 0; i < initialPageCount; i++ {
		if _, err := db.disk.AllocatePage(); err != nil {
			return err
		}
	}

	db.header = page.NewHeader(
		uuid.New(),
		page.Range{Start: catalogPageID, Count: 1},
		page.Range{Start: nodeMetaPageID, Count: 1},
		page.Range{Start: relMetaPageID, Count: 1},
		page.ID(initialPageCount),
	)
	if err := db.disk.WritePage(headerPageID, db.header.Encode()); err != nil {
		return err
	}

	db.catalog = catalog.New()
	db.nodeTables = nodetable.NewCollection()
	db.relTables = reltable.NewCollection()
	// Write the empty metadata to its pages now, so a reopen after a crash
	// that precedes the first checkpoint finds decodable metadata.
	if err := db.persistMetadataLocked(); err != nil {
		return err
	}
	return db.pool.FlushAll()
}

func (db *Database) loadExisting() error {
	headerPage, err := db.disk.ReadPage(headerPageID)
	if err != nil {
		return err
	}
	h, err := page.Decode(headerPage)
	if err != nil {
		return err
	}
	db.header = h

	cat, err := catalog.LoadFromRange(db.pool, h.CatalogRange)
	if err != nil {
		return err
	}
	db.catalog = cat

	nodeSchemas := make(map[string]*types.NodeSchema)
	for _, s := range cat.NodeSchemas() {
		nodeSchemas[s.Name] = s
	}
	nodes, err := nodetable.LoadFromRange(db.pool, h.NodeMetaRange, nodeSchemas)
	if err != nil {
		return err
	}
	db.nodeTables = nodes

	relSchemas := make(map[string]*types.RelSchema)
	for _, s := range cat.RelSchemas() {
		relSchemas[s.Name] = s
	}
	rels, err := reltable.LoadFromRange(db.pool, h.RelMetaRange, relSchemas)
	if err != nil {
		return err
	}
	// A migrated (version-1) header, or a rel schema created after the last
	// save, has no entry in the loaded range; instantiate it empty
	// (spec.md §4.7 step 5).
	for _, s := range cat.RelSchemas() {
		if _, ok := rels.Tables[s.Name]; !ok {
			rels.Put(reltable.New(s))
		}
	}
	db.relTables = rels
	return nil
}

// Stats reports buffer-pool occupancy for the programmatic surface
// (spec.md §6 "a stats() function").
type Stats struct {
	BufferPool buffer.Stats
}

// Stats returns current operating statistics.
func (db *Database) Stats() Stats {
	return Stats{BufferPool: db.pool.Stats()}
}

// Close persists metadata, flushes all dirty pages (the metadata pages
// included), checkpoints the WAL, and closes the underlying files (spec.md
// §4.7 close algorithm).
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.closeLocked()
}

func (db *Database) closeLocked() error {
	if err := db.persistMetadataLocked(); err != nil {
		return err
	}
	if err := db.pool.FlushAll(); err != nil {
		return err
	}
	if err := db.disk.Sync(); err != nil {
		return err
	}
	if err := db.wal.Checkpoint(db.nextTxnIDLocked()); err != nil {
		return err
	}
	if err := db.wal.Truncate(); err != nil {
		return err
	}
	if err := db.wal.Close(); err != nil {
		return err
	}
	return db.disk.Close()
}

func (db *Database) persistMetadataLocked() error {
	if err := db.catalog.SaveToRange(db.pool, db.header.CatalogRange); err != nil {
		return err
	}
	if err := db.nodeTables.SaveToRange(db.pool, db.header.NodeMetaRange); err != nil {
		return err
	}
	if err := db.relTables.SaveToRange(db.pool, db.header.RelMetaRange); err != nil {
		return err
	}
	if err := db.disk.WritePage(headerPageID, db.header.Encode()); err != nil {
		return err
	}
	return nil
}

// Checkpoint persists metadata, flushes dirty pages (the metadata pages
// included), appends a Checkpoint WAL record, and truncates the WAL (spec.md
// §4.3).
func (db *Database) Checkpoint() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	timer := metrics.NewTimer()
	if err := db.persistMetadataLocked(); err != nil {
		return err
	}
	if err := db.pool.FlushAll(); err != nil {
		return err
	}
	if err := db.disk.Sync(); err != nil {
		return err
	}
	if err := db.wal.Checkpoint(db.nextTxnIDLocked()); err != nil {
		return err
	}
	if err := db.wal.Truncate(); err != nil {
		return err
	}
	metrics.CheckpointsTotal.Inc()
	timer.ObserveDuration(metrics.CheckpointDuration)
	return nil
}

func (db *Database) nextTxnIDLocked() uint64 {
	return db.wal.NextLSN()
}
