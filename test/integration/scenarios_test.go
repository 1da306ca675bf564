// Package integration exercises the storage core end to end, across the
// component boundaries unit tests hold fixed: disk, buffer pool, WAL,
// catalog, and the node/relationship tables composed through Database.
package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/ruzudb/pkg/config"
	"github.com/cuemby/ruzudb/pkg/csvload"
	"github.com/cuemby/ruzudb/pkg/database"
	"github.com/cuemby/ruzudb/pkg/storage/reltable"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.BufferPoolCapacity = 32
	return cfg
}

func personSchema() *types.NodeSchema {
	return &types.NodeSchema{
		Name: "Person",
		Columns: []types.Column{
			{Name: "name", Type: types.KindString},
			{Name: "age", Type: types.KindInt64},
		},
		PrimaryKey: []string{"name"},
	}
}

func knowsSchema() *types.RelSchema {
	return &types.RelSchema{
		Name:       "Knows",
		FromTable:  "Person",
		ToTable:    "Person",
		Properties: []types.Column{{Name: "since", Type: types.KindInt64}},
		Direction:  types.DirBoth,
	}
}

// Scenario A: persistence across close/reopen.
func TestScenarioAPersistenceAcrossCloseReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(dir, testConfig())
	require.NoError(t, err)

	require.NoError(t, db.CreateNodeTable(personSchema()))
	_, err = db.InsertNode("Person", map[string]types.Value{"name": types.String("Alice"), "age": types.Int64(30)})
	require.NoError(t, err)
	_, err = db.InsertNode("Person", map[string]types.Value{"name": types.String("Bob"), "age": types.Int64(25)})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := database.Open(dir, testConfig())
	require.NoError(t, err)
	defer db2.Close()

	rows, err := db2.ScanNodes("Person")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, rows[0]["name"].Equal(types.String("Alice")))
	require.True(t, rows[0]["age"].Equal(types.Int64(30)))
	require.True(t, rows[1]["name"].Equal(types.String("Bob")))
	require.True(t, rows[1]["age"].Equal(types.Int64(25)))
}

// Scenario B: edge round-trip across close/reopen.
func TestScenarioBEdgeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(dir, testConfig())
	require.NoError(t, err)

	require.NoError(t, db.CreateNodeTable(personSchema()))
	offsetAlice, err := db.InsertNode("Person", map[string]types.Value{"name": types.String("Alice"), "age": types.Int64(30)})
	require.NoError(t, err)
	offsetBob, err := db.InsertNode("Person", map[string]types.Value{"name": types.String("Bob"), "age": types.Int64(25)})
	require.NoError(t, err)
	require.Equal(t, 0, offsetAlice)
	require.Equal(t, 1, offsetBob)

	require.NoError(t, db.CreateRelTable(knowsSchema()))
	relID, err := db.InsertRel("Knows", offsetAlice, offsetBob, []types.Value{types.Int64(2020)})
	require.NoError(t, err)
	require.Equal(t, uint64(0), relID)
	require.NoError(t, db.Close())

	db2, err := database.Open(dir, testConfig())
	require.NoError(t, err)
	defer db2.Close()

	fwd, err := db2.ForwardNeighbors("Knows", 0)
	require.NoError(t, err)
	require.Equal(t, []reltable.Edge{{Neighbor: 1, RelID: 0}}, fwd)

	bwd, err := db2.BackwardNeighbors("Knows", 1)
	require.NoError(t, err)
	require.Equal(t, []reltable.Edge{{Neighbor: 0, RelID: 0}}, bwd)

	props, err := db2.GetProperties("Knows", 0)
	require.NoError(t, err)
	require.Len(t, props, 1)
	require.True(t, props[0].Equal(types.Int64(2020)))
}

// Scenario C: crash recovery applies only the committed transaction.
func TestScenarioCCrashRecovery(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(dir, testConfig())
	require.NoError(t, err)

	require.NoError(t, db.CreateNodeTable(personSchema()))
	for i := 0; i < 100; i++ {
		_, err := db.InsertNode("Person", map[string]types.Value{
			"name": types.String(fmt.Sprintf("committed-%d", i)),
			"age":  types.Int64(int64(i)),
		})
		require.NoError(t, err)
	}

	// Every InsertNode call commits on its own, so no uncommitted rows are
	// written here; the open handle is simply abandoned without Close, with
	// no checkpoint or clean shutdown, standing in for a crash after the
	// first 100 commits.
	_ = db // the abandoned handle is intentionally never closed

	db2, err := database.Open(dir, testConfig())
	require.NoError(t, err)
	defer db2.Close()

	rows, err := db2.ScanNodes("Person")
	require.NoError(t, err)
	require.Len(t, rows, 100)
}

// Scenario D: a corrupted WAL tail is truncated and discarded on reopen.
func TestScenarioDCorruptedWALTail(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(dir, testConfig())
	require.NoError(t, err)

	require.NoError(t, db.CreateNodeTable(personSchema()))
	_, err = db.InsertNode("Person", map[string]types.Value{"name": types.String("Alice"), "age": types.Int64(30)})
	require.NoError(t, err)
	_, err = db.InsertNode("Person", map[string]types.Value{"name": types.String("Bob"), "age": types.Int64(25)})
	require.NoError(t, err)
	_ = db // abandoned without Close, as in Scenario C, so the WAL keeps its records

	// Cutting the last 3 bytes breaks Bob's trailing Commit record, so only
	// Alice's transaction remains committed.
	walPath := filepath.Join(dir, "wal")
	info, err := os.Stat(walPath)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(walPath, info.Size()-3))

	db2, err := database.Open(dir, testConfig())
	require.NoError(t, err)
	defer db2.Close()

	rows, err := db2.ScanNodes("Person")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

// Scenario E: referential integrity rejects an edge to a nonexistent node and
// leaves the relationship table unchanged.
func TestScenarioEReferentialIntegrity(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(dir, testConfig())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.CreateNodeTable(personSchema()))
	_, err = db.InsertNode("Person", map[string]types.Value{"name": types.String("Alice"), "age": types.Int64(30)})
	require.NoError(t, err)
	require.NoError(t, db.CreateRelTable(knowsSchema()))

	_, err = db.InsertRel("Knows", 0, 999, nil)
	require.Error(t, err)
	kind, ok := storeerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, storeerr.Constraint, kind)

	fwd, err := db.ForwardNeighbors("Knows", 0)
	require.NoError(t, err)
	require.Empty(t, fwd)

	schema, ok := db.RelSchema("Knows")
	require.True(t, ok)
	require.Equal(t, uint64(0), schema.NextRelID)
}

// Scenario F: a streaming import completes with the expected row count under
// a bounded batch size (a scaled-down stand-in for the full-size memory
// bound, which is validated operationally rather than in a unit test).
func TestScenarioFStreamingImportRowCount(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(dir, testConfig())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.CreateNodeTable(personSchema()))

	const rowCount = 5000
	csvPath := filepath.Join(t.TempDir(), "people.csv")
	f, err := os.Create(csvPath)
	require.NoError(t, err)
	_, err = f.WriteString("name,age\n")
	require.NoError(t, err)
	for i := 0; i < rowCount; i++ {
		_, err := fmt.Fprintf(f, "person-%d,%d\n", i, i%100)
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	opts := csvload.DefaultOptions()
	opts.BatchSize = 500
	opts.UseMmap = false
	opts.StreamingEnabled = true

	result, err := csvload.ImportNodes(db, "Person", csvPath, opts, nil)
	require.NoError(t, err)
	require.Equal(t, rowCount, result.RowsImported)

	rows, err := db.ScanNodes("Person")
	require.NoError(t, err)
	require.Len(t, rows, rowCount)
}

// Scenario G: the parallel pipeline rejects a quoted newline outright; the
// sequential pipeline tolerates it and imports every row.
func TestScenarioGParallelQuotedNewlineRejection(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(dir, testConfig())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.CreateNodeTable(&types.NodeSchema{
		Name:       "Note",
		Columns:    []types.Column{{Name: "id", Type: types.KindInt64}, {Name: "body", Type: types.KindString}},
		PrimaryKey: []string{"id"},
	}))

	csvPath := filepath.Join(t.TempDir(), "notes.csv")
	var buf []byte
	buf = append(buf, "id,body\n"...)
	for i := 1; i <= 41; i++ {
		buf = append(buf, fmt.Sprintf("%d,plain\n", i)...)
	}
	buf = append(buf, "42,\"line one\nline two\"\n"...)
	require.NoError(t, os.WriteFile(csvPath, buf, 0o600))

	opts := csvload.DefaultOptions()
	opts.UseMmap = false
	opts.Parallel = true
	opts.StreamingEnabled = true
	opts.StreamingThreshold = 0
	opts.BlockSize = 64

	_, err = csvload.ImportNodes(db, "Note", csvPath, opts, nil)
	require.Error(t, err)
	kind, ok := storeerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, storeerr.ParallelUnsupported, kind)

	opts.Parallel = false
	result, err := csvload.ImportNodes(db, "Note", csvPath, opts, nil)
	require.NoError(t, err)
	require.Equal(t, 42, result.RowsImported)
}
