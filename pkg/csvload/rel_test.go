package csvload

import (
	"testing"

	"github.com/cuemby/ruzudb/pkg/database"
	"github.com/cuemby/ruzudb/pkg/types"
)

func setupPeopleAndKnows(t *testing.T) *database.Database {
	t.Helper()
	db := openTestDatabase(t)
	db.CreateNodeTable(&types.NodeSchema{
		Name:       "person",
		Columns:    []types.Column{{Name: "id", Type: types.KindInt64}, {Name: "name", Type: types.KindString}},
		PrimaryKey: []string{"id"},
	})
	db.CreateRelTable(&types.RelSchema{
		Name:       "knows",
		FromTable:  "person",
		ToTable:    "person",
		Properties: []types.Column{{Name: "since", Type: types.KindInt64}},
		Direction:  types.DirBoth,
	})
	personPath := writeCSV(t, "id,name\n1,ann\n2,bo\n3,cy\n")
	if _, err := ImportNodes(db, "person", personPath, DefaultOptions(), nil); err != nil {
		t.Fatalf("ImportNodes() error = %v", err)
	}
	return db
}

func TestImportRelsResolvesEndpointsByPrimaryKey(t *testing.T) {
	db := setupPeopleAndKnows(t)

	relPath := writeCSV(t, "from_id,to_id,since\n1,2,2020\n2,3,2021\n")
	opts := DefaultOptions()
	opts.UseMmap = false
	opts.BatchSize = 10
	spec := RelImportSpec{SrcKeyColumns: []string{"from_id"}, DstKeyColumns: []string{"to_id"}}

	result, err := ImportRels(db, "knows", relPath, spec, opts, nil)
	if err != nil {
		t.Fatalf("ImportRels() error = %v", err)
	}
	if result.RowsImported != 2 {
		t.Errorf("RowsImported = %d, want 2", result.RowsImported)
	}

	fwd, err := db.ForwardNeighbors("knows", 0)
	if err != nil {
		t.Fatalf("ForwardNeighbors() error = %v", err)
	}
	if len(fwd) != 1 || fwd[0].Neighbor != 1 {
		t.Errorf("ForwardNeighbors(0) = %+v", fwd)
	}
}

func TestImportRelsRejectsUnknownEndpoint(t *testing.T) {
	db := setupPeopleAndKnows(t)

	relPath := writeCSV(t, "from_id,to_id,since\n1,99,2020\n")
	opts := DefaultOptions()
	opts.UseMmap = false
	spec := RelImportSpec{SrcKeyColumns: []string{"from_id"}, DstKeyColumns: []string{"to_id"}}

	if _, err := ImportRels(db, "knows", relPath, spec, opts, nil); err == nil {
		t.Fatal("ImportRels() should fail when a destination key matches no existing row")
	}
}

func TestImportRelsKeyArityMismatch(t *testing.T) {
	db := setupPeopleAndKnows(t)

	relPath := writeCSV(t, "from_id,to_id,since\n1,2,2020\n")
	opts := DefaultOptions()
	spec := RelImportSpec{SrcKeyColumns: []string{"from_id", "extra"}, DstKeyColumns: []string{"to_id"}}

	if _, err := ImportRels(db, "knows", relPath, spec, opts, nil); err == nil {
		t.Fatal("ImportRels() should reject a SrcKeyColumns arity mismatch")
	}
}

func TestImportRelsUnknownTable(t *testing.T) {
	db := setupPeopleAndKnows(t)
	relPath := writeCSV(t, "from_id,to_id\n1,2\n")
	spec := RelImportSpec{SrcKeyColumns: []string{"from_id"}, DstKeyColumns: []string{"to_id"}}

	if _, err := ImportRels(db, "missing", relPath, spec, DefaultOptions(), nil); err == nil {
		t.Fatal("ImportRels() should fail against an unregistered relationship table")
	}
}
