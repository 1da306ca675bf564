package csvload

import (
	"testing"

	"github.com/cuemby/ruzudb/pkg/types"
)

func TestResolveHeaderWithHeaderRow(t *testing.T) {
	bindings := []fieldBinding{{Header: "id", Kind: types.KindInt64}, {Header: "name", Kind: types.KindString}}
	idx, err := resolveHeader([]string{"name", "id", "extra"}, true, bindings)
	if err != nil {
		t.Fatalf("resolveHeader() error = %v", err)
	}
	if idx["id"] != 1 || idx["name"] != 0 {
		t.Errorf("idx = %v", idx)
	}
}

func TestResolveHeaderMissingColumn(t *testing.T) {
	bindings := []fieldBinding{{Header: "id", Kind: types.KindInt64}}
	_, err := resolveHeader([]string{"name"}, true, bindings)
	if err == nil {
		t.Fatal("resolveHeader() should fail when a bound column is absent from the header")
	}
}

func TestResolveHeaderPositionalWithoutHeader(t *testing.T) {
	bindings := []fieldBinding{{Header: "id", Kind: types.KindInt64}, {Header: "name", Kind: types.KindString}}
	idx, err := resolveHeader(nil, false, bindings)
	if err != nil {
		t.Fatalf("resolveHeader() error = %v", err)
	}
	if idx["id"] != 0 || idx["name"] != 1 {
		t.Errorf("idx = %v", idx)
	}
}

func TestParseTypedRow(t *testing.T) {
	bindings := []fieldBinding{{Header: "id", Kind: types.KindInt64}, {Header: "name", Kind: types.KindString}}
	idx := map[string]int{"id": 1, "name": 0}

	row, err := parseTypedRow([]string{"ann", "7"}, idx, bindings)
	if err != nil {
		t.Fatalf("parseTypedRow() error = %v", err)
	}
	if !row["id"].Equal(types.Int64(7)) || !row["name"].Equal(types.String("ann")) {
		t.Errorf("row = %+v", row)
	}
}

func TestParseTypedRowMissingField(t *testing.T) {
	bindings := []fieldBinding{{Header: "id", Kind: types.KindInt64}}
	idx := map[string]int{"id": 5}

	if _, err := parseTypedRow([]string{"only one field"}, idx, bindings); err == nil {
		t.Fatal("parseTypedRow() should fail when a bound column's index is out of range")
	}
}

func TestUsesParallel(t *testing.T) {
	opts := Options{Parallel: true, StreamingEnabled: true, StreamingThreshold: 100}
	if !usesParallel(200, opts) {
		t.Error("usesParallel() should be true at/above the streaming threshold")
	}
	if usesParallel(50, opts) {
		t.Error("usesParallel() should be false below the streaming threshold")
	}

	opts.Parallel = false
	if usesParallel(200, opts) {
		t.Error("usesParallel() should be false when Parallel is disabled")
	}
}
