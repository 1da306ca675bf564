package wire

import (
	"testing"

	"github.com/cuemby/ruzudb/pkg/types"
)

func TestColumnRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteColumn(types.Column{Name: "age", Type: types.KindInt64})

	r := NewReader(w.Bytes())
	got := r.ReadColumn()
	if got.Name != "age" || got.Type != types.KindInt64 {
		t.Errorf("ReadColumn() = %+v", got)
	}
}

func TestNodeSchemaRoundTrip(t *testing.T) {
	s := &types.NodeSchema{
		Name:       "person",
		Columns:    []types.Column{{Name: "id", Type: types.KindInt64}, {Name: "name", Type: types.KindString}},
		PrimaryKey: []string{"id"},
		NextRowID:  7,
	}

	w := NewWriter()
	w.WriteNodeSchema(s)
	r := NewReader(w.Bytes())
	got := r.ReadNodeSchema()

	if got.Name != s.Name || len(got.Columns) != 2 || len(got.PrimaryKey) != 1 || got.NextRowID != 7 {
		t.Errorf("ReadNodeSchema() = %+v", got)
	}
	if got.Columns[1].Name != "name" || got.Columns[1].Type != types.KindString {
		t.Errorf("ReadNodeSchema() columns = %+v", got.Columns)
	}
}

func TestRelSchemaRoundTrip(t *testing.T) {
	s := &types.RelSchema{
		Name:       "knows",
		FromTable:  "person",
		ToTable:    "person",
		Properties: []types.Column{{Name: "since", Type: types.KindDate}},
		Direction:  types.DirBoth,
		NextRelID:  3,
	}

	w := NewWriter()
	w.WriteRelSchema(s)
	r := NewReader(w.Bytes())
	got := r.ReadRelSchema()

	if got.Name != s.Name || got.FromTable != s.FromTable || got.ToTable != s.ToTable {
		t.Errorf("ReadRelSchema() = %+v", got)
	}
	if got.Direction != types.DirBoth || got.NextRelID != 3 || len(got.Properties) != 1 {
		t.Errorf("ReadRelSchema() = %+v", got)
	}
}
