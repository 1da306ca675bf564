// Package nodetable implements the columnar, persistent node table with
// primary-key uniqueness (spec.md §3.2, §4.5).
package nodetable

import (
	"fmt"
	"strings"

	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// Table is the runtime form of one node table: a per-column ordered value
// sequence plus a primary-key index. Row offsets are stable for the life of
// the table (Phase 2 has no deletion).
type Table struct {
	Schema *types.NodeSchema

	columns [][]types.Value // one slice per schema column, same length
	pkIndex map[string]int  // encoded PK tuple -> row offset
}

// New creates an empty table for the given schema.
func New(schema *types.NodeSchema) *Table {
	t := &Table{
		Schema:  schema,
		columns: make([][]types.Value, len(schema.Columns)),
		pkIndex: make(map[string]int),
	}
	return t
}

// RowCount returns the number of rows currently stored.
func (t *Table) RowCount() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0])
}

func (t *Table) pkKey(row map[string]types.Value) (string, error) {
	var sb strings.Builder
	for _, pk := range t.Schema.PrimaryKey {
		v, ok := row[pk]
		if !ok || v.IsNull() {
			return "", storeerr.New(storeerr.Schema, fmt.Sprintf("primary key column %q missing a value", pk)).WithTable(t.Schema.Name).WithColumn(pk)
		}
		sb.WriteString(v.String())
		sb.WriteByte(0)
	}
	return sb.String(), nil
}

func (t *Table) validateRow(row map[string]types.Value) error {
	if len(row) != len(t.Schema.Columns) {
		return storeerr.New(storeerr.Schema, "row does not have a value for every column").WithTable(t.Schema.Name)
	}
	for _, col := range t.Schema.Columns {
		v, ok := row[col.Name]
		if !ok {
			return storeerr.New(storeerr.Schema, fmt.Sprintf("missing value for column %q", col.Name)).WithTable(t.Schema.Name).WithColumn(col.Name)
		}
		if v.IsNull() {
			// Phase 2 treats all columns as non-null (spec.md §4.5).
			return storeerr.New(storeerr.Type, fmt.Sprintf("column %q does not accept null", col.Name)).WithTable(t.Schema.Name).WithColumn(col.Name)
		}
		if v.Kind() != col.Type {
			return storeerr.New(storeerr.Type, fmt.Sprintf("column %q expects %s, got %s", col.Name, col.Type, v.Kind())).WithTable(t.Schema.Name).WithColumn(col.Name)
		}
	}
	return nil
}

// CanInsert checks that row would be accepted by Insert (column
// completeness, type matching, primary-key uniqueness) without mutating the
// table. The database orchestrator calls this before logging the row to the
// WAL, so a row that would fail validation never reaches the log
// (spec.md §4.7).
func (t *Table) CanInsert(row map[string]types.Value) error {
	if err := t.validateRow(row); err != nil {
		return err
	}
	key, err := t.pkKey(row)
	if err != nil {
		return err
	}
	if _, exists := t.pkIndex[key]; exists {
		return storeerr.New(storeerr.Constraint, "duplicate primary key").WithTable(t.Schema.Name)
	}
	return nil
}

// Insert appends one row, enforcing column completeness, type matching, and
// primary-key uniqueness (spec.md §4.5). On any failure the table is left
// unmodified.
func (t *Table) Insert(row map[string]types.Value) (rowOffset int, err error) {
	if err := t.validateRow(row); err != nil {
		return -1, err
	}
	key, err := t.pkKey(row)
	if err != nil {
		return -1, err
	}
	if _, exists := t.pkIndex[key]; exists {
		return -1, storeerr.New(storeerr.Constraint, "duplicate primary key").WithTable(t.Schema.Name)
	}

	offset := t.RowCount()
	for i, col := range t.Schema.Columns {
		t.columns[i] = append(t.columns[i], row[col.Name])
	}
	t.pkIndex[key] = offset
	t.Schema.NextRowID = offset + 1
	return offset, nil
}

// batchKeys validates every row in rows (column alignment/types, PK
// uniqueness within the batch and against existing rows) without mutating
// the table, returning each row's PK key in order.
func (t *Table) batchKeys(rows []map[string]types.Value) ([]string, error) {
	keys := make([]string, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		if err := t.validateRow(row); err != nil {
			return nil, err
		}
		key, err := t.pkKey(row)
		if err != nil {
			return nil, err
		}
		if _, exists := t.pkIndex[key]; exists {
			return nil, storeerr.New(storeerr.Constraint, "duplicate primary key").WithTable(t.Schema.Name).WithRow(i)
		}
		if seen[key] {
			return nil, storeerr.New(storeerr.Constraint, "duplicate primary key within batch").WithTable(t.Schema.Name).WithRow(i)
		}
		seen[key] = true
		keys[i] = key
	}
	return keys, nil
}

// CanInsertBatch checks that every row in rows would be accepted by
// InsertBatch, without mutating the table.
func (t *Table) CanInsertBatch(rows []map[string]types.Value) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := t.batchKeys(rows)
	return err
}

// InsertBatch validates every row in rows before mutating any state (a
// single pass checks column alignment/types and PK uniqueness within the
// batch and against existing rows), then appends all of them — all-or-none at
// batch granularity (spec.md §4.5).
func (t *Table) InsertBatch(rows []map[string]types.Value) (firstOffset int, err error) {
	if len(rows) == 0 {
		return t.RowCount(), nil
	}

	keys, err := t.batchKeys(rows)
	if err != nil {
		return -1, err
	}

	start := t.RowCount()
	for i, row := range rows {
		offset := start + i
		for c, col := range t.Schema.Columns {
			t.columns[c] = append(t.columns[c], row[col.Name])
		}
		t.pkIndex[keys[i]] = offset
	}
	t.Schema.NextRowID = start + len(rows)
	return start, nil
}

// Row reconstructs the row at the given offset as a column-name -> value map.
func (t *Table) Row(offset int) map[string]types.Value {
	row := make(map[string]types.Value, len(t.Schema.Columns))
	for i, col := range t.Schema.Columns {
		row[col.Name] = t.columns[i][offset]
	}
	return row
}

// Scan returns every row in insertion order.
func (t *Table) Scan() []map[string]types.Value {
	out := make([]map[string]types.Value, t.RowCount())
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// Lookup returns the row offset for a primary-key tuple, if present. pk maps
// each primary-key column name to its value.
func (t *Table) Lookup(pk map[string]types.Value) (int, bool) {
	key, err := t.pkKey(pk)
	if err != nil {
		return -1, false
	}
	offset, ok := t.pkIndex[key]
	return offset, ok
}

// Column returns the raw column values (for the CSR/relationship layer's
// existence checks: offset < len(column) means the node exists).
func (t *Table) Column(name string) ([]types.Value, bool) {
	i := t.Schema.ColumnIndex(name)
	if i < 0 {
		return nil, false
	}
	return t.columns[i], true
}

// HasOffset reports whether offset names an existing row.
func (t *Table) HasOffset(offset int) bool {
	return offset >= 0 && offset < t.RowCount()
}
