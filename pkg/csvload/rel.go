package csvload

import (
	"github.com/cuemby/ruzudb/pkg/database"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// RelImportSpec names which CSV columns hold the endpoint primary keys for a
// relationship import. SrcKeyColumns and DstKeyColumns must list one CSV
// header name per column of the source/destination table's primary key, in
// PrimaryKey order; their names need not match the node tables' own column
// names, since a relationship CSV commonly labels both endpoints
// differently (e.g. "from_id"/"to_id" against a shared "id" primary key).
type RelImportSpec struct {
	SrcKeyColumns []string
	DstKeyColumns []string
}

// ImportRels streams path into table, a registered relationship table,
// resolving each row's endpoints by primary-key lookup against the
// relationship's source and destination node tables.
func ImportRels(db *database.Database, table, path string, spec RelImportSpec, opts Options, onProgress ProgressFunc) (ImportResult, error) {
	schema, ok := db.RelSchema(table)
	if !ok {
		return ImportResult{}, storeerr.New(storeerr.Schema, "relationship table does not exist").WithTable(table)
	}
	srcSchema, ok := db.NodeSchema(schema.FromTable)
	if !ok {
		return ImportResult{}, storeerr.New(storeerr.Schema, "source node table does not exist").WithTable(schema.FromTable)
	}
	dstSchema, ok := db.NodeSchema(schema.ToTable)
	if !ok {
		return ImportResult{}, storeerr.New(storeerr.Schema, "destination node table does not exist").WithTable(schema.ToTable)
	}
	if len(spec.SrcKeyColumns) != len(srcSchema.PrimaryKey) {
		return ImportResult{}, storeerr.New(storeerr.Import, "SrcKeyColumns does not match the source table's primary key arity").WithTable(table)
	}
	if len(spec.DstKeyColumns) != len(dstSchema.PrimaryKey) {
		return ImportResult{}, storeerr.New(storeerr.Import, "DstKeyColumns does not match the destination table's primary key arity").WithTable(table)
	}

	bindings := relBindings(spec, srcSchema, dstSchema, schema)

	of, r, err := openSource(path, opts)
	if err != nil {
		return ImportResult{}, err
	}
	defer of.Close()

	timer := metrics.NewTimer()

	buildParser := func(header []string) (rowParseFunc, error) {
		idx, err := resolveHeader(header, opts.HasHeader, bindings)
		if err != nil {
			return nil, err
		}
		return func(fields []string) (map[string]types.Value, error) {
			return parseTypedRow(fields, idx, bindings)
		}, nil
	}

	sink := func(rows []map[string]types.Value) (int, error) {
		edges := make([]database.RelEdge, 0, len(rows))
		for i, row := range rows {
			src, ok := db.LookupNode(schema.FromTable, pkTuple(row, spec.SrcKeyColumns, srcSchema.PrimaryKey))
			if !ok {
				return 0, storeerr.New(storeerr.Constraint, "source key does not match an existing row").WithTable(table).WithRow(i)
			}
			dst, ok := db.LookupNode(schema.ToTable, pkTuple(row, spec.DstKeyColumns, dstSchema.PrimaryKey))
			if !ok {
				return 0, storeerr.New(storeerr.Constraint, "destination key does not match an existing row").WithTable(table).WithRow(i)
			}
			edges = append(edges, database.RelEdge{Src: src, Dst: dst, Properties: relProperties(row, schema.Properties)})
		}
		if err := db.InsertRelBatch(table, edges); err != nil {
			return 0, err
		}
		return len(edges), nil
	}

	var result ImportResult
	if usesParallel(of.size, opts) {
		result, err = runParallel(table, of, opts, buildParser, sink)
	} else {
		result, err = runSequential(table, r, of.size, opts, buildParser, sink, onProgress)
	}
	metrics.CSVImportDuration.WithLabelValues(table).Observe(timer.Duration().Seconds())
	if err != nil {
		return result, err
	}
	return result, nil
}

// relBindings produces the combined set of CSV columns an edge row needs:
// the source key columns, the destination key columns, and the
// relationship's own properties (assumed to share the CSV column name).
func relBindings(spec RelImportSpec, srcSchema, dstSchema *types.NodeSchema, relSchema *types.RelSchema) []fieldBinding {
	var out []fieldBinding
	for i, header := range spec.SrcKeyColumns {
		col, _ := srcSchema.Column(srcSchema.PrimaryKey[i])
		out = append(out, fieldBinding{Header: header, Kind: col.Type})
	}
	for i, header := range spec.DstKeyColumns {
		col, _ := dstSchema.Column(dstSchema.PrimaryKey[i])
		out = append(out, fieldBinding{Header: header, Kind: col.Type})
	}
	for _, p := range relSchema.Properties {
		out = append(out, fieldBinding{Header: p.Name, Kind: p.Type})
	}
	return out
}

func pkTuple(row map[string]types.Value, csvColumns, pkColumns []string) map[string]types.Value {
	tuple := make(map[string]types.Value, len(pkColumns))
	for i, col := range pkColumns {
		tuple[col] = row[csvColumns[i]]
	}
	return tuple
}

func relProperties(row map[string]types.Value, props []types.Column) []types.Value {
	out := make([]types.Value, len(props))
	for i, p := range props {
		out[i] = row[p.Name]
	}
	return out
}
