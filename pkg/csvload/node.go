package csvload

import (
	"github.com/cuemby/ruzudb/pkg/database"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// ImportNodes streams path into table, a registered node table, under opts.
func ImportNodes(db *database.Database, table, path string, opts Options, onProgress ProgressFunc) (ImportResult, error) {
	schema, ok := db.NodeSchema(table)
	if !ok {
		return ImportResult{}, storeerr.New(storeerr.Schema, "node table does not exist").WithTable(table)
	}

	of, r, err := openSource(path, opts)
	if err != nil {
		return ImportResult{}, err
	}
	defer of.Close()

	timer := metrics.NewTimer()

	buildParser := func(header []string) (rowParseFunc, error) {
		idx, err := resolveHeader(header, opts.HasHeader, nodeBindings(schema))
		if err != nil {
			return nil, err
		}
		bindings := nodeBindings(schema)
		return func(fields []string) (map[string]types.Value, error) {
			return parseTypedRow(fields, idx, bindings)
		}, nil
	}

	sink := func(rows []map[string]types.Value) (int, error) {
		if _, err := db.InsertNodeBatch(table, rows); err != nil {
			return 0, err
		}
		return len(rows), nil
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

func nodeBindings(schema *types.NodeSchema) []fieldBinding {
	out := make([]fieldBinding, len(schema.Columns))
	for i, c := range schema.Columns {
		out[i] = fieldBinding{Header: c.Name, Kind: c.Type}
	}
	return out
}
