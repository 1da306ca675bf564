package csvload

import (
	"fmt"

	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// fieldBinding names one CSV column the loader must parse and the typed
// column it feeds.
type fieldBinding struct {
	Header string
	Kind   types.Kind
}

// resolveHeader maps each binding's CSV column name to its position in
// header (spec.md §4.8 step 2: "resolve column positions against the target
// schema"). When the file has no header row, bindings are resolved
// positionally in declaration order instead.
func resolveHeader(header []string, hasHeader bool, bindings []fieldBinding) (map[string]int, error) {
	idx := make(map[string]int, len(bindings))
	if !hasHeader {
		for i, b := range bindings {
			idx[b.Header] = i
		}
		return idx, nil
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}
	for _, b := range bindings {
		i, ok := pos[b.Header]
		if !ok {
			return nil, storeerr.New(storeerr.Import, fmt.Sprintf("column %q not present in CSV header", b.Header)).WithColumn(b.Header)
		}
		idx[b.Header] = i
	}
	return idx, nil
}

// parseTypedRow parses one CSV record's fields into a map keyed by binding
// header name, using idx to find each binding's field position.
func parseTypedRow(fields []string, idx map[string]int, bindings []fieldBinding) (map[string]types.Value, error) {
	row := make(map[string]types.Value, len(bindings))
	for _, b := range bindings {
		i := idx[b.Header]
		if i >= len(fields) {
			return nil, storeerr.New(storeerr.Import, fmt.Sprintf("row is missing a value for column %q", b.Header)).WithColumn(b.Header)
		}
		v, err := parseField(fields[i], b.Kind)
		if err != nil {
			if se, ok := err.(*storeerr.Error); ok {
				return nil, se.WithColumn(b.Header)
			}
			return nil, err
		}
		row[b.Header] = v
	}
	return row, nil
}

func usesParallel(size int64, opts Options) bool {
	return opts.Parallel && opts.StreamingEnabled && size >= opts.StreamingThreshold
}
