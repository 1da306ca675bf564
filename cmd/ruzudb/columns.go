package main

import (
	"fmt"
	"strings"

	"github.com/cuemby/ruzudb/pkg/types"
)

// parseColumnSpecs parses a comma-separated "name:TYPE" list, e.g.
// "id:INT64,name:STRING,created_at:TIMESTAMP".
func parseColumnSpecs(spec string) ([]types.Column, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("no columns given")
	}
	parts := strings.Split(spec, ",")
	cols := make([]types.Column, 0, len(parts))
	for _, p := range parts {
		nameType := strings.SplitN(strings.TrimSpace(p), ":", 2)
		if len(nameType) != 2 {
			return nil, fmt.Errorf("invalid column spec %q, expected name:TYPE", p)
		}
		kind, err := parseKind(nameType[1])
		if err != nil {
			return nil, err
		}
		cols = append(cols, types.Column{Name: nameType[0], Type: kind})
	}
	return cols, nil
}

func parseKind(s string) (types.Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INT64":
		return types.KindInt64, nil
	case "FLOAT64":
		return types.KindFloat64, nil
	case "BOOL":
		return types.KindBool, nil
	case "STRING":
		return types.KindString, nil
	case "DATE":
		return types.KindDate, nil
	case "TIMESTAMP":
		return types.KindTimestamp, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", s)
	}
}

func parseDirection(s string) (types.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward":
		return types.DirForward, nil
	case "backward":
		return types.DirBackward, nil
	case "both", "":
		return types.DirBoth, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (expected forward, backward, or both)", s)
	}
}

func splitCSVList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// parseFieldValue parses one "name=value" pair's value against kind, for the
// insert-node/insert-rel commands' --value flags.
func parseFieldValue(raw string, kind types.Kind) (types.Value, error) {
	switch kind {
	case types.KindInt64:
		var v int64
		if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
			return types.Value{}, fmt.Errorf("invalid INT64 value %q", raw)
		}
		return types.Int64(v), nil
	case types.KindFloat64:
		var v float64
		if _, err := fmt.Sscanf(raw, "%g", &v); err != nil {
			return types.Value{}, fmt.Errorf("invalid FLOAT64 value %q", raw)
		}
		return types.Float64(v), nil
	case types.KindBool:
		switch strings.ToLower(raw) {
		case "true":
			return types.Bool(true), nil
		case "false":
			return types.Bool(false), nil
		default:
			return types.Value{}, fmt.Errorf("invalid BOOL value %q", raw)
		}
	case types.KindString:
		return types.String(raw), nil
	default:
		return types.Value{}, fmt.Errorf("column type %s is not settable from the command line", kind)
	}
}
