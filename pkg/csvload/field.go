package csvload

import (
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// parseField parses a raw CSV field into a typed Value under strict typing
// (spec.md §4.8 step 3): exact int/float syntax, case-insensitive true/false
// only for Bool, NaN/Infinity rejected for Float64, RFC-3339 dates and
// timestamps.
func parseField(raw string, kind types.Kind) (types.Value, error) {
	switch kind {
	case types.KindInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return types.Value{}, storeerr.New(storeerr.Import, "value is not a valid INT64")
		}
		return types.Int64(n), nil
	case types.KindFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Value{}, storeerr.New(storeerr.Import, "value is not a valid FLOAT64")
		}
		v := types.Float64(f)
		if !v.IsFinite() {
			return types.Value{}, storeerr.New(storeerr.Import, "FLOAT64 does not accept NaN or Infinity")
		}
		return v, nil
	case types.KindBool:
		switch strings.ToLower(raw) {
		case "true":
			return types.Bool(true), nil
		case "false":
			return types.Bool(false), nil
		default:
			return types.Value{}, storeerr.New(storeerr.Import, `BOOL accepts only "true" or "false"`)
		}
	case types.KindString:
		return types.String(raw), nil
	case types.KindDate:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return types.Value{}, storeerr.New(storeerr.Import, "value is not a valid DATE (expected YYYY-MM-DD)")
		}
		days := t.Unix() / 86400
		return types.Date(int32(days)), nil
	case types.KindTimestamp:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return types.Value{}, storeerr.New(storeerr.Import, "value is not a valid TIMESTAMP (expected RFC-3339)")
		}
		return types.Timestamp(t.UnixMicro()), nil
	default:
		return types.Value{}, storeerr.New(storeerr.Import, "unsupported column type")
	}
}
