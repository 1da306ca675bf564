// Package types defines the primitive value domain and table schemas shared
// by the catalog, node tables, relationship tables, the WAL, and the CSV
// loader.
package types

import (
	"fmt"
	"math"
)

// Kind identifies the dynamic type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindString
	KindDate
	KindTimestamp
)

// String renders a Kind the way a column type would be named in DDL.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt64:
		return "INT64"
	case KindFloat64:
		return "FLOAT64"
	case KindBool:
		return "BOOL"
	case KindString:
		return "STRING"
	case KindDate:
		return "DATE"
	case KindTimestamp:
		return "TIMESTAMP"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a tagged union over the primitive value domain (spec.md §3.1).
// The zero Value is Null.
type Value struct {
	kind Kind
	i    int64   // Int64, Date (days), Timestamp (micros)
	f    float64 // Float64
	b    bool    // Bool
	s    string  // String
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Int64 wraps a signed 64-bit integer.
func Int64(v int64) Value { return Value{kind: KindInt64, i: v} }

// Float64 wraps an IEEE-754 double. Ingestion callers must reject NaN/Inf
// themselves (see pkg/csvload); the Value type does not filter on
// construction so that round-tripping already-validated data stays cheap.
func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String wraps a UTF-8 string.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Date wraps a day count relative to the Unix epoch.
func Date(days int32) Value { return Value{kind: KindDate, i: int64(days)} }

// Timestamp wraps a microsecond count relative to the Unix epoch.
func Timestamp(micros int64) Value { return Value{kind: KindTimestamp, i: micros} }

// Kind reports the value's dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt64 returns the underlying int64; valid for KindInt64.
func (v Value) AsInt64() int64 { return v.i }

// AsFloat64 returns the underlying float64; valid for KindFloat64.
func (v Value) AsFloat64() float64 { return v.f }

// AsBool returns the underlying bool; valid for KindBool.
func (v Value) AsBool() bool { return v.b }

// AsString returns the underlying string; valid for KindString.
func (v Value) AsString() string { return v.s }

// AsDate returns the day count; valid for KindDate.
func (v Value) AsDate() int32 { return int32(v.i) }

// AsTimestamp returns the microsecond count; valid for KindTimestamp.
func (v Value) AsTimestamp() int64 { return v.i }

// IsFinite reports whether a Float64 value is neither NaN nor infinite.
// Non-float kinds are always finite.
func (v Value) IsFinite() bool {
	if v.kind != KindFloat64 {
		return true
	}
	return !math.IsNaN(v.f) && !math.IsInf(v.f, 0)
}

// Equal compares two values for equality under SQL-ish semantics: two Nulls
// never compare equal to each other via Equal (use IsNull to test nullity),
// matching spec.md §3.1's "comparisons with Null yield Null".
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return false
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt64, KindDate, KindTimestamp:
		return v.i == o.i
	case KindFloat64:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	default:
		return false
	}
}

// String renders the value for debugging and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindFloat64:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindString:
		return v.s
	case KindDate:
		return fmt.Sprintf("Date(%d)", v.i)
	case KindTimestamp:
		return fmt.Sprintf("Timestamp(%d)", v.i)
	default:
		return "?"
	}
}
