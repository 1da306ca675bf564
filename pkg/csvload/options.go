// Package csvload implements the bounded-memory streaming CSV import
// pipeline: parse rows into typed values and drive batch inserts into a node
// or relationship table without holding the whole file in memory.
package csvload

import (
	"runtime"

	"github.com/cuemby/ruzudb/pkg/config"
)

// Options configures one import run. Zero value is not valid; start from
// DefaultOptions and override what the caller needs.
type Options struct {
	Delimiter byte
	Quote     byte
	Escape    byte

	HasHeader bool
	SkipRows  int

	IgnoreErrors bool
	BatchSize    int

	Parallel   bool
	NumThreads int
	BlockSize  int

	UseMmap            bool
	MmapThreshold      int64
	StreamingEnabled   bool
	StreamingThreshold int64
	InternStrings      bool
}

// DefaultOptions returns the options matching config.Default's CSV section.
func DefaultOptions() Options {
	return FromConfig(config.Default().CSV)
}

// FromConfig translates a config.CSVDefaults document into Options.
func FromConfig(c config.CSVDefaults) Options {
	delim := byte(',')
	if len(c.Delimiter) > 0 {
		delim = c.Delimiter[0]
	}
	quote := byte('"')
	if len(c.Quote) > 0 {
		quote = c.Quote[0]
	}
	escape := quote
	if len(c.Escape) > 0 {
		escape = c.Escape[0]
	}
	numThreads := c.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	return Options{
		Delimiter:          delim,
		Quote:              quote,
		Escape:             escape,
		HasHeader:          c.HasHeader,
		SkipRows:           c.SkipRows,
		IgnoreErrors:       c.IgnoreErrors,
		BatchSize:          c.BatchSize,
		Parallel:           c.Parallel,
		NumThreads:         numThreads,
		BlockSize:          c.BlockSize,
		UseMmap:            c.UseMmap,
		MmapThreshold:      c.MmapThreshold,
		StreamingEnabled:   c.StreamingEnabled,
		StreamingThreshold: c.StreamingThreshold,
		InternStrings:      c.InternStrings,
	}
}

// ImportError records one row that failed parsing or validation while
// ignore_errors is set (spec.md §4.8).
type ImportError struct {
	Row     int
	Column  string
	Message string
}

// ImportResult summarizes a completed (or partially completed) import.
type ImportResult struct {
	RowsImported int
	RowsSkipped  int
	BytesRead    int64
	Errors       []ImportError
}

// Progress is reported at batch boundaries during a sequential import
// (spec.md §4.8 step 6).
type Progress struct {
	RowsProcessed  int64
	BytesProcessed int64
	RowsPerSecond  float64
	ETASeconds     float64
}

// ProgressFunc receives progress updates. May be nil.
type ProgressFunc func(Progress)
