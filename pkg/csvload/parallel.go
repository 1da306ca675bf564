package csvload

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/cuemby/ruzudb/pkg/log"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// parsedRow is one record's parse outcome, row-numbered from the file's byte
// offsets so errors stay meaningful regardless of which worker produced them.
type parsedRow struct {
	row    int
	values map[string]types.Value
	err    error
}

// runParallel implements spec.md §4.8's block-parallel pipeline: the file is
// split into fixed-size blocks aligned to record boundaries, a bounded pool
// of workers parses blocks concurrently, and the resulting batches are
// committed to the target table in block order. Quoted newlines are
// rejected outright (a per-block scan cannot tell whether a quote opened in
// a prior block is still open at the block boundary).
func runParallel(table string, of *openedFile, opts Options, buildParser func(header []string) (rowParseFunc, error), sink batchSinkFunc) (ImportResult, error) {
	data, err := wholeFileBytes(of)
	if err != nil {
		return ImportResult{}, err
	}

	dataStart, header, err := skipToData(data, opts)
	if err != nil {
		return ImportResult{}, err
	}
	parse, err := buildParser(header)
	if err != nil {
		return ImportResult{}, err
	}

	cuts := computeCuts(data, dataStart, opts.BlockSize)
	numBlocks := len(cuts) - 1
	if numBlocks <= 0 {
		return ImportResult{}, nil
	}

	results := make([][]parsedRow, numBlocks)
	blockErrs := make([]error, numBlocks)

	queue := make(chan int, numBlocks)
	for i := 0; i < numBlocks; i++ {
		queue <- i
	}
	close(queue)

	workers := opts.NumThreads
	if workers <= 0 {
		workers = 1
	}
	if workers > numBlocks {
		workers = numBlocks
	}

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for idx := range queue {
				rowBase := bytes.Count(data[dataStart:cuts[idx]], []byte{'\n'})
				rows, err := parseBlock(data[cuts[idx]:cuts[idx+1]], rowBase, opts, parse)
				if err != nil {
					blockErrs[idx] = err
					continue
				}
				results[idx] = rows
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range blockErrs {
		if err != nil {
			return ImportResult{}, err
		}
	}

	result := ImportResult{BytesRead: int64(len(data))}
	buf := newRowBuffer(opts.BatchSize)
	logger := log.WithComponent("csvload")

	flush := func() error {
		if buf.len() == 0 {
			return nil
		}
		rows := buf.take()
		n, err := sink(rows)
		if err != nil {
			return err
		}
		result.RowsImported += n
		metrics.CSVImportRowsTotal.WithLabelValues(table, "imported").Add(float64(n))
		return nil
	}

	for _, block := range results {
		for _, pr := range block {
			if pr.err != nil {
				if opts.IgnoreErrors {
					result.RowsSkipped++
					result.Errors = append(result.Errors, ImportError{Row: pr.row, Message: pr.err.Error()})
					continue
				}
				return result, annotateRow(pr.err, pr.row)
			}
			buf.add(pr.values)
			if buf.full() {
				if err := flush(); err != nil {
					return result, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return result, err
	}
	logger.Info().Int("rows_imported", result.RowsImported).Int("blocks", numBlocks).Msg("parallel CSV import complete")
	return result, nil
}

func wholeFileBytes(of *openedFile) ([]byte, error) {
	if of.m != nil {
		return []byte(of.m), nil
	}
	data, err := io.ReadAll(io.NewSectionReader(of.f, 0, of.size))
	if err != nil {
		return nil, storeerr.Wrap(storeerr.IO, "read CSV file for parallel import", err)
	}
	return data, nil
}

// skipToData advances past skip_rows and the header row, returning the byte
// offset where data rows begin and the header fields (nil if has_header is
// false).
func skipToData(data []byte, opts Options) (int, []string, error) {
	pos := 0
	for i := 0; i < opts.SkipRows; i++ {
		_, next, quoted := nextRecord(data[pos:], opts.Quote)
		if quoted {
			return 0, nil, storeerr.New(storeerr.ParallelUnsupported, "quoted newline in skipped rows is not supported in parallel mode")
		}
		if next == nil {
			return 0, nil, storeerr.New(storeerr.Import, "CSV file ends before skip_rows is satisfied")
		}
		pos = len(data) - len(next)
	}
	var header []string
	if opts.HasHeader {
		rec, next, quoted := nextRecord(data[pos:], opts.Quote)
		if quoted {
			return 0, nil, storeerr.New(storeerr.ParallelUnsupported, "quoted newline in header row is not supported in parallel mode")
		}
		fields, err := splitFields(rec, opts.Delimiter, opts.Quote, opts.Escape)
		if err != nil {
			return 0, nil, err
		}
		header = fields
		if next != nil {
			pos = len(data) - len(next)
		} else {
			pos = len(data)
		}
	}
	return pos, header, nil
}

// nextRecord scans data for one CSV record terminated by a newline outside
// quotes, reporting whether a newline was seen while inside a quoted field.
func nextRecord(data []byte, quote byte) (record, rest []byte, hadQuotedNewline bool) {
	inQuote := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == quote {
			inQuote = !inQuote
			continue
		}
		if c == '\n' {
			if inQuote {
				hadQuotedNewline = true
				continue
			}
			return bytes.TrimSuffix(data[:i], []byte{'\r'}), data[i+1:], hadQuotedNewline
		}
	}
	return bytes.TrimSuffix(data, []byte{'\r'}), nil, hadQuotedNewline
}

// computeCuts splits data[start:] into block-sized runs aligned to record
// boundaries (spec.md §4.8: "the worker advances to the first newline after
// the block start"), returning cut offsets with cuts[0]==start and
// cuts[len-1]==len(data).
func computeCuts(data []byte, start, blockSize int) []int {
	if blockSize <= 0 {
		blockSize = 256 * 1024
	}
	cuts := []int{start}
	pos := start
	for pos < len(data) {
		next := pos + blockSize
		if next >= len(data) {
			cuts = append(cuts, len(data))
			break
		}
		rel := bytes.IndexByte(data[next:], '\n')
		if rel < 0 {
			cuts = append(cuts, len(data))
			break
		}
		cutPos := next + rel + 1
		cuts = append(cuts, cutPos)
		pos = cutPos
	}
	return cuts
}

// parseBlock parses every record in block, numbering rows from rowBase+1,
// and rejects any record containing a newline inside a quoted field.
func parseBlock(block []byte, rowBase int, opts Options, parse rowParseFunc) ([]parsedRow, error) {
	var out []parsedRow
	pos := 0
	row := rowBase
	for pos < len(block) {
		rec, rest, quoted := nextRecord(block[pos:], opts.Quote)
		row++
		if quoted {
			return nil, storeerr.New(storeerr.ParallelUnsupported, fmt.Sprintf("row %d contains a newline inside a quoted field", row)).WithRow(row)
		}
		fields, err := splitFields(rec, opts.Delimiter, opts.Quote, opts.Escape)
		if err != nil {
			out = append(out, parsedRow{row: row, err: err})
		} else {
			values, perr := parse(fields)
			if perr != nil {
				out = append(out, parsedRow{row: row, err: perr})
			} else {
				out = append(out, parsedRow{row: row, values: values})
			}
		}
		if rest == nil {
			break
		}
		pos = len(block) - len(rest)
	}
	return out, nil
}
