package csvload

import (
	"bufio"
	"bytes"

	"github.com/cuemby/ruzudb/pkg/storeerr"
)

// recordSplitter returns a bufio.SplitFunc that yields one raw CSV record
// per token, honoring quote-doubling so that newlines inside a quoted field
// do not end the record (spec.md §4.8's sequential pipeline tolerates
// embedded newlines; only the parallel pipeline rejects them).
func recordSplitter(quote byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if len(data) == 0 {
			if atEOF {
				return 0, nil, nil
			}
			return 0, nil, nil
		}
		inQuote := false
		for i := 0; i < len(data); i++ {
			c := data[i]
			if c == quote {
				inQuote = !inQuote
				continue
			}
			if c == '\n' && !inQuote {
				line := data[:i]
				line = bytes.TrimSuffix(line, []byte{'\r'})
				return i + 1, line, nil
			}
		}
		if atEOF {
			line := bytes.TrimSuffix(data, []byte{'\r'})
			return len(data), line, nil
		}
		// Need more data to find the record terminator (or to resolve an
		// open quote).
		return 0, nil, nil
	}
}

// splitFields splits one raw CSV record into unescaped fields.
func splitFields(line []byte, delim, quote, escape byte) ([]string, error) {
	var fields []string
	var cur bytes.Buffer
	inQuote := false
	quoted := false

	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case inQuote:
			if c == escape && escape != quote && i+1 < len(line) {
				cur.WriteByte(line[i+1])
				i += 2
				continue
			}
			if c == quote {
				if i+1 < len(line) && line[i+1] == quote {
					cur.WriteByte(quote)
					i += 2
					continue
				}
				inQuote = false
				i++
				continue
			}
			cur.WriteByte(c)
			i++
		case c == quote && cur.Len() == 0 && !quoted:
			inQuote = true
			quoted = true
			i++
		case c == delim:
			fields = append(fields, cur.String())
			cur.Reset()
			quoted = false
			i++
		default:
			cur.WriteByte(c)
			i++
		}
	}
	if inQuote {
		return nil, storeerr.New(storeerr.Import, "unterminated quoted field")
	}
	fields = append(fields, cur.String())
	return fields, nil
}
