package csvload

import (
	"testing"

	"github.com/cuemby/ruzudb/pkg/types"
)

func TestNextRecordPlain(t *testing.T) {
	rec, rest, quoted := nextRecord([]byte("a,b\nc,d\n"), '"')
	if quoted {
		t.Error("nextRecord() should not report a quoted newline")
	}
	if string(rec) != "a,b" {
		t.Errorf("rec = %q, want a,b", rec)
	}
	if string(rest) != "c,d\n" {
		t.Errorf("rest = %q, want c,d\\n", rest)
	}
}

func TestNextRecordDetectsQuotedNewline(t *testing.T) {
	_, _, quoted := nextRecord([]byte("\"a\nb\",c\n"), '"')
	if !quoted {
		t.Error("nextRecord() should detect a newline inside a quoted field")
	}
}

func TestNextRecordNoTrailingNewline(t *testing.T) {
	rec, rest, _ := nextRecord([]byte("a,b"), '"')
	if string(rec) != "a,b" || rest != nil {
		t.Errorf("rec = %q, rest = %q", rec, rest)
	}
}

func TestComputeCutsSpansWholeFile(t *testing.T) {
	data := []byte("row1\nrow2\nrow3\nrow4\n")
	cuts := computeCuts(data, 0, 6)
	if cuts[0] != 0 || cuts[len(cuts)-1] != len(data) {
		t.Errorf("cuts = %v, want to start at 0 and end at %d", cuts, len(data))
	}
	for i := 1; i < len(cuts); i++ {
		if cuts[i] < cuts[i-1] {
			t.Fatalf("cuts not monotonic: %v", cuts)
		}
	}
}

func TestComputeCutsAlignsToNewlineBoundary(t *testing.T) {
	data := []byte("aa\nbb\ncc\ndd\n")
	cuts := computeCuts(data, 0, 3)
	for _, c := range cuts[1 : len(cuts)-1] {
		if c > 0 && data[c-1] != '\n' {
			t.Errorf("cut at %d does not fall right after a newline: %q", c, data[:c])
		}
	}
}

func TestSkipToDataWithHeader(t *testing.T) {
	data := []byte("id,name\n1,ann\n2,bo\n")
	pos, header, err := skipToData(data, Options{HasHeader: true, Quote: '"', Delimiter: ','})
	if err != nil {
		t.Fatalf("skipToData() error = %v", err)
	}
	if len(header) != 2 || header[0] != "id" || header[1] != "name" {
		t.Errorf("header = %v", header)
	}
	if string(data[pos:]) != "1,ann\n2,bo\n" {
		t.Errorf("data[pos:] = %q", data[pos:])
	}
}

func TestSkipToDataWithoutHeader(t *testing.T) {
	data := []byte("1,ann\n2,bo\n")
	pos, header, err := skipToData(data, Options{HasHeader: false, Quote: '"', Delimiter: ','})
	if err != nil {
		t.Fatalf("skipToData() error = %v", err)
	}
	if header != nil {
		t.Errorf("header = %v, want nil", header)
	}
	if pos != 0 {
		t.Errorf("pos = %d, want 0", pos)
	}
}

func TestSkipToDataRejectsQuotedNewlineInHeader(t *testing.T) {
	data := []byte("\"id\nname\"\n1,ann\n")
	_, _, err := skipToData(data, Options{HasHeader: true, Quote: '"', Delimiter: ','})
	if err == nil {
		t.Fatal("skipToData() should reject a quoted newline in the header row under parallel mode")
	}
}

func TestParseBlockParsesEachRecord(t *testing.T) {
	opts := Options{Quote: '"', Delimiter: ','}
	parse := func(fields []string) (map[string]types.Value, error) {
		return map[string]types.Value{"id": types.String(fields[0])}, nil
	}
	rows, err := parseBlock([]byte("1,ann\n2,bo\n"), 0, opts, parse)
	if err != nil {
		t.Fatalf("parseBlock() error = %v", err)
	}
	if len(rows) != 2 || rows[0].row != 1 || rows[1].row != 2 {
		t.Errorf("rows = %+v", rows)
	}
	if !rows[0].values["id"].Equal(types.String("1")) {
		t.Errorf("rows[0].values = %+v", rows[0].values)
	}
}

func TestParseBlockRejectsQuotedNewline(t *testing.T) {
	opts := Options{Quote: '"', Delimiter: ','}
	parse := func(fields []string) (map[string]types.Value, error) { return nil, nil }
	_, err := parseBlock([]byte("\"a\nb\",c\n"), 0, opts, parse)
	if err == nil {
		t.Fatal("parseBlock() should reject a record with a newline inside a quoted field")
	}
}
