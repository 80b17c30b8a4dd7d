package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"fjacquet/teamkasse/internal/parsererror"

	"github.com/gocarina/gocsv"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// stripBOM drops a leading UTF-8 byte order mark.
func stripBOM(in io.Reader) io.Reader {
	br := bufio.NewReader(in)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}
	return br
}

// headerReader is the gocsv.CSVReader used for every export. It trims and
// lower-cases the header row and remembers it for validation.
type headerReader struct {
	r      *csv.Reader
	header []string
}

func newHeaderReader(in io.Reader, delimiter rune) *headerReader {
	r := csv.NewReader(stripBOM(in))
	r.Comma = delimiter
	r.TrimLeadingSpace = true
	return &headerReader{r: r}
}

func (h *headerReader) Read() ([]string, error) {
	rec, err := h.r.Read()
	if err != nil {
		return nil, err
	}
	if h.header == nil {
		for i, col := range rec {
			rec[i] = strings.ToLower(strings.TrimSpace(col))
		}
		h.header = rec
	}
	return rec, nil
}

func (h *headerReader) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		rec, err := h.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// decode reads every row of a delimited export into raw records. A file
// that cannot be split into consistent rows, or lacks a required column, is
// rejected as a whole.
func decode[T any](in io.Reader, delimiter rune, schema Schema, source string) ([]T, error) {
	hr := newHeaderReader(in, delimiter)
	expected := strings.Join(schema.Required(), string(delimiter))

	var rows []T
	if err := gocsv.UnmarshalCSV(hr, &rows); err != nil {
		return nil, &parsererror.InvalidFormatError{
			FilePath:       source,
			ExpectedFormat: expected,
			Msg:            fmt.Sprintf("unreadable %s export", schema),
			Err:            err,
		}
	}

	if missing := missingColumns(hr.header, schema.Required()); len(missing) > 0 {
		return nil, &parsererror.InvalidFormatError{
			FilePath:             source,
			ExpectedFormat:       expected,
			ActualContentSnippet: strings.Join(hr.header, string(delimiter)),
			Msg:                  fmt.Sprintf("missing columns %s", strings.Join(missing, ", ")),
		}
	}
	return rows, nil
}

func missingColumns(header, required []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, col := range header {
		present[col] = struct{}{}
	}
	var missing []string
	for _, col := range required {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}
