package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// RawRow maps column names to cell values. Column names vary across files.
type RawRow map[string]string

// Parse reads a header row followed by data rows. An empty document or a
// header-only document yields no rows and no error. A stray quote inside an
// unquoted field is kept as a literal character. Columns missing from a
// short row are present with an empty value; with duplicate column names
// the last one wins.
func Parse(r io.Reader) ([]RawRow, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrParse, err)
	}

	var rows []RawRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrParse, len(rows)+1, err)
		}
		row := make(RawRow, len(header))
		for i, col := range header {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			row[col] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
