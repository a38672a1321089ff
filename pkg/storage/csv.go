package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"ytmeta-go/pkg/model"
)

// WriteCSV writes the header followed by every row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", t.Name, err)
	}
	for i, r := range t.Rows() {
		if err := cw.Write(t.Values(r)); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes t to path, creating parent directories as needed.
func WriteCSVFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV reads a delimited table whose first row is the header.
func ReadCSV(r io.Reader, name string, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return tableFromRows(name, rows)
}

var headerCaser = cases.Lower(language.Und)

// normalizeHeader makes "Video ID", "video_id " and a BOM-prefixed
// "VIDEO_ID" name the same column.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = norm.NFC.String(strings.TrimSpace(h))
	h = headerCaser.String(h)
	return strings.Join(strings.Fields(h), "_")
}

// tableFromRows builds a table from raw rows, header first. Blank rows are
// skipped and short rows padded.
func tableFromRows(name string, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = normalizeHeader(h)
		if header[i] == "" {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	t := NewTable(name, header...)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		values := make([]string, len(header))
		for i := range header {
			if i < len(row) {
				values[i] = strings.TrimSpace(row[i])
			}
		}
		t.Append(model.RecordFrom(header, values))
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
