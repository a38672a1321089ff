package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoInput is returned when neither a CSV nor a spreadsheet input exists.
var ErrNoInput = errors.New("no input table found")

// inputExtensions are tried in order when locating <name> in a directory.
var inputExtensions = []string{".csv", ".xlsx", ".tsv"}

// FindInput returns the first existing <dir>/<name><ext>.
func FindInput(dir, name string) (string, error) {
	var tried []string
	for _, ext := range inputExtensions {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		tried = append(tried, path)
	}
	return "", fmt.Errorf("%w: tried %s", ErrNoInput, strings.Join(tried, ", "))
}

// ReadTable reads a .csv, .tsv or .xlsx file. Spreadsheets use their first
// sheet.
func ReadTable(path string) (*Table, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		comma := ','
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			comma = '\t'
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f, name, comma)
	case ".xlsx":
		return readXLSX(path, name)
	default:
		return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
	}
}

func readXLSX(path, name string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], path, err)
	}
	return tableFromRows(name, rows)
}

// RequireColumn fails when t has no column c or when every value in it is
// blank.
func RequireColumn(t *Table, c string) error {
	if !t.HasColumn(c) {
		return fmt.Errorf("input %s has no %q column (columns: %s)", t.Name, c, strings.Join(t.Columns(), ", "))
	}
	for _, v := range t.Column(c) {
		if v != "" {
			return nil
		}
	}
	if t.Len() == 0 {
		return nil
	}
	return fmt.Errorf("input %s has an empty %q column", t.Name, c)
}

// LoadInput locates <dir>/<name>, reads it and checks that it carries the
// id column.
func LoadInput(dir, name, idColumn string) (*Table, string, error) {
	path, err := FindInput(dir, name)
	if err != nil {
		return nil, "", err
	}
	t, err := ReadTable(path)
	if err != nil {
		return nil, path, err
	}
	if err := RequireColumn(t, idColumn); err != nil {
		return nil, path, err
	}
	return t, path, nil
}

// WriteXLSX writes t to the first sheet of a new workbook.
func WriteXLSX(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	write := func(row int, cells []string) error {
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := write(1, t.Columns()); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", t.Name, err)
	}
	for i, r := range t.Rows() {
		if err := write(i+2, t.Values(r)); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, t.Name, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return f.SaveAs(path)
}
