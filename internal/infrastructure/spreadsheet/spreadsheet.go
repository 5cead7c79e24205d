// Package spreadsheet loads tabular form exports into tables.
// Excel workbooks are read via excelize; CSV and TSV files via
// encoding/csv. The first row is always treated as the header.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ga4gh-tools/svcreg/internal/domain/submission"
	"github.com/ga4gh-tools/svcreg/internal/log"
)

var (
	// ErrFileNotFound indicates the spreadsheet file is missing.
	ErrFileNotFound = errors.New("spreadsheet not found")
	// ErrSheetNotFound indicates the named worksheet does not exist.
	ErrSheetNotFound = errors.New("worksheet not found")
	// ErrEmptySheet indicates the sheet has no header row.
	ErrEmptySheet = errors.New("worksheet has no header row")
)

// LoadTable reads the file at path into a table. sheet selects the
// worksheet for Excel inputs (default: first sheet) and is ignored
// for CSV/TSV.
func LoadTable(path, sheet string) (submission.Table, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return submission.Table{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return submission.Table{}, fmt.Errorf("checking spreadsheet: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadSeparated(path, ',')
	case ".tsv":
		return loadSeparated(path, '\t')
	default:
		// Excel by default, matching the registry form export.
		return loadExcel(path, sheet)
	}
}

func loadExcel(path, sheet string) (submission.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return submission.Table{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		log.Debug(log.CatGenerate, "no sheet given, using first", "sheet", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return submission.Table{}, fmt.Errorf("%w: %q: %v", ErrSheetNotFound, sheet, err)
	}
	return buildTable(rows)
}

func loadSeparated(path string, comma rune) (submission.Table, error) {
	f, err := os.Open(path) //nolint:gosec // G304: input path comes from flags
	if err != nil {
		return submission.Table{}, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return submission.Table{}, fmt.Errorf("reading %s: %w", path, err)
		}
		rows = append(rows, record)
	}
	return buildTable(rows)
}

func buildTable(rows [][]string) (submission.Table, error) {
	if len(rows) == 0 {
		return submission.Table{}, ErrEmptySheet
	}

	columns := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		columns[i] = strings.TrimSpace(c)
	}

	// Pad short rows so every row has a cell per column.
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(columns) {
			padded := make([]string, len(columns))
			copy(padded, row)
			row = padded
		}
		data = append(data, row)
	}

	return submission.Table{Columns: columns, Rows: data}, nil
}
