package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"ema-tidy/models"
)

// ExportReader reads raw EMA exports. Files ending in .xlsx are read from the
// workbook's first sheet; everything else is parsed as comma-separated text.
type ExportReader struct{}

// Read loads the export at path, dropping the first headerRows lines.
func (ExportReader) Read(path string, headerRows int) (*models.RawExportTable, error) {
	return ReadRawExport(path, headerRows)
}

// ReadRawExport loads the export at path, dropping the first headerRows lines.
// A missing file is reported as fs.ErrNotExist wrapped in models.ErrIO.
func ReadRawExport(path string, headerRows int) (*models.RawExportTable, error) {
	var (
		records [][]string
		err     error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		records, err = readWorkbook(path, headerRows)
	} else {
		records, err = readCSV(path, headerRows)
	}
	if err != nil {
		return nil, err
	}
	return newRawTable(path, records), nil
}

// readCSV skips headerRows physical lines, then parses the rest. Blank lines
// after the header block are ignored.
func readCSV(path string, headerRows int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w: %w", path, models.ErrIO, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	for i := 0; i < headerRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("csv: read header %q: %w: %w", path, models.ErrIO, err)
		}
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read %q: %w: %w", path, models.ErrIO, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// readWorkbook skips headerRows sheet rows, then drops blank rows.
func readWorkbook(path string, headerRows int) ([][]string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("xlsx: open %q: %w: %w", path, models.ErrIO, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open %q: %w: %w", path, models.ErrIO, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx: %q has no sheets: %w", path, models.ErrSchemaMismatch)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx: read sheet %q: %w: %w", sheets[0], models.ErrIO, err)
	}

	if headerRows > len(rows) {
		headerRows = len(rows)
	}
	var records [][]string
	for _, row := range rows[headerRows:] {
		if len(row) == 0 {
			continue
		}
		records = append(records, row)
	}
	return records, nil
}

// newRawTable pads short rows with empty cells up to the widest row, and never
// below the fixed export width: workbooks omit trailing blank cells.
func newRawTable(path string, records [][]string) *models.RawExportTable {
	width := models.RawColumns
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}

	cols := make([]string, width)
	for i := range cols {
		cols[i] = strconv.Itoa(i)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, width)
		copy(row, rec)
		rows[i] = row
	}

	return &models.RawExportTable{
		Table: models.Table{Columns: cols, Rows: rows},
		Path:  path,
	}
}
