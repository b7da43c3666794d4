package exporter

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"poscope/pkg/contracts/domain"
)

// TableRecords flattens a table into a header row and string records.
// The index becomes the first column.
func TableRecords(t *domain.Table) ([]string, [][]string) {
	headers := append([]string{t.IndexName}, t.Columns...)
	records := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, t.Index[i])
		for _, v := range row {
			rec = append(rec, formatNumber(v))
		}
		records[i] = rec
	}
	return headers, records
}

// WriteTableCSV writes a table as Shift-JIS CSV and returns the number of
// substituted characters
func WriteTableCSV(w io.Writer, t *domain.Table) (int, error) {
	headers, records := TableRecords(t)
	return WriteCSV(w, WriteOptions{Headers: headers, Records: records, Encoding: EncodingShiftJIS})
}

// ReadTableCSV parses a table written by WriteTableCSV. Empty cells become NaN.
func ReadTableCSV(r io.Reader, name string) (*domain.Table, error) {
	headers, records, err := ReadCSV(r, EncodingShiftJIS)
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("table %s has no header", name)
	}

	t := domain.NewTable(name, headers[0], headers[1:]...)
	for line, rec := range records {
		if len(rec) != len(headers) {
			return nil, fmt.Errorf("line %d: got %d fields, want %d", line+2, len(rec), len(headers))
		}
		values := make([]domain.Number, len(rec)-1)
		for j, cell := range rec[1:] {
			v, err := parseNumber(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line+2, headers[j+1], err)
			}
			values[j] = v
		}
		t.AppendRow(rec[0], values...)
	}
	return t, nil
}

// WriteTableXLSX writes a table as a single-sheet workbook. Missing values
// are left blank.
func WriteTableXLSX(w io.Writer, t *domain.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]interface{}, 0, len(t.Columns)+1)
	header = append(header, t.IndexName)
	for _, c := range t.Columns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, row := range t.Rows {
		values := make([]interface{}, 0, len(row)+1)
		values = append(values, t.Index[i])
		for _, v := range row {
			if v.IsNaN() || math.IsInf(float64(v), 0) {
				values = append(values, nil)
				continue
			}
			values = append(values, float64(v))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	return f.Write(w)
}

var sheetNameReplacer = strings.NewReplacer(
	"[", "(", "]", ")", ":", "_", "*", "_", "?", "_", "/", "_", "\\", "_",
)

// sheetName maps a table name onto the characters and length Excel allows
func sheetName(name string) string {
	name = sheetNameReplacer.Replace(name)
	if name == "" {
		return "Sheet1"
	}
	r := []rune(name)
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}
