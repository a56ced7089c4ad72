package stats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	xlsx "github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/anrid/xls"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor an
// Excel workbook.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// Table is a parsed tabular payload. The first row of the source becomes the
// header.
type Table struct {
	Name    string
	Header  []string
	Records [][]string
}

// Column returns the index of the named header, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at record row and column col, or "" when the cell
// does not exist.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Records) || col < 0 {
		return ""
	}
	r := t.Records[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// ReadTable parses f into a Table.
func ReadTable(f *File) (*Table, error) {
	t := &Table{Name: f.Name}
	err := ExtractDataFromFile(f, func(r []string) {
		if t.Header == nil {
			t.Header = trimAll(r)
			return
		}
		t.Records = append(t.Records, r)
	})
	if err != nil {
		return nil, err
	}
	if t.Header == nil {
		return nil, fmt.Errorf("table %q: empty", f.Name)
	}
	return t, nil
}

// ExtractDataFromFile calls handler for every row of f, choosing the decoder
// from the file name suffix.
func ExtractDataFromFile(f *File, handler func(r []string)) error {
	data, err := f.Content()
	if err != nil {
		return err
	}

	switch name := strings.ToLower(f.Name); {
	case strings.HasSuffix(name, ".csv"):
		return ExtractDataFromCSV(f.Name, data, handler)
	case strings.HasSuffix(name, ".xlsx"):
		return ExtractDataFromXLSX(f.Name, data, handler)
	case strings.HasSuffix(name, ".xls"):
		return ExtractDataFromXLS(f.Name, data, handler)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Name)
}

func ExtractDataFromCSV(name string, data []byte, handler func(r []string)) error {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	for {
		r, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read CSV %q: %w", name, err)
		}
		handler(r)
	}
}

func ExtractDataFromXLS(name string, data []byte, handler func(r []string)) error {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return fmt.Errorf("read XLS %q: %w", name, err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		var cols []string
		for j := 0; j <= row.LastCol(); j++ {
			cols = append(cols, row.Col(j))
		}
		handler(cols)
	}
	return nil
}

func ExtractDataFromXLSX(name string, data []byte, handler func(r []string)) error {
	wb, err := xlsx.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("read XLSX %q: %w", name, err)
	}

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("rows of sheet %q in %q: %w", sheets[0], name, err)
	}

	for _, r := range rows {
		handler(r)
	}
	return nil
}

func trimAll(r []string) []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))
	}
	return out
}
