package stats

import (
	"errors"
	"testing"

	xlsx "github.com/360EntSecGroup-Skylar/excelize/v2"
)

// TestReadTableCSV ensures the header is trimmed and ragged rows are kept.
func TestReadTableCSV(t *testing.T) {
	content := "\ufeffProvince/State, Country/Region ,Lat\nX,A,1.5\n,B\n"
	tbl := mustTable(t, "cases.csv", content)

	if got := tbl.Column("Country/Region"); got != 1 {
		t.Fatalf("Column(Country/Region) = %d, want 1", got)
	}
	if got := tbl.Column("Province/State"); got != 0 {
		t.Fatalf("Column(Province/State) = %d, want 0", got)
	}
	if len(tbl.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(tbl.Records))
	}
	if got := tbl.Cell(1, 2); got != "" {
		t.Fatalf("Cell(1, 2) = %q, want empty", got)
	}
	if got := tbl.Cell(0, 2); got != "1.5" {
		t.Fatalf("Cell(0, 2) = %q, want 1.5", got)
	}
	if got := tbl.Cell(5, 0); got != "" {
		t.Fatalf("Cell(5, 0) = %q, want empty", got)
	}
}

// TestReadTableXLSX ensures workbooks are read from their first sheet.
func TestReadTableXLSX(t *testing.T) {
	wb := xlsx.NewFile()
	cells := map[string]interface{}{
		"A1": "Province/State", "B1": "Country/Region", "C1": "Lat", "D1": "Long", "E1": "1/22/20",
		"A2": "", "B2": "A", "C2": "10", "D2": "20", "E2": "7",
	}
	for axis, v := range cells {
		if err := wb.SetCellValue("Sheet1", axis, v); err != nil {
			t.Fatalf("SetCellValue(%s) returned error: %v", axis, err)
		}
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer returned error: %v", err)
	}

	tbl, err := ReadTable(NewFile("cases.xlsx", buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadTable returned error: %v", err)
	}
	if DayCount(tbl.Header) != 1 {
		t.Fatalf("expected 1 day column in %v", tbl.Header)
	}
	col := tbl.Column("1/22/20")
	if got := tbl.Cell(0, col); got != "7" {
		t.Fatalf("day cell = %q, want 7", got)
	}
}

// TestReadTableRejectsUnknownSuffix ensures unknown formats are reported.
func TestReadTableRejectsUnknownSuffix(t *testing.T) {
	_, err := ReadTable(NewFile("cases.json", []byte("{}")))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("ReadTable error = %v, want %v", err, ErrUnsupportedFormat)
	}
}

// TestReadTableRejectsEmptyPayload ensures a table needs at least a header.
func TestReadTableRejectsEmptyPayload(t *testing.T) {
	if _, err := ReadTable(NewFile("cases.csv", nil)); err == nil {
		t.Fatal("expected an error for an empty payload")
	}
}
