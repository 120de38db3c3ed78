package staging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func xlsxFixture(t *testing.T, sheet string, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			t.Fatalf("DeleteSheet: %v", err)
		}
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParseExcel(t *testing.T) {
	r := xlsxFixture(t, "Ledger", [][]interface{}{
		{"Date", "Account", "Debit"},
		{"2026-08-01", "1001", "100"},
		{"", "", ""},
		{"2026-08-02", "1002", "200"},
	})

	headers, rows, err := parseSheet(r, "ledger.xlsx", "Ledger")
	if err != nil {
		t.Fatalf("parseSheet: %v", err)
	}
	if len(headers) != 3 || headers[0] != "Date" {
		t.Errorf("headers = %v", headers)
	}
	// the fully empty row is skipped
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1]["Account"] != "1002" {
		t.Errorf("rows[1][Account] = %q, want 1002", rows[1]["Account"])
	}
}

func TestParseExcelDefaultsToFirstSheet(t *testing.T) {
	r := xlsxFixture(t, "Sheet1", [][]interface{}{
		{"Date", "Amount"},
		{"2026-08-01", "5"},
	})

	headers, rows, err := parseSheet(r, "book.xlsx", "")
	if err != nil {
		t.Fatalf("parseSheet: %v", err)
	}
	if len(headers) != 2 || len(rows) != 1 {
		t.Errorf("headers = %v, rows = %d", headers, len(rows))
	}
}

func TestParseExcelMissingSheet(t *testing.T) {
	r := xlsxFixture(t, "Sheet1", [][]interface{}{{"A"}})
	if _, _, err := parseSheet(r, "book.xlsx", "Nope"); err == nil {
		t.Fatal("expected an error for a missing sheet")
	}
}

func TestParseExcelEmptySheet(t *testing.T) {
	r := xlsxFixture(t, "Sheet1", nil)
	if _, _, err := parseSheet(r, "book.xlsx", ""); err == nil {
		t.Fatal("expected an error for an empty sheet")
	}
}

func TestParseCSV(t *testing.T) {
	csvData := "Date,Account,Debit\n2026-08-01,1001,100\n2026-08-02,1002,\n"
	headers, rows, err := parseSheet(strings.NewReader(csvData), "ledger.csv", "")
	if err != nil {
		t.Fatalf("parseSheet: %v", err)
	}
	if len(headers) != 3 {
		t.Errorf("headers = %v", headers)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["Debit"] != "100" || rows[1]["Debit"] != "" {
		t.Errorf("debit cells = %q, %q", rows[0]["Debit"], rows[1]["Debit"])
	}
}

func TestParseCSVShiftJIS(t *testing.T) {
	utf8CSV := "日付,勘定科目\n2026-08-01,現金\n"
	enc, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(utf8CSV))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	headers, rows, err := parseSheet(bytes.NewReader(enc), "ledger.csv", "")
	if err != nil {
		t.Fatalf("parseSheet: %v", err)
	}
	if headers[0] != "日付" {
		t.Errorf("headers[0] = %q, want 日付 after conversion", headers[0])
	}
	if rows[0]["勘定科目"] != "現金" {
		t.Errorf("cell = %q, want 現金", rows[0]["勘定科目"])
	}
}

// Short Shift_JIS content is detected as windows-1252; both verdicts must
// decode as Shift_JIS or Japanese headers come out as mojibake.
func TestToUTF8ShortShiftJIS(t *testing.T) {
	utf8CSV := "日付,金額\n"
	enc, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(utf8CSV))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	decoded, err := ToUTF8(enc)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if string(decoded) != utf8CSV {
		t.Errorf("ToUTF8 = %q, want %q", decoded, utf8CSV)
	}
}

func TestToUTF8PassesThroughASCII(t *testing.T) {
	ascii := []byte("Date,Account\n2026-08-01,1001\n")
	decoded, err := ToUTF8(ascii)
	if err != nil {
		t.Fatalf("ToUTF8: %v", err)
	}
	if !bytes.Equal(decoded, ascii) {
		t.Errorf("ToUTF8 = %q, want unchanged ASCII", decoded)
	}
}

func TestParseSheetUnsupportedFormat(t *testing.T) {
	if _, _, err := parseSheet(strings.NewReader("x"), "notes.txt", ""); err == nil {
		t.Fatal("expected an error for an unsupported extension")
	}
}

func TestParseSheetRejectsLegacyXLS(t *testing.T) {
	_, _, err := parseSheet(strings.NewReader("x"), "ledger.xls", "")
	if err == nil {
		t.Fatal("expected an error for a legacy .xls file")
	}
	if !strings.Contains(err.Error(), ".xlsx or .csv") {
		t.Errorf("error = %v, want a message naming the supported formats", err)
	}
}

func TestDetectColumns(t *testing.T) {
	headers := []string{"Date", "", "Amount"}
	rows := []map[string]string{
		{"Date": "2026-08-01", "Amount": "1"},
		{"Date": "2026-08-02", "Amount": ""},
		{"Date": "2026-08-03", "Amount": "3"},
	}

	cols := detectColumns(headers, rows, 2)
	if len(cols) != 2 {
		t.Fatalf("columns = %d, want 2 (empty header skipped)", len(cols))
	}
	if cols[0].ColumnName != "Date" || cols[0].ColumnIndex != 0 {
		t.Errorf("cols[0] = %+v", cols[0])
	}
	if cols[1].ColumnIndex != 2 {
		t.Errorf("cols[1].ColumnIndex = %d, want original index 2", cols[1].ColumnIndex)
	}
	if len(cols[0].SampleValues) != 2 {
		t.Errorf("samples = %v, want capped at 2", cols[0].SampleValues)
	}
	// empty cells are not sampled
	if len(cols[1].SampleValues) != 2 || cols[1].SampleValues[1] != "3" {
		t.Errorf("amount samples = %v, want [1 3]", cols[1].SampleValues)
	}
}
