package staging

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/saintfish/chardet"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// parseSheet reads headers and all data rows from an uploaded spreadsheet.
// Excel files read the named sheet (first sheet when empty); CSV files are
// converted to UTF-8 first since tenant exports arrive in assorted encodings.
func parseSheet(r io.Reader, fileName, sheetName string) ([]string, []map[string]string, error) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		return parseExcel(r, sheetName)
	case strings.HasSuffix(lower, ".xls"):
		return nil, nil, fmt.Errorf("legacy .xls files are not supported; save %s as .xlsx or .csv", fileName)
	case strings.HasSuffix(lower, ".csv"):
		return parseCSV(r)
	default:
		return nil, nil, fmt.Errorf("unsupported file format: %s", fileName)
	}
}

func parseExcel(r io.Reader, sheetName string) ([]string, []map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("no sheets found in Excel file")
	}

	if sheetName == "" {
		sheetName = sheets[0]
	} else {
		found := false
		for _, s := range sheets {
			if s == sheetName {
				found = true
				break
			}
		}
		if !found {
			return nil, nil, fmt.Errorf("sheet %q not found", sheetName)
		}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	headers := rows[0]
	if len(nonEmpty(headers)) == 0 {
		return nil, nil, fmt.Errorf("sheet %q has no columns", sheetName)
	}

	var data []map[string]string
	for i := 1; i < len(rows); i++ {
		row := make(map[string]string, len(headers))
		empty := true
		for j, header := range headers {
			if header == "" {
				continue
			}
			var cell string
			if j < len(rows[i]) {
				cell = rows[i][j]
			}
			if cell != "" {
				empty = false
			}
			row[header] = cell
		}
		if !empty {
			data = append(data, row)
		}
	}

	return headers, data, nil
}

func parseCSV(r io.Reader) ([]string, []map[string]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	decoded, err := ToUTF8(raw)
	if err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(nonEmpty(headers)) == 0 {
		return nil, nil, fmt.Errorf("CSV file has no columns")
	}

	var data []map[string]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		row := make(map[string]string, len(headers))
		empty := true
		for i, header := range headers {
			if header == "" {
				continue
			}
			var cell string
			if i < len(rec) {
				cell = rec[i]
			}
			if cell != "" {
				empty = false
			}
			row[header] = cell
		}
		if !empty {
			data = append(data, row)
		}
	}

	return headers, data, nil
}

// ToUTF8 sniffs the byte stream charset and converts it to UTF-8.
func ToUTF8(raw []byte) ([]byte, error) {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(raw)
	if err != nil {
		// Undetectable content is passed through as-is.
		return raw, nil
	}

	var dec transform.Transformer
	switch result.Charset {
	case "UTF-8":
		return raw, nil
	case "Shift_JIS", "windows-1252":
		// chardet labels short Shift_JIS content as windows-1252, so both
		// verdicts decode as Shift_JIS. ASCII-only bytes pass through the
		// decoder unchanged.
		dec = japanese.ShiftJIS.NewDecoder()
	case "EUC-JP":
		dec = japanese.EUCJP.NewDecoder()
	case "ISO-2022-JP":
		dec = japanese.ISO2022JP.NewDecoder()
	case "ISO-8859-1":
		dec = charmap.ISO8859_1.NewDecoder()
	default:
		return raw, nil
	}

	converted, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to UTF-8: %w", result.Charset, err)
	}
	return converted, nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
