package textsource

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table reads a spreadsheet into a header row and data rows. XLSX files
// read the first sheet; CSV files detect a semicolon delimiter, the
// common German export format.
func Table(path string) (headers []string, rows [][]string, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return xlsxTable(path)
	case ".csv":
		return csvTable(path)
	default:
		return nil, nil, fmt.Errorf("unsupported table type: %s", filepath.Ext(path))
	}
}

func xlsxTable(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return all[0], all[1:], nil
}

func csvTable(path string) ([]string, [][]string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	content := string(blob)
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	if firstLine, _, found := strings.Cut(content, "\n"); found || firstLine != "" {
		if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
			r.Comma = ';'
		}
	}

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("csv file is empty")
	}
	return all[0], all[1:], nil
}
