package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"angebot/internal"
)

var exportHeaders = []string{
	"Status", "OZ", "Beschreibung", "Menge", "Einheit",
	"Zugeordneter Artikel", "Score", "Preis", "Gesamt",
}

// ExportXLSX writes the priced quotation and marks the run exported. The
// final row carries the grand total.
func ExportXLSX(state *internal.PipelineState, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range state.Results {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, string(row.Match.Tier))
		set(2, row.Item.PositionCode)
		set(3, row.Item.Description)
		set(4, row.Item.Quantity)
		set(5, row.Item.Unit)
		set(6, row.Match.MatchedDescription)
		set(7, row.Match.MatchScore)
		set(8, row.Match.Price)
		set(9, row.Total())
	}

	totalRow := len(state.Results) + 2
	cell, _ := excelize.CoordinatesToCellName(len(exportHeaders)-1, totalRow)
	_ = f.SetCellValue(sheet, cell, "Gesamtsumme")
	cell, _ = excelize.CoordinatesToCellName(len(exportHeaders), totalRow)
	_ = f.SetCellValue(sheet, cell, TotalPrice(state.Results))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(outputPath); err != nil {
		return err
	}

	state.Stage = internal.StageExported
	return nil
}

// ExportCSV mirrors the XLSX layout for downstream tooling.
func ExportCSV(state *internal.PipelineState, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeaders); err != nil {
		return err
	}

	for _, row := range state.Results {
		record := []string{
			string(row.Match.Tier),
			row.Item.PositionCode,
			row.Item.Description,
			strconv.FormatFloat(row.Item.Quantity, 'f', -1, 64),
			row.Item.Unit,
			row.Match.MatchedDescription,
			strconv.Itoa(row.Match.MatchScore),
			strconv.FormatFloat(row.Match.Price, 'f', 2, 64),
			strconv.FormatFloat(row.Total(), 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	if err := w.Write([]string{"", "", "", "", "", "", "", "Gesamtsumme",
		strconv.FormatFloat(TotalPrice(state.Results), 'f', 2, 64)}); err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	state.Stage = internal.StageExported
	return nil
}
