package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sfh-go/internal/sfh"
)

const sheetName = "Findings"

// WriteExcel renders the records as a single-sheet workbook with a
// frozen, bold header row and an auto-filter over all columns.
func WriteExcel(w io.Writer, records []*sfh.FileRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return fmt.Errorf("resolving column name: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	for i, r := range records {
		cells := row(r)
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		// Keep the size numeric so the column sorts correctly.
		values[5] = r.SizeBytes
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	filterRange := fmt.Sprintf("A1:%s%d", lastCol, len(records)+1)
	if err := f.AutoFilter(sheetName, filterRange, nil); err != nil {
		return fmt.Errorf("setting auto-filter: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
