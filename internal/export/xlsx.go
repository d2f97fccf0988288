package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
)

// ContentTypeXLSX is the media type of generated workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

// Workbook renders the roster as an xlsx document.
func Workbook(roster models.Roster, opts dto.ExportOptions) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1976D2"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range Sheets(roster, opts) {
		if i == 0 {
			if err := file.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := file.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(file, sheet, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to write sheet %s: %w", sheet.Name, err)
		}
	}
	file.SetActiveSheet(0)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(file *excelize.File, sheet Sheet, headerStyle int) error {
	header := make([]interface{}, len(sheet.Header))
	for i, title := range sheet.Header {
		header[i] = title
	}
	if err := file.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}

	lastColumn, err := excelize.ColumnNumberToName(len(sheet.Header))
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(sheet.Name, "A1", lastColumn+"1", headerStyle); err != nil {
		return err
	}
	if err := file.SetColWidth(sheet.Name, "A", lastColumn, 20); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := file.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
