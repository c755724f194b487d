package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tourdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

// WriteFailedReport renders failed sync-log entries to an .xlsx file so
// operators can reconcile rows the cursor has already moved past.
// Returns the path of the written file.
func WriteFailedReport(dir string, entries []models.SyncLogEntry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Failed rows"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Sheet", "Row", "Record ID", "Action", "Error", "Failed at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle)

	for i, e := range entries {
		row := i + 2
		errMsg := ""
		if e.ErrorMessage != nil {
			errMsg = *e.ErrorMessage
		}
		values := []any{e.SheetName, e.RowIndex, e.RecordID, e.Action, errMsg, e.SyncedAt.Format("2006-01-02 15:04:05")}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 15)
	_ = f.SetColWidth(sheetName, "E", "E", 60)
	_ = f.SetColWidth(sheetName, "F", "F", 20)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("failed_sync_%s.xlsx", time.Now().Format("2006-01-02_150405"))
	filePath := filepath.Join(dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}
