package export

import (
	"testing"
	"time"

	"tourdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteFailedReport(t *testing.T) {
	errMsg := "parent request not found: REQ-9"
	entries := []models.SyncLogEntry{
		{
			SheetName:    "Costs",
			Action:       models.ActionCreate,
			RowIndex:     12,
			RecordID:     0,
			Status:       models.LogFailed,
			ErrorMessage: &errMsg,
			SyncedAt:     time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
		},
		{
			SheetName: "Requests",
			Action:    models.ActionUpdate,
			RowIndex:  4,
			RecordID:  7,
			Status:    models.LogFailed,
			SyncedAt:  time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC),
		},
	}

	path, err := WriteFailedReport(t.TempDir(), entries)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Failed rows")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two entries")

	assert.Equal(t, "Sheet", rows[0][0])
	assert.Equal(t, "Costs", rows[1][0])
	assert.Equal(t, "12", rows[1][1])
	assert.Contains(t, rows[1][4], "parent request not found")
	assert.Equal(t, "Requests", rows[2][0])
	// A nil error message renders as an empty cell, which excelize may trim.
	if len(rows[2]) > 4 {
		assert.Empty(t, rows[2][4])
	}
}

func TestWriteFailedReportEmpty(t *testing.T) {
	path, err := WriteFailedReport(t.TempDir(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Failed rows")
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
