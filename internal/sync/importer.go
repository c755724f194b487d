package sync

import (
	"context"
	"errors"
	"fmt"

	"tourdesk/internal/database"
	"tourdesk/internal/metrics"
	"tourdesk/internal/models"
	"tourdesk/internal/sheets"

	"github.com/rs/zerolog"
)

// PullResult aggregates one import run.
type PullResult struct {
	Synced       int `json:"synced"`
	Errors       int `json:"errors"`
	LastRowIndex int `json:"lastRowIndex"`
}

// Importer reads spreadsheet rows appended by manual edits and turns them
// into database records.
//
// The cursor is the highest row logged success, so a failed row is
// permanently skipped once later rows succeed. That gap is deliberate:
// operators reconcile failed log entries by hand (see FailedSyncLogs and
// the xlsx export) instead of the importer re-fetching old rows forever.
type Importer struct {
	db     *database.DB
	client SheetClient
	sheets SheetMap
	logger zerolog.Logger
}

func NewImporter(db *database.DB, client SheetClient, sheetMap SheetMap, logger *zerolog.Logger) *Importer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "sync-importer").Logger()
	}
	return &Importer{db: db, client: client, sheets: sheetMap, logger: base}
}

// Run imports all rows beyond the cursor for one sheet. A row failure is
// logged and counted but never aborts the batch.
func (imp *Importer) Run(ctx context.Context, sheetName string) (PullResult, error) {
	var result PullResult

	model, ok := imp.sheets.ModelFor(sheetName)
	if !ok {
		return result, fmt.Errorf("%w: %s", ErrSheetNotConfigured, sheetName)
	}

	cursor, err := imp.db.MaxSuccessRow(ctx, sheetName)
	if err != nil {
		return result, err
	}
	result.LastRowIndex = cursor

	fromRow := cursor + 1
	// Row 1 is the header.
	if fromRow < 2 {
		fromRow = 2
	}

	rows, err := imp.client.ListRows(ctx, sheetName, fromRow)
	if err != nil {
		return result, fmt.Errorf("fetch rows of %s: %w", sheetName, err)
	}

	for _, row := range rows {
		imported, recordID, action, err := imp.importRow(ctx, model, row)
		if err != nil {
			result.Errors++
			errMsg := err.Error()
			imp.appendLog(ctx, sheetName, row.Index, recordID, models.ActionCreate, models.LogFailed, &errMsg)
			metrics.IncPullRow(sheetName, models.LogFailed)
			imp.logger.Warn().
				Str("sheet", sheetName).
				Int("row", row.Index).
				Str("error", errMsg).
				Msg("pull row failed")
			continue
		}
		if !imported {
			// Blank or placeholder row; not logged as a failure.
			continue
		}
		result.Synced++
		result.LastRowIndex = row.Index
		imp.appendLog(ctx, sheetName, row.Index, recordID, action, models.LogSuccess, nil)
		metrics.IncPullRow(sheetName, models.LogSuccess)
	}

	imp.logger.Info().
		Str("sheet", sheetName).
		Int("synced", result.Synced).
		Int("errors", result.Errors).
		Int("last_row", result.LastRowIndex).
		Msg("pull import finished")

	return result, nil
}

// importRow maps and persists one row. The first return is false for
// blank rows that were skipped; the action reports whether the row
// created a record or overwrote an existing one.
func (imp *Importer) importRow(ctx context.Context, model string, row sheets.Row) (bool, int64, string, error) {
	switch model {
	case models.ModelRequest:
		return imp.importRequest(ctx, row)
	case models.ModelCost:
		return imp.importCost(ctx, row)
	case models.ModelRevenue:
		return imp.importRevenue(ctx, row)
	}
	return false, 0, "", fmt.Errorf("unknown sync model: %s", model)
}

func (imp *Importer) importRequest(ctx context.Context, row sheets.Row) (bool, int64, string, error) {
	rec, err := RequestFromRow(row.Values)
	if err != nil {
		return false, 0, "", err
	}
	if rec == nil {
		return false, 0, "", nil
	}

	rec.SheetRowIndex = &row.Index
	// Requests are the only entity safe to re-import: the business code
	// makes the upsert idempotent.
	created, err := imp.db.UpsertRequestByCode(ctx, rec)
	if err != nil {
		return false, 0, "", err
	}
	action := models.ActionCreate
	if !created {
		action = models.ActionUpdate
	}
	return true, rec.ID, action, nil
}

func (imp *Importer) importCost(ctx context.Context, row sheets.Row) (bool, int64, string, error) {
	rec, err := CostFromRow(row.Values)
	if err != nil {
		return false, 0, "", err
	}
	if rec == nil {
		return false, 0, "", nil
	}

	parent, err := imp.db.GetRequestByCode(ctx, rec.RequestCode)
	if errors.Is(err, database.ErrNotFound) {
		return false, 0, "", fmt.Errorf("parent request not found: %s", rec.RequestCode)
	}
	if err != nil {
		return false, 0, "", err
	}

	rec.RequestID = parent.ID
	rec.SheetRowIndex = &row.Index
	// A request may carry many cost lines, so every imported row is a new
	// record rather than an upsert.
	if err := imp.db.CreateCostItem(ctx, rec); err != nil {
		return false, 0, "", err
	}
	return true, rec.ID, models.ActionCreate, nil
}

func (imp *Importer) importRevenue(ctx context.Context, row sheets.Row) (bool, int64, string, error) {
	rec, err := RevenueFromRow(row.Values)
	if err != nil {
		return false, 0, "", err
	}
	if rec == nil {
		return false, 0, "", nil
	}

	parent, err := imp.db.GetRequestByCode(ctx, rec.RequestCode)
	if errors.Is(err, database.ErrNotFound) {
		return false, 0, "", fmt.Errorf("parent request not found: %s", rec.RequestCode)
	}
	if err != nil {
		return false, 0, "", err
	}

	rec.RequestID = parent.ID
	rec.SheetRowIndex = &row.Index
	if err := imp.db.CreateRevenueItem(ctx, rec); err != nil {
		return false, 0, "", err
	}
	return true, rec.ID, models.ActionCreate, nil
}

func (imp *Importer) appendLog(ctx context.Context, sheetName string, rowIndex int, recordID int64, action, status string, errMsg *string) {
	entry := &models.SyncLogEntry{
		SheetName:    sheetName,
		Action:       action,
		RowIndex:     rowIndex,
		RecordID:     recordID,
		Status:       status,
		ErrorMessage: errMsg,
	}
	if err := imp.db.InsertSyncLog(ctx, entry); err != nil {
		imp.logger.Error().Err(err).Str("sheet", sheetName).Int("row", rowIndex).Msg("insert sync log")
	}
}
