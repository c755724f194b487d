package sync

import (
	"context"
	"errors"
	"fmt"

	"tourdesk/internal/database"
	"tourdesk/internal/models"
	"tourdesk/internal/sheets"

	"github.com/rs/zerolog"
)

// SheetClient is the capability the bridge needs from the spreadsheet.
type SheetClient interface {
	ListRows(ctx context.Context, sheet string, fromRow int) ([]sheets.Row, error)
	AppendRow(ctx context.Context, sheet string, values []any) (int, error)
	UpdateRows(ctx context.Context, sheet string, updates []sheets.RowUpdate) error
}

// Processor turns one queue item into zero or one spreadsheet write and
// keeps the row-index linkage correct.
type Processor struct {
	db     *database.DB
	client SheetClient
	sheets SheetMap
	logger zerolog.Logger
}

func NewProcessor(db *database.DB, client SheetClient, sheetMap SheetMap, logger *zerolog.Logger) *Processor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "sync-processor").Logger()
	}
	return &Processor{db: db, client: client, sheets: sheetMap, logger: base}
}

// Process applies one claimed item. It returns the spreadsheet row index
// that was written (0 for no-ops) and an error for the dispatcher to turn
// into a retry or terminal failure.
//
// Deletions are deliberately not propagated: staff may be editing the
// document, and destructive edits are too risky to automate.
func (p *Processor) Process(ctx context.Context, item *models.SyncQueueItem) (int, error) {
	if item.Action == models.ActionDelete {
		return 0, nil
	}

	sheet, err := p.sheets.SheetFor(item.Model)
	if err != nil {
		return 0, err
	}

	values, rowIndex, err := p.loadRecord(ctx, item)
	if errors.Is(err, database.ErrNotFound) {
		// Orphaned item: the record was deleted before we got here.
		// Succeeding keeps the queue moving instead of retrying forever.
		p.logger.Debug().
			Str("model", item.Model).
			Int64("record_id", item.RecordID).
			Msg("record gone, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	if rowIndex == 0 && item.SheetRowIndex != nil {
		rowIndex = *item.SheetRowIndex
	}

	// No linkage yet means the row does not exist: append and persist the
	// returned index so later items update in place instead of duplicating.
	// Append-then-persist is not atomic; a crash in between can duplicate
	// a row on retry, which is accepted and visible in the sync log.
	if rowIndex == 0 {
		newIndex, err := p.client.AppendRow(ctx, sheet, values)
		if err != nil {
			return 0, fmt.Errorf("append to %s: %w", sheet, err)
		}
		if err := p.saveRowIndex(ctx, item.Model, item.RecordID, newIndex); err != nil {
			return newIndex, fmt.Errorf("persist row index %d: %w", newIndex, err)
		}
		return newIndex, nil
	}

	filtered := FilterWritable(values, WritableColumns(item.Model))
	update := []sheets.RowUpdate{{Index: rowIndex, Values: filtered}}
	if err := p.client.UpdateRows(ctx, sheet, update); err != nil {
		return rowIndex, fmt.Errorf("update row %d in %s: %w", rowIndex, sheet, err)
	}
	return rowIndex, nil
}

// loadRecord fetches the current record and maps it to cell values. The
// second return is the stored row-index linkage, 0 when unknown.
func (p *Processor) loadRecord(ctx context.Context, item *models.SyncQueueItem) ([]any, int, error) {
	switch item.Model {
	case models.ModelRequest:
		r, err := p.db.GetRequest(ctx, item.RecordID)
		if err != nil {
			return nil, 0, err
		}
		return RequestToRow(r), derefRowIndex(r.SheetRowIndex), nil
	case models.ModelCost:
		c, err := p.db.GetCostItem(ctx, item.RecordID)
		if err != nil {
			return nil, 0, err
		}
		return CostToRow(c), derefRowIndex(c.SheetRowIndex), nil
	case models.ModelRevenue:
		r, err := p.db.GetRevenueItem(ctx, item.RecordID)
		if err != nil {
			return nil, 0, err
		}
		return RevenueToRow(r), derefRowIndex(r.SheetRowIndex), nil
	}
	return nil, 0, fmt.Errorf("unknown sync model: %s", item.Model)
}

func (p *Processor) saveRowIndex(ctx context.Context, model string, recordID int64, rowIndex int) error {
	switch model {
	case models.ModelRequest:
		return p.db.SetRequestRowIndex(ctx, recordID, rowIndex)
	case models.ModelCost:
		return p.db.SetCostItemRowIndex(ctx, recordID, rowIndex)
	case models.ModelRevenue:
		return p.db.SetRevenueItemRowIndex(ctx, recordID, rowIndex)
	}
	return fmt.Errorf("unknown sync model: %s", model)
}

func derefRowIndex(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
