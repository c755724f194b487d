package sync

import (
	"context"
	"path/filepath"
	"testing"

	"tourdesk/internal/database"
	"tourdesk/internal/models"
	"tourdesk/internal/sheets"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var testSheets = SheetMap{Requests: "Requests", Costs: "Costs", Revenues: "Revenues"}

type listCall struct {
	sheet   string
	fromRow int
}

// fakeSheetClient records calls and serves canned rows.
type fakeSheetClient struct {
	rows map[string][]sheets.Row

	listCalls   []listCall
	appendCalls int
	updateCalls int

	appended map[string][][]any
	updates  map[string][]sheets.RowUpdate

	nextAppendIndex int
	listErr         error
	appendErr       error
	updateErr       error
}

func newFakeSheetClient() *fakeSheetClient {
	return &fakeSheetClient{
		rows:            make(map[string][]sheets.Row),
		appended:        make(map[string][][]any),
		updates:         make(map[string][]sheets.RowUpdate),
		nextAppendIndex: 100,
	}
}

func (f *fakeSheetClient) ListRows(_ context.Context, sheet string, fromRow int) ([]sheets.Row, error) {
	f.listCalls = append(f.listCalls, listCall{sheet: sheet, fromRow: fromRow})
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []sheets.Row
	for _, r := range f.rows[sheet] {
		if r.Index >= fromRow {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSheetClient) AppendRow(_ context.Context, sheet string, values []any) (int, error) {
	f.appendCalls++
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.appended[sheet] = append(f.appended[sheet], values)
	f.nextAppendIndex++
	return f.nextAppendIndex, nil
}

func (f *fakeSheetClient) UpdateRows(_ context.Context, sheet string, updates []sheets.RowUpdate) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[sheet] = append(f.updates[sheet], updates...)
	return nil
}

func mustCreateRequest(t *testing.T, db *database.DB, code string, rowIndex int) *models.Request {
	t.Helper()
	r := &models.Request{
		Code:       code,
		ClientName: "client " + code,
		Status:     models.RequestStatusNew,
	}
	if rowIndex > 0 {
		r.SheetRowIndex = &rowIndex
	}
	if err := db.CreateRequest(context.Background(), r); err != nil {
		t.Fatalf("create request %s: %v", code, err)
	}
	return r
}

func mustEnqueue(t *testing.T, db *database.DB, model, action string, recordID int64) *models.SyncQueueItem {
	t.Helper()
	item := &models.SyncQueueItem{Model: model, Action: action, RecordID: recordID}
	if err := db.EnqueueSyncItem(context.Background(), item); err != nil {
		t.Fatalf("enqueue %s/%s record %d: %v", model, action, recordID, err)
	}
	return item
}
