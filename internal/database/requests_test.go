package database

import (
	"context"
	"testing"
	"time"

	"tourdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(code string) *models.Request {
	return &models.Request{
		Code:        code,
		ClientName:  "Ivanov",
		Phone:       "+100",
		Destination: "Lisbon",
		StartDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		Status:      models.RequestStatusNew,
		Manager:     "anna",
	}
}

func TestRequestCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := newRequest("REQ-1")
	require.NoError(t, db.CreateRequest(ctx, r))
	require.NotZero(t, r.ID)

	got, err := db.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "REQ-1", got.Code)
	assert.Nil(t, got.SheetRowIndex)

	_, err = db.GetRequest(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	byCode, err := db.GetRequestByCode(ctx, "REQ-1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, byCode.ID)

	_, err = db.GetRequestByCode(ctx, "REQ-MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertRequestByCode(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := newRequest("REQ-2")
	created, err := db.UpsertRequestByCode(ctx, r)
	require.NoError(t, err)
	assert.True(t, created)

	// Re-import with changed fields updates in place.
	update := newRequest("REQ-2")
	update.ClientName = "Petrov"
	update.Status = models.RequestStatusConfirmed
	rowIdx := 12
	update.SheetRowIndex = &rowIdx

	created, err = db.UpsertRequestByCode(ctx, update)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, r.ID, update.ID)

	got, err := db.GetRequestByCode(ctx, "REQ-2")
	require.NoError(t, err)
	assert.Equal(t, "Petrov", got.ClientName)
	assert.Equal(t, models.RequestStatusConfirmed, got.Status)
	require.NotNil(t, got.SheetRowIndex)
	assert.Equal(t, 12, *got.SheetRowIndex)

	// An upsert without a row index keeps the stored linkage.
	again := newRequest("REQ-2")
	_, err = db.UpsertRequestByCode(ctx, again)
	require.NoError(t, err)

	got, err = db.GetRequestByCode(ctx, "REQ-2")
	require.NoError(t, err)
	require.NotNil(t, got.SheetRowIndex)
	assert.Equal(t, 12, *got.SheetRowIndex)
}

func TestSetRequestRowIndex(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := newRequest("REQ-3")
	require.NoError(t, db.CreateRequest(ctx, r))
	require.NoError(t, db.SetRequestRowIndex(ctx, r.ID, 7))

	got, err := db.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SheetRowIndex)
	assert.Equal(t, 7, *got.SheetRowIndex)
}

func TestCostAndRevenueItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	parent := newRequest("REQ-4")
	require.NoError(t, db.CreateRequest(ctx, parent))

	cost := &models.CostItem{
		RequestID:   parent.ID,
		RequestCode: parent.Code,
		Supplier:    "AirBaltic",
		Category:    "flights",
		Amount:      540.50,
		Currency:    "EUR",
	}
	require.NoError(t, db.CreateCostItem(ctx, cost))
	require.NotZero(t, cost.ID)

	gotCost, err := db.GetCostItem(ctx, cost.ID)
	require.NoError(t, err)
	assert.Equal(t, "AirBaltic", gotCost.Supplier)
	assert.InDelta(t, 540.50, gotCost.Amount, 0.001)

	require.NoError(t, db.SetCostItemRowIndex(ctx, cost.ID, 3))
	gotCost, err = db.GetCostItem(ctx, cost.ID)
	require.NoError(t, err)
	require.NotNil(t, gotCost.SheetRowIndex)
	assert.Equal(t, 3, *gotCost.SheetRowIndex)

	_, err = db.GetCostItem(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	revenue := &models.RevenueItem{
		RequestID:   parent.ID,
		RequestCode: parent.Code,
		Description: "deposit",
		Amount:      1000,
		Currency:    "EUR",
		ReceivedAt:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.CreateRevenueItem(ctx, revenue))

	gotRev, err := db.GetRevenueItem(ctx, revenue.ID)
	require.NoError(t, err)
	assert.Equal(t, "deposit", gotRev.Description)

	require.NoError(t, db.SetRevenueItemRowIndex(ctx, revenue.ID, 9))
	gotRev, err = db.GetRevenueItem(ctx, revenue.ID)
	require.NoError(t, err)
	require.NotNil(t, gotRev.SheetRowIndex)
	assert.Equal(t, 9, *gotRev.SheetRowIndex)
}
