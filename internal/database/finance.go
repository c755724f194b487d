package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourdesk/internal/models"
)

// CreateCostItem inserts a new cost line and fills in its ID.
func (db *DB) CreateCostItem(ctx context.Context, c *models.CostItem) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `
        INSERT INTO cost_items (request_id, request_code, supplier, category, description, amount, currency, sheet_row_index, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RequestID, c.RequestCode, c.Supplier, c.Category, c.Description,
		c.Amount, c.Currency, nullableInt(c.SheetRowIndex), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create cost item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetCostItem returns a cost line by ID, or ErrNotFound.
func (db *DB) GetCostItem(ctx context.Context, id int64) (*models.CostItem, error) {
	var c models.CostItem
	var rowIndex sql.NullInt64
	err := db.QueryRowContext(ctx, `
        SELECT id, request_id, request_code, supplier, category, description, amount, currency, sheet_row_index, created_at, updated_at
        FROM cost_items WHERE id = ?`, id).Scan(
		&c.ID, &c.RequestID, &c.RequestCode, &c.Supplier, &c.Category,
		&c.Description, &c.Amount, &c.Currency, &rowIndex, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cost item: %w", err)
	}
	if rowIndex.Valid {
		idx := int(rowIndex.Int64)
		c.SheetRowIndex = &idx
	}
	return &c, nil
}

// SetCostItemRowIndex persists the spreadsheet row linkage for a cost line.
func (db *DB) SetCostItemRowIndex(ctx context.Context, id int64, rowIndex int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE cost_items SET sheet_row_index = ?, updated_at = ? WHERE id = ?`,
		rowIndex, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set cost item row index: %w", err)
	}
	return nil
}

// CreateRevenueItem inserts a new revenue line and fills in its ID.
func (db *DB) CreateRevenueItem(ctx context.Context, r *models.RevenueItem) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `
        INSERT INTO revenue_items (request_id, request_code, description, amount, currency, received_at, sheet_row_index, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.RequestCode, r.Description, r.Amount, r.Currency,
		r.ReceivedAt, nullableInt(r.SheetRowIndex), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create revenue item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetRevenueItem returns a revenue line by ID, or ErrNotFound.
func (db *DB) GetRevenueItem(ctx context.Context, id int64) (*models.RevenueItem, error) {
	var r models.RevenueItem
	var rowIndex sql.NullInt64
	err := db.QueryRowContext(ctx, `
        SELECT id, request_id, request_code, description, amount, currency, received_at, sheet_row_index, created_at, updated_at
        FROM revenue_items WHERE id = ?`, id).Scan(
		&r.ID, &r.RequestID, &r.RequestCode, &r.Description, &r.Amount,
		&r.Currency, &r.ReceivedAt, &rowIndex, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get revenue item: %w", err)
	}
	if rowIndex.Valid {
		idx := int(rowIndex.Int64)
		r.SheetRowIndex = &idx
	}
	return &r, nil
}

// SetRevenueItemRowIndex persists the spreadsheet row linkage for a revenue line.
func (db *DB) SetRevenueItemRowIndex(ctx context.Context, id int64, rowIndex int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE revenue_items SET sheet_row_index = ?, updated_at = ? WHERE id = ?`,
		rowIndex, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set revenue item row index: %w", err)
	}
	return nil
}
