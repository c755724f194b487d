package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourdesk/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

const requestColumns = `id, code, client_name, phone, destination, start_date, end_date, status, manager, notes, sheet_row_index, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (*models.Request, error) {
	var r models.Request
	var rowIndex sql.NullInt64
	err := row.Scan(
		&r.ID, &r.Code, &r.ClientName, &r.Phone, &r.Destination,
		&r.StartDate, &r.EndDate, &r.Status, &r.Manager, &r.Notes,
		&rowIndex, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rowIndex.Valid {
		idx := int(rowIndex.Int64)
		r.SheetRowIndex = &idx
	}
	return &r, nil
}

// CreateRequest inserts a new request and fills in its ID.
func (db *DB) CreateRequest(ctx context.Context, r *models.Request) error {
	now := time.Now()
	if r.Status == "" {
		r.Status = models.RequestStatusNew
	}
	result, err := db.ExecContext(ctx, `
        INSERT INTO requests (code, client_name, phone, destination, start_date, end_date, status, manager, notes, sheet_row_index, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Code, r.ClientName, r.Phone, r.Destination, r.StartDate, r.EndDate,
		r.Status, r.Manager, r.Notes, nullableInt(r.SheetRowIndex), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
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

// GetRequest returns a request by ID, or ErrNotFound.
func (db *DB) GetRequest(ctx context.Context, id int64) (*models.Request, error) {
	row := db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return r, nil
}

// GetRequestByCode returns a request by its business code, or ErrNotFound.
func (db *DB) GetRequestByCode(ctx context.Context, code string) (*models.Request, error) {
	row := db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE code = ?`, code)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request by code: %w", err)
	}
	return r, nil
}

// UpsertRequestByCode updates the mutable fields of an existing request
// with the same code, or creates a new one. The spreadsheet is the source
// here, so sheet_row_index is written on both paths. Returns the stored
// request and whether it was newly created.
func (db *DB) UpsertRequestByCode(ctx context.Context, r *models.Request) (bool, error) {
	existing, err := db.GetRequestByCode(ctx, r.Code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}

	if existing == nil {
		if err := db.CreateRequest(ctx, r); err != nil {
			return false, err
		}
		return true, nil
	}

	_, err = db.ExecContext(ctx, `
        UPDATE requests
        SET client_name = ?, phone = ?, destination = ?, start_date = ?, end_date = ?,
            status = ?, manager = ?, notes = ?, sheet_row_index = COALESCE(?, sheet_row_index), updated_at = ?
        WHERE code = ?`,
		r.ClientName, r.Phone, r.Destination, r.StartDate, r.EndDate,
		r.Status, r.Manager, r.Notes, nullableInt(r.SheetRowIndex), time.Now(), r.Code,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update request by code: %w", err)
	}
	r.ID = existing.ID
	return false, nil
}

// SetRequestRowIndex persists the spreadsheet row linkage for a request.
func (db *DB) SetRequestRowIndex(ctx context.Context, id int64, rowIndex int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE requests SET sheet_row_index = ?, updated_at = ? WHERE id = ?`,
		rowIndex, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set request row index: %w", err)
	}
	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
