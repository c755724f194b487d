package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourdesk/internal/models"
)

// InsertSyncLog appends one audit entry. Entries are never mutated.
func (db *DB) InsertSyncLog(ctx context.Context, entry *models.SyncLogEntry) error {
	now := time.Now()
	var errMsg any
	if entry.ErrorMessage != nil {
		errMsg = *entry.ErrorMessage
	}
	result, err := db.ExecContext(ctx, `
        INSERT INTO sync_log (sheet_name, action, row_index, record_id, status, error_message, synced_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SheetName, entry.Action, entry.RowIndex, entry.RecordID,
		entry.Status, errMsg, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync log: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	entry.SyncedAt = now
	return nil
}

// MaxSuccessRow returns the highest row index logged success for a sheet,
// or 0 when nothing was imported yet. This is the pull cursor.
func (db *DB) MaxSuccessRow(ctx context.Context, sheetName string) (int, error) {
	var max sql.NullInt64
	err := db.QueryRowContext(ctx,
		`SELECT MAX(row_index) FROM sync_log WHERE sheet_name = ? AND status = ?`,
		sheetName, models.LogSuccess,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get pull cursor for %s: %w", sheetName, err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// RecentSyncLogs returns the latest entries, newest first.
func (db *DB) RecentSyncLogs(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, sheet_name, action, row_index, record_id, status, error_message, synced_at
        FROM sync_log ORDER BY synced_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sync logs: %w", err)
	}
	defer rows.Close()
	return scanSyncLogs(rows)
}

// FailedSyncLogs returns failed entries for a sheet, newest first. These
// are the rows operators must reconcile by hand once the cursor has moved
// past them.
func (db *DB) FailedSyncLogs(ctx context.Context, sheetName string) ([]models.SyncLogEntry, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, sheet_name, action, row_index, record_id, status, error_message, synced_at
        FROM sync_log WHERE sheet_name = ? AND status = ? ORDER BY synced_at DESC, id DESC`,
		sheetName, models.LogFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed sync logs: %w", err)
	}
	defer rows.Close()
	return scanSyncLogs(rows)
}

// AllFailedSyncLogs returns failed entries across all sheets, newest first.
func (db *DB) AllFailedSyncLogs(ctx context.Context) ([]models.SyncLogEntry, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, sheet_name, action, row_index, record_id, status, error_message, synced_at
        FROM sync_log WHERE status = ? ORDER BY synced_at DESC, id DESC`,
		models.LogFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed sync logs: %w", err)
	}
	defer rows.Close()
	return scanSyncLogs(rows)
}

// LastSyncedAt returns the timestamp of the most recent log entry, or a
// zero time when the log is empty.
func (db *DB) LastSyncedAt(ctx context.Context) (time.Time, error) {
	var last sql.NullTime
	err := db.QueryRowContext(ctx, `SELECT MAX(synced_at) FROM sync_log`).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("failed to get last synced at: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

func scanSyncLogs(rows *sql.Rows) ([]models.SyncLogEntry, error) {
	var entries []models.SyncLogEntry
	for rows.Next() {
		var e models.SyncLogEntry
		var errMsg sql.NullString
		err := rows.Scan(&e.ID, &e.SheetName, &e.Action, &e.RowIndex, &e.RecordID, &e.Status, &errMsg, &e.SyncedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		if errMsg.Valid {
			e.ErrorMessage = &errMsg.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
