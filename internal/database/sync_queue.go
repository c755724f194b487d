package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourdesk/internal/models"
)

const syncItemColumns = `id, model, action, record_id, sheet_row_index, status, retries, last_error, created_at, locked_at, processed_at, next_retry_at`

// EnqueueSyncItem persists a pending write-back item. Items are not
// deduplicated: several pending items for the same record may coexist.
func (db *DB) EnqueueSyncItem(ctx context.Context, item *models.SyncQueueItem) error {
	if !models.IsSyncedModel(item.Model) {
		return fmt.Errorf("unknown sync model: %s", item.Model)
	}
	if !models.IsSyncAction(item.Action) {
		return fmt.Errorf("unknown sync action: %s", item.Action)
	}

	now := time.Now()
	result, err := db.ExecContext(ctx, `
        INSERT INTO sync_queue (model, action, record_id, sheet_row_index, status, retries, created_at)
        VALUES (?, ?, ?, ?, ?, 0, ?)`,
		item.Model, item.Action, item.RecordID, nullableInt(item.SheetRowIndex),
		models.StatusPending, now,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue sync item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.Status = models.StatusPending
	item.CreatedAt = now
	return nil
}

// ClaimPendingSyncItems atomically moves up to limit pending items to
// processing, oldest first. The claim is a per-item compare-and-set, so
// concurrent callers never obtain the same item.
func (db *DB) ClaimPendingSyncItems(ctx context.Context, limit int) ([]models.SyncQueueItem, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id FROM sync_queue
        WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)
        ORDER BY created_at ASC, id ASC LIMIT ?`,
		models.StatusPending, time.Now(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending sync items: %w", err)
	}

	var candidates []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sync item id: %w", err)
		}
		candidates = append(candidates, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending sync items: %w", err)
	}

	now := time.Now()
	var claimed []int64
	for _, id := range candidates {
		res, err := db.ExecContext(ctx, `
            UPDATE sync_queue SET status = ?, locked_at = ?
            WHERE id = ? AND status = ?`,
			models.StatusProcessing, now, id, models.StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to claim sync item %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read claim result for item %d: %w", id, err)
		}
		// Lost the race to a concurrent caller; skip.
		if affected == 1 {
			claimed = append(claimed, id)
		}
	}

	if len(claimed) == 0 {
		return nil, nil
	}
	return db.getSyncItemsByID(ctx, claimed)
}

func (db *DB) getSyncItemsByID(ctx context.Context, ids []int64) ([]models.SyncQueueItem, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+syncItemColumns+` FROM sync_queue WHERE id IN (`+placeholders+`) ORDER BY created_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed sync items: %w", err)
	}
	defer rows.Close()

	var items []models.SyncQueueItem
	for rows.Next() {
		item, err := scanSyncItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanSyncItem(rows *sql.Rows) (*models.SyncQueueItem, error) {
	var item models.SyncQueueItem
	var rowIndex sql.NullInt64
	var lastError sql.NullString
	var lockedAt, processedAt, nextRetryAt sql.NullTime
	err := rows.Scan(
		&item.ID, &item.Model, &item.Action, &item.RecordID, &rowIndex,
		&item.Status, &item.Retries, &lastError, &item.CreatedAt,
		&lockedAt, &processedAt, &nextRetryAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync item: %w", err)
	}
	if rowIndex.Valid {
		idx := int(rowIndex.Int64)
		item.SheetRowIndex = &idx
	}
	if lastError.Valid {
		item.LastError = &lastError.String
	}
	if lockedAt.Valid {
		item.LockedAt = &lockedAt.Time
	}
	if processedAt.Valid {
		item.ProcessedAt = &processedAt.Time
	}
	if nextRetryAt.Valid {
		item.NextRetryAt = &nextRetryAt.Time
	}
	return &item, nil
}

// MarkSyncItemCompleted transitions processing -> completed.
func (db *DB) MarkSyncItemCompleted(ctx context.Context, id int64) error {
	if err := models.ValidateTransition(models.StatusProcessing, models.StatusCompleted); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
        UPDATE sync_queue SET status = ?, processed_at = ?, locked_at = NULL
        WHERE id = ? AND status = ?`,
		models.StatusCompleted, time.Now(), id, models.StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to mark sync item %d completed: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sync item %d is not in processing", id)
	}
	return nil
}

// MarkSyncItemFailed records a failed attempt. Below maxRetries the item
// goes back to pending with retries incremented and the latest error
// stored; at the ceiling it becomes terminally failed. Returns true when
// the failure was terminal.
func (db *DB) MarkSyncItemFailed(ctx context.Context, id int64, errMsg string, maxRetries int, nextRetryAt *time.Time) (bool, error) {
	var retries int
	err := db.QueryRowContext(ctx,
		`SELECT retries FROM sync_queue WHERE id = ? AND status = ?`,
		id, models.StatusProcessing,
	).Scan(&retries)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("sync item %d is not in processing", id)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read sync item %d: %w", id, err)
	}

	terminal := retries+1 >= maxRetries
	target := models.StatusPending
	if terminal {
		target = models.StatusFailed
	}
	if err := models.ValidateTransition(models.StatusProcessing, target); err != nil {
		return false, err
	}

	if terminal {
		_, err = db.ExecContext(ctx, `
            UPDATE sync_queue
            SET status = ?, retries = retries + 1, last_error = ?, processed_at = ?, locked_at = NULL, next_retry_at = NULL
            WHERE id = ? AND status = ?`,
			models.StatusFailed, errMsg, time.Now(), id, models.StatusProcessing,
		)
	} else {
		_, err = db.ExecContext(ctx, `
            UPDATE sync_queue
            SET status = ?, retries = retries + 1, last_error = ?, locked_at = NULL, next_retry_at = ?
            WHERE id = ? AND status = ?`,
			models.StatusPending, errMsg, nextRetryAt, id, models.StatusProcessing,
		)
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark sync item %d failed: %w", id, err)
	}
	return terminal, nil
}

// ResetStuckSyncItems returns items left in processing past the timeout
// (crashed worker) back to pending. Returns the number reclaimed.
func (db *DB) ResetStuckSyncItems(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	res, err := db.ExecContext(ctx, `
        UPDATE sync_queue SET status = ?, locked_at = NULL
        WHERE status = ? AND locked_at IS NOT NULL AND locked_at <= ?`,
		models.StatusPending, models.StatusProcessing, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck sync items: %w", err)
	}
	return res.RowsAffected()
}

// CleanupCompletedSyncItems purges completed items older than the cutoff.
func (db *DB) CleanupCompletedSyncItems(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := db.ExecContext(ctx, `
        DELETE FROM sync_queue WHERE status = ? AND processed_at IS NOT NULL AND processed_at <= ?`,
		models.StatusCompleted, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup completed sync items: %w", err)
	}
	return res.RowsAffected()
}

// QueueStats returns item counts by status.
func (db *DB) QueueStats(ctx context.Context) (*models.QueueStats, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}
	defer rows.Close()

	var stats models.QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		switch status {
		case models.StatusPending:
			stats.Pending = count
		case models.StatusProcessing:
			stats.Processing = count
		case models.StatusCompleted:
			stats.Completed = count
		case models.StatusFailed:
			stats.Failed = count
		}
	}
	return &stats, rows.Err()
}

// RecentFailedSyncItems returns the most recent terminally failed items.
func (db *DB) RecentFailedSyncItems(ctx context.Context, limit int) ([]models.SyncQueueItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+syncItemColumns+` FROM sync_queue WHERE status = ? ORDER BY processed_at DESC LIMIT ?`,
		models.StatusFailed, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed sync items: %w", err)
	}
	defer rows.Close()

	var items []models.SyncQueueItem
	for rows.Next() {
		item, err := scanSyncItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
