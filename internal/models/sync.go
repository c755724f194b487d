package models

import (
	"fmt"
	"time"
)

// SyncQueueItem is one pending or historical write-back task.
type SyncQueueItem struct {
	ID            int64      `json:"id"`
	Model         string     `json:"model"`
	Action        string     `json:"action"`
	RecordID      int64      `json:"record_id"`
	SheetRowIndex *int       `json:"sheet_row_index,omitempty"`
	Status        string     `json:"status"`
	Retries       int        `json:"retries"`
	LastError     *string    `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LockedAt      *time.Time `json:"locked_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
}

// SyncLogEntry is one append-only audit row; never mutated after insert.
type SyncLogEntry struct {
	ID           int64     `json:"id"`
	SheetName    string    `json:"sheet_name"`
	Action       string    `json:"action"`
	RowIndex     int       `json:"row_index"`
	RecordID     int64     `json:"record_id"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	SyncedAt     time.Time `json:"synced_at"`
}

// QueueStats holds counts by queue status.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// queueTransitions is the closed transition table for queue items.
// pending -> processing (claim)
// processing -> completed | pending (retry) | failed (terminal)
var queueTransitions = map[string][]string{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusPending, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// CanTransition reports whether a queue item may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range queueTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error for an illegal move.
func ValidateTransition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal sync queue transition %s -> %s", from, to)
	}
	return nil
}
