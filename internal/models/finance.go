package models

import "time"

// CostItem is one supplier cost line owned by a request. A request may
// carry many cost lines, so pull-sync always creates rather than upserts.
type CostItem struct {
	ID            int64     `json:"id"`
	RequestID     int64     `json:"request_id"`
	RequestCode   string    `json:"request_code"`
	Supplier      string    `json:"supplier"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	SheetRowIndex *int      `json:"sheet_row_index,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RevenueItem is one incoming payment line owned by a request.
type RevenueItem struct {
	ID            int64     `json:"id"`
	RequestID     int64     `json:"request_id"`
	RequestCode   string    `json:"request_code"`
	Description   string    `json:"description"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	ReceivedAt    time.Time `json:"received_at"`
	SheetRowIndex *int      `json:"sheet_row_index,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
