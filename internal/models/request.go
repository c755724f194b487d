package models

import "time"

// Request is a customer trip request, the root entity of the back office.
// Code is the unique business identifier staff use everywhere, including
// the spreadsheet, so pull-sync can upsert by it.
type Request struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	ClientName    string    `json:"client_name"`
	Phone         string    `json:"phone"`
	Destination   string    `json:"destination"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Status        string    `json:"status"`
	Manager       string    `json:"manager"`
	Notes         string    `json:"notes"`
	SheetRowIndex *int      `json:"sheet_row_index,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
