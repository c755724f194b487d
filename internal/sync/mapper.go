package sync

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tourdesk/internal/models"
)

// ErrSheetNotConfigured is returned for pull requests against a sheet the
// bridge does not know about.
var ErrSheetNotConfigured = errors.New("sheet is not configured for sync")

const dateLayout = "2006-01-02"

// SheetMap binds synced models to spreadsheet tab names.
type SheetMap struct {
	Requests string
	Costs    string
	Revenues string
}

// SheetFor returns the tab name for a model.
func (m SheetMap) SheetFor(model string) (string, error) {
	switch model {
	case models.ModelRequest:
		return m.Requests, nil
	case models.ModelCost:
		return m.Costs, nil
	case models.ModelRevenue:
		return m.Revenues, nil
	}
	return "", fmt.Errorf("no sheet configured for model %s", model)
}

// ModelFor returns the model a sheet name belongs to.
func (m SheetMap) ModelFor(sheet string) (string, bool) {
	switch sheet {
	case m.Requests:
		return models.ModelRequest, true
	case m.Costs:
		return models.ModelCost, true
	case m.Revenues:
		return models.ModelRevenue, true
	}
	return "", false
}

// Column layouts. Write-back may only touch the writable set; the rest
// are staff-edited source columns and are sent as nil so the Sheets API
// leaves them alone on update.
var (
	// Requests: Code, Client, Phone, Destination, Start, End, Status, Manager, Notes
	requestWritable = []int{0, 1, 2, 3, 4, 5, 6, 7}
	// Costs: RequestCode, Supplier, Category, Description, Amount, Currency
	costWritable = []int{0, 1, 2, 4, 5}
	// Revenues: RequestCode, Description, Amount, Currency, ReceivedAt
	revenueWritable = []int{0, 2, 3, 4}
)

// WritableColumns returns the set of columns write-back may overwrite.
func WritableColumns(model string) []int {
	switch model {
	case models.ModelRequest:
		return requestWritable
	case models.ModelCost:
		return costWritable
	case models.ModelRevenue:
		return revenueWritable
	}
	return nil
}

// FilterWritable replaces every non-writable cell with nil.
func FilterWritable(values []any, writable []int) []any {
	allowed := make(map[int]bool, len(writable))
	for _, i := range writable {
		allowed[i] = true
	}
	filtered := make([]any, len(values))
	for i, v := range values {
		if allowed[i] {
			filtered[i] = v
		}
	}
	return filtered
}

// RequestToRow maps a request to its ordered cell values.
func RequestToRow(r *models.Request) []any {
	return []any{
		r.Code,
		r.ClientName,
		r.Phone,
		r.Destination,
		formatDate(r.StartDate),
		formatDate(r.EndDate),
		r.Status,
		r.Manager,
		r.Notes,
	}
}

// RequestFromRow maps raw cell values to a request. A (nil, nil) return
// means a blank or placeholder row that should be skipped silently.
func RequestFromRow(values []any) (*models.Request, error) {
	code := cellString(values, 0)
	client := cellString(values, 1)
	if code == "" && client == "" {
		return nil, nil
	}
	if code == "" {
		return nil, errors.New("request row has no code")
	}
	if client == "" {
		return nil, fmt.Errorf("request %s has no client name", code)
	}

	start, err := cellDate(values, 4)
	if err != nil {
		return nil, fmt.Errorf("request %s: bad start date: %w", code, err)
	}
	end, err := cellDate(values, 5)
	if err != nil {
		return nil, fmt.Errorf("request %s: bad end date: %w", code, err)
	}

	status := cellString(values, 6)
	if status == "" {
		status = models.RequestStatusNew
	}

	return &models.Request{
		Code:        code,
		ClientName:  client,
		Phone:       cellString(values, 2),
		Destination: cellString(values, 3),
		StartDate:   start,
		EndDate:     end,
		Status:      status,
		Manager:     cellString(values, 7),
		Notes:       cellString(values, 8),
	}, nil
}

// CostToRow maps a cost line to its ordered cell values.
func CostToRow(c *models.CostItem) []any {
	return []any{
		c.RequestCode,
		c.Supplier,
		c.Category,
		c.Description,
		c.Amount,
		c.Currency,
	}
}

// CostFromRow maps raw cell values to a cost line; (nil, nil) means blank.
func CostFromRow(values []any) (*models.CostItem, error) {
	code := cellString(values, 0)
	if code == "" {
		return nil, nil
	}

	amount, err := cellAmount(values, 4)
	if err != nil {
		return nil, fmt.Errorf("cost line for %s: bad amount: %w", code, err)
	}

	currency := cellString(values, 5)
	if currency == "" {
		currency = "USD"
	}

	return &models.CostItem{
		RequestCode: code,
		Supplier:    cellString(values, 1),
		Category:    cellString(values, 2),
		Description: cellString(values, 3),
		Amount:      amount,
		Currency:    currency,
	}, nil
}

// RevenueToRow maps a revenue line to its ordered cell values.
func RevenueToRow(r *models.RevenueItem) []any {
	return []any{
		r.RequestCode,
		r.Description,
		r.Amount,
		r.Currency,
		formatDate(r.ReceivedAt),
	}
}

// RevenueFromRow maps raw cell values to a revenue line; (nil, nil) means blank.
func RevenueFromRow(values []any) (*models.RevenueItem, error) {
	code := cellString(values, 0)
	if code == "" {
		return nil, nil
	}

	amount, err := cellAmount(values, 2)
	if err != nil {
		return nil, fmt.Errorf("revenue line for %s: bad amount: %w", code, err)
	}

	currency := cellString(values, 3)
	if currency == "" {
		currency = "USD"
	}

	received, err := cellDate(values, 4)
	if err != nil {
		return nil, fmt.Errorf("revenue line for %s: bad received date: %w", code, err)
	}

	return &models.RevenueItem{
		RequestCode: code,
		Description: cellString(values, 1),
		Amount:      amount,
		Currency:    currency,
		ReceivedAt:  received,
	}, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func cellString(values []any, i int) string {
	if i >= len(values) || values[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", values[i]))
}

func cellDate(values []any, i int) (time.Time, error) {
	s := cellString(values, i)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func cellAmount(values []any, i int) (float64, error) {
	if i >= len(values) {
		return 0, errors.New("missing value")
	}
	switch v := values[i].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}

	s := cellString(values, i)
	if s == "" {
		return 0, errors.New("missing value")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
