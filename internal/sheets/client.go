package sheets

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Row is one spreadsheet row with its 1-based index.
type Row struct {
	Index  int
	Values []any
}

// RowUpdate targets an existing row for an in-place write. Nil cells are
// sent as JSON null, which the Sheets API skips, leaving staff-edited
// columns untouched.
type RowUpdate struct {
	Index  int
	Values []any
}

// Service talks to one spreadsheet. Writes go through a rate limiter to
// stay inside the Sheets API quota.
type Service struct {
	service       *sheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
}

func NewService(ctx context.Context, credentialsFile, spreadsheetID string, writeRPS float64) (*Service, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	if writeRPS <= 0 {
		writeRPS = 1
	}

	return &Service{
		service:       srv,
		spreadsheetID: spreadsheetID,
		limiter:       rate.NewLimiter(rate.Limit(writeRPS), 2),
	}, nil
}

// TestConnection reads the first cell to verify credentials and access.
func (s *Service) TestConnection(ctx context.Context, sheet string) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ListRows returns every row with index >= fromRow, fetched eagerly.
func (s *Service) ListRows(ctx context.Context, sheet string, fromRow int) ([]Row, error) {
	if fromRow < 1 {
		fromRow = 1
	}
	readRange := fmt.Sprintf("%s!A%d:Z", sheet, fromRow)
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list rows %s: %w", readRange, err)
	}

	rows := make([]Row, 0, len(resp.Values))
	for i, values := range resp.Values {
		rows = append(rows, Row{Index: fromRow + i, Values: values})
	}
	return rows, nil
}

// AppendRow appends values after the last row of the sheet and returns
// the 1-based index of the new row, parsed from the API response.
func (s *Service) AppendRow(ctx context.Context, sheet string, values []any) (int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	valueRange := &sheets.ValueRange{Values: [][]any{values}}
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, sheet+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to append row to %s: %w", sheet, err)
	}
	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return 0, fmt.Errorf("append to %s returned no updated range", sheet)
	}

	rowIndex, err := startRowOfRange(resp.Updates.UpdatedRange)
	if err != nil {
		return 0, fmt.Errorf("failed to parse appended range %q: %w", resp.Updates.UpdatedRange, err)
	}
	return rowIndex, nil
}

// UpdateRows writes the given rows in place with a single batch call.
func (s *Service) UpdateRows(ctx context.Context, sheet string, updates []RowUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!A%d", sheet, u.Index),
			Values: [][]any{u.Values},
		})
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	_, err := s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update rows in %s: %w", sheet, err)
	}
	return nil
}

// startRowOfRange extracts the starting row from an A1 range like
// "Costs!A12:J12" or "'My Sheet'!B3".
func startRowOfRange(a1 string) (int, error) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}

	digits := strings.TrimLeftFunc(a1, func(r rune) bool {
		return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r == '$'
	})
	if digits == "" {
		return 0, fmt.Errorf("no row number in %q", a1)
	}
	return strconv.Atoi(digits)
}
