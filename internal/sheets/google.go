package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	valueInputUserEntered = "USER_ENTERED"
	renderUnformatted     = "UNFORMATTED_VALUE"
	renderDateFormatted   = "FORMATTED_STRING"
	insertRows            = "INSERT_ROWS"
)

// Client is the Google Sheets implementation of Store. It holds a shared
// Sheets service and caches worksheet IDs by title.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewClient creates a Sheets client authenticated with a service account key.
func NewClient(ctx context.Context, credentialsJSON []byte, spreadsheetID string) (*Client, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("NewClient: creating sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// Table implements Store.
func (c *Client) Table(name string, header []string) Table {
	return &googleTable{client: c, name: name, header: header}
}

// sheetID resolves a worksheet title to its numeric ID, refreshing the cache on a miss.
func (c *Client) sheetID(ctx context.Context, title string) (int64, bool, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, true, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("sheetID: get spreadsheet: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok = c.sheetIDs[title]
	return id, ok, nil
}

type googleTable struct {
	client *Client
	name   string
	header []string
}

func (t *googleTable) Name() string {
	return t.name
}

// a1 quotes the worksheet title for A1 notation.
func (t *googleTable) a1(ref string) string {
	title := "'" + strings.ReplaceAll(t.name, "'", "''") + "'"
	if ref == "" {
		return title
	}
	return title + "!" + ref
}

func (t *googleTable) Ensure(ctx context.Context) error {
	c := t.client
	_, exists, err := c.sheetID(ctx, t.name)
	if err != nil {
		return fmt.Errorf("Ensure: %w", err)
	}

	if !exists {
		resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheets.Request{{
				AddSheet: &gsheets.AddSheetRequest{
					Properties: &gsheets.SheetProperties{Title: t.name},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("Ensure: adding worksheet %q: %w", t.name, err)
		}
		if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
			c.mu.Lock()
			c.sheetIDs[t.name] = resp.Replies[0].AddSheet.Properties.SheetId
			c.mu.Unlock()
		}
	}

	got, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, t.a1("1:1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("Ensure: reading header of %q: %w", t.name, err)
	}
	if len(got.Values) > 0 && len(got.Values[0]) > 0 {
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, t.a1("A1"), &gsheets.ValueRange{
		Values: [][]interface{}{toInterfaces(t.header)},
	}).ValueInputOption(valueInputUserEntered).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("Ensure: writing header of %q: %w", t.name, err)
	}
	return nil
}

func (t *googleTable) ReadAll(ctx context.Context) ([]Row, error) {
	c := t.client
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, t.a1("")).
		ValueRenderOption(renderUnformatted).
		DateTimeRenderOption(renderDateFormatted).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("ReadAll: reading %q: %w", t.name, err)
	}

	if len(resp.Values) <= 1 {
		return nil, nil
	}
	rows := make([]Row, 0, len(resp.Values)-1)
	for i, raw := range resp.Values[1:] {
		values := make([]string, len(raw))
		for j, v := range raw {
			values[j] = cellString(v)
		}
		rows = append(rows, Row{Number: i + 2, Values: values})
	}
	return rows, nil
}

func (t *googleTable) Append(ctx context.Context, rows ...[]string) error {
	if len(rows) == 0 {
		return nil
	}
	c := t.client
	values := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		values = append(values, toInterfaces(r))
	}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, t.a1(""), &gsheets.ValueRange{Values: values}).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption(insertRows).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("Append: appending to %q: %w", t.name, err)
	}
	return nil
}

func (t *googleTable) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 2 {
		return fmt.Errorf("UpdateCell: row %d: %w", row, ErrRowOutOfRange)
	}
	c := t.client
	ref := fmt.Sprintf("%s%d", columnLetter(col), row)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, t.a1(ref), &gsheets.ValueRange{
		Values: [][]interface{}{{cellValue(value)}},
	}).ValueInputOption(valueInputUserEntered).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("UpdateCell: updating %s of %q: %w", ref, t.name, err)
	}
	return nil
}

func (t *googleTable) DeleteRow(ctx context.Context, row int) error {
	if row < 2 {
		return fmt.Errorf("DeleteRow: row %d: %w", row, ErrRowOutOfRange)
	}
	c := t.client
	id, ok, err := c.sheetID(ctx, t.name)
	if err != nil {
		return fmt.Errorf("DeleteRow: %w", err)
	}
	if !ok {
		return fmt.Errorf("DeleteRow: worksheet %q not found", t.name)
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("DeleteRow: deleting row %d of %q: %w", row, t.name, err)
	}
	return nil
}

func (t *googleTable) Replace(ctx context.Context, rows ...[]string) error {
	existing, err := t.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("Replace: %w", err)
	}

	// Blank rows overwrite whatever is left below the new data, so the whole
	// table changes in one request.
	width := len(t.header)
	for _, r := range existing {
		width = max(width, len(r.Values))
	}
	values := make([][]interface{}, 0, max(len(rows), len(existing)))
	for _, r := range rows {
		values = append(values, toInterfaces(r))
	}
	for len(values) < len(existing) {
		values = append(values, toInterfaces(make([]string, width)))
	}
	if len(values) == 0 {
		return nil
	}

	c := t.client
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, t.a1("A2"), &gsheets.ValueRange{Values: values}).
		ValueInputOption(valueInputUserEntered).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("Replace: writing %q: %w", t.name, err)
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = cellValue(v)
	}
	return out
}

// columnLetter converts a 0-based column index to A1 letters.
func columnLetter(col int) string {
	var b []byte
	for col >= 0 {
		b = append([]byte{byte('A' + col%26)}, b...)
		col = col/26 - 1
	}
	return string(b)
}

var _ Store = (*Client)(nil)
var _ Table = (*googleTable)(nil)
