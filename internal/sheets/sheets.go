// Package sheets is the tabular store behind the ledger and the livestock tables.
// Each worksheet is a header row followed by data rows in a fixed column order.
package sheets

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ErrRowOutOfRange is returned when a row number does not address a data row.
var ErrRowOutOfRange = errors.New("row out of range")

// Row is one data row. Number is the 1-based sheet row, so the first data row is 2.
type Row struct {
	Number int
	Values []string
}

// Cell returns the i-th value, or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return strings.TrimSpace(r.Values[i])
}

// Empty reports whether every cell is blank.
func (r Row) Empty() bool {
	for _, v := range r.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Table is one worksheet.
type Table interface {
	// Name returns the worksheet title.
	Name() string

	// Ensure creates the worksheet with its header row when it does not exist.
	Ensure(ctx context.Context) error

	// ReadAll returns every data row below the header.
	ReadAll(ctx context.Context) ([]Row, error)

	// Append adds rows after the last data row.
	Append(ctx context.Context, rows ...[]string) error

	// UpdateCell overwrites a single cell; col is 0-based.
	UpdateCell(ctx context.Context, row, col int, value string) error

	// DeleteRow removes a data row and shifts the rows below it up.
	DeleteRow(ctx context.Context, row int) error

	// Replace overwrites every data row with rows in a single write, keeping the
	// header. The table is left as it was when the write fails.
	Replace(ctx context.Context, rows ...[]string) error
}

// Store opens worksheets of one spreadsheet.
type Store interface {
	Table(name string, header []string) Table
}

const dateLayout = "2006-01-02"

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// FormatDate writes dates as ISO strings.
func FormatDate(d civil.Date) string {
	return d.String()
}

// ParseDate reads a date cell. Sheets may hand back the ISO text that was written,
// a serial day number, or a locale formatted string.
func ParseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, true
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return civil.DateOf(sheetsEpoch.AddDate(0, 0, int(serial))), true
	}
	for _, layout := range []string{"2006/01/02", "2/1/2006", "1/2/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	if len(s) > len(dateLayout) {
		// "2025-03-10 00:00:00"
		if d, err := civil.ParseDate(s[:len(dateLayout)]); err == nil {
			return d, true
		}
	}
	return civil.Date{}, false
}

// FormatNumber renders a numeric cell without exponent or trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// cellValue prepares a cell for USER_ENTERED input. Text that the sheet would
// parse as a formula is prefixed with an apostrophe so it is stored literally.
// Numbers, negative ones included, are passed through.
func cellValue(s string) interface{} {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s
		}
		return "'" + s
	}
	return s
}

// cellString converts a value returned by the Sheets API to text.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return FormatNumber(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
