// Package backup renders the ledger and the herd into an Excel workbook and
// uploads it to object storage on a schedule.
package backup

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/ledger"
	"github.com/dvloznov/farm-ledger/internal/livestock"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Worksheet names inside the workbook.
const (
	LedgerSheet    = "Ledger"
	LivestockSheet = "Livestock"
	SummarySheet   = "Month"
)

// TransactionSource reads the ledger.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]domain.Transaction, ledger.ReplayResult, error)
}

// HerdSource reads the livestock summary.
type HerdSource interface {
	Summary(ctx context.Context) ([]domain.HerdEntry, error)
}

// Builder renders workbooks.
type Builder struct {
	ledger TransactionSource
	herd   HerdSource
}

// NewBuilder creates a builder; herd may be nil to leave the livestock sheet out.
func NewBuilder(l TransactionSource, herd HerdSource) *Builder {
	return &Builder{ledger: l, herd: herd}
}

// FileName is the workbook name for the given day.
func FileName(day civil.Date) string {
	return fmt.Sprintf("farm-ledger-%s.xlsx", day.String())
}

// Build renders the workbook as of today and returns its file name and bytes.
func (b *Builder) Build(ctx context.Context, today civil.Date) (string, []byte, error) {
	txs, replay, err := b.ledger.Transactions(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("Build: %w", err)
	}

	var herd []domain.HerdEntry
	if b.herd != nil {
		herd, err = b.herd.Summary(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("Build: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LedgerSheet); err != nil {
		return "", nil, fmt.Errorf("Build: rename sheet: %w", err)
	}
	if err := writeLedger(f, txs); err != nil {
		return "", nil, fmt.Errorf("Build: %w", err)
	}
	if b.herd != nil {
		if err := writeHerd(f, herd); err != nil {
			return "", nil, fmt.Errorf("Build: %w", err)
		}
	}
	if err := writeMonth(f, txs, today, replay); err != nil {
		return "", nil, fmt.Errorf("Build: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("Build: write workbook: %w", err)
	}
	return FileName(today), buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("sheet %s row %d: %w", sheet, row, err)
	}
	return nil
}

func headerRow(header []string) []interface{} {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	return row
}

func writeLedger(f *excelize.File, txs []domain.Transaction) error {
	if err := setRow(f, LedgerSheet, 1, headerRow(ledger.Header)); err != nil {
		return err
	}
	for i, tx := range txs {
		amount, _ := tx.Amount.Float64()
		balance, _ := tx.Balance.Float64()
		date := ""
		if tx.Date.IsValid() {
			date = tx.Date.String()
		}
		row := []interface{}{
			date, tx.Process.Label(), tx.Category.Label(), tx.Item,
			amount, tx.Note, tx.Actor, balance,
		}
		if err := setRow(f, LedgerSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeHerd(f *excelize.File, herd []domain.HerdEntry) error {
	if _, err := f.NewSheet(LivestockSheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", LivestockSheet, err)
	}
	if err := setRow(f, LivestockSheet, 1, headerRow(livestock.SummaryHeader)); err != nil {
		return err
	}
	for i, e := range herd {
		if err := setRow(f, LivestockSheet, i+2, []interface{}{e.Animal, e.Breed, e.Count}); err != nil {
			return err
		}
	}
	return nil
}

func writeMonth(f *excelize.File, txs []domain.Transaction, today civil.Date, replay ledger.ReplayResult) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", SummarySheet, err)
	}
	s := ledger.SummarizeTransactions(txs, ledger.Month(today))

	income, _ := s.Income.Float64()
	expenses, _ := s.Expenses.Float64()
	net, _ := s.Net().Float64()
	balance, _ := replay.Balance.Float64()

	rows := [][]interface{}{
		{"من", s.Period.From.String()},
		{"إلى", s.Period.To.String()},
		{"الدخل", income},
		{"المصروفات", expenses},
		{"الصافي", net},
		{"عدد العمليات", s.Count},
		{"الرصيد", balance},
	}
	for _, c := range domain.Categories {
		if v, ok := s.ByCategory[c]; ok {
			amount, _ := v.Float64()
			rows = append(rows, []interface{}{c.Label(), amount})
		}
	}
	for i, r := range rows {
		if err := setRow(f, SummarySheet, i+1, r); err != nil {
			return err
		}
	}
	return nil
}
