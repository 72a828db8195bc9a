package ledger

import (
	"strings"

	"github.com/dvloznov/farm-ledger/internal/arabic"
	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/sheets"
	"github.com/shopspring/decimal"
)

// Column order of the ledger worksheet.
const (
	colDate = iota
	colProcess
	colCategory
	colItem
	colAmount
	colNote
	colActor
	colBalance
)

// Header is the ledger worksheet header row.
var Header = []string{"التاريخ", "العملية", "النوع", "البند", "المبلغ", "ملاحظات", "المستخدم", "الرصيد"}

// encodeRow renders a transaction in column order. Labels are written in Arabic.
func encodeRow(tx domain.Transaction) []string {
	return []string{
		sheets.FormatDate(tx.Date),
		tx.Process.Label(),
		tx.Category.Label(),
		tx.Item,
		tx.Amount.String(),
		tx.Note,
		tx.Actor,
		tx.Balance.StringFixed(2),
	}
}

// parseAmount reads an amount cell, tolerating Arabic digits and thousands commas.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(arabic.FoldDigits(s))
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// decodeRow reads a ledger row. ok is false when the amount cannot be parsed.
// Unknown process or category labels decode as other.
func decodeRow(r sheets.Row) (domain.Transaction, bool) {
	amount, ok := parseAmount(r.Cell(colAmount))
	if !ok {
		return domain.Transaction{}, false
	}

	tx := domain.Transaction{
		Item:   r.Cell(colItem),
		Amount: amount.Abs(),
		Note:   r.Cell(colNote),
		Actor:  r.Cell(colActor),
	}
	tx.Date, _ = sheets.ParseDate(r.Cell(colDate))

	if p, ok := domain.ParseProcess(r.Cell(colProcess)); ok {
		tx.Process = p
	} else {
		tx.Process = domain.ProcessOther
	}
	if c, ok := domain.ParseCategory(r.Cell(colCategory)); ok {
		tx.Category = c
	} else {
		tx.Category = domain.CategoryOther
	}
	if b, ok := parseAmount(r.Cell(colBalance)); ok {
		tx.Balance = b
	}
	return tx, true
}
