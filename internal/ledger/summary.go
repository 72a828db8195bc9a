package ledger

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Period is an inclusive date range.
type Period struct {
	From civil.Date
	To   civil.Date
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d civil.Date) bool {
	return !d.Before(p.From) && !d.After(p.To)
}

// Day is the single day today.
func Day(today civil.Date) Period {
	return Period{From: today, To: today}
}

// Week is the last seven days, today included.
func Week(today civil.Date) Period {
	return Period{From: today.AddDays(-6), To: today}
}

// Month is the calendar month containing today, up to today.
func Month(today civil.Date) Period {
	return Period{From: civil.Date{Year: today.Year, Month: today.Month, Day: 1}, To: today}
}

// Summary aggregates the transactions of a period.
type Summary struct {
	Period   Period
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Count    int
	// Expenses per category, absolute values.
	ByCategory map[domain.Category]decimal.Decimal
}

// Net is income minus expenses.
func (s Summary) Net() decimal.Decimal {
	return s.Income.Sub(s.Expenses)
}

// Summarize totals the transactions dated inside p. Rows without a readable date
// are left out.
func (l *Ledger) Summarize(ctx context.Context, p Period) (Summary, error) {
	txs, _, err := l.Transactions(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("Summarize: %w", err)
	}
	return SummarizeTransactions(txs, p), nil
}

// SummarizeTransactions totals txs dated inside p.
func SummarizeTransactions(txs []domain.Transaction, p Period) Summary {
	s := Summary{Period: p, ByCategory: make(map[domain.Category]decimal.Decimal)}
	for _, tx := range txs {
		if !tx.Date.IsValid() || !p.Contains(tx.Date) {
			continue
		}
		s.Count++
		if tx.Process == domain.ProcessSale {
			s.Income = s.Income.Add(tx.Amount)
			continue
		}
		s.Expenses = s.Expenses.Add(tx.Amount)
		s.ByCategory[tx.Category] = s.ByCategory[tx.Category].Add(tx.Amount)
	}
	return s
}
