package ledger

import (
	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/sheets"
	"github.com/shopspring/decimal"
)

// ReplayResult is the outcome of summing the whole ledger.
type ReplayResult struct {
	Balance decimal.Decimal
	Counted int
	// Ignored rows had an unparsable amount and did not affect Balance.
	Ignored int
}

// Replay derives the balance from every ledger row: sales add, everything else
// subtracts. Blank rows are skipped without being counted.
func Replay(rows []sheets.Row) ReplayResult {
	var res ReplayResult
	for _, r := range rows {
		if r.Empty() {
			continue
		}
		tx, ok := decodeRow(r)
		if !ok {
			res.Ignored++
			continue
		}
		res.Balance = res.Balance.Add(tx.Signed())
		res.Counted++
	}
	return res
}

// NewBalance is the balance after tx is applied to prior, rounded to 2 decimal places.
func NewBalance(prior decimal.Decimal, tx domain.Transaction) decimal.Decimal {
	return prior.Add(tx.Signed()).Round(2)
}
