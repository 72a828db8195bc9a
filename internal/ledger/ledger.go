// Package ledger keeps the farm's transaction ledger and its running balance.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/logger"
	"github.com/dvloznov/farm-ledger/internal/sheets"
	"github.com/shopspring/decimal"
)

// ErrEmpty is returned by UndoLast when the ledger has no rows.
var ErrEmpty = errors.New("ledger is empty")

// maxSeedAge bounds how long Append trusts the cached balance, so rows edited by
// hand in the sheet are picked up.
const maxSeedAge = 5 * time.Minute

// Ledger appends transactions to the ledger worksheet. All writes go through one
// Ledger, which holds the running balance; it is seeded by a full replay on first
// use, after an undo, once it is older than maxSeedAge, and on every Balance call.
type Ledger struct {
	table sheets.Table

	mu       sync.Mutex
	balance  decimal.Decimal
	seeded   bool
	seededAt time.Time
}

// New creates a ledger over table.
func New(table sheets.Table) *Ledger {
	return &Ledger{table: table}
}

// Ensure creates the worksheet and its header when missing.
func (l *Ledger) Ensure(ctx context.Context) error {
	if err := l.table.Ensure(ctx); err != nil {
		return fmt.Errorf("Ensure: %w", err)
	}
	return nil
}

// seedLocked replays the ledger into the running balance. l.mu must be held.
func (l *Ledger) seedLocked(ctx context.Context) error {
	if l.seeded && time.Since(l.seededAt) < maxSeedAge {
		return nil
	}
	rows, err := l.table.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("seed: reading ledger: %w", err)
	}
	res := Replay(rows)
	l.balance = res.Balance.Round(2)
	l.seeded = true
	l.seededAt = time.Now()

	log := logger.FromContext(ctx)
	log.Debug().
		Str("balance", l.balance.StringFixed(2)).
		Int("counted", res.Counted).
		Int("ignored", res.Ignored).
		Msg("Ledger balance seeded")
	return nil
}

// Balance replays the sheet and returns the balance it gives, which also
// refreshes the cached running balance.
func (l *Ledger) Balance(ctx context.Context) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seeded = false
	if err := l.seedLocked(ctx); err != nil {
		return decimal.Decimal{}, fmt.Errorf("Balance: %w", err)
	}
	return l.balance, nil
}

// Preview returns the balance tx would leave without writing it.
func (l *Ledger) Preview(ctx context.Context, tx domain.Transaction) (decimal.Decimal, error) {
	bal, err := l.Balance(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("Preview: %w", err)
	}
	return NewBalance(bal, tx), nil
}

// Append writes tx with its balance snapshot and returns the stored transaction.
func (l *Ledger) Append(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.seedLocked(ctx); err != nil {
		return domain.Transaction{}, fmt.Errorf("Append: %w", err)
	}

	tx.Amount = tx.Amount.Abs()
	tx.Balance = NewBalance(l.balance, tx)

	if err := l.table.Append(ctx, encodeRow(tx)); err != nil {
		// The row may or may not have landed; replay on next use.
		l.seeded = false
		return domain.Transaction{}, fmt.Errorf("Append: writing row: %w", err)
	}
	l.balance = tx.Balance

	log := logger.FromContext(ctx)
	log.Info().
		Str("process", string(tx.Process)).
		Str("category", string(tx.Category)).
		Str("amount", tx.Amount.String()).
		Str("balance", tx.Balance.StringFixed(2)).
		Msg("Transaction appended")

	return tx, nil
}

// UndoLast deletes the most recently appended row and returns what it held.
// A row with an unparsable amount is still deleted; the returned transaction is
// then zero apart from what could be read.
func (l *Ledger) UndoLast(ctx context.Context) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.table.ReadAll(ctx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("UndoLast: reading ledger: %w", err)
	}

	last := -1
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].Empty() {
			last = i
			break
		}
	}
	if last < 0 {
		return domain.Transaction{}, ErrEmpty
	}

	tx, _ := decodeRow(rows[last])
	if err := l.table.DeleteRow(ctx, rows[last].Number); err != nil {
		return domain.Transaction{}, fmt.Errorf("UndoLast: deleting row %d: %w", rows[last].Number, err)
	}
	l.seeded = false

	log := logger.FromContext(ctx)
	log.Info().
		Int("row", rows[last].Number).
		Str("amount", tx.Amount.String()).
		Msg("Last transaction removed")

	return tx, nil
}

// Transactions returns every parsable row in sheet order along with the replay
// counts.
func (l *Ledger) Transactions(ctx context.Context) ([]domain.Transaction, ReplayResult, error) {
	rows, err := l.table.ReadAll(ctx)
	if err != nil {
		return nil, ReplayResult{}, fmt.Errorf("Transactions: reading ledger: %w", err)
	}
	txs := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		if r.Empty() {
			continue
		}
		if tx, ok := decodeRow(r); ok {
			txs = append(txs, tx)
		}
	}
	return txs, Replay(rows), nil
}

// Audit compares the running balance with a fresh replay.
type Audit struct {
	Running  decimal.Decimal
	Replayed decimal.Decimal
	Counted  int
	Ignored  int
}

// Drift is replayed minus running.
func (a Audit) Drift() decimal.Decimal {
	return a.Replayed.Sub(a.Running)
}

// Reconcile replays the ledger, reports the difference to the running balance and
// adopts the replayed value.
func (l *Ledger) Reconcile(ctx context.Context) (Audit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.seedLocked(ctx); err != nil {
		return Audit{}, fmt.Errorf("Reconcile: %w", err)
	}
	rows, err := l.table.ReadAll(ctx)
	if err != nil {
		return Audit{}, fmt.Errorf("Reconcile: reading ledger: %w", err)
	}
	res := Replay(rows)

	audit := Audit{
		Running:  l.balance,
		Replayed: res.Balance.Round(2),
		Counted:  res.Counted,
		Ignored:  res.Ignored,
	}
	if !audit.Drift().IsZero() {
		log := logger.FromContext(ctx)
		log.Warn().
			Str("running", audit.Running.StringFixed(2)).
			Str("replayed", audit.Replayed.StringFixed(2)).
			Msg("Ledger balance drift")
	}
	l.balance = audit.Replayed
	return audit, nil
}
