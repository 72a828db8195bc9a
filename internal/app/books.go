// Package app wires the spreadsheet-backed stores shared by the bot and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/farm-ledger/internal/config"
	"github.com/dvloznov/farm-ledger/internal/ledger"
	"github.com/dvloznov/farm-ledger/internal/livestock"
	"github.com/dvloznov/farm-ledger/internal/sheets"
)

// Books are the ledger and the herd, both stored in one spreadsheet.
type Books struct {
	Ledger    *ledger.Ledger
	Livestock *livestock.Reconciler
}

// OpenBooks connects to the configured spreadsheet.
func OpenBooks(ctx context.Context, cfg config.Config) (*Books, error) {
	key, err := cfg.ServiceAccountKey()
	if err != nil {
		return nil, fmt.Errorf("OpenBooks: %w", err)
	}
	client, err := sheets.NewClient(ctx, key, cfg.SheetID)
	if err != nil {
		return nil, fmt.Errorf("OpenBooks: %w", err)
	}
	return NewBooks(ctx, client, cfg)
}

// NewBooks builds the books over store and creates any missing worksheet.
func NewBooks(ctx context.Context, store sheets.Store, cfg config.Config) (*Books, error) {
	b := &Books{
		Ledger: ledger.New(store.Table(cfg.LedgerSheet, ledger.Header)),
		Livestock: livestock.NewReconciler(
			store.Table(cfg.LivestockSheet, livestock.SummaryHeader),
			store.Table(cfg.LivestockLogSheet, livestock.LogHeader),
		),
	}
	if err := b.Ledger.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("NewBooks: ledger: %w", err)
	}
	if err := b.Livestock.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("NewBooks: livestock: %w", err)
	}
	return b, nil
}
