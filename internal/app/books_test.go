package app

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/farm-ledger/internal/config"
	"github.com/dvloznov/farm-ledger/internal/ledger"
	"github.com/dvloznov/farm-ledger/internal/livestock"
	"github.com/dvloznov/farm-ledger/internal/sheets/inmemory"
	"github.com/google/go-cmp/cmp"
)

func testConfig() config.Config {
	return config.Config{
		LedgerSheet:       "دفتر",
		LivestockSheet:    "القطيع",
		LivestockLogSheet: "سجل القطيع",
	}
}

func TestNewBooks_UsesConfiguredSheets(t *testing.T) {
	store := inmemory.NewStore()

	books, err := NewBooks(context.Background(), store, testConfig())
	if err != nil {
		t.Fatalf("NewBooks() error = %v", err)
	}
	if books.Ledger == nil || books.Livestock == nil {
		t.Fatal("books not built")
	}

	for name, want := range map[string][]string{
		"دفتر":       ledger.Header,
		"القطيع":     livestock.SummaryHeader,
		"سجل القطيع": livestock.LogHeader,
	} {
		if diff := cmp.Diff(want, store.Get(name).Header()); diff != "" {
			t.Errorf("%s header mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestNewBooks_EnsureError(t *testing.T) {
	store := inmemory.NewStore()
	boom := errors.New("quota exceeded")
	store.Get("القطيع").SetError(boom)

	if _, err := NewBooks(context.Background(), store, testConfig()); !errors.Is(err, boom) {
		t.Errorf("NewBooks() error = %v, want %v", err, boom)
	}
}
