package redisstore

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alicebob/miniredis/v2"
	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/nlu"
	"github.com/dvloznov/farm-ledger/internal/pending"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func TestStore_RoundTripsCachedIntent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Minute)

	day := civil.Date{Year: 2025, Month: 3, Day: 10}
	entry := pending.Entry{
		UserID: 47329648,
		Text:   "اشتريت علف بـ 500",
		Kind:   pending.KindExpense,
		Intent: &nlu.Intent{
			Kind: nlu.KindTransaction,
			Date: day,
			Transaction: &domain.Transaction{
				Date: day, Process: domain.ProcessPurchase, Category: domain.CategoryFeed,
				Amount: decimal.RequireFromString("500.25"),
			},
		},
	}
	if err := s.Put(ctx, entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := s.Take(ctx, 47329648)
	if err != nil || !ok {
		t.Fatalf("Take() = ok %v, err %v", ok, err)
	}
	if got.Text != entry.Text || got.Kind != entry.Kind {
		t.Errorf("got %+v", got)
	}
	if got.Intent == nil || got.Intent.Transaction == nil {
		t.Fatal("cached intent lost")
	}
	tx := got.Intent.Transaction
	if tx.Process != domain.ProcessPurchase || !tx.Amount.Equal(decimal.RequireFromString("500.25")) || tx.Date != day {
		t.Errorf("transaction = %+v", tx)
	}

	if _, ok, _ := s.Get(ctx, 47329648); ok {
		t.Error("entry still present after Take")
	}
}

func TestStore_OverwriteAndDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Minute)

	_ = s.Put(ctx, pending.Entry{UserID: 5, Text: "first"})
	_ = s.Put(ctx, pending.Entry{UserID: 5, Text: "second"})

	got, ok, err := s.Get(ctx, 5)
	if err != nil || !ok || got.Text != "second" {
		t.Fatalf("Get() = %+v ok %v err %v", got, ok, err)
	}

	if deleted, err := s.Delete(ctx, 5); err != nil || !deleted {
		t.Errorf("first Delete() = %v, %v", deleted, err)
	}
	if deleted, err := s.Delete(ctx, 5); err != nil || deleted {
		t.Errorf("second Delete() = %v, %v", deleted, err)
	}
}

func TestStore_ExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, 30*time.Minute)

	_ = s.Put(ctx, pending.Entry{UserID: 9, Text: "x"})
	mr.FastForward(31 * time.Minute)

	if _, ok, err := s.Get(ctx, 9); err != nil || ok {
		t.Errorf("Get() after TTL = ok %v, err %v", ok, err)
	}
	if n, err := s.Sweep(ctx); err != nil || n != 0 {
		t.Errorf("Sweep() = %d, %v", n, err)
	}
}
