package nlu

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/jsonextract"
)

// mockModel is a test double for Model.
type mockModel struct {
	CompleteFunc func(ctx context.Context, system, user string) (string, error)
}

func (m *mockModel) Complete(ctx context.Context, system, user string) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, user)
	}
	return "{}", nil
}

func (m *mockModel) Name() string {
	return "mock/model"
}

var arrival = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func TestAnalyzer_Analyze(t *testing.T) {
	var gotSystem, gotUser string
	model := &mockModel{
		CompleteFunc: func(ctx context.Context, system, user string) (string, error) {
			gotSystem, gotUser = system, user
			return "```json\n{\"intent\":\"transaction\",\"should_save\":true,\"process\":\"شراء\",\"type\":\"علف\",\"amount\":500}\n```", nil
		},
	}

	a := NewAnalyzer(model, time.UTC)
	intent, err := a.Analyze(context.Background(), "اشتريت علف بـ 500", arrival)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if gotUser != "اشتريت علف بـ 500" {
		t.Errorf("model got user text %q", gotUser)
	}
	if !strings.Contains(gotSystem, "2025-03-09") {
		t.Error("system prompt should spell out yesterday's date")
	}

	tx := intent.Transaction
	if tx == nil {
		t.Fatal("expected transaction")
	}
	if tx.Process != domain.ProcessPurchase || tx.Category != domain.CategoryFeed {
		t.Errorf("got process=%q category=%q", tx.Process, tx.Category)
	}
	if tx.Amount.String() != "500" {
		t.Errorf("Amount = %s, want 500", tx.Amount)
	}
	if want := (civil.Date{Year: 2025, Month: 3, Day: 10}); tx.Date != want {
		t.Errorf("Date = %v, want %v", tx.Date, want)
	}
}

func TestAnalyzer_TodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	a := NewAnalyzer(&mockModel{}, loc)

	late := time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	if got, want := a.Today(late), (civil.Date{Year: 2025, Month: 3, Day: 11}); got != want {
		t.Errorf("Today() = %v, want %v", got, want)
	}
}

func TestAnalyzer_ShapeError(t *testing.T) {
	long := strings.Repeat("ب", 300)
	model := &mockModel{
		CompleteFunc: func(ctx context.Context, system, user string) (string, error) {
			return "لا أستطيع المساعدة " + long, nil
		},
	}

	_, err := NewAnalyzer(model, nil).Analyze(context.Background(), "مرحبا", arrival)

	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if !errors.Is(err, jsonextract.ErrNoJSON) {
		t.Errorf("expected ErrNoJSON inside ShapeError, got %v", shapeErr.Err)
	}
	if n := len([]rune(shapeErr.Snippet)); n != snippetRunes+1 {
		t.Errorf("snippet has %d runes, want %d", n, snippetRunes+1)
	}
}

func TestAnalyzer_ModelError(t *testing.T) {
	model := &mockModel{
		CompleteFunc: func(ctx context.Context, system, user string) (string, error) {
			return "", &ModelError{Provider: "mock", Err: errors.New("quota exceeded")}
		},
	}

	_, err := NewAnalyzer(model, nil).Analyze(context.Background(), "بعت حليب 20", arrival)

	var modelErr *ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelError, got %v", err)
	}
}

func TestAnalyzer_NotFinancial(t *testing.T) {
	model := &mockModel{
		CompleteFunc: func(ctx context.Context, system, user string) (string, error) {
			return `{"intent":"other","should_save":false}`, nil
		},
	}

	intent, err := NewAnalyzer(model, nil).Analyze(context.Background(), "صباح الخير", arrival)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if intent.Kind != KindOther || intent.Saves() {
		t.Errorf("expected non-saving other intent, got %+v", intent)
	}
}
