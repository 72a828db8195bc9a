package nlu

import (
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestResolveDate(t *testing.T) {
	today := civil.Date{Year: 2025, Month: 3, Day: 10}

	tests := []struct {
		name      string
		text      string
		modelDate string
		want      civil.Date
	}{
		{"no date in text ignores model", "اشتريت علف بـ 500", "2024-01-01", today},
		{"no date and no model date", "اشتريت علف", "", today},
		{"yesterday trusts model", "اشتريت علف امس", "2025-03-09", civil.Date{Year: 2025, Month: 3, Day: 9}},
		{"yesterday with hamza and bad model date", "اشتريت علف أمس", "garbage", civil.Date{Year: 2025, Month: 3, Day: 9}},
		{"future model date is rejected", "البارحة بعت حليب", "2025-03-20", civil.Date{Year: 2025, Month: 3, Day: 9}},
		{"day before yesterday", "قبل امس دفعت الكهرباء", "", civil.Date{Year: 2025, Month: 3, Day: 8}},
		{"conjunction prefix", "وامس اشترينا شعير", "", civil.Date{Year: 2025, Month: 3, Day: 9}},
		{"explicit today", "اليوم بعت بيض", "2025-03-01", civil.Date{Year: 2025, Month: 3, Day: 1}},
		{"day and month in text", "دفعت الماء 15/2", "", civil.Date{Year: 2025, Month: 2, Day: 15}},
		{"arabic digits iso date", "علف ٢٠٢٥-٠٣-٠٥", "", civil.Date{Year: 2025, Month: 3, Day: 5}},
		{"invalid date in text", "علف 31/2", "", today},
		{"dashed date with year", "دفعت الكهرباء 5-3-2025", "", civil.Date{Year: 2025, Month: 3, Day: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveDate(tt.text, tt.modelDate, today); got != tt.want {
				t.Errorf("ResolveDate(%q, %q) = %v, want %v", tt.text, tt.modelDate, got, tt.want)
			}
		})
	}
}

func TestResolveDate_NeverInFuture(t *testing.T) {
	today := civil.Date{Year: 2026, Month: 10, Day: 19}

	tests := []struct {
		name      string
		text      string
		modelDate string
	}{
		{"quantity range is not a date", "اشتريت 10-12 كيس علف ب 500", "2026-12-10"},
		{"future day and month in text", "دفعت الماء 10/12", ""},
		{"future dated text with future model date", "دفعت الماء 10/12", "2026-12-10"},
		{"future iso date in text", "علف 2027-01-05", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveDate(tt.text, tt.modelDate, today); got != today {
				t.Errorf("ResolveDate(%q, %q) = %v, want %v", tt.text, tt.modelDate, got, today)
			}
		})
	}
}

func TestHasExplicitDate(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"اشتريت علف بـ 500", false},
		{"امس", true},
		{"أول البارحة", true},
		{"10/3", true},
		{"2025-03-01", true},
		{"امسك الحساب", false},
		{"اشتريت 10-12 كيس", false},
		{"10-3-2025", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := HasExplicitDate(tt.text); got != tt.want {
				t.Errorf("HasExplicitDate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestResolveAmount(t *testing.T) {
	tests := []struct {
		name string
		v    any
		text string
		want string
	}{
		{"negative number", json.Number("-5"), "", "5"},
		{"positive number", json.Number("5"), "", "5"},
		{"float", 12.75, "", "12.75"},
		{"string with currency", "-300 ريال", "", "300"},
		{"missing uses text", nil, "دفعت ٢٥٠ للعامل", "250"},
		{"unusable model value uses text", true, "بعت 40", "40"},
		{"arabic decimal separator in text", nil, "علف ١٢٫٥", "12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAmount(tt.v, tt.text)
			if err != nil {
				t.Fatalf("ResolveAmount() error = %v", err)
			}
			if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
				t.Errorf("ResolveAmount() = %s, want %s", got, want)
			}
		})
	}
}

func TestResolveAmount_NotFound(t *testing.T) {
	if _, err := ResolveAmount(nil, "اشتريت علف"); !errors.Is(err, ErrAmountNotFound) {
		t.Errorf("expected ErrAmountNotFound, got %v", err)
	}
}

func TestGuessProcessAndCategory(t *testing.T) {
	tests := []struct {
		text         string
		wantProcess  string
		wantCategory string
	}{
		{"اشتريت علف", "purchase", "feed"},
		{"بعت حليب", "sale", "products"},
		{"راتب العامل", "salary", "labor"},
		{"فاتورة الماء", "bill", "water"},
		{"دواء للغنم", "other", "treatment"},
		{"مرحبا", "other", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := GuessProcess(tt.text); string(got) != tt.wantProcess {
				t.Errorf("GuessProcess(%q) = %q, want %q", tt.text, got, tt.wantProcess)
			}
			if got := GuessCategory(tt.text); string(got) != tt.wantCategory {
				t.Errorf("GuessCategory(%q) = %q, want %q", tt.text, got, tt.wantCategory)
			}
		})
	}
}
