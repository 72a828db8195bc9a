package sheets

import (
	"testing"

	"cloud.google.com/go/civil"
)

func TestParseDate(t *testing.T) {
	want := civil.Date{Year: 2025, Month: 3, Day: 10}

	tests := []struct {
		input string
		ok    bool
	}{
		{"2025-03-10", true},
		{"45726", true},
		{"2025/03/10", true},
		{"10/3/2025", true},
		{"2025-03-10 00:00:00", true},
		{"", false},
		{"امس", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != want {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, want)
			}
		})
	}
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{0: "A", 2: "C", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ"}
	for col, want := range tests {
		if got := columnLetter(col); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", col, got, want)
		}
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"علف", "علف"},
		{float64(500), "500"},
		{12.5, "12.5"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := cellString(tt.in); got != tt.want {
			t.Errorf("cellString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want interface{}
	}{
		{"empty", "", ""},
		{"plain text", "علف للغنم", "علف للغنم"},
		{"number", "500", "500"},
		{"negative balance", "-250.5", "-250.5"},
		{"signed number", "+12", "+12"},
		{"formula", "=HYPERLINK(\"http://x\")", "'=HYPERLINK(\"http://x\")"},
		{"leading minus text", "- دفعة للعامل", "'- دفعة للعامل"},
		{"leading plus text", "+ مصاريف", "'+ مصاريف"},
		{"at sign", "@ahmad", "'@ahmad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cellValue(tt.in); got != tt.want {
				t.Errorf("cellValue(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRow_Cell(t *testing.T) {
	r := Row{Number: 2, Values: []string{" a ", ""}}
	if r.Cell(0) != "a" || r.Cell(5) != "" || r.Cell(-1) != "" {
		t.Errorf("unexpected cells: %q %q", r.Cell(0), r.Cell(5))
	}
	if r.Empty() {
		t.Error("row with a value reported empty")
	}
	if !(Row{Values: []string{" ", ""}}).Empty() {
		t.Error("blank row not reported empty")
	}
}
