package jsonextract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract_EmbeddedObject(t *testing.T) {
	obj := map[string]any{
		"should_save": true,
		"process":     "شراء",
		"amount":      json.Number("500"),
		"note":        "علف {مخلوط}",
	}
	encoded, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	tests := []struct {
		name   string
		prefix string
		suffix string
	}{
		{"bare", "", ""},
		{"prose before", "Here is the result: ", ""},
		{"prose after", "", "\nLet me know if you need more."},
		{"markdown fence", "```json\n", "\n```"},
		{"noise with braces after", "result:\n", "\n} trailing }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.prefix + string(encoded) + tt.suffix)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if diff := cmp.Diff(obj, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract_NoBrace(t *testing.T) {
	inputs := []string{
		"",
		"sorry, I cannot help with that",
		"[1, 2, 3",
	}
	for _, in := range inputs {
		if _, err := Extract(in); !errors.Is(err, ErrNoJSON) {
			t.Errorf("Extract(%q) error = %v, want ErrNoJSON", in, err)
		}
	}
}

func TestExtract_WholeTextNonObject(t *testing.T) {
	got, err := Extract("  [1, 2]  ")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if diff := cmp.Diff([]any{json.Number("1"), json.Number("2")}, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_Truncated(t *testing.T) {
	if _, err := Extract(`{"amount": 500, "note": "علف`); !errors.Is(err, ErrNoJSON) {
		t.Errorf("Extract() error = %v, want ErrNoJSON", err)
	}
}

func TestExtract_PrefersLongestParseablePrefix(t *testing.T) {
	got, err := Extract(`note {"a": 1} and {"b": 2}`)
	// From the first brace the longest valid prefix is {"a": 1}; the second
	// object is not reachable because the substring must start at the first brace.
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"a": json.Number("1")}, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractObject_NotObject(t *testing.T) {
	if _, err := ExtractObject(`"just a string"`); !errors.Is(err, ErrNotObject) {
		t.Errorf("ExtractObject() error = %v, want ErrNotObject", err)
	}
}

func TestExtract_RejectsTrailingCloser(t *testing.T) {
	got, err := Extract(`{"a": 1}}`)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"a": json.Number("1")}, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}
