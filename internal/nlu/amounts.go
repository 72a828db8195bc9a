package nlu

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/dvloznov/farm-ledger/internal/arabic"
	"github.com/shopspring/decimal"
)

// ErrAmountNotFound means neither the model nor the raw text yielded an amount;
// the user has to restate the message.
var ErrAmountNotFound = errors.New("amount not found")

var numeralPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// foldNumber maps Arabic digits to ASCII and treats a comma as the decimal separator.
func foldNumber(s string) string {
	return strings.ReplaceAll(arabic.FoldDigits(strings.TrimSpace(s)), ",", ".")
}

// firstNumeral returns the first decimal or integer numeral in text.
func firstNumeral(text string) (decimal.Decimal, bool) {
	m := numeralPattern.FindString(arabic.FoldDigits(text))
	if m == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", "."))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// modelAmount reads the structured amount the model returned, if it is usable.
func modelAmount(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(val), true
	case string:
		s := foldNumber(val)
		if d, err := decimal.NewFromString(s); err == nil {
			return d, true
		}
		// "500 ريال" and similar: take the numeral inside.
		neg := strings.HasPrefix(s, "-")
		d, ok := firstNumeral(s)
		if ok && neg {
			d = d.Neg()
		}
		return d, ok
	}
	return decimal.Decimal{}, false
}

// ResolveAmount prefers the model's amount and falls back to the first numeral in the
// raw text. The result is always non-negative.
func ResolveAmount(v any, text string) (decimal.Decimal, error) {
	if d, ok := modelAmount(v); ok {
		return d.Abs(), nil
	}
	if d, ok := firstNumeral(text); ok {
		return d.Abs(), nil
	}
	return decimal.Decimal{}, ErrAmountNotFound
}
