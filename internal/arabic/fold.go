// Package arabic folds Arabic spelling variants so free-text labels compare equal.
package arabic

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// letterFolds maps letters that have no canonical decomposition to their plain form.
// Hamza-carrying alefs, waw and yeh decompose under NFD and lose the hamza with the marks.
var letterFolds = map[rune]rune{
	'ى': 'ي', // alef maksura
	'ة': 'ه', // teh marbuta
	'ٱ': 'ا', // alef wasla
}

// FoldDigits replaces Arabic-Indic and Extended Arabic-Indic digits with ASCII
// digits and the Arabic decimal/thousands separators with their ASCII meaning.
func FoldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r == '٫':
			return '.'
		case r == '٬':
			return -1
		}
		return r
	}, s)
}

// Fold strips diacritics and tatweel, folds letter variants and digits, and
// lower-cases Latin text. Word boundaries are kept.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	stripped = strings.Map(func(r rune) rune {
		if r == tatweel {
			return -1
		}
		if f, ok := letterFolds[r]; ok {
			return f
		}
		return unicode.ToLower(r)
	}, stripped)

	return FoldDigits(stripped)
}

// Key folds s and keeps only letters and digits, for use as a lookup key.
func Key(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Words splits folded text into letter/digit tokens.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
