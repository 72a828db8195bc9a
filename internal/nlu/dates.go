package nlu

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/arabic"
)

// Day-first dates. A dash needs the year too: "10-12" on its own is a
// quantity range as often as a date.
var (
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	dashDatePattern  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{2,4})\b`)
)

// Relative day words, already folded. Two-word phrases are checked before single words
// so "قبل امس" is not read as "امس".
var (
	dayBeforeYesterdayPhrases = [][2]string{{"قبل", "امس"}, {"اول", "امس"}, {"اول", "البارحه"}}
	yesterdayWords            = map[string]bool{"امس": true, "البارحه": true, "بارحه": true, "مبارح": true, "yesterday": true}
	todayWords                = map[string]bool{"اليوم": true, "today": true}
)

// relativeOffset returns the day offset named by relative date language in text.
func relativeOffset(text string) (int, bool) {
	words := arabic.Words(text)
	for i := 0; i+1 < len(words); i++ {
		for _, p := range dayBeforeYesterdayPhrases {
			if stripConjunction(words[i]) == p[0] && words[i+1] == p[1] {
				return -2, true
			}
		}
	}
	for _, w := range words {
		w = stripConjunction(w)
		if yesterdayWords[w] {
			return -1, true
		}
		if todayWords[w] {
			return 0, true
		}
	}
	return 0, false
}

// stripConjunction drops a leading "و" (and) glued to a word, as in "وامس".
func stripConjunction(w string) string {
	if trimmed := strings.TrimPrefix(w, "و"); trimmed != w && (yesterdayWords[trimmed] || todayWords[trimmed] || trimmed == "قبل" || trimmed == "اول") {
		return trimmed
	}
	return w
}

// HasExplicitDate reports whether the user's text itself names a date, either by a
// relative word or a numeric date. When it does not, any date the model returns is
// ignored and the arrival date is used.
func HasExplicitDate(text string) bool {
	if _, ok := relativeOffset(text); ok {
		return true
	}
	folded := arabic.FoldDigits(text)
	return isoDatePattern.MatchString(folded) ||
		slashDatePattern.MatchString(folded) ||
		dashDatePattern.MatchString(folded)
}

// ResolveDate picks the transaction date from the message, the model's date string,
// and the arrival date. Dates after today are never returned.
func ResolveDate(text, modelDate string, today civil.Date) civil.Date {
	if !HasExplicitDate(text) {
		return today
	}
	if d, ok := parseDate(modelDate, today); ok && !d.After(today) {
		return d
	}
	if offset, ok := relativeOffset(text); ok {
		return today.AddDays(offset)
	}
	if d, ok := parseDate(arabic.FoldDigits(text), today); ok && !d.After(today) {
		return d
	}
	return today
}

// parseDate finds the first ISO, day/month[/year] or day-month-year date in s.
func parseDate(s string, today civil.Date) (civil.Date, bool) {
	s = arabic.FoldDigits(strings.TrimSpace(s))
	if s == "" {
		return civil.Date{}, false
	}

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return makeDate(y, mo, d)
	}

	for _, p := range []*regexp.Regexp{slashDatePattern, dashDatePattern} {
		m := p.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y := today.Year
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
			if y < 100 {
				y += 2000
			}
		}
		return makeDate(y, mo, d)
	}

	return civil.Date{}, false
}

// makeDate rejects out-of-range components instead of letting time.Date normalize them.
func makeDate(y, m, d int) (civil.Date, bool) {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}
