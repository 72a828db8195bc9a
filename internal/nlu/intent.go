package nlu

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/domain"
)

// Kind classifies what a user message asks for.
type Kind string

const (
	KindTransaction       Kind = "transaction"
	KindLivestockChange   Kind = "livestock_change"
	KindLivestockBaseline Kind = "livestock_baseline"
	KindQuery             Kind = "query"
	KindOther             Kind = "other" // not a financial transaction
)

// QueryKind selects the aggregate a query intent asks for.
type QueryKind string

const (
	QueryBalance QueryKind = "balance"
	QueryToday   QueryKind = "today"
	QueryWeek    QueryKind = "week"
	QueryMonth   QueryKind = "month"
)

// Intent is the normalized result of analysing one user message.
type Intent struct {
	Kind Kind

	// Set for KindTransaction. Actor and Balance are filled on confirmation.
	Transaction *domain.Transaction

	// Set for livestock kinds; baseline movements are all absolute.
	Movements []domain.Movement

	// Set for KindQuery.
	Query QueryKind

	// Date the intent applies to, after date resolution.
	Date civil.Date
}

// Saves reports whether the intent must be confirmed before it changes any sheet.
func (i *Intent) Saves() bool {
	switch i.Kind {
	case KindTransaction, KindLivestockChange, KindLivestockBaseline:
		return true
	}
	return false
}

func parseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindTransaction, KindLivestockChange, KindLivestockBaseline, KindQuery, KindOther:
		return Kind(s), true
	}
	return "", false
}

func parseQueryKind(s string) (QueryKind, bool) {
	switch QueryKind(s) {
	case QueryBalance, QueryToday, QueryWeek, QueryMonth:
		return QueryKind(s), true
	}
	return "", false
}
