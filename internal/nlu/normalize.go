package nlu

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/domain"
)

// ErrNoLivestock means a livestock intent carried no usable animal entries.
var ErrNoLivestock = errors.New("no livestock entries found")

// Normalize turns the model's JSON object into an Intent, applying defaults and
// deterministic fallbacks over the raw message text.
func Normalize(obj map[string]any, text string, today civil.Date) (*Intent, error) {
	kind := resolveKind(obj)
	date := ResolveDate(text, getString(obj, "date"), today)

	intent := &Intent{Kind: kind, Date: date}

	switch kind {
	case KindTransaction:
		tx, err := normalizeTransaction(obj, text, date)
		if err != nil {
			return nil, err
		}
		intent.Transaction = tx

	case KindLivestockChange, KindLivestockBaseline:
		movements, err := normalizeMovements(obj, date, kind == KindLivestockBaseline)
		if err != nil {
			return nil, err
		}
		intent.Movements = movements

	case KindQuery:
		q, ok := parseQueryKind(getString(obj, "query"))
		if !ok {
			q = QueryBalance
		}
		intent.Query = q
	}

	return intent, nil
}

// resolveKind trusts a valid "intent" field; otherwise should_save decides between a
// transaction and "not a financial transaction".
func resolveKind(obj map[string]any) Kind {
	if k, ok := parseKind(getString(obj, "intent")); ok {
		return k
	}
	if save, ok := getBool(obj, "should_save"); ok && save {
		if len(getObjects(obj, "livestock")) > 0 {
			return KindLivestockChange
		}
		return KindTransaction
	}
	return KindOther
}

func normalizeTransaction(obj map[string]any, text string, date civil.Date) (*domain.Transaction, error) {
	amount, err := ResolveAmount(obj["amount"], text)
	if err != nil {
		return nil, err
	}

	return &domain.Transaction{
		Date:     date,
		Process:  resolveProcess(getString(obj, "process"), text),
		Category: resolveCategory(firstString(obj, "type", "category"), text),
		Item:     getString(obj, "item"),
		Amount:   amount,
		Note:     firstString(obj, "note", "notes"),
	}, nil
}

func normalizeMovements(obj map[string]any, date civil.Date, baseline bool) ([]domain.Movement, error) {
	var movements []domain.Movement
	for _, entry := range getObjects(obj, "livestock") {
		animal := firstString(entry, "animal", "type")
		if animal == "" {
			continue
		}
		count, ok := getInt(entry, "count")
		if !ok || count <= 0 {
			continue
		}

		kind := domain.MovementAbsolute
		if !baseline {
			k, ok := domain.ParseMovementKind(getString(entry, "movement"))
			if !ok {
				k = domain.MovementAdd
			}
			kind = k
		}

		movements = append(movements, domain.Movement{
			Date:   date,
			Animal: animal,
			Breed:  getString(entry, "breed"),
			Count:  count,
			Kind:   kind,
			Note:   getString(entry, "note"),
		})
	}

	if len(movements) == 0 {
		return nil, fmt.Errorf("normalizeMovements: %w", ErrNoLivestock)
	}
	return movements, nil
}
