// Package pending holds the one unconfirmed message per user between the echo
// and /confirm or /cancel.
package pending

import (
	"context"
	"time"

	"github.com/dvloznov/farm-ledger/internal/nlu"
)

// Kind tags what a pending entry will change once confirmed.
type Kind string

const (
	KindExpense           Kind = "expense"
	KindLivestockBaseline Kind = "livestock_baseline"
	KindLivestockChange   Kind = "livestock_change"
)

// KindOf maps an analyzed intent to the pending kind; ok is false for intents that
// are never staged.
func KindOf(k nlu.Kind) (Kind, bool) {
	switch k {
	case nlu.KindTransaction:
		return KindExpense, true
	case nlu.KindLivestockBaseline:
		return KindLivestockBaseline, true
	case nlu.KindLivestockChange:
		return KindLivestockChange, true
	}
	return "", false
}

// Entry is a staged message awaiting confirmation.
type Entry struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
	Kind   Kind   `json:"kind"`

	// Intent is the cached analysis; nil means /confirm analyzes Text again.
	Intent *nlu.Intent `json:"intent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DefaultTTL is how long an unconfirmed entry stays valid.
const DefaultTTL = 30 * time.Minute

// Store keeps at most one entry per user. Expired entries behave as absent.
type Store interface {
	// Put stages e for e.UserID, silently replacing any earlier entry.
	Put(ctx context.Context, e Entry) error

	// Get returns the user's entry without removing it.
	Get(ctx context.Context, userID int64) (Entry, bool, error)

	// Take returns and removes the user's entry.
	Take(ctx context.Context, userID int64) (Entry, bool, error)

	// Delete removes the user's entry and reports whether there was one.
	Delete(ctx context.Context, userID int64) (bool, error)

	// Sweep evicts expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}
