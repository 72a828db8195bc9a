// Package livestock maintains the herd summary table and the movement log.
package livestock

import (
	"github.com/dvloznov/farm-ledger/internal/arabic"
	"github.com/dvloznov/farm-ledger/internal/domain"
)

// NormalizeKey is the lookup key of an animal and breed pair. Spelling variants
// of the same labels produce the same key.
func NormalizeKey(animal, breed string) string {
	return arabic.Key(animal) + "|" + arabic.Key(breed)
}

// herd is an ordered summary keyed by NormalizeKey.
type herd struct {
	entries []domain.HerdEntry
	index   map[string]int
}

func newHerd() *herd {
	return &herd{index: make(map[string]int)}
}

// apply changes the count for the movement's key and returns the count before and
// after. An unknown key is added with the literal labels of the movement.
func (h *herd) apply(m domain.Movement) (before, after int, created bool) {
	key := NormalizeKey(m.Animal, m.Breed)
	i, ok := h.index[key]
	if !ok {
		h.entries = append(h.entries, domain.HerdEntry{Animal: m.Animal, Breed: m.Breed})
		i = len(h.entries) - 1
		h.index[key] = i
		created = true
	}

	before = h.entries[i].Count
	after = nextCount(before, m)
	h.entries[i].Count = after
	return before, after, created
}

// nextCount replaces the count for absolute movements and otherwise adds the
// signed delta, never going below zero.
func nextCount(current int, m domain.Movement) int {
	if m.Kind == domain.MovementAbsolute {
		if m.Count < 0 {
			return 0
		}
		return m.Count
	}
	n := current + m.Delta()
	if n < 0 {
		return 0
	}
	return n
}

// mergeBaseline sums declared movements that share a key into one absolute
// movement each, keeping the first movement's labels, date, note and actor.
func mergeBaseline(movements []domain.Movement) []domain.Movement {
	var merged []domain.Movement
	index := make(map[string]int)
	for _, m := range movements {
		if m.Count <= 0 {
			continue
		}
		key := NormalizeKey(m.Animal, m.Breed)
		if i, ok := index[key]; ok {
			merged[i].Count += m.Count
			continue
		}
		m.Kind = domain.MovementAbsolute
		merged = append(merged, m)
		index[key] = len(merged) - 1
	}
	return merged
}

// herdOf lists merged movements as herd entries.
func herdOf(movements []domain.Movement) []domain.HerdEntry {
	entries := make([]domain.HerdEntry, 0, len(movements))
	for _, m := range movements {
		entries = append(entries, domain.HerdEntry{Animal: m.Animal, Breed: m.Breed, Count: m.Count})
	}
	return entries
}
