package domain

import (
	"strings"

	"cloud.google.com/go/civil"
)

// MovementKind describes how a livestock movement changes the herd count.
type MovementKind string

const (
	MovementAbsolute MovementKind = "absolute" // full headcount, replaces the count
	MovementAdd      MovementKind = "add"
	MovementBirth    MovementKind = "birth"
	MovementPurchase MovementKind = "purchase"
	MovementSale     MovementKind = "sale"
	MovementDeath    MovementKind = "death"
	MovementLoss     MovementKind = "loss"
)

var movementLabels = map[MovementKind]string{
	MovementAbsolute: "جرد",
	MovementAdd:      "إضافة",
	MovementBirth:    "ولادة",
	MovementPurchase: "شراء",
	MovementSale:     "بيع",
	MovementDeath:    "نفوق",
	MovementLoss:     "فقدان",
}

// MovementKinds lists every valid movement kind.
var MovementKinds = []MovementKind{
	MovementAbsolute, MovementAdd, MovementBirth, MovementPurchase,
	MovementSale, MovementDeath, MovementLoss,
}

// Label returns the Arabic label used in the movement log.
func (k MovementKind) Label() string {
	if l, ok := movementLabels[k]; ok {
		return l
	}
	return string(k)
}

// Decreases reports whether the movement removes animals from the herd.
func (k MovementKind) Decreases() bool {
	switch k {
	case MovementSale, MovementDeath, MovementLoss:
		return true
	}
	return false
}

// ParseMovementKind accepts the English name or the Arabic label.
func ParseMovementKind(s string) (MovementKind, bool) {
	s = strings.TrimSpace(s)
	for _, k := range MovementKinds {
		if strings.EqualFold(s, string(k)) || s == k.Label() {
			return k, true
		}
	}
	switch strings.ToLower(s) {
	case "set", "count", "baseline":
		return MovementAbsolute, true
	case "subtract", "remove":
		return MovementLoss, true
	}
	return "", false
}

// Movement is one entry of the append-only livestock log.
type Movement struct {
	Date   civil.Date
	Animal string
	Breed  string
	Count  int
	Kind   MovementKind
	Note   string
	Actor  string
}

// Delta is the signed change the movement applies; absolute movements have no delta.
func (m Movement) Delta() int {
	if m.Kind.Decreases() {
		return -m.Count
	}
	return m.Count
}

// HerdEntry is one row of the derived livestock summary table.
type HerdEntry struct {
	Animal string
	Breed  string
	Count  int
}
