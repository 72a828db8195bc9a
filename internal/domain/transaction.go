package domain

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Process is the kind of money movement recorded in the ledger.
type Process string

const (
	ProcessPurchase Process = "purchase"
	ProcessSale     Process = "sale"
	ProcessBill     Process = "bill"
	ProcessSalary   Process = "salary"
	ProcessOther    Process = "other"
)

// Category is the expense/income bucket of a transaction.
type Category string

const (
	CategoryFeed        Category = "feed"
	CategoryProducts    Category = "products"
	CategoryLabor       Category = "labor"
	CategoryTreatment   Category = "treatment"
	CategoryElectricity Category = "electricity"
	CategoryWater       Category = "water"
	CategoryOther       Category = "other"
)

// Labels are the Arabic values written to the spreadsheet and requested from the model.
var processLabels = map[Process]string{
	ProcessPurchase: "شراء",
	ProcessSale:     "بيع",
	ProcessBill:     "فاتورة",
	ProcessSalary:   "راتب",
	ProcessOther:    "أخرى",
}

var categoryLabels = map[Category]string{
	CategoryFeed:        "علف",
	CategoryProducts:    "منتجات",
	CategoryLabor:       "عمال",
	CategoryTreatment:   "علاج",
	CategoryElectricity: "كهرباء",
	CategoryWater:       "ماء",
	CategoryOther:       "اخرى",
}

// Processes lists every valid process in display order.
var Processes = []Process{ProcessPurchase, ProcessSale, ProcessBill, ProcessSalary, ProcessOther}

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFeed, CategoryProducts, CategoryLabor, CategoryTreatment,
	CategoryElectricity, CategoryWater, CategoryOther,
}

// Label returns the Arabic spreadsheet label.
func (p Process) Label() string {
	if l, ok := processLabels[p]; ok {
		return l
	}
	return processLabels[ProcessOther]
}

// Label returns the Arabic spreadsheet label.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryOther]
}

// ParseProcess accepts either the English name or the Arabic label.
func ParseProcess(s string) (Process, bool) {
	s = strings.TrimSpace(s)
	for _, p := range Processes {
		if strings.EqualFold(s, string(p)) || s == p.Label() {
			return p, true
		}
	}
	// "اخرى" without hamza is common in model output.
	if s == "اخرى" {
		return ProcessOther, true
	}
	return "", false
}

// ParseCategory accepts either the English name or the Arabic label.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) || s == c.Label() {
			return c, true
		}
	}
	if s == "أخرى" {
		return CategoryOther, true
	}
	return "", false
}

// Transaction is one ledger row.
// Amount is never negative; the sign of its balance effect comes from Process.
type Transaction struct {
	Date     civil.Date
	Process  Process
	Category Category
	Item     string
	Amount   decimal.Decimal
	Note     string
	Actor    string
	Balance  decimal.Decimal // running balance snapshot at insertion time
}

// Signed returns the effect of the transaction on the running balance.
func (t Transaction) Signed() decimal.Decimal {
	return SignedAmount(t.Process, t.Amount)
}

// SignedAmount applies the sign convention: sales add, everything else subtracts.
func SignedAmount(p Process, amount decimal.Decimal) decimal.Decimal {
	a := amount.Abs()
	if p == ProcessSale {
		return a
	}
	return a.Neg()
}
