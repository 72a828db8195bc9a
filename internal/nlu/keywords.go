package nlu

import (
	"strings"

	"github.com/dvloznov/farm-ledger/internal/arabic"
	"github.com/dvloznov/farm-ledger/internal/domain"
)

type processKeywords struct {
	process domain.Process
	words   []string
}

type categoryKeywords struct {
	category domain.Category
	words    []string
}

// Checked in order; the first hit wins. Salary and bill come first because a
// salary message usually also mentions a payment verb.
var processTable = []processKeywords{
	{domain.ProcessSalary, []string{"راتب", "رواتب", "معاش"}},
	{domain.ProcessBill, []string{"فاتورة", "فواتير"}},
	{domain.ProcessSale, []string{"بعت", "بعنا", "بيع", "باع", "مبيعات", "sold", "sale"}},
	{domain.ProcessPurchase, []string{"اشتريت", "اشترينا", "شريت", "شرينا", "شراء", "اشترى", "bought", "purchase"}},
}

var categoryTable = []categoryKeywords{
	{domain.CategoryFeed, []string{"علف", "اعلاف", "شعير", "برسيم", "تبن", "ذرة", "نخالة", "feed"}},
	{domain.CategoryTreatment, []string{"علاج", "دواء", "ادوية", "بيطري", "تطعيم", "لقاح"}},
	{domain.CategoryLabor, []string{"عامل", "عمال", "راتب", "اجرة", "اجور"}},
	{domain.CategoryElectricity, []string{"كهرباء", "كهربا"}},
	{domain.CategoryWater, []string{"ماء", "مياه", "مويه"}},
	{domain.CategoryProducts, []string{"حليب", "بيض", "جبن", "صوف", "لبن", "سمن", "منتجات"}},
}

func containsAny(folded string, words []string) bool {
	for _, w := range words {
		if strings.Contains(folded, arabic.Fold(w)) {
			return true
		}
	}
	return false
}

// GuessProcess classifies the process from keywords in text, defaulting to other.
func GuessProcess(text string) domain.Process {
	folded := arabic.Fold(text)
	for _, row := range processTable {
		if containsAny(folded, row.words) {
			return row.process
		}
	}
	return domain.ProcessOther
}

// GuessCategory classifies the category from keywords in text, defaulting to other.
func GuessCategory(text string) domain.Category {
	folded := arabic.Fold(text)
	for _, row := range categoryTable {
		if containsAny(folded, row.words) {
			return row.category
		}
	}
	return domain.CategoryOther
}

// resolveProcess keeps a valid model value and falls back to keywords otherwise.
func resolveProcess(modelValue, text string) domain.Process {
	if p, ok := domain.ParseProcess(modelValue); ok {
		return p
	}
	return GuessProcess(text)
}

func resolveCategory(modelValue, text string) domain.Category {
	if c, ok := domain.ParseCategory(modelValue); ok {
		return c
	}
	return GuessCategory(text)
}
