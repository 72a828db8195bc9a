package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/ledger"
	"github.com/dvloznov/farm-ledger/internal/livestock"
	"github.com/shopspring/decimal"
)

const (
	msgUnauthorized   = "❌ غير مصرح لك"
	msgNotFinancial   = "ℹ️ ليست عملية مالية"
	msgNothingPending = "ℹ️ لا توجد عملية معلقة"
	msgCancelled      = "❎ تم إلغاء العملية"
	msgUnknownCommand = "❓ أمر غير معروف. أرسل /help لعرض الأوامر"
	msgModelError     = "❌ خطأ في نموذج اللغة"
	msgSheetError     = "❌ خطأ في جدول البيانات"
	msgPendingError   = "❌ خطأ في حفظ العملية المعلقة"
	msgAmountMissing  = "⚠️ لم أجد المبلغ في رسالتك. أعد كتابتها مع ذكر المبلغ بالأرقام."
	msgNoLivestock    = "⚠️ لم أجد أعداد الحيوانات في رسالتك. أعد كتابتها مع ذكر العدد."
	msgLedgerEmpty    = "ℹ️ لا توجد عمليات للحذف"
	msgHerdEmpty      = "ℹ️ لا توجد بيانات مواشي بعد"
	msgExportDisabled = "ℹ️ التصدير غير مفعّل"
	msgConfirmHint    = "أرسل /confirm للحفظ أو /cancel للإلغاء"
)

const helpText = "✍️ اكتب العملية بشكل طبيعي:\n" +
	"مثال:\n" +
	"امس شريت 20 كيلو علف الغنم ب 100\n\n" +
	"بعد كل رسالة أرسل /confirm للحفظ أو /cancel للإلغاء.\n\n" +
	"الأوامر:\n" +
	"/balance الرصيد الحالي\n" +
	"/today ملخص اليوم\n" +
	"/week ملخص آخر 7 أيام\n" +
	"/month ملخص الشهر\n" +
	"/livestock جدول المواشي\n" +
	"/undo حذف آخر عملية\n" +
	"/export ملف Excel بالعمليات\n" +
	"/status حالة البوت"

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func withDetail(prefix string, err error) string {
	return prefix + ":\n" + err.Error()
}

// transactionLines lists the fields shown in the echo and the confirmation.
func transactionLines(b *strings.Builder, tx domain.Transaction) {
	fmt.Fprintf(b, "العملية: %s\n", tx.Process.Label())
	fmt.Fprintf(b, "النوع: %s\n", tx.Category.Label())
	if tx.Item != "" {
		fmt.Fprintf(b, "البند: %s\n", tx.Item)
	}
	fmt.Fprintf(b, "المبلغ: %s\n", money(tx.Amount))
	fmt.Fprintf(b, "التاريخ: %s\n", tx.Date)
	if tx.Note != "" {
		fmt.Fprintf(b, "ملاحظات: %s\n", tx.Note)
	}
}

func formatTransactionEcho(tx domain.Transaction, preview decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("📝 تأكيد العملية\n")
	transactionLines(&b, tx)
	fmt.Fprintf(&b, "الرصيد بعد الحفظ: %s\n\n", money(preview))
	b.WriteString(msgConfirmHint)
	return b.String()
}

func formatTransactionSaved(tx domain.Transaction) string {
	var b strings.Builder
	b.WriteString("✅ تم الحفظ\n")
	transactionLines(&b, tx)
	fmt.Fprintf(&b, "💰 الرصيد: %s", money(tx.Balance))
	return b.String()
}

func formatUndo(tx domain.Transaction, balance decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("↩️ تم حذف آخر عملية\n")
	transactionLines(&b, tx)
	fmt.Fprintf(&b, "💰 الرصيد: %s", money(balance))
	return b.String()
}

func movementLine(m domain.Movement) string {
	name := strings.TrimSpace(m.Animal + " " + m.Breed)
	return fmt.Sprintf("• %s: %s %d", name, m.Kind.Label(), m.Count)
}

func formatMovementsEcho(movements []domain.Movement, baseline bool) string {
	var b strings.Builder
	if baseline {
		b.WriteString("📝 تأكيد الجرد (سيستبدل جدول المواشي بالكامل)\n")
	} else {
		b.WriteString("📝 تأكيد حركة المواشي\n")
	}
	for _, m := range movements {
		b.WriteString(movementLine(m) + "\n")
	}
	if len(movements) > 0 {
		fmt.Fprintf(&b, "التاريخ: %s\n", movements[0].Date)
	}
	b.WriteString("\n" + msgConfirmHint)
	return b.String()
}

func formatMovementsApplied(results []livestock.Result) string {
	var b strings.Builder
	b.WriteString("✅ تم تحديث المواشي")
	for _, r := range results {
		m := r.Movement
		name := strings.TrimSpace(m.Animal + " " + m.Breed)
		fmt.Fprintf(&b, "\n• %s: %d → %d (%s %d)", name, r.Before, r.After, m.Kind.Label(), m.Count)
		if r.Created {
			b.WriteString(" جديد")
		}
	}
	return b.String()
}

func formatHerd(title string, herd []domain.HerdEntry) string {
	var b strings.Builder
	b.WriteString(title)
	total := 0
	for _, e := range herd {
		name := strings.TrimSpace(e.Animal + " " + e.Breed)
		fmt.Fprintf(&b, "\n• %s: %d", name, e.Count)
		total += e.Count
	}
	fmt.Fprintf(&b, "\nالمجموع: %d", total)
	return b.String()
}

func formatSummary(title string, s ledger.Summary) string {
	var b strings.Builder
	if s.Period.From == s.Period.To {
		fmt.Fprintf(&b, "📊 %s (%s)\n", title, s.Period.From)
	} else {
		fmt.Fprintf(&b, "📊 %s (%s → %s)\n", title, s.Period.From, s.Period.To)
	}
	fmt.Fprintf(&b, "الدخل: %s\n", money(s.Income))
	fmt.Fprintf(&b, "المصروفات: %s\n", money(s.Expenses))
	fmt.Fprintf(&b, "الصافي: %s\n", money(s.Net()))
	fmt.Fprintf(&b, "عدد العمليات: %d", s.Count)

	if len(s.ByCategory) > 0 {
		b.WriteString("\nالمصروفات حسب النوع:")
		for _, c := range domain.Categories {
			if v, ok := s.ByCategory[c]; ok {
				fmt.Fprintf(&b, "\n• %s: %s", c.Label(), money(v))
			}
		}
	}
	return b.String()
}

func formatAge(d time.Duration) string {
	if d < time.Minute {
		return "أقل من دقيقة"
	}
	return fmt.Sprintf("%d دقيقة", int(d.Minutes()))
}
