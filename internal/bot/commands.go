package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/ledger"
	"github.com/dvloznov/farm-ledger/internal/logger"
	"github.com/dvloznov/farm-ledger/internal/metrics"
	"github.com/dvloznov/farm-ledger/internal/mirror"
	"github.com/dvloznov/farm-ledger/internal/nlu"
	"github.com/dvloznov/farm-ledger/internal/pending"
)

func (s *Service) cmdStart(ctx context.Context, msg Message) (Reply, string) {
	text := fmt.Sprintf("👋 أهلاً %s\nمعرّفك: %d\n\n%s", s.actor(msg), msg.UserID, helpText)
	return Reply{Text: text}, metrics.OutcomeOK
}

func (s *Service) cmdHelp(ctx context.Context, msg Message) (Reply, string) {
	return Reply{Text: helpText}, metrics.OutcomeOK
}

func (s *Service) cmdBalance(ctx context.Context, msg Message) (Reply, string) {
	bal, err := s.ledger.Balance(ctx)
	if err != nil {
		return s.sheetFailure(ctx, err)
	}
	return Reply{Text: "💰 الرصيد الحالي: " + money(bal)}, metrics.OutcomeOK
}

func (s *Service) cmdUndo(ctx context.Context, msg Message) (Reply, string) {
	tx, err := s.ledger.UndoLast(ctx)
	if errors.Is(err, ledger.ErrEmpty) {
		return Reply{Text: msgLedgerEmpty}, metrics.OutcomeOK
	}
	if err != nil {
		return s.sheetFailure(ctx, err)
	}
	bal, err := s.ledger.Balance(ctx)
	if err != nil {
		return s.sheetFailure(ctx, err)
	}
	return Reply{Text: formatUndo(tx, bal)}, metrics.OutcomeOK
}

func (s *Service) cmdToday(ctx context.Context, msg Message) (Reply, string) {
	return s.summary(ctx, "ملخص اليوم", ledger.Day(s.today(msg)))
}

func (s *Service) cmdWeek(ctx context.Context, msg Message) (Reply, string) {
	return s.summary(ctx, "ملخص الأسبوع", ledger.Week(s.today(msg)))
}

func (s *Service) cmdMonth(ctx context.Context, msg Message) (Reply, string) {
	return s.summary(ctx, "ملخص الشهر", ledger.Month(s.today(msg)))
}

func (s *Service) summary(ctx context.Context, title string, p ledger.Period) (Reply, string) {
	sum, err := s.ledger.Summarize(ctx, p)
	if err != nil {
		return s.sheetFailure(ctx, err)
	}
	return Reply{Text: formatSummary(title, sum)}, metrics.OutcomeOK
}

func (s *Service) cmdStatus(ctx context.Context, msg Message) (Reply, string) {
	var b strings.Builder
	b.WriteString("🟢 البوت يعمل\n")
	fmt.Fprintf(&b, "النموذج: %s\n", s.analyzer.ModelName())
	fmt.Fprintf(&b, "التاريخ: %s\n", s.today(msg))

	if bal, err := s.ledger.Balance(ctx); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Balance unavailable for status")
		b.WriteString("الرصيد: غير متاح\n")
	} else {
		fmt.Fprintf(&b, "الرصيد: %s\n", money(bal))
	}

	entry, ok, err := s.pending.Get(ctx, msg.UserID)
	switch {
	case err != nil:
		b.WriteString("العملية المعلقة: غير متاح")
	case !ok:
		b.WriteString("العملية المعلقة: لا يوجد")
	default:
		fmt.Fprintf(&b, "العملية المعلقة: %s (منذ %s)\n%s", pendingLabel(entry), formatAge(msg.Time.Sub(entry.CreatedAt)), entry.Text)
	}
	return Reply{Text: b.String()}, metrics.OutcomeOK
}

func pendingLabel(e pending.Entry) string {
	switch e.Kind {
	case pending.KindLivestockBaseline:
		return "جرد المواشي"
	case pending.KindLivestockChange:
		return "حركة مواشي"
	}
	return "عملية مالية"
}

func (s *Service) cmdLivestock(ctx context.Context, msg Message) (Reply, string) {
	herd, err := s.livestock.Summary(ctx)
	if err != nil {
		return s.sheetFailure(ctx, err)
	}
	if len(herd) == 0 {
		return Reply{Text: msgHerdEmpty}, metrics.OutcomeOK
	}
	return Reply{Text: formatHerd("🐑 المواشي", herd)}, metrics.OutcomeOK
}

func (s *Service) cmdExport(ctx context.Context, msg Message) (Reply, string) {
	if s.exporter == nil {
		return Reply{Text: msgExportDisabled}, metrics.OutcomeOK
	}
	name, data, err := s.exporter.Build(ctx, s.today(msg))
	if err != nil {
		return s.sheetFailure(ctx, err)
	}
	return Reply{
		Text:     "📎 " + name,
		Document: &Document{Name: name, Data: data},
	}, metrics.OutcomeOK
}

func (s *Service) cmdCancel(ctx context.Context, msg Message) (Reply, string) {
	removed, err := s.pending.Delete(ctx, msg.UserID)
	if err != nil {
		return s.pendingFailure(ctx, err)
	}
	if !removed {
		return Reply{Text: msgNothingPending}, metrics.OutcomeOK
	}
	return Reply{Text: msgCancelled}, metrics.OutcomeOK
}

// handleText analyzes free text; queries are answered at once and changes are staged.
func (s *Service) handleText(ctx context.Context, msg Message) (Reply, string) {
	intent, err := s.analyze(ctx, msg.Text, msg.Time)
	if err != nil {
		return s.analyzeFailure(ctx, err)
	}

	switch intent.Kind {
	case nlu.KindQuery:
		return s.answerQuery(ctx, msg, intent.Query)
	case nlu.KindOther:
		return Reply{Text: msgNotFinancial}, metrics.OutcomeOK
	}

	kind, ok := pending.KindOf(intent.Kind)
	if !ok {
		return Reply{Text: msgNotFinancial}, metrics.OutcomeOK
	}

	var echo string
	if intent.Kind == nlu.KindTransaction {
		preview, err := s.ledger.Preview(ctx, *intent.Transaction)
		if err != nil {
			return s.sheetFailure(ctx, err)
		}
		echo = formatTransactionEcho(*intent.Transaction, preview)
	} else {
		echo = formatMovementsEcho(intent.Movements, intent.Kind == nlu.KindLivestockBaseline)
	}

	// A newer message replaces whatever the user had staged before.
	entry := pending.Entry{
		UserID:    msg.UserID,
		Text:      msg.Text,
		Kind:      kind,
		Intent:    intent,
		CreatedAt: msg.Time,
	}
	if err := s.pending.Put(ctx, entry); err != nil {
		return s.pendingFailure(ctx, err)
	}
	return Reply{Text: echo}, metrics.OutcomeOK
}

func (s *Service) answerQuery(ctx context.Context, msg Message, q nlu.QueryKind) (Reply, string) {
	switch q {
	case nlu.QueryToday:
		return s.cmdToday(ctx, msg)
	case nlu.QueryWeek:
		return s.cmdWeek(ctx, msg)
	case nlu.QueryMonth:
		return s.cmdMonth(ctx, msg)
	default:
		return s.cmdBalance(ctx, msg)
	}
}

// cmdConfirm applies the staged entry. The entry is consumed before anything is
// written, so a failure below leaves nothing pending and the user resends.
func (s *Service) cmdConfirm(ctx context.Context, msg Message) (Reply, string) {
	entry, ok, err := s.pending.Take(ctx, msg.UserID)
	if err != nil {
		return s.pendingFailure(ctx, err)
	}
	if !ok {
		return Reply{Text: msgNothingPending}, metrics.OutcomeOK
	}

	intent := entry.Intent
	if intent == nil {
		intent, err = s.analyze(ctx, entry.Text, entry.CreatedAt)
		if err != nil {
			return s.analyzeFailure(ctx, err)
		}
	}

	actor := s.actor(msg)
	switch intent.Kind {
	case nlu.KindTransaction:
		return s.confirmTransaction(ctx, *intent.Transaction, actor)
	case nlu.KindLivestockChange:
		return s.confirmMovements(ctx, intent.Movements, actor)
	case nlu.KindLivestockBaseline:
		return s.confirmBaseline(ctx, intent.Movements, actor)
	}
	return Reply{Text: msgNotFinancial}, metrics.OutcomeOK
}

func (s *Service) confirmTransaction(ctx context.Context, tx domain.Transaction, actor string) (Reply, string) {
	tx.Actor = actor
	stored, err := s.ledger.Append(ctx, tx)
	if err != nil {
		return s.sheetFailure(ctx, err)
	}

	amount, _ := stored.Amount.Float64()
	s.metrics.Confirmed(string(stored.Process), amount)

	text := formatTransactionSaved(stored)
	if failed := s.mirrorTransaction(ctx, stored); len(failed) > 0 {
		text += "\n⚠️ تعذر النسخ إلى: " + strings.Join(failed, ", ")
	}
	return Reply{Text: text}, metrics.OutcomeOK
}

// mirrorTransaction copies tx to the mirror sinks and returns the names of
// those that failed. The ledger row stays either way.
func (s *Service) mirrorTransaction(ctx context.Context, tx domain.Transaction) []string {
	if s.mirror == nil {
		return nil
	}
	err := s.mirror.Record(ctx, tx)
	if err == nil {
		return nil
	}
	failed := mirror.Failed(err)
	for _, name := range failed {
		s.metrics.MirrorFailure(name)
	}
	log := logger.FromContext(ctx)
	log.Warn().Err(err).Strs("sinks", failed).Msg("Mirror write failed")
	return failed
}

func (s *Service) confirmMovements(ctx context.Context, movements []domain.Movement, actor string) (Reply, string) {
	for i := range movements {
		movements[i].Actor = actor
	}
	results, err := s.livestock.ApplyAll(ctx, movements)
	if err != nil {
		reply, outcome := s.sheetFailure(ctx, err)
		if len(results) > 0 {
			reply.Text = formatMovementsApplied(results) + "\n\n" + reply.Text
		}
		return reply, outcome
	}
	return Reply{Text: formatMovementsApplied(results)}, metrics.OutcomeOK
}

func (s *Service) confirmBaseline(ctx context.Context, movements []domain.Movement, actor string) (Reply, string) {
	for i := range movements {
		movements[i].Actor = actor
	}
	herd, err := s.livestock.Baseline(ctx, movements)
	if err != nil {
		return s.sheetFailure(ctx, err)
	}
	return Reply{Text: formatHerd("✅ تم تسجيل الجرد", herd)}, metrics.OutcomeOK
}

// analyze calls the analyzer and records the model latency.
func (s *Service) analyze(ctx context.Context, text string, at time.Time) (*nlu.Intent, error) {
	start := time.Now()
	intent, err := s.analyzer.Analyze(ctx, text, at)

	outcome := metrics.OutcomeOK
	var modelErr *nlu.ModelError
	var shapeErr *nlu.ShapeError
	switch {
	case errors.As(err, &modelErr):
		outcome = metrics.OutcomeModelError
	case errors.As(err, &shapeErr):
		outcome = metrics.OutcomeShapeError
	case err != nil:
		outcome = metrics.OutcomeInvalid
	}
	s.metrics.ModelCall(time.Since(start), outcome)
	return intent, err
}

func (s *Service) analyzeFailure(ctx context.Context, err error) (Reply, string) {
	log := logger.FromContext(ctx)

	var shapeErr *nlu.ShapeError
	if errors.As(err, &shapeErr) {
		log.Error().Err(err).Msg("Model response unusable")
		return Reply{Text: msgModelError + ":\n" + shapeErr.Error() + "\n\n" + shapeErr.Snippet}, metrics.OutcomeShapeError
	}
	if errors.Is(err, nlu.ErrAmountNotFound) {
		log.Warn().Err(err).Msg("Amount missing")
		return Reply{Text: msgAmountMissing}, metrics.OutcomeInvalid
	}
	if errors.Is(err, nlu.ErrNoLivestock) {
		log.Warn().Err(err).Msg("Livestock entries missing")
		return Reply{Text: msgNoLivestock}, metrics.OutcomeInvalid
	}

	log.Error().Err(err).Msg("Model call failed")
	return Reply{Text: withDetail(msgModelError, err)}, metrics.OutcomeModelError
}

func (s *Service) sheetFailure(ctx context.Context, err error) (Reply, string) {
	log := logger.FromContext(ctx)
	log.Error().Err(err).Msg("Spreadsheet operation failed")
	return Reply{Text: withDetail(msgSheetError, err)}, metrics.OutcomeStoreError
}

func (s *Service) pendingFailure(ctx context.Context, err error) (Reply, string) {
	log := logger.FromContext(ctx)
	log.Error().Err(err).Msg("Pending store operation failed")
	return Reply{Text: withDetail(msgPendingError, err)}, metrics.OutcomeError
}
