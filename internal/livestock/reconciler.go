package livestock

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/dvloznov/farm-ledger/internal/arabic"
	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/logger"
	"github.com/dvloznov/farm-ledger/internal/sheets"
	"github.com/google/uuid"
)

// Summary table columns.
const (
	colAnimal = iota
	colBreed
	colCount
)

// Movement log columns.
const (
	logDate = iota
	logAnimal
	logBreed
	logMovement
	logCount
	logNote
	logActor
	logBatch
)

var (
	// SummaryHeader is the header row of the herd summary worksheet.
	SummaryHeader = []string{"الحيوان", "السلالة", "العدد"}

	// LogHeader is the header row of the movement log worksheet.
	LogHeader = []string{"التاريخ", "الحيوان", "السلالة", "الحركة", "العدد", "ملاحظات", "المستخدم", "الجرد"}
)

// Result describes the effect of one movement on the summary.
type Result struct {
	Movement domain.Movement
	Before   int
	After    int
	Created  bool
}

// Reconciler applies movements to the summary table and records them in the log.
// Writes are serialized by the Reconciler.
type Reconciler struct {
	summary sheets.Table
	log     sheets.Table

	mu sync.Mutex
}

// NewReconciler creates a reconciler over the summary and log worksheets.
func NewReconciler(summary, log sheets.Table) *Reconciler {
	return &Reconciler{summary: summary, log: log}
}

// Ensure creates both worksheets when missing.
func (r *Reconciler) Ensure(ctx context.Context) error {
	if err := r.summary.Ensure(ctx); err != nil {
		return fmt.Errorf("Ensure: summary: %w", err)
	}
	if err := r.log.Ensure(ctx); err != nil {
		return fmt.Errorf("Ensure: log: %w", err)
	}
	return nil
}

// Apply applies one movement.
func (r *Reconciler) Apply(ctx context.Context, m domain.Movement) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(ctx, m)
}

// ApplyAll applies movements in order and stops at the first failure; results
// of the movements already applied are returned with the error.
func (r *Reconciler) ApplyAll(ctx context.Context, movements []domain.Movement) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]Result, 0, len(movements))
	for _, m := range movements {
		res, err := r.applyLocked(ctx, m)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Reconciler) applyLocked(ctx context.Context, m domain.Movement) (Result, error) {
	rows, err := r.summary.ReadAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("Apply: reading summary: %w", err)
	}

	key := NormalizeKey(m.Animal, m.Breed)
	res := Result{Movement: m}

	var match *sheets.Row
	for i := range rows {
		if rows[i].Empty() {
			continue
		}
		if NormalizeKey(rows[i].Cell(colAnimal), rows[i].Cell(colBreed)) == key {
			match = &rows[i]
			break
		}
	}

	if match == nil {
		res.Created = true
		res.After = nextCount(0, m)
		if err := r.summary.Append(ctx, []string{m.Animal, m.Breed, strconv.Itoa(res.After)}); err != nil {
			return Result{}, fmt.Errorf("Apply: adding %s: %w", m.Animal, err)
		}
	} else {
		res.Before = parseCount(match.Cell(colCount))
		res.After = nextCount(res.Before, m)
		if err := r.summary.UpdateCell(ctx, match.Number, colCount, strconv.Itoa(res.After)); err != nil {
			return Result{}, fmt.Errorf("Apply: updating %s: %w", m.Animal, err)
		}
	}

	if err := r.log.Append(ctx, encodeMovement(m, "")); err != nil {
		return res, fmt.Errorf("Apply: logging movement: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("animal", m.Animal).
		Str("breed", m.Breed).
		Str("movement", string(m.Kind)).
		Int("before", res.Before).
		Int("after", res.After).
		Msg("Livestock movement applied")

	return res, nil
}

// Baseline replaces the whole summary with the declared herd. Entries sharing a
// key are summed, and each merged entry is logged as one absolute movement under
// a shared batch id so replaying the log gives the same herd. When the log write
// fails the previous summary is put back.
func (r *Reconciler) Baseline(ctx context.Context, movements []domain.Movement) ([]domain.HerdEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := mergeBaseline(movements)
	entries := herdOf(merged)

	prior, err := r.summary.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("Baseline: reading summary: %w", err)
	}
	if err := r.summary.Replace(ctx, summaryRows(entries)...); err != nil {
		return nil, fmt.Errorf("Baseline: writing summary: %w", err)
	}

	batch := uuid.New().String()
	logRows := make([][]string, 0, len(merged))
	for _, m := range merged {
		logRows = append(logRows, encodeMovement(m, batch))
	}
	if err := r.log.Append(ctx, logRows...); err != nil {
		restore := make([][]string, 0, len(prior))
		for _, row := range prior {
			restore = append(restore, row.Values)
		}
		if rerr := r.summary.Replace(ctx, restore...); rerr != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(rerr).Msg("Failed to restore livestock summary")
		}
		return nil, fmt.Errorf("Baseline: logging: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("entries", len(entries)).
		Str("batch", batch).
		Msg("Livestock baseline written")

	return entries, nil
}

// Summary lists the current herd in table order.
func (r *Reconciler) Summary(ctx context.Context) ([]domain.HerdEntry, error) {
	rows, err := r.summary.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("Summary: reading summary: %w", err)
	}
	entries := make([]domain.HerdEntry, 0, len(rows))
	for _, row := range rows {
		if row.Empty() || row.Cell(colAnimal) == "" {
			continue
		}
		entries = append(entries, domain.HerdEntry{
			Animal: row.Cell(colAnimal),
			Breed:  row.Cell(colBreed),
			Count:  parseCount(row.Cell(colCount)),
		})
	}
	return entries, nil
}

// Replay folds the movement log into a herd without touching the summary table.
func (r *Reconciler) Replay(ctx context.Context) ([]domain.HerdEntry, int, error) {
	rows, err := r.log.ReadAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("Replay: reading log: %w", err)
	}

	h := newHerd()
	skipped := 0
	batch := ""
	for _, row := range rows {
		if row.Empty() {
			continue
		}
		m, rowBatch, ok := decodeMovement(row)
		if !ok {
			skipped++
			continue
		}
		if rowBatch != "" && rowBatch != batch {
			h = newHerd()
		}
		batch = rowBatch
		h.apply(m)
	}
	return h.entries, skipped, nil
}

// Rebuild replaces the summary with the herd replayed from the log.
func (r *Reconciler) Rebuild(ctx context.Context) ([]domain.HerdEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, skipped, err := r.Replay(ctx)
	if err != nil {
		return nil, fmt.Errorf("Rebuild: %w", err)
	}

	if err := r.summary.Replace(ctx, summaryRows(entries)...); err != nil {
		return nil, fmt.Errorf("Rebuild: writing summary: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("entries", len(entries)).
		Int("skipped", skipped).
		Msg("Livestock summary rebuilt from log")
	return entries, nil
}

func summaryRows(entries []domain.HerdEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Animal, e.Breed, strconv.Itoa(e.Count)})
	}
	return rows
}

func encodeMovement(m domain.Movement, batch string) []string {
	return []string{
		sheets.FormatDate(m.Date),
		m.Animal,
		m.Breed,
		m.Kind.Label(),
		strconv.Itoa(m.Count),
		m.Note,
		m.Actor,
		batch,
	}
}

func decodeMovement(row sheets.Row) (domain.Movement, string, bool) {
	kind, ok := domain.ParseMovementKind(row.Cell(logMovement))
	if !ok || row.Cell(logAnimal) == "" {
		return domain.Movement{}, "", false
	}
	count, err := strconv.Atoi(arabic.FoldDigits(row.Cell(logCount)))
	if err != nil || count < 0 {
		return domain.Movement{}, "", false
	}
	date, _ := sheets.ParseDate(row.Cell(logDate))
	return domain.Movement{
		Date:   date,
		Animal: row.Cell(logAnimal),
		Breed:  row.Cell(logBreed),
		Count:  count,
		Kind:   kind,
		Note:   row.Cell(logNote),
		Actor:  row.Cell(logActor),
	}, row.Cell(logBatch), true
}

// parseCount reads a count cell; anything unreadable counts as zero.
func parseCount(s string) int {
	s = arabic.FoldDigits(s)
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return int(f)
	}
	return 0
}
