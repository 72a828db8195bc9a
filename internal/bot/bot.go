// Package bot handles chat messages: it authorizes the sender, routes commands,
// stages analyzed messages for confirmation and applies them to the ledger and
// the herd.
package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/dvloznov/farm-ledger/internal/ledger"
	"github.com/dvloznov/farm-ledger/internal/livestock"
	"github.com/dvloznov/farm-ledger/internal/logger"
	"github.com/dvloznov/farm-ledger/internal/metrics"
	"github.com/dvloznov/farm-ledger/internal/mirror"
	"github.com/dvloznov/farm-ledger/internal/nlu"
	"github.com/dvloznov/farm-ledger/internal/pending"
	"github.com/shopspring/decimal"
)

// Message is one inbound chat message.
type Message struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Text      string
	// Time is when the message was sent; zero means now.
	Time time.Time
}

// Document is a file attached to a reply.
type Document struct {
	Name string
	Data []byte
}

// Reply is what the bot sends back.
type Reply struct {
	Text     string
	Document *Document
}

// Analyzer turns free text into an intent.
type Analyzer interface {
	Analyze(ctx context.Context, text string, now time.Time) (*nlu.Intent, error)
	Today(now time.Time) civil.Date
	ModelName() string
}

// Ledger is the transaction ledger.
type Ledger interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
	Preview(ctx context.Context, tx domain.Transaction) (decimal.Decimal, error)
	Append(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	UndoLast(ctx context.Context) (domain.Transaction, error)
	Summarize(ctx context.Context, p ledger.Period) (ledger.Summary, error)
}

// Livestock is the herd summary.
type Livestock interface {
	ApplyAll(ctx context.Context, movements []domain.Movement) ([]livestock.Result, error)
	Baseline(ctx context.Context, movements []domain.Movement) ([]domain.HerdEntry, error)
	Summary(ctx context.Context) ([]domain.HerdEntry, error)
}

// Exporter renders the ledger as a workbook.
type Exporter interface {
	Build(ctx context.Context, today civil.Date) (string, []byte, error)
}

// Deps are the collaborators of the Service. Exporter, Mirror and Metrics may be nil.
type Deps struct {
	Analyzer  Analyzer
	Ledger    Ledger
	Livestock Livestock
	Pending   pending.Store
	Exporter  Exporter
	Mirror    mirror.Sink
	Metrics   *metrics.Metrics
}

// Options configure authorization and naming.
type Options struct {
	// AllowedUsers lists who may use the bot; an empty set allows nobody.
	AllowedUsers map[int64]bool

	// UserNames overrides the actor name written to the ledger.
	UserNames map[int64]string

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Service handles messages.
type Service struct {
	analyzer  Analyzer
	ledger    Ledger
	livestock Livestock
	pending   pending.Store
	exporter  Exporter
	mirror    mirror.Sink
	metrics   *metrics.Metrics

	allowed map[int64]bool
	names   map[int64]string
	now     func() time.Time
}

// New creates a Service.
func New(deps Deps, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		analyzer:  deps.Analyzer,
		ledger:    deps.Ledger,
		livestock: deps.Livestock,
		pending:   deps.Pending,
		exporter:  deps.Exporter,
		mirror:    deps.Mirror,
		metrics:   deps.Metrics,
		allowed:   opts.AllowedUsers,
		names:     opts.UserNames,
		now:       now,
	}
}

type handlerFunc func(s *Service, ctx context.Context, msg Message) (Reply, string)

var commands = map[string]handlerFunc{
	"start":     (*Service).cmdStart,
	"help":      (*Service).cmdHelp,
	"balance":   (*Service).cmdBalance,
	"undo":      (*Service).cmdUndo,
	"today":     (*Service).cmdToday,
	"week":      (*Service).cmdWeek,
	"month":     (*Service).cmdMonth,
	"status":    (*Service).cmdStatus,
	"confirm":   (*Service).cmdConfirm,
	"cancel":    (*Service).cmdCancel,
	"livestock": (*Service).cmdLivestock,
	"export":    (*Service).cmdExport,
}

// Commands available without authorization.
var public = map[string]bool{"start": true, "help": true}

// Handle processes one message and returns the reply. It never fails; errors
// become user-facing replies.
func (s *Service) Handle(ctx context.Context, msg Message) Reply {
	start := time.Now()
	if msg.Time.IsZero() {
		msg.Time = s.now()
	}

	command, isCommand := parseCommand(msg.Text)
	label := "text"
	if isCommand {
		label = command
	}

	log := logger.FromContext(ctx).With().
		Int64("user_id", msg.UserID).
		Str("command", label).
		Logger()
	ctx = logger.WithContext(ctx, log)

	var (
		reply   Reply
		outcome string
	)
	switch {
	case isCommand && public[command]:
		reply, outcome = commands[command](s, ctx, msg)
	case !s.allowed[msg.UserID]:
		reply, outcome = Reply{Text: msgUnauthorized}, metrics.OutcomeUnauthorized
	case isCommand:
		h, ok := commands[command]
		if !ok {
			label = "unknown"
			reply, outcome = Reply{Text: msgUnknownCommand}, metrics.OutcomeInvalid
			break
		}
		reply, outcome = h(s, ctx, msg)
	default:
		reply, outcome = s.handleText(ctx, msg)
	}

	s.metrics.Update(label, outcome)
	log.Info().
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Msg("Update handled")
	return reply
}

// parseCommand returns the lower-cased command name without the slash or a
// trailing @botname.
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), true
}

// actor is the name recorded for the sender.
func (s *Service) actor(msg Message) string {
	if name := s.names[msg.UserID]; name != "" {
		return name
	}
	if msg.FirstName != "" {
		return msg.FirstName
	}
	return strconv.FormatInt(msg.UserID, 10)
}

func (s *Service) today(msg Message) civil.Date {
	return s.analyzer.Today(msg.Time)
}
