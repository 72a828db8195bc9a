package nlu

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/jsonextract"
	"github.com/dvloznov/farm-ledger/internal/logger"
)

const snippetRunes = 200

// ShapeError means the model answered but no JSON object could be recovered.
// Snippet holds the start of the raw response for diagnosis.
type ShapeError struct {
	Snippet string
	Err     error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unusable model response: %v", e.Err)
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// Analyzer classifies user messages with the language model.
type Analyzer struct {
	model    Model
	location *time.Location
}

// NewAnalyzer creates an analyzer; dates are resolved in loc.
func NewAnalyzer(model Model, loc *time.Location) *Analyzer {
	if loc == nil {
		loc = time.UTC
	}
	return &Analyzer{model: model, location: loc}
}

// ModelName returns the underlying model name.
func (a *Analyzer) ModelName() string {
	return a.model.Name()
}

// Today returns the current date in the analyzer's location.
func (a *Analyzer) Today(now time.Time) civil.Date {
	return civil.DateOf(now.In(a.location))
}

// Analyze sends text to the model and normalizes the recovered JSON object.
// now is the arrival time of the message.
func (a *Analyzer) Analyze(ctx context.Context, text string, now time.Time) (*Intent, error) {
	log := logger.FromContext(ctx)
	today := a.Today(now)

	raw, err := a.model.Complete(ctx, buildSystemPrompt(today), text)
	if err != nil {
		return nil, err
	}

	obj, err := jsonextract.ExtractObject(raw)
	if err != nil {
		log.Warn().Err(err).Str("raw", truncate(raw, snippetRunes)).Msg("Model response without JSON object")
		return nil, &ShapeError{Snippet: truncate(raw, snippetRunes), Err: err}
	}

	intent, err := Normalize(obj, text, today)
	if err != nil {
		return nil, fmt.Errorf("Analyze: %w", err)
	}

	log.Debug().
		Str("kind", string(intent.Kind)).
		Str("date", intent.Date.String()).
		Msg("Message analyzed")

	return intent, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
