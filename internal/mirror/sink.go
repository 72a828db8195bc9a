// Package mirror copies confirmed transactions to secondary stores for reporting.
// The ledger sheet stays the source of truth; a mirror failure never undoes a
// confirmed write.
package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/farm-ledger/internal/domain"
)

// Sink receives confirmed transactions.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Record stores one confirmed transaction.
	Record(ctx context.Context, tx domain.Transaction) error
}

// SinkError is the failure of one sink inside a Fanout.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Fanout records to every sink and joins their failures.
type Fanout []Sink

// Name implements Sink.
func (f Fanout) Name() string {
	return "fanout"
}

// Record implements Sink. Every sink is attempted even when an earlier one fails.
func (f Fanout) Record(ctx context.Context, tx domain.Transaction) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, tx); err != nil {
			errs = append(errs, &SinkError{Sink: s.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Failed lists the names of the sinks that failed in an error returned by Record.
func Failed(err error) []string {
	if err == nil {
		return nil
	}
	var names []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			names = append(names, Failed(e)...)
		}
		return names
	}
	var se *SinkError
	if errors.As(err, &se) {
		return []string{se.Sink}
	}
	return []string{"unknown"}
}
