package jobs

import (
	"context"
	"testing"
	"time"
)

func TestScheduler_Add(t *testing.T) {
	s := NewScheduler(context.Background(), time.UTC, time.Minute)
	noop := func(ctx context.Context) error { return nil }

	if err := s.Add("backup", "0 3 * * *", noop); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add("sweep", "@every 5m", noop); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add("broken", "every night", noop); err == nil {
		t.Error("expected error for invalid spec")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestScheduler_RunTaskPassesContext(t *testing.T) {
	type key struct{}
	parent := context.WithValue(context.Background(), key{}, "farm")
	s := NewScheduler(parent, nil, time.Minute)

	var got any
	var hasDeadline bool
	s.runTask("heartbeat", func(ctx context.Context) error {
		got = ctx.Value(key{})
		_, hasDeadline = ctx.Deadline()
		return nil
	})

	if got != "farm" || !hasDeadline {
		t.Errorf("task context value = %v deadline = %v", got, hasDeadline)
	}
}
