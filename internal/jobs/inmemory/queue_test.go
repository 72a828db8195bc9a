package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/farm-ledger/internal/jobs"
	"github.com/google/go-cmp/cmp"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestQueue_SingleWorkerKeepsOrder(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(10, 1, nil)

	var mu sync.Mutex
	var got []string
	err := q.Start(ctx, func(ctx context.Context, job *jobs.UpdateJob) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, job.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"/start", "اشتريت علف بـ 500", "/confirm", "/balance"}
	for _, text := range want {
		if err := q.PublishUpdate(ctx, &jobs.UpdateJob{UserID: 1, Text: text}); err != nil {
			t.Fatalf("PublishUpdate() error = %v", err)
		}
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(want)
	})
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("handled order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueue_RecordsStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)
	q := NewQueue(10, 2, store)

	boom := errors.New("sheet unavailable")
	err := q.Start(ctx, func(ctx context.Context, job *jobs.UpdateJob) error {
		switch job.Text {
		case "fail":
			return boom
		case "panic":
			panic("nil map")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ok := &jobs.UpdateJob{Text: "ok"}
	failed := &jobs.UpdateJob{Text: "fail"}
	panicked := &jobs.UpdateJob{Text: "panic"}
	for _, j := range []*jobs.UpdateJob{ok, failed, panicked} {
		if err := q.PublishUpdate(ctx, j); err != nil {
			t.Fatalf("PublishUpdate() error = %v", err)
		}
		if j.JobID == "" {
			t.Error("expected generated job ID")
		}
	}

	status := func(id string) jobs.JobStatus {
		j, err := store.GetJob(ctx, id)
		if err != nil {
			return ""
		}
		return j.Status
	}
	waitFor(t, func() bool {
		return status(ok.JobID) == jobs.JobStatusCompleted &&
			status(failed.JobID) == jobs.JobStatusFailed &&
			status(panicked.JobID) == jobs.JobStatusFailed
	})
	_ = q.Stop(ctx)

	j, _ := store.GetJob(ctx, failed.JobID)
	if j.Error != "sheet unavailable" || j.CompletedAt == nil {
		t.Errorf("failed job = %+v", j)
	}
}

func TestQueue_StopDrainsQueuedJobs(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(10, 1, nil)

	release := make(chan struct{})
	var mu sync.Mutex
	var got []string
	err := q.Start(ctx, func(ctx context.Context, job *jobs.UpdateJob) error {
		if job.Text == "/start" {
			<-release
		}
		mu.Lock()
		defer mu.Unlock()
		got = append(got, job.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"/start", "اشتريت علف بـ 500", "/confirm"}
	for _, text := range want {
		if err := q.PublishUpdate(ctx, &jobs.UpdateJob{UserID: 1, Text: text}); err != nil {
			t.Fatalf("PublishUpdate() error = %v", err)
		}
	}

	stopped := make(chan error, 1)
	go func() { stopped <- q.Stop(ctx) }()

	select {
	case err := <-stopped:
		t.Fatalf("Stop() returned before queued jobs ran: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("handled jobs mismatch (-want +got):\n%s", diff)
	}
}

func TestQueue_StopGivesUpAtDeadline(t *testing.T) {
	q := NewQueue(10, 1, nil)
	release := make(chan struct{})
	defer close(release)

	_ = q.Start(context.Background(), func(ctx context.Context, job *jobs.UpdateJob) error {
		<-release
		return nil
	})
	_ = q.PublishUpdate(context.Background(), &jobs.UpdateJob{Text: "/balance"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want deadline exceeded", err)
	}
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := q.PublishUpdate(context.Background(), &jobs.UpdateJob{}); err == nil {
		t.Error("expected error publishing to a closed queue")
	}
	if err := q.Start(context.Background(), nil); err == nil {
		t.Error("expected error starting a closed queue")
	}
}
