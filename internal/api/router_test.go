package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/farm-ledger/internal/jobs"
	"github.com/dvloznov/farm-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/farm-ledger/internal/logger"
)

func newTestServer(t *testing.T, cfg RouterConfig) *httptest.Server {
	t.Helper()
	cfg.Log = logger.NewWithWriter(io.Discard)
	srv := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	for _, path := range []string{"/", "/health"} {
		resp, body := get(t, srv.URL+path)
		if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"healthy"`) {
			t.Errorf("%s: %d %s", path, resp.StatusCode, body)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id", path)
		}
	}

	if resp, _ := get(t, srv.URL+"/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("/nope status = %d", resp.StatusCode)
	}
	if resp, _ := get(t, srv.URL+"/metrics"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics without handler status = %d", resp.StatusCode)
	}
}

func TestRouter_MountsMetricsAndWebhook(t *testing.T) {
	var hooked bool
	srv := newTestServer(t, RouterConfig{
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "farm_ledger_updates_total 1")
		}),
		Webhook: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hooked = true
		}),
	})

	if _, body := get(t, srv.URL+"/metrics"); body != "farm_ledger_updates_total 1" {
		t.Errorf("/metrics body = %q", body)
	}

	resp, err := http.Post(srv.URL+WebhookPath, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST webhook: %v", err)
	}
	resp.Body.Close()
	if !hooked {
		t.Error("webhook handler not called")
	}
}

func TestRouter_WebhookAtConfiguredPath(t *testing.T) {
	var hooked bool
	srv := newTestServer(t, RouterConfig{
		Webhook: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hooked = true
		}),
		WebhookPath: "/tg/k7Qz",
	})

	resp, err := http.Post(srv.URL+WebhookPath, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST default path: %v", err)
	}
	resp.Body.Close()
	if hooked || resp.StatusCode != http.StatusNotFound {
		t.Errorf("default path served the webhook: status %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/tg/k7Qz", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST configured path: %v", err)
	}
	resp.Body.Close()
	if !hooked {
		t.Error("webhook handler not called at the configured path")
	}
}

func TestRouter_Jobs(t *testing.T) {
	store := inmemory.NewStore(0)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_ = store.SaveJob(ctx, &jobs.UpdateJob{JobID: "j1", UserID: 1, Text: "secret", Status: jobs.JobStatusCompleted, CreatedAt: base})
	_ = store.SaveJob(ctx, &jobs.UpdateJob{JobID: "j2", UserID: 2, Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Minute)})

	srv := newTestServer(t, RouterConfig{Jobs: store})

	resp, body := get(t, srv.URL+"/api/jobs?user_id=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list struct {
		Jobs  []jobs.UpdateJob `json:"jobs"`
		Count int              `json:"count"`
	}
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 || list.Jobs[0].JobID != "j1" {
		t.Errorf("list = %+v", list)
	}
	if strings.Contains(body, "secret") {
		t.Error("message text must not be exposed")
	}

	if resp, _ := get(t, srv.URL+"/api/jobs?user_id=abc"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad user_id status = %d", resp.StatusCode)
	}
	if resp, body := get(t, srv.URL+"/api/jobs/j2"); resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"failed"`) {
		t.Errorf("get j2: %d %s", resp.StatusCode, body)
	}
	if resp, _ := get(t, srv.URL+"/api/jobs/missing"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing job status = %d", resp.StatusCode)
	}

	resp, err := http.Post(srv.URL+"/api/jobs", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", resp.StatusCode)
	}
}
