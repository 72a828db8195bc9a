package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"BOT_TOKEN":                   "123:abc",
		"LLM_API_KEY":                 "key",
		"GOOGLE_SERVICE_ACCOUNT_JSON": `{"type":"service_account"}`,
		"SHEET_ID":                    "sheet-1",
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(baseEnv()))
	if err != nil {
		t.Fatalf("FromLookup() error = %v", err)
	}

	if cfg.LLMProvider != "gemini" {
		t.Errorf("LLMProvider = %q, want gemini", cfg.LLMProvider)
	}
	if cfg.PendingBackend != PendingBackendMemory {
		t.Errorf("PendingBackend = %q, want %q", cfg.PendingBackend, PendingBackendMemory)
	}
	if cfg.PendingTTL != 30*time.Minute {
		t.Errorf("PendingTTL = %v, want 30m", cfg.PendingTTL)
	}
	if cfg.DispatchWorkers != 1 {
		t.Errorf("DispatchWorkers = %d, want 1", cfg.DispatchWorkers)
	}
	if cfg.BackupSchedule != "0 3 * * *" {
		t.Errorf("BackupSchedule = %q", cfg.BackupSchedule)
	}
	if cfg.LedgerSheet != "Ledger" || cfg.LivestockSheet != "Livestock" || cfg.LivestockLogSheet != "LivestockLog" {
		t.Errorf("unexpected sheet names: %q %q %q", cfg.LedgerSheet, cfg.LivestockSheet, cfg.LivestockLogSheet)
	}
	if cfg.Timezone != time.UTC {
		t.Errorf("Timezone = %v, want UTC", cfg.Timezone)
	}
	if cfg.WebhookMode() {
		t.Error("expected polling mode by default")
	}
}

func TestFromLookup_MissingRequired(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{"BOT_TOKEN": "x"}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"LLM_API_KEY", "GOOGLE_SERVICE_ACCOUNT_JSON", "SHEET_ID"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
	if strings.Contains(err.Error(), "BOT_TOKEN") {
		t.Errorf("error %q mentions a variable that is set", err)
	}
}

func TestFromLookup_OpenAIKeyAlias(t *testing.T) {
	env := baseEnv()
	delete(env, "LLM_API_KEY")
	env["OPENAI_API_KEY"] = "sk-test"

	cfg, err := FromLookup(lookupFrom(env))
	if err != nil {
		t.Fatalf("FromLookup() error = %v", err)
	}
	if cfg.LLMAPIKey != "sk-test" || cfg.LLMProvider != "openai" {
		t.Errorf("got key=%q provider=%q", cfg.LLMAPIKey, cfg.LLMProvider)
	}
}

func TestFromLookup_Users(t *testing.T) {
	env := baseEnv()
	env["ALLOWED_USERS"] = "47329648, 1001"
	env["USER_NAMES"] = "47329648:أبو محمد,1001:سالم"

	cfg, err := FromLookup(lookupFrom(env))
	if err != nil {
		t.Fatalf("FromLookup() error = %v", err)
	}

	if diff := cmp.Diff(map[int64]bool{47329648: true, 1001: true}, cfg.AllowedUsers); diff != "" {
		t.Errorf("AllowedUsers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[int64]string{47329648: "أبو محمد", 1001: "سالم"}, cfg.UserNames); diff != "" {
		t.Errorf("UserNames mismatch (-want +got):\n%s", diff)
	}
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad user id", "ALLOWED_USERS", "abc"},
		{"bad user name pair", "USER_NAMES", "47329648"},
		{"bad ttl", "PENDING_TTL", "soon"},
		{"zero workers", "DISPATCH_WORKERS", "0"},
		{"unknown backend", "PENDING_BACKEND", "sqlite"},
		{"redis without url", "PENDING_BACKEND", "redis"},
		{"bad timezone", "TIMEZONE", "Mars/Olympus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			env[tt.key] = tt.val
			if _, err := FromLookup(lookupFrom(env)); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestFromLookup_Webhook(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		secret   string
		wantErr  bool
		wantPath string
	}{
		{"url path is mounted", "https://farm.example.com/tg/k7Qz", "s3cret_token-1", false, "/tg/k7Qz"},
		{"bare host uses default path", "https://farm.example.com", "s3cret_token-1", false, "/webhook"},
		{"secret required", "https://farm.example.com/webhook", "", true, ""},
		{"secret charset", "https://farm.example.com/webhook", "not secret!", true, ""},
		{"secret too long", "https://farm.example.com/webhook", strings.Repeat("a", 257), true, ""},
		{"https required", "http://farm.example.com/webhook", "s3cret_token-1", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			env["WEBHOOK_URL"] = tt.url
			env["WEBHOOK_SECRET"] = tt.secret

			cfg, err := FromLookup(lookupFrom(env))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("FromLookup() error = %v", err)
			}
			if !cfg.WebhookMode() {
				t.Error("expected webhook mode")
			}
			if got := cfg.WebhookPath(); got != tt.wantPath {
				t.Errorf("WebhookPath() = %q, want %q", got, tt.wantPath)
			}
			if cfg.WebhookSecret != tt.secret {
				t.Errorf("WebhookSecret = %q", cfg.WebhookSecret)
			}
		})
	}
}

func TestServiceAccountKey_Inline(t *testing.T) {
	cfg := Config{GoogleServiceAccountJSON: `{"type":"service_account"}`}
	key, err := cfg.ServiceAccountKey()
	if err != nil {
		t.Fatalf("ServiceAccountKey() error = %v", err)
	}
	if string(key) != `{"type":"service_account"}` {
		t.Errorf("unexpected key %q", key)
	}
}
