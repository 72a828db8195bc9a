// Package config loads the bot configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	BotToken string

	LLMProvider string
	LLMAPIKey   string
	LLMModel    string

	// GoogleServiceAccountJSON is the raw service account key, or a path to it.
	GoogleServiceAccountJSON string
	SheetID                  string
	LedgerSheet              string
	LivestockSheet           string
	LivestockLogSheet        string

	AllowedUsers map[int64]bool
	UserNames    map[int64]string
	Timezone     *time.Location

	PendingBackend string
	PendingTTL     time.Duration
	RedisURL       string

	HTTPPort        string
	WebhookURL      string
	WebhookSecret   string
	DispatchWorkers int
	LogLevel        string
	LogJSON         bool

	BackupBucket   string
	BackupSchedule string

	BigQueryProject string
	BigQueryDataset string

	NotionToken      string
	NotionDatabaseID string
}

const (
	PendingBackendMemory = "memory"
	PendingBackendRedis  = "redis"

	defaultPendingTTL     = 30 * time.Minute
	defaultBackupSchedule = "0 3 * * *"
	defaultWebhookPath    = "/webhook"
)

// webhookSecretPattern is the character set Telegram accepts for secret_token.
var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from lookup. Every missing required variable
// is reported in one error.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	env := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		BotToken:                 env("BOT_TOKEN", ""),
		LLMProvider:              strings.ToLower(env("LLM_PROVIDER", "")),
		LLMAPIKey:                env("LLM_API_KEY", ""),
		LLMModel:                 env("LLM_MODEL", ""),
		GoogleServiceAccountJSON: env("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		SheetID:                  env("SHEET_ID", ""),
		LedgerSheet:              env("LEDGER_SHEET", "Ledger"),
		LivestockSheet:           env("LIVESTOCK_SHEET", "Livestock"),
		LivestockLogSheet:        env("LIVESTOCK_LOG_SHEET", "LivestockLog"),
		PendingBackend:           strings.ToLower(env("PENDING_BACKEND", PendingBackendMemory)),
		RedisURL:                 env("REDIS_URL", ""),
		HTTPPort:                 env("HTTP_PORT", "8080"),
		WebhookURL:               env("WEBHOOK_URL", ""),
		WebhookSecret:            env("WEBHOOK_SECRET", ""),
		LogLevel:                 env("LOG_LEVEL", "info"),
		LogJSON:                  parseBool(env("LOG_JSON", ""), false),
		BackupBucket:             env("BACKUP_BUCKET", ""),
		BackupSchedule:           env("BACKUP_SCHEDULE", defaultBackupSchedule),
		BigQueryProject:          env("BIGQUERY_PROJECT", ""),
		BigQueryDataset:          env("BIGQUERY_DATASET", ""),
		NotionToken:              env("NOTION_TOKEN", ""),
		NotionDatabaseID:         env("NOTION_DATABASE_ID", ""),
	}

	// Provider-specific key names from earlier deployments.
	if cfg.LLMAPIKey == "" {
		if key := env("OPENAI_API_KEY", ""); key != "" {
			cfg.LLMAPIKey = key
			if cfg.LLMProvider == "" {
				cfg.LLMProvider = "openai"
			}
		} else if key := env("GEMINI_API_KEY", ""); key != "" {
			cfg.LLMAPIKey = key
		}
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "gemini"
	}

	var missing []string
	for _, req := range []struct{ name, value string }{
		{"BOT_TOKEN", cfg.BotToken},
		{"LLM_API_KEY", cfg.LLMAPIKey},
		{"GOOGLE_SERVICE_ACCOUNT_JSON", cfg.GoogleServiceAccountJSON},
		{"SHEET_ID", cfg.SheetID},
	} {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.AllowedUsers, err = parseUserIDs(env("ALLOWED_USERS", "")); err != nil {
		return Config{}, fmt.Errorf("ALLOWED_USERS: %w", err)
	}
	if cfg.UserNames, err = parseUserNames(env("USER_NAMES", "")); err != nil {
		return Config{}, fmt.Errorf("USER_NAMES: %w", err)
	}
	if cfg.Timezone, err = time.LoadLocation(env("TIMEZONE", "UTC")); err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	if cfg.PendingTTL, err = parseDuration(env("PENDING_TTL", ""), defaultPendingTTL); err != nil {
		return Config{}, fmt.Errorf("PENDING_TTL: %w", err)
	}
	if cfg.DispatchWorkers, err = strconv.Atoi(env("DISPATCH_WORKERS", "1")); err != nil || cfg.DispatchWorkers < 1 {
		return Config{}, fmt.Errorf("DISPATCH_WORKERS: must be a positive integer")
	}

	if cfg.WebhookURL != "" {
		u, err := url.Parse(cfg.WebhookURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return Config{}, fmt.Errorf("WEBHOOK_URL: must be an https URL")
		}
		if cfg.WebhookSecret == "" {
			return Config{}, fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
		}
		if !webhookSecretPattern.MatchString(cfg.WebhookSecret) {
			return Config{}, fmt.Errorf("WEBHOOK_SECRET: use 1-256 characters from A-Z, a-z, 0-9, _ and -")
		}
	}

	switch cfg.PendingBackend {
	case PendingBackendMemory:
	case PendingBackendRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL is required when PENDING_BACKEND=redis")
		}
	default:
		return Config{}, fmt.Errorf("PENDING_BACKEND: unknown backend %q", cfg.PendingBackend)
	}

	return cfg, nil
}

// ServiceAccountKey returns the credentials JSON, reading it from disk when the
// variable holds a path.
func (c Config) ServiceAccountKey() ([]byte, error) {
	if strings.HasPrefix(c.GoogleServiceAccountJSON, "{") {
		return []byte(c.GoogleServiceAccountJSON), nil
	}
	data, err := os.ReadFile(c.GoogleServiceAccountJSON)
	if err != nil {
		return nil, fmt.Errorf("ServiceAccountKey: read key file: %w", err)
	}
	return data, nil
}

// WebhookMode reports whether updates arrive by webhook instead of long polling.
func (c Config) WebhookMode() bool {
	return c.WebhookURL != ""
}

// WebhookPath is the local path Telegram posts to, taken from WEBHOOK_URL.
func (c Config) WebhookPath() string {
	u, err := url.Parse(c.WebhookURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return defaultWebhookPath
	}
	return u.Path
}

// parseUserIDs reads a comma or space separated list of numeric Telegram user IDs.
func parseUserIDs(raw string) (map[int64]bool, error) {
	ids := make(map[int64]bool)
	for _, f := range splitList(raw) {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", f)
		}
		ids[id] = true
	}
	return ids, nil
}

// parseUserNames reads "id:name" pairs, e.g. "47329648:أبو محمد,1234:سالم".
func parseUserNames(raw string) (map[int64]string, error) {
	names := make(map[int64]string)
	if raw == "" {
		return names, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idPart, name, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid entry %q, want id:name", pair)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", idPart)
		}
		names[id] = strings.TrimSpace(name)
	}
	return names, nil
}

func splitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}

func parseBool(raw string, def bool) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
