// Package config loads process settings from an optional TOML file and the
// environment, the environment taking precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"fintrack/internal/reporting"
)

// FileEnv names the environment variable pointing at the TOML file.
const FileEnv = "FINTRACK_CONFIG"

type Config struct {
	Port string `toml:"port"`

	// Storage
	DataBackend  string `toml:"data_backend"`
	SQLiteDBPath string `toml:"sqlite_db_path"`
	DatabaseURL  string `toml:"database_url"`

	// Sessions
	SessionSecret string        `toml:"session_secret"`
	SessionTTL    time.Duration `toml:"session_ttl"`

	// HTTP
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`

	BudgetWindowMode string `toml:"budget_window_mode"`

	// AMQP; an empty URL disables ledger events
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Google Sheets mirror
	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id"`
	GoogleSheetName          string `toml:"google_sheet_name"`
	GoogleServiceAccountFile string `toml:"google_service_account_file"`
	GoogleServiceAccountJSON string `toml:"google_service_account_json"`

	RecurringInterval time.Duration `toml:"recurring_interval"`

	MetricsEnabled bool `toml:"metrics_enabled"`
	// WorkerMetricsAddr is where the background workers expose /metrics;
	// empty keeps them unexposed.
	WorkerMetricsAddr string `toml:"worker_metrics_addr"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

func Default() *Config {
	return &Config{
		Port:               "8081",
		DataBackend:        "sqlite",
		SQLiteDBPath:       "./data/fintrack.db",
		SessionTTL:         7 * 24 * time.Hour,
		RateLimitPerMinute: 120,
		BudgetWindowMode:   string(reporting.WindowCalendar),
		AMQPExchange:       "fintrack",
		AMQPQueue:          "ledger_events",
		GoogleSheetName:    "Expenses",
		RecurringInterval:  time.Hour,
		MetricsEnabled:     true,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load applies defaults, then the TOML file named by FINTRACK_CONFIG, then
// the environment. Malformed numeric or duration variables keep the earlier value.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	envString(&cfg.Port, "PORT")
	envString(&cfg.DataBackend, "DATA_BACKEND")
	envString(&cfg.SQLiteDBPath, "SQLITE_DB_PATH")
	envString(&cfg.DatabaseURL, "DATABASE_URL")
	envString(&cfg.SessionSecret, "SESSION_SECRET")
	envDuration(&cfg.SessionTTL, "SESSION_TTL")
	envList(&cfg.CORSAllowedOrigins, "CORS_ALLOWED_ORIGINS")
	envInt(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	envString(&cfg.BudgetWindowMode, "BUDGET_WINDOW_MODE")
	envString(&cfg.AMQPURL, "AMQP_URL")
	envString(&cfg.AMQPExchange, "AMQP_EXCHANGE")
	envString(&cfg.AMQPQueue, "AMQP_QUEUE")
	envString(&cfg.GoogleSpreadsheetID, "GOOGLE_SPREADSHEET_ID")
	envString(&cfg.GoogleSheetName, "GOOGLE_SHEET_NAME")
	envString(&cfg.GoogleServiceAccountFile, "GOOGLE_SERVICE_ACCOUNT_FILE")
	envString(&cfg.GoogleServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
	envDuration(&cfg.RecurringInterval, "RECURRING_INTERVAL")
	envBool(&cfg.MetricsEnabled, "METRICS_ENABLED")
	envString(&cfg.WorkerMetricsAddr, "WORKER_METRICS_ADDR")
	envString(&cfg.LogLevel, "LOG_LEVEL")
	envString(&cfg.LogFormat, "LOG_FORMAT")

	return cfg, nil
}

// LoadFile overlays the keys present in the TOML file at path.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate returns every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite postgres]", c.DataBackend))
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		errs = append(errs, "session secret must be at least 16 characters")
	}
	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}
	if _, err := reporting.ParseWindowMode(c.BudgetWindowMode); err != nil {
		errs = append(errs, err.Error())
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.RecurringInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid recurring interval %v: must be at least 1 second", c.RecurringInterval))
	} else if c.RecurringInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid recurring interval %v: must be at most 24 hours", c.RecurringInterval))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "tint":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text, json or tint", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// WindowMode is BudgetWindowMode parsed; Validate has already rejected bad values.
func (c *Config) WindowMode() reporting.WindowMode {
	m, err := reporting.ParseWindowMode(c.BudgetWindowMode)
	if err != nil {
		return reporting.WindowCalendar
	}
	return m
}

// MirrorEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
