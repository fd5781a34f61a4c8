// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes bridge settings such
// as the JS8Call endpoint, group catalogs, persistence strategy, fan-out
// sizing, logging, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// User persistence strategies. The registry snapshot is either serialized
// into a single key/value blob or normalized into the users table.
const (
	UserStoreBlob  = "blob"
	UserStoreTable = "table"
)

// JS8CallConfig defines the radio-link endpoint and loop tuning.
type JS8CallConfig struct {
	Host         string        // JS8CALL_HOST
	Port         int           // JS8CALL_PORT (JS8Call TCP API, default 2442)
	PollInterval time.Duration // JS8CALL_POLL_INTERVAL, sleep per loop tick
	ReadBuffer   int           // JS8CALL_READ_BUFFER, bytes per socket read
}

// Addr returns the host:port dial target for the JS8Call TCP API.
func (c JS8CallConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the bridge.
type Config struct {
	// Radio link
	JS8Call JS8CallConfig

	// Group catalogs. Order is significant: the radio classifier matches
	// message prefixes in catalog order, first match wins.
	Groups       []string // JS8_GROUPS (ordinary catalog, CSV)
	UrgentGroups []string // JS8_URGENT_GROUPS (urgent catalog, CSV)

	// Membership
	DefaultGroups []string // DEFAULT_GROUPS assigned on join
	BlockedWords  []string // BLOCKED_WORDS dropped on substring match

	// Persistence
	DBPath    string // SQLite path
	UserStore string // blob|table

	// Fan-out
	MaxWorkers int // bounded delivery pool size

	// Operator info surfaced by the info command (both optional)
	BotLocation  string // BOT_LOCATION
	NodeOperator string // NODE_OPERATOR

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables (after a best-effort
// .env load), applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg := Config{
		JS8Call: JS8CallConfig{
			Host:         getenv("JS8CALL_HOST", "localhost"),
			Port:         getint("JS8CALL_PORT", 2442),
			PollInterval: getdur("JS8CALL_POLL_INTERVAL", time.Second),
			ReadBuffer:   getint("JS8CALL_READ_BUFFER", 4096),
		},

		Groups:       splitCSV(getenv("JS8_GROUPS", "")),
		UrgentGroups: splitCSV(getenv("JS8_URGENT_GROUPS", "")),

		DefaultGroups: splitCSV(getenv("DEFAULT_GROUPS", "")),
		BlockedWords:  splitCSV(getenv("BLOCKED_WORDS", "")),

		DBPath:    getenv("DB_PATH", "js8call.db"),
		UserStore: strings.ToLower(getenv("USER_STORE", UserStoreBlob)),

		MaxWorkers: getint("MAX_WORKERS", 8),

		BotLocation:  getenv("BOT_LOCATION", ""),
		NodeOperator: getenv("NODE_OPERATOR", ""),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-js8call-bridge"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.JS8Call.Host) == "" {
		return cfg, errors.New("JS8CALL_HOST must not be empty")
	}
	if cfg.JS8Call.Port < 1 || cfg.JS8Call.Port > 65535 {
		return cfg, errors.New("JS8CALL_PORT must be in [1,65535]")
	}
	if cfg.JS8Call.PollInterval <= 0 {
		return cfg, errors.New("JS8CALL_POLL_INTERVAL must be a positive duration")
	}
	if cfg.JS8Call.ReadBuffer <= 0 {
		return cfg, errors.New("JS8CALL_READ_BUFFER must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	switch cfg.UserStore {
	case UserStoreBlob, UserStoreTable:
	default:
		return cfg, errors.New("USER_STORE must be one of: blob, table")
	}
	if cfg.MaxWorkers < 1 {
		return cfg, errors.New("MAX_WORKERS must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	// A group name belongs to at most one catalog.
	for _, g := range cfg.Groups {
		for _, u := range cfg.UrgentGroups {
			if g == u {
				return cfg, fmt.Errorf("group %q appears in both JS8_GROUPS and JS8_URGENT_GROUPS", g)
			}
		}
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
