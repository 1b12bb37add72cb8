// Package config provides centralized configuration for the storeops server
// and CLI. All configurable values are loaded from environment variables with
// sensible defaults; .env files may pre-populate the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yangwenmai/storeops/internal/chat"
	"github.com/yangwenmai/storeops/internal/intent"
	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/scan"
)

// DefaultEnvFiles are loaded by LoadEnvFiles when no files are given.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config holds all configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFile receives JSON logs; empty means stdout.
	LogFile string

	// CatalogPath overrides the embedded mock catalog with a YAML file.
	CatalogPath string

	// Category and Persona are the initial dashboard state.
	Category model.Category
	Persona  model.Persona

	// ChatReplyDelay and ChatReplyJitter set how long the assistant "thinks".
	ChatReplyDelay  time.Duration
	ChatReplyJitter time.Duration

	// ChatSerialize rejects a chat message while a reply is pending.
	ChatSerialize bool

	// ScanDelay is the simulated shelf analysis time.
	ScanDelay time.Duration

	// SuggestionLimit caps the autocomplete list.
	SuggestionLimit int

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string

	// OTELEndpoint enables OTLP/HTTP export when set.
	OTELEndpoint string

	// OTELInsecure disables TLS for the OTLP exporter.
	OTELInsecure bool

	// ServiceName is reported to the telemetry backend.
	ServiceName string
}

// LoadEnvFiles loads the given .env files into the process environment.
// Variables that are already set take precedence and missing files are
// skipped.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults,
// and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:            envOr("PORT", "8080"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFile:         os.Getenv("LOG_FILE"),
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		Category:        model.Category(envOr("CATEGORY", string(model.CategoryAll))),
		Persona:         model.Persona(envOr("PERSONA", string(model.PersonaStoreManager))),
		ChatReplyDelay:  envDuration("CHAT_REPLY_DELAY", chat.DefaultReplyDelay),
		ChatReplyJitter: envDuration("CHAT_REPLY_JITTER", chat.DefaultReplyJitter),
		ChatSerialize:   envBool("CHAT_SERIALIZE", false),
		ScanDelay:       envDuration("SCAN_DELAY", scan.DefaultAnalysisDelay),
		SuggestionLimit: envInt("SUGGESTION_LIMIT", intent.DefaultMaxSuggestions),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
		OTELEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELInsecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:     envOr("OTEL_SERVICE_NAME", "storeops"),
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if _, ok := model.ParseCategory(string(c.Category)); !ok && c.Category != model.CategoryAll {
		errs = append(errs, fmt.Errorf("CATEGORY: unknown category %q", c.Category))
	}
	if _, ok := model.ParsePersona(string(c.Persona)); !ok {
		errs = append(errs, fmt.Errorf("PERSONA: unknown persona %q", c.Persona))
	}
	if c.ChatReplyDelay < 0 || c.ChatReplyJitter < 0 {
		errs = append(errs, errors.New("CHAT_REPLY_DELAY and CHAT_REPLY_JITTER must not be negative"))
	}
	if c.ScanDelay < 0 {
		errs = append(errs, errors.New("SCAN_DELAY must not be negative"))
	}
	if c.SuggestionLimit <= 0 {
		errs = append(errs, fmt.Errorf("SUGGESTION_LIMIT must be positive, got %d", c.SuggestionLimit))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
