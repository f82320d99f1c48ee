package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	HTTPTimeout time.Duration
	LogLevel    slog.Level

	AppRoot      string
	VectorDBPath string
	SchemaPath   string
	RulesPath    string
	NumberLocale string

	GoogleAPIKey     string
	GeminiModel      string
	EmbedModel       string
	DriveCredentials string

	ServiceAPIKey string
	SinkURL       string
	SinkSecret    string

	RetryBase  time.Duration
	MaxRetries int
}

func FromEnv() Config {
	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	lvl := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	retries := 3
	if v, err := strconv.Atoi(os.Getenv("MAX_RETRIES")); err == nil && v >= 0 {
		retries = v
	}
	root := envOr("APP_ROOT", ".")
	return Config{
		Port:             envOr("PORT", "8080"),
		HTTPTimeout:      to,
		LogLevel:         lvl,
		AppRoot:          root,
		VectorDBPath:     envOr("VECTOR_DB_PATH", filepath.Join(root, "db", "vectors.db")),
		SchemaPath:       os.Getenv("SCHEMA_PATH"),
		RulesPath:        envOr("RULES_PATH", filepath.Join(root, "config", "drive_rules.yaml")),
		NumberLocale:     os.Getenv("NUMBER_LOCALE"),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:      envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		EmbedModel:       envOr("EMBED_MODEL", "text-embedding-004"),
		DriveCredentials: envOr("DRIVE_CREDENTIALS", filepath.Join(root, "config", "sa.json")),
		ServiceAPIKey:    os.Getenv("SERVICE_API_KEY"),
		SinkURL:          os.Getenv("SINK_URL"),
		SinkSecret:       os.Getenv("SINK_SECRET"),
		RetryBase:        100 * time.Millisecond,
		MaxRetries:       retries,
	}
}

// WithRoot moves AppRoot and every path still on its root default.
func (c Config) WithRoot(root string) Config {
	c.AppRoot = root
	if os.Getenv("VECTOR_DB_PATH") == "" {
		c.VectorDBPath = filepath.Join(root, "db", "vectors.db")
	}
	if os.Getenv("RULES_PATH") == "" {
		c.RulesPath = filepath.Join(root, "config", "drive_rules.yaml")
	}
	if os.Getenv("DRIVE_CREDENTIALS") == "" {
		c.DriveCredentials = filepath.Join(root, "config", "sa.json")
	}
	return c
}

// Path resolves elem under AppRoot.
func (c Config) Path(elem ...string) string {
	return filepath.Join(append([]string{c.AppRoot}, elem...)...)
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
