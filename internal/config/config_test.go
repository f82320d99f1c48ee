package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "HTTP_TIMEOUT_SECONDS", "LOG_LEVEL", "APP_ROOT", "VECTOR_DB_PATH", "RULES_PATH", "DRIVE_CREDENTIALS", "MAX_RETRIES", "GEMINI_MODEL"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 15*time.Second, c.HTTPTimeout)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, filepath.Join(".", "db", "vectors.db"), c.VectorDBPath)
	assert.Equal(t, "gemini-2.5-flash", c.GeminiModel)
	assert.Equal(t, 3, c.MaxRetries)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_ROOT", "/srv/app")
	t.Setenv("VECTOR_DB_PATH", "")
	t.Setenv("MAX_RETRIES", "0")
	c := FromEnv()
	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, 3*time.Second, c.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, filepath.Join("/srv/app", "db", "vectors.db"), c.VectorDBPath)
	assert.Equal(t, 0, c.MaxRetries)
	assert.Equal(t, filepath.Join("/srv/app", "reports", "x"), c.Path("reports", "x"))
}

func TestWithRootKeepsExplicitPaths(t *testing.T) {
	t.Setenv("APP_ROOT", "")
	t.Setenv("VECTOR_DB_PATH", "/data/v.db")
	t.Setenv("RULES_PATH", "")
	t.Setenv("DRIVE_CREDENTIALS", "")
	c := FromEnv().WithRoot("/w")
	assert.Equal(t, "/w", c.AppRoot)
	assert.Equal(t, "/data/v.db", c.VectorDBPath)
	assert.Equal(t, filepath.Join("/w", "config", "drive_rules.yaml"), c.RulesPath)
	assert.Equal(t, filepath.Join("/w", "config", "sa.json"), c.DriveCredentials)
}
