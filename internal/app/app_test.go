package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/config"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/drive"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/llm"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/normalize"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/store"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewWithoutCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	root := t.TempDir()
	cfg := config.Config{
		AppRoot:          root,
		VectorDBPath:     MemoryDB,
		DriveCredentials: filepath.Join(root, "missing.json"),
		NumberLocale:     "br",
	}
	a, err := New(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &store.MemoryStore{}, a.Store)
	assert.Nil(t, a.Pipeline.Drive)
	assert.Nil(t, a.Pipeline.Asker)
	assert.Equal(t, normalize.LocaleBR, a.Pipeline.Locale)
	assert.ErrorIs(t, a.RequireLLM(), llm.ErrNotConfigured)
	assert.ErrorIs(t, a.RequireDrive(), drive.ErrNoCredentials)
}

func TestNewOpensSQLite(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	root := t.TempDir()
	cfg := config.Config{
		AppRoot:      root,
		VectorDBPath: filepath.Join(root, "db", "vectors.db"),
		GoogleAPIKey: "test-key",
	}
	a, err := New(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &store.SQLiteStore{}, a.Store)
	assert.NoError(t, a.RequireLLM())
	assert.NotNil(t, a.Pipeline.Indexer)
	assert.FileExists(t, cfg.VectorDBPath)
}

func TestNewRejectsBadLocale(t *testing.T) {
	_, err := New(context.Background(), config.Config{NumberLocale: "xx"}, quiet())
	assert.Error(t, err)
}
