// Package app wires configuration into the pipeline and its collaborators.
// Gemini and Drive are optional: without credentials the pipeline still
// builds KPIs and the collaborator that is missing reports ErrNotConfigured.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/config"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/drive"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/ingest"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/llm"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/normalize"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/pipeline"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/rag"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/store"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/utils"
)

// MemoryDB as VECTOR_DB_PATH keeps the knowledge base in process.
const MemoryDB = "memory"

type App struct {
	Cfg        config.Config
	Log        *slog.Logger
	Tel        *utils.Telemetry
	Store      store.VectorStore
	LLM        *llm.Client
	Drive      *drive.Service
	Downloader *ingest.Client
	Pipeline   *pipeline.Pipeline
}

func NewLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	schema := normalize.DefaultSchema()
	if cfg.SchemaPath != "" {
		s, err := normalize.LoadSchema(cfg.SchemaPath)
		if err != nil {
			return nil, err
		}
		schema = s
	}
	loc, err := normalize.ParseLocale(cfg.NumberLocale)
	if err != nil {
		return nil, err
	}

	a := &App{Cfg: cfg, Log: log, Tel: utils.NewTelemetry()}
	backoff := utils.NewBackoff(cfg.RetryBase, cfg.MaxRetries)
	httpc := ingest.NewHTTPClient(cfg.HTTPTimeout)
	a.Downloader = ingest.NewClient(httpc, backoff, log)

	if cfg.VectorDBPath == MemoryDB || cfg.VectorDBPath == "" {
		a.Store = store.NewMemoryStore()
	} else {
		st, err := store.OpenSQLite(cfg.VectorDBPath, log)
		if err != nil {
			return nil, err
		}
		a.Store = st
	}

	a.Pipeline = &pipeline.Pipeline{
		Root:      cfg.AppRoot,
		Schema:    schema,
		Locale:    loc,
		RulesPath: cfg.RulesPath,
		Sink:      &pipeline.Sink{URL: cfg.SinkURL, Secret: cfg.SinkSecret, HTTP: httpc},
		Tel:       a.Tel,
		Log:       log,
	}

	a.LLM, err = llm.New(ctx, llm.Options{
		APIKey:     cfg.GoogleAPIKey,
		Model:      cfg.GeminiModel,
		EmbedModel: cfg.EmbedModel,
		Backoff:    backoff,
		Log:        log,
	})
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn("gemini disabled", slog.Any("err", err))
	case err != nil:
		a.Store.Close()
		return nil, err
	default:
		a.Pipeline.Indexer = rag.NewIndexer(a.Store, a.LLM, log)
		a.Pipeline.Asker = rag.NewAsker(a.Store, a.LLM, a.LLM)
	}

	a.Drive, err = drive.NewService(ctx, cfg.DriveCredentials, backoff)
	switch {
	case errors.Is(err, drive.ErrNoCredentials):
		log.Warn("drive disabled", slog.Any("err", err))
	case err != nil:
		a.Store.Close()
		return nil, err
	default:
		a.Pipeline.Drive = a.Drive
	}
	return a, nil
}

// RequireLLM fails when the Gemini client is not configured.
func (a *App) RequireLLM() error {
	if a.LLM == nil {
		return fmt.Errorf("gemini: %w", llm.ErrNotConfigured)
	}
	return nil
}

// RequireDrive fails when no Drive credentials were found.
func (a *App) RequireDrive() error {
	if a.Drive == nil {
		return fmt.Errorf("%w: set DRIVE_CREDENTIALS or GOOGLE_SERVICE_ACCOUNT_JSON", drive.ErrNoCredentials)
	}
	return nil
}

func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
