package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/ingest"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/normalize"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/pipeline"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/utils"
)

const serviceName = "Assistente de Dados Runner"

type Deps struct {
	Pipeline   *pipeline.Pipeline
	Downloader *ingest.Client
	Tel        *utils.Telemetry
	// APIKey guards the mutating routes when set.
	APIKey string
}

type runRequest struct {
	Client       string `json:"client"`
	Q            string `json:"q"`
	Take         int    `json:"take"`
	Type         string `json:"type"`
	Rules        string `json:"rules"`
	GoogleCSVURL string `json:"google_csv_url"`
	MetaCSVURL   string `json:"meta_csv_url"`
}

type runResponse struct {
	OK         bool                `json:"ok"`
	Client     string              `json:"client"`
	TypeUsed   string              `json:"type_used,omitempty"`
	Fallback   bool                `json:"fallback,omitempty"`
	ReportPath string              `json:"report_path,omitempty"`
	Markdown   string              `json:"markdown"`
	KPIs       *pipeline.KPIResult `json:"kpis,omitempty"`
	Error      string              `json:"error,omitempty"`
}

func NewRouter(log *slog.Logger, d Deps) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log, d.Tel))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Pipeline == nil || d.Pipeline.Asker == nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"ok": true, "service": serviceName})
	})
	if d.Tel != nil {
		mux.Method(http.MethodGet, "/metrics", d.Tel.Handler())
	}

	mux.Group(func(mux chi.Router) {
		mux.Use(apiKey(d.APIKey))

		mux.Post("/run", func(w http.ResponseWriter, r *http.Request) {
			var req runRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad json", 400)
				return
			}
			q := strings.TrimSpace(req.Q)
			if q == "" {
				http.Error(w, "empty prompt", 400)
				return
			}
			slug := pipeline.Slugify(req.Client)
			g, m, cleanup, err := fetchCSVs(r.Context(), d.Downloader, req.GoogleCSVURL, req.MetaCSVURL)
			defer cleanup()
			if err != nil {
				writeJSON(w, 502, runResponse{Client: slug, Error: err.Error()})
				return
			}

			res, err := d.Pipeline.Run(r.Context(), pipeline.RunRequest{
				Client:    req.Client,
				Question:  q,
				Type:      req.Type,
				Take:      req.Take,
				Rules:     req.Rules,
				GoogleCSV: g,
				MetaCSV:   m,
			})
			out := runResponse{
				OK:         err == nil,
				Client:     slug,
				TypeUsed:   res.TypeUsed,
				Fallback:   res.Fallback,
				ReportPath: res.ReportPath,
				Markdown:   res.Markdown,
				KPIs:       res.KPIs,
			}
			if err != nil {
				out.Error = err.Error()
				writeJSON(w, statusFor(err), out)
				return
			}
			writeJSON(w, 200, out)
		})

		mux.Post("/kpis", func(w http.ResponseWriter, r *http.Request) {
			var req runRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad json", 400)
				return
			}
			g, m, cleanup, err := fetchCSVs(r.Context(), d.Downloader, req.GoogleCSVURL, req.MetaCSVURL)
			defer cleanup()
			if err != nil {
				http.Error(w, err.Error(), 502)
				return
			}
			res, err := d.Pipeline.BuildKPIs(r.Context(), pipeline.KPIRequest{Client: req.Client, GoogleCSV: g, MetaCSV: m})
			if err != nil {
				http.Error(w, err.Error(), statusFor(err))
				return
			}
			writeJSON(w, 200, res)
		})

		mux.Post("/ingest/run", func(w http.ResponseWriter, r *http.Request) {
			client := r.URL.Query().Get("client")
			if client == "" {
				http.Error(w, "client required", 400)
				return
			}
			if err := d.Pipeline.UpdateIngestion(r.Context(), client); err != nil {
				http.Error(w, err.Error(), statusFor(err))
				return
			}
			w.WriteHeader(202)
			w.Write([]byte("ingestion updated"))
		})
	})

	mux.Get("/reports/{client}", func(w http.ResponseWriter, r *http.Request) {
		slug := pipeline.Slugify(chi.URLParam(r, "client"))
		path, md, err := d.Pipeline.LatestReport(slug)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if path == "" {
			http.Error(w, "no report", 404)
			return
		}
		writeJSON(w, 200, map[string]any{"client": slug, "report_path": path, "markdown": md})
	})

	return mux
}

func apiKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && r.Header.Get("X-API-Key") != key {
				http.Error(w, "invalid api key", 401)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// fetchCSVs downloads the optional ads exports into temp files. cleanup
// removes whatever was written and is safe to call on error.
func fetchCSVs(ctx context.Context, dl *ingest.Client, googleURL, metaURL string) (string, string, func(), error) {
	var tmp []string
	cleanup := func() {
		for _, p := range tmp {
			os.Remove(p)
		}
	}
	get := func(url string) (string, error) {
		if url == "" {
			return "", nil
		}
		if dl == nil {
			return "", errors.New("downloads not configured")
		}
		p, err := dl.DownloadToTemp(ctx, url, ".csv")
		if err != nil {
			return "", err
		}
		tmp = append(tmp, p)
		return p, nil
	}
	g, err := get(googleURL)
	if err != nil {
		return "", "", cleanup, err
	}
	m, err := get(metaURL)
	if err != nil {
		return "", "", cleanup, err
	}
	return g, m, cleanup, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuestion), errors.Is(err, pipeline.ErrNoInput),
		errors.Is(err, pipeline.ErrNothingToConsolidate), errors.Is(err, normalize.ErrNoPeriodColumn),
		errors.Is(err, normalize.ErrEmptyTable), errors.Is(err, ingest.ErrNoHeader):
		return 400
	case errors.Is(err, pipeline.ErrNotConfigured):
		return 503
	}
	return 500
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
