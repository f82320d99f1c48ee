package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/ingest"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/normalize"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/pipeline"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/rag"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/store"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/utils"
)

type unitEmbedder struct{}

func (unitEmbedder) EmbedDocuments(_ context.Context, ts []string) ([][]float32, error) {
	out := make([][]float32, len(ts))
	for i := range ts {
		out[i] = []float32{1}
	}
	return out, nil
}
func (unitEmbedder) EmbedQuery(context.Context, string) ([]float32, error) { return []float32{1}, nil }

type fixedGen struct{}

func (fixedGen) Generate(context.Context, string) (string, error) { return "resposta", nil }

func newServer(t *testing.T, key string) (*httptest.Server, *pipeline.Pipeline) {
	st := store.NewMemoryStore()
	p := &pipeline.Pipeline{
		Root:    t.TempDir(),
		Schema:  normalize.DefaultSchema(),
		Locale:  normalize.LocaleAuto,
		Indexer: rag.NewIndexer(st, unitEmbedder{}, nil),
		Asker:   rag.NewAsker(st, unitEmbedder{}, fixedGen{}),
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	tel := utils.NewTelemetry()
	dl := ingest.NewClient(ingest.NewHTTPClient(2*time.Second), utils.NewBackoff(time.Millisecond, 1), p.Log)
	srv := httptest.NewServer(NewRouter(p.Log, Deps{Pipeline: p, Downloader: dl, Tel: tel, APIKey: key}))
	t.Cleanup(srv.Close)
	return srv, p
}

func post(t *testing.T, url, key string, body any) *http.Response {
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func csvServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/google.csv":
			io.WriteString(w, "Day,Impressions,Clicks,Cost\n2024-01-05,1000,100,50.00\n")
		case "/meta.csv":
			io.WriteString(w, "Reporting starts;Amount spent (BRL);Leads\n01/02/2024;300,00;12\n")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthAndRoot(t *testing.T) {
	srv, _ := newServer(t, "")
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, serviceName, body["service"])
}

func TestRunRequiresAPIKey(t *testing.T) {
	srv, _ := newServer(t, "k1")
	resp := post(t, srv.URL+"/run", "", runRequest{Client: "Acme", Q: "oi"})
	assert.Equal(t, 401, resp.StatusCode)
	resp = post(t, srv.URL+"/run", "wrong", runRequest{Client: "Acme", Q: "oi"})
	assert.Equal(t, 401, resp.StatusCode)
}

func TestRunRejectsEmptyPrompt(t *testing.T) {
	srv, _ := newServer(t, "k1")
	resp := post(t, srv.URL+"/run", "k1", runRequest{Client: "Acme", Q: "   "})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestRunChat(t *testing.T) {
	srv, p := newServer(t, "k1")
	resp := post(t, srv.URL+"/run", "k1", runRequest{Client: "Start TI", Q: "Oi", Type: "chat"})
	require.Equal(t, 200, resp.StatusCode)

	var out runResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.OK)
	assert.Equal(t, "start_ti", out.Client)
	assert.Equal(t, "chat", out.TypeUsed)
	assert.Contains(t, out.Markdown, "resposta")
	assert.True(t, strings.HasPrefix(out.ReportPath, filepath.Join(p.Root, "reports", "start_ti")))

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	b, _ := io.ReadAll(mresp.Body)
	assert.Contains(t, string(b), `assistant_pipeline_runs_total{status="ok"} 1`)

	rresp, err := http.Get(srv.URL + "/reports/Start%20TI")
	require.NoError(t, err)
	defer rresp.Body.Close()
	assert.Equal(t, 200, rresp.StatusCode)
}

func TestRunDownloadsAndRemovesCSVs(t *testing.T) {
	srv, p := newServer(t, "")
	files := csvServer(t)
	before, _ := filepath.Glob(filepath.Join(os.TempDir(), "ads-*.csv"))

	resp := post(t, srv.URL+"/run", "", runRequest{
		Client:       "Start TI",
		Q:            "Oi",
		Type:         "chat",
		GoogleCSVURL: files.URL + "/google.csv",
		MetaCSVURL:   files.URL + "/meta.csv",
	})
	require.Equal(t, 200, resp.StatusCode)
	var out runResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.KPIs)
	assert.Len(t, out.KPIs.KPIs, 2)
	assert.FileExists(t, p.KPITextPath("Start TI"))

	after, _ := filepath.Glob(filepath.Join(os.TempDir(), "ads-*.csv"))
	assert.ElementsMatch(t, before, after)
}

func TestRunDownloadFailureIs502(t *testing.T) {
	srv, _ := newServer(t, "")
	files := csvServer(t)
	resp := post(t, srv.URL+"/run", "", runRequest{Client: "x", Q: "oi", GoogleCSVURL: files.URL + "/missing.csv"})
	assert.Equal(t, 502, resp.StatusCode)
	var out runResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.OK)
	assert.Contains(t, out.Error, "404")
}

func TestKPIs(t *testing.T) {
	srv, _ := newServer(t, "")
	files := csvServer(t)
	resp := post(t, srv.URL+"/kpis", "", runRequest{Client: "Start TI", GoogleCSVURL: files.URL + "/google.csv"})
	require.Equal(t, 200, resp.StatusCode)
	var out struct {
		Rows []map[string]any `json:"rows"`
		Text string           `json:"text"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "2024-01", out.Rows[0]["period"])
	assert.Contains(t, out.Text, "2024-01 | Google Ads: custo=R$ 50,00")

	resp = post(t, srv.URL+"/kpis", "", runRequest{Client: "Start TI"})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestReportNotFound(t *testing.T) {
	srv, _ := newServer(t, "")
	resp, err := http.Get(srv.URL + "/reports/nobody")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestIngestRunWithoutDrive(t *testing.T) {
	srv, _ := newServer(t, "")
	resp := post(t, srv.URL+"/ingest/run?client=Acme", "", nil)
	assert.Equal(t, 503, resp.StatusCode)
	resp = post(t, srv.URL+"/ingest/run", "", nil)
	assert.Equal(t, 400, resp.StatusCode)
}
