package drive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/utils"
)

const rulesYAML = `
naming:
  weekly:
    tokens: [Weekly, Report]
    mimeTypes: [application/vnd.google-apps.document]
    folder_names: [Weekly, Relatórios]
synonyms:
  weekly: [semanal]
`

type fakeLister struct {
	queries []string
	answer  func(q string) []File
}

func (f *fakeLister) List(_ context.Context, q string, _ int) ([]File, error) {
	f.queries = append(f.queries, q)
	if f.answer == nil {
		return nil, nil
	}
	return f.answer(q), nil
}

func rules(t *testing.T) Rules {
	r, err := ParseRules([]byte(rulesYAML))
	require.NoError(t, err)
	return r
}

func TestParseRulesJSON(t *testing.T) {
	r, err := ParseRules([]byte(`{"naming":{"daily":{"tokens":["Daily"],"mimeTypes":[],"folder_names":[]}},"synonyms":{"checkin":["check-in"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Daily"}, r.Naming["daily"].Tokens)
	assert.Equal(t, []string{"checkin", "daily"}, r.Types())
}

func TestSearchOfficialNameFirst(t *testing.T) {
	l := &fakeLister{answer: func(string) []File { return []File{{ID: "1", Name: "Start TI Weekly Report"}} }}
	files, err := SearchPasses(context.Background(), l, "Start TI", "weekly", rules(t), 25)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []string{
		"(mimeType = 'application/vnd.google-apps.document') and name contains 'Start TI' and name contains 'Weekly' and name contains 'Report' and trashed=false",
	}, l.queries)
}

func TestSearchFallsThroughToFullText(t *testing.T) {
	l := &fakeLister{answer: func(q string) []File {
		if strings.Contains(q, "fullText") {
			return []File{{ID: "9"}}
		}
		return nil
	}}
	files, err := SearchPasses(context.Background(), l, "Start TI", "weekly", rules(t), 25)
	require.NoError(t, err)
	assert.Equal(t, "9", files[0].ID)
	require.Len(t, l.queries, 6)
	mq := "(mimeType = 'application/vnd.google-apps.document') and "
	assert.Equal(t, mq+"name contains 'Start TI' and (name contains 'Weekly' or name contains 'Report') and trashed=false", l.queries[1])
	assert.Equal(t, "mimeType = 'application/vnd.google-apps.folder' and name contains 'Weekly' and trashed=false", l.queries[2])
	assert.Equal(t, mq+"name contains 'Start TI' and (name contains 'semanal') and trashed=false", l.queries[4])
	assert.Equal(t, mq+"name contains 'Start TI' and (fullText contains 'Weekly' or fullText contains 'Report') and trashed=false", l.queries[5])
}

func TestSearchPreferredFolders(t *testing.T) {
	l := &fakeLister{answer: func(q string) []File {
		switch {
		case strings.HasPrefix(q, "mimeType = '"+FolderMime):
			return []File{{ID: "F1"}}
		case strings.Contains(q, "'F1' in parents"):
			return []File{{ID: "42"}}
		}
		return nil
	}}
	files, err := SearchPasses(context.Background(), l, "Start TI", "weekly", rules(t), 25)
	require.NoError(t, err)
	assert.Equal(t, "42", files[0].ID)
	last := l.queries[len(l.queries)-1]
	assert.Equal(t, "(mimeType = 'application/vnd.google-apps.document') and ('F1' in parents) and name contains 'Start TI' and (name contains 'Weekly' or name contains 'Report') and trashed=false", last)
}

func TestSearchUnknownTypeUsesTypeAsTerm(t *testing.T) {
	l := &fakeLister{}
	files, err := SearchPasses(context.Background(), l, "D'Ávila", "daily", Rules{}, 5)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, []string{
		`name contains 'D\'Ávila' and trashed=false`,
		`name contains 'D\'Ávila' and (fullText contains 'daily') and trashed=false`,
	}, l.queries)
}

type fakeExporter struct {
	file     File
	exported string
	download bool
}

func (f *fakeExporter) Get(context.Context, string) (File, error) { return f.file, nil }

func (f *fakeExporter) Export(_ context.Context, _ string, m string) ([]byte, error) {
	f.exported = m
	return []byte("x"), nil
}

func (f *fakeExporter) Download(context.Context, string) ([]byte, error) {
	f.download = true
	return []byte("y"), nil
}

func TestExportKinds(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExporter{}

	_, ext, err := Export(ctx, ex, File{MimeType: nativePrefix + "spreadsheet"}, "txt")
	require.NoError(t, err)
	assert.Equal(t, "csv", ext)
	assert.Equal(t, "text/csv", ex.exported)

	_, ext, err = Export(ctx, ex, File{MimeType: nativePrefix + "document"}, "txt")
	require.NoError(t, err)
	assert.Equal(t, "txt", ext)
	assert.Equal(t, "text/plain", ex.exported)

	_, ext, err = Export(ctx, ex, File{MimeType: nativePrefix + "presentation"}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf", ext)

	_, _, err = Export(ctx, ex, File{MimeType: nativePrefix + "document"}, "docx")
	assert.ErrorIs(t, err, ErrBadKind)

	b, ext, err := Export(ctx, ex, File{MimeType: "application/pdf"}, "txt")
	require.NoError(t, err)
	assert.True(t, ex.download)
	assert.Equal(t, "y", string(b))
	assert.Equal(t, "pdf", ext)

	_, ext, _ = Export(ctx, ex, File{MimeType: "application/x-zz-unknown"}, "txt")
	assert.Equal(t, "bin", ext)
}

func TestDownloadByID(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExporter{file: File{Name: "Plano: Q3?", MimeType: nativePrefix + "spreadsheet"}}
	_, name, err := DownloadByID(ctx, ex, "id")
	require.NoError(t, err)
	assert.Equal(t, "Plano Q3.xlsx", name)

	ex = &fakeExporter{file: File{Name: "Form", MimeType: nativePrefix + "form"}}
	_, name, _ = DownloadByID(ctx, ex, "id")
	assert.Equal(t, "Form.pdf", name)
	assert.Equal(t, "application/pdf", ex.exported)

	ex = &fakeExporter{file: File{Name: "blob", MimeType: "application/x-zz-unknown"}}
	_, name, _ = DownloadByID(ctx, ex, "id")
	assert.Equal(t, "blob", name)
	assert.True(t, ex.download)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b c", Sanitize(`a<b>:"c`))
	assert.Equal(t, "Relatório semanal", Sanitize("  Relatório \t semanal. "))
	assert.Equal(t, "_con", Sanitize("con"))
	assert.Len(t, []rune(Sanitize(strings.Repeat("é", 200))), 120)
	assert.Equal(t, "data/raw/Start TI weekly.txt", OutputPath("", "Start TI/weekly", "txt"))
	assert.Equal(t, "data/downloads/deck.pdf", OutputPath("", "deck", "pdf"))
}

func testService(t *testing.T, h http.HandlerFunc) *Service {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := NewServiceWithOptions(context.Background(), utils.NewBackoff(time.Millisecond, 2),
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)
	return s
}

func TestServiceListAndExport(t *testing.T) {
	var q string
	s := testService(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/export") {
			w.Write([]byte("conteudo"))
			return
		}
		q = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"files":[{"id":"1","name":"Start TI Weekly","mimeType":"application/vnd.google-apps.document","modifiedTime":"2024-05-01T10:00:00Z"}]}`))
	})
	ctx := context.Background()
	files, err := s.List(ctx, "name contains 'x'", 5)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "name contains 'x'", q)
	assert.Equal(t, File{ID: "1", Name: "Start TI Weekly", MimeType: nativePrefix + "document", ModifiedTime: "2024-05-01T10:00:00Z"}, files[0])

	b, ext, err := Export(ctx, s, files[0], "txt")
	require.NoError(t, err)
	assert.Equal(t, "txt", ext)
	assert.Equal(t, "conteudo", string(b))
}

func TestServiceDoesNotRetry404(t *testing.T) {
	var calls atomic.Int32
	s := testService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
	})
	_, err := s.List(context.Background(), "x", 1)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}
