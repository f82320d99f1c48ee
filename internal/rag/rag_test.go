package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/store"
)

var vocab = []string{"gasto", "leads", "planejamento", "ctr"}

// wordEmbedder maps a text to keyword counts.
type wordEmbedder struct{ calls int }

func (w *wordEmbedder) vec(s string) []float32 {
	s = strings.ToLower(s)
	v := make([]float32, len(vocab))
	for i, k := range vocab {
		v[i] = float32(strings.Count(s, k))
	}
	return v
}

func (w *wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	w.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = w.vec(t)
	}
	return out, nil
}

func (w *wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return w.vec(text), nil
}

type recordingGen struct {
	prompt string
	err    error
}

func (g *recordingGen) Generate(_ context.Context, p string) (string, error) {
	g.prompt = p
	return "resposta", g.err
}

func TestChunkSingle(t *testing.T) {
	assert.Equal(t, []string{"a\n\nb"}, Chunk("a\n\nb\n", 1200, 150))
	assert.Empty(t, Chunk("", 1200, 150))
	assert.Empty(t, Chunk(" \n\n \n\n", 1200, 150))
}

func TestChunkPackingAndOverlap(t *testing.T) {
	a, b, c := strings.Repeat("a", 10), strings.Repeat("b", 10), strings.Repeat("c", 10)
	text := a + "\n\n" + b + "\n\n" + c

	assert.Equal(t, []string{a + "\n\n" + b, c}, Chunk(text, 25, 0))
	assert.Equal(t, []string{a + "\n\n" + b, "bbbbb\n" + c}, Chunk(text, 25, 5))
}

func TestChunkLongParagraphStaysWhole(t *testing.T) {
	long := strings.Repeat("x", 50)
	parts := Chunk("curto\n\n"+long, 20, 0)
	assert.Equal(t, []string{"curto", long}, parts)
}

func TestChunkOverlapCountsRunes(t *testing.T) {
	text := "ação ação\n\nmídia"
	parts := Chunk(text, 12, 3)
	require.Len(t, parts, 2)
	assert.Equal(t, "ção\nmídia", parts[1])
}

func writeDocs(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_weekly.txt"), []byte("Planejamento do trimestre.\n\nFoco em leads."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_kpis.txt"), []byte("Gasto total R$ 375,00 e CTR 10%."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))
	return dir
}

func TestIngestDir(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	emb := &wordEmbedder{}
	x := NewIndexer(st, emb, nil)
	dir := writeDocs(t)

	stats, err := x.IngestDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, IngestStats{Files: 2, Chunks: 2}, stats)

	// rebuilding replaces the collection
	_, err = x.IngestDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count(Collection))

	hits, err := st.Query(ctx, Collection, emb.vec("gasto"), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a_kpis::chunk-000", hits[0].ID)
	assert.Equal(t, filepath.Join(dir, "a_kpis.txt"), hits[0].Source)
}

type failingEmbedder struct {
	wordEmbedder
	err error
}

func (f *failingEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, f.err
}

func TestIngestKeepsCollectionWhenEmbeddingFails(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	emb := &wordEmbedder{}
	dir := writeDocs(t)
	_, err := NewIndexer(st, emb, nil).IngestDir(ctx, dir)
	require.NoError(t, err)

	quota := errors.New("quota")
	_, err = NewIndexer(st, &failingEmbedder{err: quota}, nil).IngestDir(ctx, dir)
	assert.ErrorIs(t, err, quota)

	assert.Equal(t, 2, st.Count(Collection))
	hits, err := st.Query(ctx, Collection, emb.vec("gasto"), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a_kpis::chunk-000", hits[0].ID)
}

func TestIngestEmptyDir(t *testing.T) {
	emb := &wordEmbedder{}
	stats, err := NewIndexer(store.NewMemoryStore(), emb, nil).IngestDir(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, stats.Chunks)
	assert.Zero(t, emb.calls)
}

func TestAskCitesSources(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	emb := &wordEmbedder{}
	_, err := NewIndexer(st, emb, nil).IngestDir(ctx, writeDocs(t))
	require.NoError(t, err)

	gen := &recordingGen{}
	ans, err := NewAsker(st, emb, gen).Ask(ctx, "Qual o gasto?", 1)
	require.NoError(t, err)
	assert.Equal(t, "resposta\n\nFontes: [a_kpis.txt | chunk 0]", ans)
	assert.Contains(t, gen.prompt, "Contexto:\n[a_kpis.txt | chunk 0]\nGasto total R$ 375,00 e CTR 10%.\n")
	assert.True(t, strings.HasSuffix(gen.prompt, "Pergunta:\nQual o gasto?\n\nResponda:"))
}

func TestAskWithoutContext(t *testing.T) {
	gen := &recordingGen{}
	ans, err := NewAsker(store.NewMemoryStore(), &wordEmbedder{}, gen).Ask(context.Background(), "Oi?", 0)
	require.NoError(t, err)
	assert.Equal(t, "resposta", ans)
	assert.Contains(t, gen.prompt, "Contexto:\n[sem contexto]\n")
}

func TestAskPropagatesModelError(t *testing.T) {
	boom := errors.New("quota")
	_, err := NewAsker(store.NewMemoryStore(), &wordEmbedder{}, &recordingGen{err: boom}).Ask(context.Background(), "x", 1)
	assert.ErrorIs(t, err, boom)
}
