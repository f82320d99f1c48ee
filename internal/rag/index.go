package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/store"
)

// Collection is the shared knowledge base every run rebuilds.
const Collection = "workspace_knowledge"

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Indexer struct {
	Store      store.VectorStore
	Embedder   Embedder
	Collection string
	Size       int
	Overlap    int
	Log        *slog.Logger
}

type IngestStats struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
}

func NewIndexer(s store.VectorStore, e Embedder, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		Store:      s,
		Embedder:   e,
		Collection: Collection,
		Size:       DefaultChunkSize,
		Overlap:    DefaultChunkOverlap,
		Log:        log,
	}
}

// IngestDir replaces the collection with the chunks of every *.txt in dir.
// Chunk ids are "<file base>::chunk-NNN".
func (x *Indexer) IngestDir(ctx context.Context, dir string) (IngestStats, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return IngestStats{}, err
	}
	sort.Strings(paths)

	var docs []store.Document
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return IngestStats{}, err
		}
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		for i, ck := range Chunk(strings.ToValidUTF8(string(b), ""), x.Size, x.Overlap) {
			docs = append(docs, store.Document{
				ID:     fmt.Sprintf("%s::chunk-%03d", base, i),
				Text:   ck,
				Source: p,
				Chunk:  i,
			})
		}
	}

	st := IngestStats{Files: len(paths), Chunks: len(docs)}
	if len(docs) > 0 {
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Text
		}
		vecs, err := x.Embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return IngestStats{}, fmt.Errorf("embed %s: %w", x.Collection, err)
		}
		for i := range docs {
			docs[i].Embedding = vecs[i]
		}
	}

	// The old collection survives until every chunk has a vector.
	if err := x.Store.Reset(ctx, x.Collection); err != nil {
		return IngestStats{}, fmt.Errorf("reset %s: %w", x.Collection, err)
	}
	if len(docs) == 0 {
		x.Log.Info("nothing to ingest", slog.String("dir", dir))
		return st, nil
	}
	if err := x.Store.Add(ctx, x.Collection, docs); err != nil {
		return IngestStats{}, fmt.Errorf("add %s: %w", x.Collection, err)
	}
	x.Log.Info("ingested", slog.Int("files", st.Files), slog.Int("chunks", st.Chunks))
	return st, nil
}
