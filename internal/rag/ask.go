package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/store"
)

const (
	DefaultK  = 4
	noContext = "[sem contexto]"
)

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Asker struct {
	Store      store.VectorStore
	Embedder   Embedder
	Generator  Generator
	Collection string
}

func NewAsker(s store.VectorStore, e Embedder, g Generator) *Asker {
	return &Asker{Store: s, Embedder: e, Generator: g, Collection: Collection}
}

// Ask answers q from the k nearest chunks and appends the cited sources.
func (a *Asker) Ask(ctx context.Context, q string, k int) (string, error) {
	if k <= 0 {
		k = DefaultK
	}
	v, err := a.Embedder.EmbedQuery(ctx, q)
	if err != nil {
		return "", err
	}
	hits, err := a.Store.Query(ctx, a.Collection, v, k)
	if err != nil {
		return "", fmt.Errorf("query %s: %w", a.Collection, err)
	}
	ans, err := a.Generator.Generate(ctx, Prompt(q, hits))
	if err != nil {
		return "", err
	}
	if len(hits) > 0 {
		ans += "\n\nFontes: " + strings.Join(cites(hits), " | ")
	}
	return ans, nil
}

// Prompt is the grounded instruction sent to the model.
func Prompt(q string, hits []store.Hit) string {
	ctx := noContext
	if len(hits) > 0 {
		blocks := make([]string, len(hits))
		for i, h := range hits {
			blocks[i] = cite(h) + "\n" + h.Text + "\n"
		}
		ctx = strings.Join(blocks, "\n\n")
	}
	return "Responda de forma objetiva usando apenas o contexto abaixo. \n" +
		"Se a resposta não estiver no contexto, diga que não há informação suficiente.\n" +
		"Mostre no final as fontes entre colchetes.\n\n" +
		"Contexto:\n" + ctx + "\n\n" +
		"Pergunta:\n" + q + "\n\n" +
		"Responda:"
}

func cite(h store.Hit) string {
	return fmt.Sprintf("[%s | chunk %d]", filepath.Base(h.Source), h.Chunk)
}

func cites(hits []store.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = cite(h)
	}
	return out
}
