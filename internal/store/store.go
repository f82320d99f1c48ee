// Package store keeps embedded text chunks and answers nearest-neighbour
// queries by cosine similarity.
package store

import (
	"context"
	"math"
	"sort"
)

// Document is one chunk of an ingested file.
type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Chunk     int       `json:"chunk"`
	Embedding []float32 `json:"-"`
}

type Hit struct {
	Document
	Score float64 `json:"score"`
}

// VectorStore is implemented by MemoryStore and SQLiteStore.
// Add ignores documents whose ID is already in the collection.
type VectorStore interface {
	Reset(ctx context.Context, collection string) error
	Add(ctx context.Context, collection string, docs []Document) error
	Query(ctx context.Context, collection string, vector []float32, k int) ([]Hit, error)
	Close() error
}

// Cosine returns 0 for mismatched or zero vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// topK scores docs against v, best first, ties kept in insertion order.
func topK(docs []Document, v []float32, k int) []Hit {
	hits := make([]Hit, 0, len(docs))
	for _, d := range docs {
		hits = append(hits, Hit{Document: d, Score: Cosine(d.Embedding, v)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
