package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	source TEXT NOT NULL,
	chunk INTEGER NOT NULL,
	content TEXT NOT NULL,
	embedding BLOB,
	PRIMARY KEY (collection, id)
);`

// SQLiteStore persists chunks in a single table. Similarity is computed in
// Go over the whole collection.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

func OpenSQLite(path string, log *slog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		log.Warn("sqlite wal", slog.Any("err", err))
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		log.Warn("sqlite synchronous", slog.Any("err", err))
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chunks: %w", err)
	}
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Reset(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE collection = ?", name)
	return err
}

func (s *SQLiteStore) Add(ctx context.Context, name string, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO chunks (collection, id, source, chunk, content, embedding) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, name, d.ID, d.Source, d.Chunk, d.Text, encodeVector(d.Embedding)); err != nil {
			return fmt.Errorf("insert %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Query(ctx context.Context, name string, v []float32, k int) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, source, chunk, content, embedding FROM chunks WHERE collection = ? ORDER BY rowid", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var d Document
		var blob []byte
		if err := rows.Scan(&d.ID, &d.Source, &d.Chunk, &d.Text, &blob); err != nil {
			return nil, err
		}
		d.Embedding = decodeVector(blob)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topK(docs, v, k), nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
