// Package pipeline wires the loaders, normalizer, Drive search, retrieval
// and report writer into the client runs.
package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/drive"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/normalize"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/rag"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/utils"
)

var (
	ErrNotConfigured        = errors.New("not configured")
	ErrNoInput              = errors.New("informe ao menos um CSV (google ou meta)")
	ErrNothingToConsolidate = errors.New("nada para consolidar, verifique os CSVs")
	ErrEmptyQuestion        = errors.New("empty prompt")
)

// keepLogs is how many run logs survive a new run.
const keepLogs = 10

// Drive is the subset of the Drive API a run needs.
type Drive interface {
	drive.Lister
	drive.Exporter
}

type Pipeline struct {
	Root      string
	Schema    normalize.Schema
	Locale    normalize.Locale
	RulesPath string
	Drive     Drive
	Indexer   *rag.Indexer
	Asker     *rag.Asker
	Sink      *Sink
	Tel       *utils.Telemetry
	Log       *slog.Logger
	Now       func() time.Time
}

func (p *Pipeline) path(elem ...string) string {
	return filepath.Join(append([]string{p.Root}, elem...)...)
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Slugify turns a client name into a directory-safe key ("Start TI" ->
// "start_ti"). Empty results become "cliente".
func Slugify(name string) string {
	s := strings.ToLower(strings.Trim(nonWord.ReplaceAllString(name, "_"), "_"))
	if s == "" {
		return "cliente"
	}
	return s
}

// cleanOldLogs keeps the newest keep files matching pattern.
func cleanOldLogs(pattern string, keep int) {
	files, _ := filepath.Glob(pattern)
	type entry struct {
		path string
		mod  time.Time
	}
	es := make([]entry, 0, len(files))
	for _, f := range files {
		if st, err := os.Stat(f); err == nil {
			es = append(es, entry{f, st.ModTime()})
		}
	}
	sort.Slice(es, func(i, j int) bool { return es[i].mod.After(es[j].mod) })
	for i := keep; i < len(es); i++ {
		os.Remove(es[i].path)
	}
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
