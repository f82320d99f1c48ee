package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/drive"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/report"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/utils"
)

type RunRequest struct {
	Client    string `json:"client"`
	Question  string `json:"q"`
	Type      string `json:"type,omitempty"`
	Take      int    `json:"take,omitempty"`
	Rules     string `json:"rules,omitempty"`
	GoogleCSV string `json:"-"`
	MetaCSV   string `json:"-"`
}

type RunResult struct {
	Client     string       `json:"client"`
	TypeUsed   string       `json:"type_used"`
	Fallback   bool         `json:"fallback"`
	Files      []drive.File `json:"files,omitempty"`
	ReportPath string       `json:"report_path"`
	LatestPath string       `json:"latest_path"`
	LogPath    string       `json:"log_path"`
	Markdown   string       `json:"markdown"`
	KPIs       *KPIResult   `json:"kpis,omitempty"`
}

// Run answers one client question end to end: optional KPI build, Drive
// search and export, ingestion, grounded answer and the Markdown report.
// Chat questions skip the search, and a failed search or ingestion falls
// back to chat.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (res RunResult, err error) {
	q := strings.TrimSpace(req.Question)
	if q == "" {
		return RunResult{}, ErrEmptyQuestion
	}
	start := p.now()
	slug := Slugify(req.Client)
	res = RunResult{Client: slug}

	logf, log, err := p.openRunLog(start)
	if err != nil {
		return RunResult{}, err
	}
	defer logf.Close()
	res.LogPath = logf.Name()
	log = log.With(slog.String("client", req.Client))
	log.Info("pipeline start")
	defer func() {
		status := "ok"
		switch {
		case err != nil:
			status = "error"
			log.Error("pipeline failed", slog.Any("err", err))
		case res.Fallback:
			status = "fallback"
		}
		if p.Tel != nil {
			p.Tel.Runs.WithLabelValues(status).Inc()
			p.Tel.RunDuration.Observe(time.Since(start).Seconds())
		}
		log.Info("pipeline end", slog.String("status", status))
	}()

	if req.GoogleCSV != "" || req.MetaCSV != "" {
		kpis, err := p.BuildKPIs(ctx, KPIRequest{Client: req.Client, GoogleCSV: req.GoogleCSV, MetaCSV: req.MetaCSV})
		if err != nil {
			return res, err
		}
		res.KPIs = &kpis
		if p.Sink != nil && p.Sink.Configured() {
			if n, err := p.Sink.Export(ctx, kpis.KPIs); err != nil {
				log.Warn("sink export failed", slog.Any("err", err))
			} else {
				log.Info("sink export", slog.Int("rows", n))
			}
		}
	}

	docType := strings.ToLower(strings.TrimSpace(req.Type))
	if docType == "" {
		docType = DetectType(q)
	}
	res.TypeUsed = docType
	log.Info("router", slog.String("type", docType))

	prompt := q
	if docType != TypeChat {
		files, err := p.Refresh(ctx, req.Client, docType, req.Rules, log)
		if req.Take > 0 && len(files) > req.Take {
			files = files[:req.Take]
		}
		res.Files = files
		if err != nil {
			log.Warn("search/ingest failed, falling back to chat", slog.Any("err", err))
			res.Fallback = true
		} else {
			_, statErr := os.Stat(p.KPITextPath(req.Client))
			prompt = Augment(q, statErr == nil || WantsAds(q))
		}
	}

	if p.Asker == nil {
		return res, fmt.Errorf("asker: %w", ErrNotConfigured)
	}
	body, err := p.Asker.Ask(ctx, prompt, 0)
	if err != nil {
		return res, err
	}
	res.Markdown = report.BuildMarkdown(prompt, body, p.now())
	res.ReportPath, res.LatestPath, err = p.writeReport(slug, res.Markdown, start)
	if err != nil {
		return res, err
	}
	log.Info("report saved", slog.String("path", res.ReportPath))
	return res, nil
}

// Refresh searches Drive for the newest deliverable of docType, exports it
// as text under data/raw and rebuilds the knowledge base.
func (p *Pipeline) Refresh(ctx context.Context, client, docType, rulesPath string, log *slog.Logger) ([]drive.File, error) {
	if p.Drive == nil {
		return nil, fmt.Errorf("drive: %w", ErrNotConfigured)
	}
	if p.Indexer == nil {
		return nil, fmt.Errorf("indexer: %w", ErrNotConfigured)
	}
	if rulesPath == "" {
		rulesPath = p.RulesPath
	}
	rules, err := drive.LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}
	files, err := drive.SearchPasses(ctx, p.Drive, client, docType, rules, 25)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn("nothing found with the rules", slog.String("type", docType))
	} else {
		f := files[0]
		b, ext, err := drive.Export(ctx, p.Drive, f, "txt")
		if err != nil {
			return files, fmt.Errorf("export %s: %w", f.ID, err)
		}
		out := drive.OutputPath(p.Root, f.Name, ext)
		if err := writeFile(out, b); err != nil {
			return files, err
		}
		log.Info("exported", slog.String("file", f.Name), slog.String("path", out))
	}
	st, err := p.Indexer.IngestDir(ctx, p.path("data", "raw"))
	if err != nil {
		return files, fmt.Errorf("ingest: %w", err)
	}
	if p.Tel != nil {
		p.Tel.Chunks.Add(float64(st.Chunks))
	}
	return files, nil
}

// UpdateIngestion exports the newest file of every doc type for client and
// then rebuilds the knowledge base once.
func (p *Pipeline) UpdateIngestion(ctx context.Context, client string) error {
	if p.Drive == nil {
		return fmt.Errorf("drive: %w", ErrNotConfigured)
	}
	rules, err := drive.LoadRules(p.RulesPath)
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range drive.DocTypes {
		files, err := drive.SearchPasses(ctx, p.Drive, client, t, rules, 25)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		if len(files) == 0 {
			continue
		}
		b, ext, err := drive.Export(ctx, p.Drive, files[0], "txt")
		if err == nil {
			err = writeFile(drive.OutputPath(p.Root, files[0].Name, ext), b)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	if p.Indexer == nil {
		return fmt.Errorf("indexer: %w", ErrNotConfigured)
	}
	st, err := p.Indexer.IngestDir(ctx, p.path("data", "raw"))
	if err == nil && p.Tel != nil {
		p.Tel.Chunks.Add(float64(st.Chunks))
	}
	return err
}

func (p *Pipeline) openRunLog(ts time.Time) (*os.File, *slog.Logger, error) {
	dir := p.path("logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	cleanOldLogs(filepath.Join(dir, "run-*.log"), keepLogs-1)
	f, err := os.Create(filepath.Join(dir, "run-"+ts.Format("20060102-150405")+".log"))
	if err != nil {
		return nil, nil, err
	}
	h := utils.Tee(p.log().Handler(), slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return f, slog.New(h), nil
}

// writeReport saves the timestamped report and refreshes relatorio.md.
func (p *Pipeline) writeReport(slug, md string, ts time.Time) (string, string, error) {
	dir := p.path("reports", slug)
	stamped := filepath.Join(dir, "relatorio-"+ts.Format("20060102-1504")+".md")
	latest := filepath.Join(dir, "relatorio.md")
	if err := writeFile(stamped, []byte(md)); err != nil {
		return "", "", err
	}
	if err := writeFile(latest, []byte(md)); err != nil {
		p.log().Warn("copy latest failed", slog.Any("err", err))
	}
	return stamped, latest, nil
}

// LatestReport returns the newest Markdown report of a client slug.
func (p *Pipeline) LatestReport(slug string) (string, string, error) {
	files, err := filepath.Glob(p.path("reports", slug, "*.md"))
	if err != nil || len(files) == 0 {
		return "", "", err
	}
	var newest string
	var mod time.Time
	for _, f := range files {
		st, err := os.Stat(f)
		if err == nil && (newest == "" || st.ModTime().After(mod)) {
			newest, mod = f, st.ModTime()
		}
	}
	b, err := os.ReadFile(newest)
	return newest, string(b), err
}
