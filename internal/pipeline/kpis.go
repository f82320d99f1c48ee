package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/ingest"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/metrics"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/normalize"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/report"
)

const (
	SourceGoogle = "Google Ads"
	SourceMeta   = "Meta Ads"
)

type KPIRequest struct {
	Client    string
	GoogleCSV string
	MetaCSV   string
}

type KPIResult struct {
	Rows     []models.AggregateRow `json:"-"`
	KPIs     []models.KPIRow       `json:"rows"`
	Text     string                `json:"text"`
	CSVPath  string                `json:"csv_path"`
	TextPath string                `json:"text_path"`
}

// KPITextPath is where the KPI text for client lands so ingestion picks it up.
func (p *Pipeline) KPITextPath(client string) string {
	return p.path("data", "raw", "ads_kpis_"+Slugify(client)+".txt")
}

// BuildKPIs consolidates the Google and Meta exports by month and vendor
// and writes the derived table and the text for retrieval.
func (p *Pipeline) BuildKPIs(ctx context.Context, req KPIRequest) (KPIResult, error) {
	if req.GoogleCSV == "" && req.MetaCSV == "" {
		return KPIResult{}, ErrNoInput
	}
	var recs []models.CanonicalRecord
	for _, in := range []struct{ path, source string }{
		{req.GoogleCSV, SourceGoogle},
		{req.MetaCSV, SourceMeta},
	} {
		if in.path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return KPIResult{}, err
		}
		t, err := loadTable(in.path, "")
		if err != nil {
			return KPIResult{}, fmt.Errorf("[%s] %w", in.source, err)
		}
		rs, err := normalize.Normalize(t, in.source, p.Schema, p.Locale)
		if err != nil {
			return KPIResult{}, err
		}
		p.log().Debug("normalized", slog.String("source", in.source), slog.Int("records", len(rs)))
		recs = append(recs, rs...)
	}
	if len(recs) == 0 {
		return KPIResult{}, ErrNothingToConsolidate
	}

	rows := metrics.Aggregate(recs, metrics.GroupBy{Source: true})
	table, text, err := report.Render(rows, req.Client)
	if err != nil {
		return KPIResult{}, err
	}
	res := KPIResult{
		Rows:     rows,
		KPIs:     metrics.ToKPIRows(rows),
		Text:     text,
		CSVPath:  p.path("data", "derived", "ads_kpis_"+Slugify(req.Client)+".csv"),
		TextPath: p.KPITextPath(req.Client),
	}
	if err := writeFile(res.CSVPath, table); err != nil {
		return KPIResult{}, err
	}
	if err := writeFile(res.TextPath, []byte(text)); err != nil {
		return KPIResult{}, err
	}
	if p.Tel != nil {
		p.Tel.KPIRows.Add(float64(len(rows)))
	}
	p.log().Info("kpis built", slog.String("client", req.Client), slog.Int("rows", len(rows)), slog.String("csv", res.CSVPath))
	return res, nil
}

// loadTable reads xlsx workbooks with excelize and anything else as CSV.
func loadTable(path, sheet string) (models.RawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ingest.ReadXLSX(path, sheet)
	}
	return ingest.ReadCSVFile(path)
}
