package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/metrics"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/normalize"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/report"
)

type SheetResult struct {
	Rows     []models.AggregateRow
	Total    models.AggregateRow
	Summary  string
	CSVPath  string
	TextPath string
}

// AnalyzeSheet summarizes a row-per-record sheet by month. Sheets without a
// date column fall into the "sem_data" period.
func (p *Pipeline) AnalyzeSheet(path, sheet string) (SheetResult, error) {
	t, err := loadTable(path, sheet)
	if err != nil {
		return SheetResult{}, err
	}
	recs, err := normalize.NormalizeUndated(t, "", p.Schema, p.Locale)
	if err != nil {
		return SheetResult{}, err
	}
	base := baseName(path)
	return p.summarize(recs, "metrics_summary.csv", base+"_kpis.txt", "POR MÊS")
}

// AnalyzeMatrix summarizes a metric-per-row sheet such as "BD MENSAL".
func (p *Pipeline) AnalyzeMatrix(path, sheet string) (SheetResult, error) {
	t, err := loadTable(path, sheet)
	if err != nil {
		return SheetResult{}, err
	}
	recs, err := normalize.NormalizeMatrix(t, "", p.Schema, p.Locale)
	if err != nil {
		return SheetResult{}, err
	}
	name := baseName(path)
	if sheet != "" {
		name += "_" + sheet
	}
	return p.summarize(recs, "metrics_summary_matrix.csv", name+"_kpis.txt", "POR PERÍODO")
}

func (p *Pipeline) summarize(recs []models.CanonicalRecord, csvName, txtName, section string) (SheetResult, error) {
	if len(recs) == 0 {
		return SheetResult{}, ErrNothingToConsolidate
	}
	rows := metrics.Aggregate(recs, metrics.GroupBy{})
	total := metrics.Totals(rows)
	table, _, err := report.Render(rows, "")
	if err != nil {
		return SheetResult{}, err
	}
	res := SheetResult{
		Rows:     rows,
		Total:    total,
		Summary:  report.RenderSummary(total),
		CSVPath:  p.path("data", "derived", csvName),
		TextPath: p.path("data", "raw", txtName),
	}
	if err := writeFile(res.CSVPath, table); err != nil {
		return SheetResult{}, err
	}
	text := fmt.Sprintf("%s\n\n%s\n%s", res.Summary, section, table)
	if err := writeFile(res.TextPath, []byte(text)); err != nil {
		return SheetResult{}, err
	}
	return res, nil
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
