// Package report turns aggregated KPI rows into the flat CSV table, the
// pt-BR text block indexed for retrieval, and the Markdown executive report.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/metrics"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

// Dash stands for a missing value in text output.
const Dash = "-"

var csvNames = map[models.Metric]string{
	models.CTRPercent: "ctr_%",
	models.CPC:        "cpc",
	models.CPAOrCPL:   "cpa",
	models.ROAS:       "roas",
}

// FormatBR renders v with places decimals, "." grouping thousands and ","
// as decimal mark. Rounding is half away from zero.
func FormatBR(v models.Value, places int) string {
	if !v.Valid {
		return Dash
	}
	s := decimal.NewFromFloat(v.V).StringFixed(int32(places))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// Render produces the flat table (one row per group) and the text block
// (one line per group) for client.
func Render(rows []models.AggregateRow, client string) ([]byte, string, error) {
	table, err := renderCSV(rows)
	if err != nil {
		return nil, "", err
	}
	return table, renderText(rows, client), nil
}

func bySource(rows []models.AggregateRow) bool {
	for _, r := range rows {
		if r.Key.Source != "" {
			return true
		}
	}
	return false
}

func derivedColumns(rows []models.AggregateRow) []models.Metric {
	cols := []models.Metric{models.CTRPercent, models.CPC, models.CPAOrCPL}
	for _, r := range rows {
		if r.Derived[models.ROAS].Valid {
			return append(cols, models.ROAS)
		}
	}
	return cols
}

func renderCSV(rows []models.AggregateRow) ([]byte, error) {
	withSource := bySource(rows)
	raw := metrics.Present(rows)
	derived := derivedColumns(rows)

	header := []string{"month"}
	if withSource {
		header = append(header, "vendor")
	}
	for _, m := range raw {
		header = append(header, string(m))
	}
	for _, m := range derived {
		header = append(header, csvNames[m])
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{r.Key.Period}
		if withSource {
			rec = append(rec, r.Key.Source)
		}
		for _, m := range raw {
			rec = append(rec, plain(r.Get(m)))
		}
		for _, m := range derived {
			rec = append(rec, plain(r.Get(m)))
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func plain(v models.Value) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.V, 'f', -1, 64)
}

func renderText(rows []models.AggregateRow, client string) string {
	lines := []string{
		fmt.Sprintf("KPIs de mídia - %s", client),
		"- Valores consolidados por mês e plataforma (Google/Meta).",
	}
	for _, r := range rows {
		lines = append(lines, textLine(r))
	}
	return strings.Join(lines, "\n")
}

func textLine(r models.AggregateRow) string {
	key := r.Key.Period
	if r.Key.Source != "" {
		key += " | " + r.Key.Source
	}
	parts := []string{
		"custo=R$ " + FormatBR(r.Get(models.Cost), 2),
		"impr=" + FormatBR(r.Get(models.Impressions), 0),
		"cliques=" + FormatBR(r.Get(models.Clicks), 0),
		"conv=" + FormatBR(r.Get(models.Conversions), 0),
	}
	if v := r.Get(models.Leads); v.Valid {
		parts = append(parts, "leads="+FormatBR(v, 0))
	}
	cpa := "CPA"
	if !r.Get(models.Conversions).Valid && r.Get(models.Leads).Valid {
		cpa = "CPL"
	}
	parts = append(parts,
		"CTR="+FormatBR(r.Get(models.CTRPercent), 2)+"%",
		"CPC=R$ "+FormatBR(r.Get(models.CPC), 2),
		cpa+"=R$ "+FormatBR(r.Get(models.CPAOrCPL), 2),
	)
	if v := r.Get(models.ROAS); v.Valid {
		parts = append(parts, "ROAS="+FormatBR(v, 2))
	}
	return key + ": " + strings.Join(parts, ", ")
}

// RenderSummary renders the overall totals block of a sheet analysis.
func RenderSummary(total models.AggregateRow) string {
	lines := []string{
		"RESUMO GERAL",
		"- Gasto total: R$ " + FormatBR(total.Get(models.Cost), 2),
	}
	opt := func(label string, m models.Metric, places int, prefix, suffix string) {
		if v := total.Get(m); v.Valid {
			lines = append(lines, "- "+label+": "+prefix+FormatBR(v, places)+suffix)
		}
	}
	opt("Leads totais", models.Leads, 0, "", "")
	opt("Conversões totais", models.Conversions, 0, "", "")
	opt("CPL médio", models.CPAOrCPL, 2, "R$ ", "")
	opt("Cliques totais", models.Clicks, 0, "", "")
	opt("Impressões totais", models.Impressions, 0, "", "")
	opt("CTR média", models.CTRPercent, 2, "", "%")
	opt("CPC médio", models.CPC, 2, "R$ ", "")
	return strings.Join(lines, "\n")
}
