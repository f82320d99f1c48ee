// Package normalize turns loosely formatted ads exports and spreadsheets
// into canonical (period, metric, value, source) records.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

var (
	ErrEmptyTable     = errors.New("table has no columns")
	ErrNoPeriodColumn = errors.New("no date or period column found")
)

type metricColumn struct {
	key models.Metric
	col int
}

// Normalize produces the canonical record set of one table. A missing
// period column aborts the call; bad cells only drop their own value.
// Each header feeds at most one role: the period column and every resolved
// metric column are claimed in schema order.
func Normalize(t models.RawTable, source string, s Schema, loc Locale) ([]models.CanonicalRecord, error) {
	return normalize(t, source, s, loc, false)
}

// NormalizeUndated is Normalize for free-form sheets: without a date or
// period column every row lands in the "sem_data" period.
func NormalizeUndated(t models.RawTable, source string, s Schema, loc Locale) ([]models.CanonicalRecord, error) {
	return normalize(t, source, s, loc, true)
}

func normalize(t models.RawTable, source string, s Schema, loc Locale, undated bool) ([]models.CanonicalRecord, error) {
	if len(t.Headers) == 0 {
		return nil, fmt.Errorf("[%s] %w", source, ErrEmptyTable)
	}
	claimed := map[int]bool{}

	dateCol := resolveIndex(t.Headers, claimed, s.DateColumns)
	periodCol := -1
	if dateCol >= 0 {
		claimed[dateCol] = true
	} else {
		periodCol = resolveIndex(t.Headers, claimed, s.PeriodColumns)
		switch {
		case periodCol >= 0:
			claimed[periodCol] = true
		case !undated:
			return nil, fmt.Errorf("[%s] %w in %q", source, ErrNoPeriodColumn, t.Headers)
		}
	}

	cols := make([]metricColumn, 0, len(s.Metrics))
	for _, m := range s.Metrics {
		i := resolveIndex(t.Headers, claimed, m.Aliases)
		if i < 0 {
			continue
		}
		claimed[i] = true
		cols = append(cols, metricColumn{key: m.Key, col: i})
	}

	var out []models.CanonicalRecord
	for r := range t.Rows {
		if rowIsEmpty(t, r) {
			continue
		}
		period := NoDateLabel
		switch {
		case dateCol >= 0:
			period = periodFromDate(t.At(r, dateCol))
		case periodCol >= 0:
			period = periodLabel(t.At(r, periodCol))
		}
		for _, mc := range cols {
			v := Parse(t.At(r, mc.col), loc)
			if !v.Valid {
				continue
			}
			out = append(out, models.CanonicalRecord{Period: period, Metric: mc.key, Value: v.V, Source: source})
		}
	}
	return out, nil
}

func rowIsEmpty(t models.RawTable, r int) bool {
	for j := range t.Headers {
		if !t.At(r, j).IsMissing() {
			return false
		}
	}
	return true
}

// NormalizeMatrix reads a sheet laid out as one metric per row (label in the
// first column) and one period per remaining column.
func NormalizeMatrix(t models.RawTable, source string, s Schema, loc Locale) ([]models.CanonicalRecord, error) {
	if len(t.Headers) == 0 {
		return nil, fmt.Errorf("[%s] %w", source, ErrEmptyTable)
	}

	var rows []int
	for r := range t.Rows {
		if rowIsEmpty(t, r) {
			continue
		}
		label := strings.TrimSpace(t.At(r, 0).Text())
		if label == "" || skipLabel(label, s) {
			continue
		}
		rows = append(rows, r)
	}

	var periods []int
	for j := 1; j < len(t.Headers); j++ {
		for _, r := range rows {
			if !t.At(r, j).IsMissing() {
				periods = append(periods, j)
				break
			}
		}
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("[%s] %w: matrix sheet has no period columns", source, ErrNoPeriodColumn)
	}

	var out []models.CanonicalRecord
	for _, r := range rows {
		m, ok := MatchLabel(t.At(r, 0).Text(), s)
		if !ok {
			continue
		}
		for _, j := range periods {
			v := Parse(t.At(r, j), loc)
			if !v.Valid {
				continue
			}
			out = append(out, models.CanonicalRecord{Period: matrixPeriod(t.Headers[j], j), Metric: m, Value: v.V, Source: source})
		}
	}
	return out, nil
}

func skipLabel(label string, s Schema) bool {
	k := fold(label)
	for _, p := range s.SkipRowLabels {
		if p = fold(p); p != "" && strings.Contains(k, p) {
			return true
		}
	}
	return false
}

func matrixPeriod(header string, j int) string {
	if h := strings.TrimSpace(header); h != "" {
		return h
	}
	return fmt.Sprintf("col%d", j+1)
}
