package metrics

import (
	"math"
	"sort"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

// GroupBy selects the aggregate key. Period is always part of it.
type GroupBy struct {
	Source bool
}

// Aggregate sums canonical records per period (and source) and derives the
// ratio metrics. Rows come out by period ascending, then by source in
// first-seen order.
func Aggregate(records []models.CanonicalRecord, by GroupBy) []models.AggregateRow {
	groups := map[models.GroupKey]*models.AggregateRow{}
	sourceOrder := map[string]int{}
	for _, r := range records {
		if _, ok := sourceOrder[r.Source]; !ok {
			sourceOrder[r.Source] = len(sourceOrder)
		}
		k := models.GroupKey{Period: r.Period}
		if by.Source {
			k.Source = r.Source
		}
		g, ok := groups[k]
		if !ok {
			g = newRow(k)
			groups[k] = g
		}
		add(g, r.Metric, r.Value)
	}

	out := make([]models.AggregateRow, 0, len(groups))
	for _, g := range groups {
		derive(g)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Period != out[j].Key.Period {
			return out[i].Key.Period < out[j].Key.Period
		}
		return sourceOrder[out[i].Key.Source] < sourceOrder[out[j].Key.Source]
	})
	return out
}

// Totals folds all rows into one, recomputing the ratios from the sums.
func Totals(rows []models.AggregateRow) models.AggregateRow {
	t := newRow(models.GroupKey{Period: "total"})
	for _, r := range rows {
		for m, v := range r.Values {
			if !v.Valid {
				continue
			}
			t.Values[m] = models.Some(t.Values[m].V + v.V)
			t.Count[m] += r.Count[m]
		}
	}
	derive(t)
	return *t
}

func newRow(k models.GroupKey) *models.AggregateRow {
	return &models.AggregateRow{
		Key:     k,
		Values:  map[models.Metric]models.Value{},
		Count:   map[models.Metric]int{},
		Derived: map[models.Metric]models.Value{},
	}
}

func add(g *models.AggregateRow, m models.Metric, v float64) {
	if !models.IsRaw(m) {
		return
	}
	g.Values[m] = models.Some(g.Values[m].V + v)
	g.Count[m]++
}

// derive fills the ratio metrics. A ratio is missing, never zero or
// infinite, when its denominator is absent or not positive.
func derive(g *models.AggregateRow) {
	g.Derived[models.CTRPercent] = ratio(g.Values[models.Clicks], g.Values[models.Impressions], 100)
	g.Derived[models.CPC] = ratio(g.Values[models.Cost], g.Values[models.Clicks], 1)

	den := g.Values[models.Conversions]
	if !den.Valid {
		den = g.Values[models.Leads]
	}
	g.Derived[models.CPAOrCPL] = ratio(g.Values[models.Cost], den, 1)
	g.Derived[models.ROAS] = ratio(g.Values[models.Revenue], g.Values[models.Cost], 1)
}

func ratio(num, den models.Value, scale float64) models.Value {
	if !num.Valid || !den.Valid || den.V <= 0 {
		return models.None()
	}
	return models.Some(num.V / den.V * scale)
}

// Present lists the raw metrics that have a value in at least one row, in
// report column order.
func Present(rows []models.AggregateRow) []models.Metric {
	var out []models.Metric
	for _, m := range models.RawMetrics {
		for _, r := range rows {
			if r.Values[m].Valid {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// ToKPIRows converts aggregates into their JSON view.
func ToKPIRows(rows []models.AggregateRow) []models.KPIRow {
	out := make([]models.KPIRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.KPIRow{
			Period:      r.Key.Period,
			Source:      r.Key.Source,
			Impressions: ptr(r.Get(models.Impressions)),
			Clicks:      ptr(r.Get(models.Clicks)),
			Cost:        ptr(round2(r.Get(models.Cost))),
			Conversions: ptr(r.Get(models.Conversions)),
			Leads:       ptr(r.Get(models.Leads)),
			Revenue:     ptr(round2(r.Get(models.Revenue))),
			CTRPercent:  ptr(round3(r.Get(models.CTRPercent))),
			CPC:         ptr(round3(r.Get(models.CPC))),
			CPAOrCPL:    ptr(round2(r.Get(models.CPAOrCPL))),
			ROAS:        ptr(round2(r.Get(models.ROAS))),
		})
	}
	return out
}

func ptr(v models.Value) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.V
	return &f
}

func round2(v models.Value) models.Value {
	if v.Valid {
		v.V = math.Round(v.V*100) / 100
	}
	return v
}

func round3(v models.Value) models.Value {
	if v.Valid {
		v.V = math.Round(v.V*1000) / 1000
	}
	return v
}
