package models

import (
	"strconv"
	"strings"
)

// CellKind tells how a raw cell was produced by the loader.
type CellKind int

const (
	CellMissing CellKind = iota
	CellString
	CellNumber
)

// Cell is one heterogeneous spreadsheet/CSV value.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
}

func Missing() Cell            { return Cell{Kind: CellMissing} }
func Str(s string) Cell        { return Cell{Kind: CellString, Str: s} }
func Number(f float64) Cell    { return Cell{Kind: CellNumber, Num: f} }
func (c Cell) IsMissing() bool { return c.Kind == CellMissing || (c.Kind == CellString && isBlank(c.Str)) }

// Text is the cell rendered as plain text ("" for missing).
func (c Cell) Text() string {
	switch c.Kind {
	case CellString:
		return c.Str
	case CellNumber:
		return formatNum(c.Num)
	}
	return ""
}

// RawTable is a column-named table as loaded from a spreadsheet or CSV.
// Rows may be shorter than Headers; absent trailing cells are missing.
type RawTable struct {
	Headers []string
	Rows    [][]Cell
}

// At returns the cell at row i, column j, or a missing cell when out of range.
func (t RawTable) At(i, j int) Cell {
	if i < 0 || i >= len(t.Rows) || j < 0 || j >= len(t.Rows[i]) {
		return Missing()
	}
	return t.Rows[i][j]
}

// Column returns the index of header h, first occurrence.
func (t RawTable) Column(h string) int {
	for i, c := range t.Headers {
		if c == h {
			return i
		}
	}
	return -1
}

// Value is a float that may be missing. The zero Value is missing.
type Value struct {
	V     float64
	Valid bool
}

func Some(v float64) Value { return Value{V: v, Valid: true} }
func None() Value          { return Value{} }

// Metric is a canonical, vendor-independent metric key.
type Metric string

const (
	Impressions   Metric = "impressions"
	Clicks        Metric = "clicks"
	Cost          Metric = "cost"
	Conversions   Metric = "conversions"
	Leads         Metric = "leads"
	Sales         Metric = "sales"
	Opportunities Metric = "opportunities"
	Revenue       Metric = "revenue"

	CTRPercent Metric = "ctr_percent"
	CPC        Metric = "cpc"
	CPAOrCPL   Metric = "cpa_or_cpl"
	ROAS       Metric = "roas"
)

// RawMetrics lists the summable metrics in report column order.
var RawMetrics = []Metric{Impressions, Clicks, Cost, Conversions, Leads, Sales, Opportunities, Revenue}

// DerivedMetrics lists the ratio metrics in report column order.
var DerivedMetrics = []Metric{CTRPercent, CPC, CPAOrCPL, ROAS}

// IsRaw reports whether m is one of the summable canonical keys.
func IsRaw(m Metric) bool {
	for _, r := range RawMetrics {
		if r == m {
			return true
		}
	}
	return false
}

// CanonicalRecord is one (period, metric, value, source) fact.
// Metric is always a canonical key; Value is always valid once emitted by
// the normalizer.
type CanonicalRecord struct {
	Period string  `json:"period"`
	Metric Metric  `json:"metric"`
	Value  float64 `json:"value"`
	Source string  `json:"source"`
}

// GroupKey identifies one aggregate bucket. Source is empty when grouping
// by period only.
type GroupKey struct {
	Period string `json:"period"`
	Source string `json:"source,omitempty"`
}

// AggregateRow holds the summed raw metrics of a group plus its derived
// ratios. Count tracks how many records contributed to each raw metric, so a
// metric with no rows (missing) differs from an explicit zero.
type AggregateRow struct {
	Key     GroupKey
	Values  map[Metric]Value
	Count   map[Metric]int
	Derived map[Metric]Value
}

// Get returns the raw or derived value for m (missing when absent).
func (r AggregateRow) Get(m Metric) Value {
	if v, ok := r.Values[m]; ok {
		return v
	}
	if v, ok := r.Derived[m]; ok {
		return v
	}
	return None()
}

// KPIRow is the JSON view of an aggregate row served over HTTP and to the
// export sink. Missing values are null.
type KPIRow struct {
	Period      string   `json:"period"`
	Source      string   `json:"source,omitempty"`
	Impressions *float64 `json:"impressions"`
	Clicks      *float64 `json:"clicks"`
	Cost        *float64 `json:"cost"`
	Conversions *float64 `json:"conversions"`
	Leads       *float64 `json:"leads,omitempty"`
	Revenue     *float64 `json:"revenue,omitempty"`
	CTRPercent  *float64 `json:"ctr_percent"`
	CPC         *float64 `json:"cpc"`
	CPAOrCPL    *float64 `json:"cpa_or_cpl"`
	ROAS        *float64 `json:"roas,omitempty"`
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func formatNum(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
