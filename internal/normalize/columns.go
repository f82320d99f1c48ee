package normalize

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

// fold is the case-insensitive comparison key. A Caser is stateful, so one
// is made per call.
func fold(s string) string { return cases.Fold().String(strings.TrimSpace(s)) }

// Resolve picks the header that best matches candidates: first an exact
// case-insensitive hit in candidate order, then the first header (in header
// order) containing any candidate. Duplicate headers resolve to the first
// occurrence.
func Resolve(headers []string, candidates []string) (string, bool) {
	i := resolveIndex(headers, nil, candidates)
	if i < 0 {
		return "", false
	}
	return headers[i], true
}

// resolveIndex is Resolve over header positions, ignoring the ones in skip.
func resolveIndex(headers []string, skip map[int]bool, candidates []string) int {
	exact := make(map[string]int, len(headers))
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = fold(h)
		if skip[i] {
			continue
		}
		if _, dup := exact[keys[i]]; !dup {
			exact[keys[i]] = i
		}
	}
	pats := make([]string, 0, len(candidates))
	for _, c := range candidates {
		p := fold(c)
		if p == "" {
			continue
		}
		if i, ok := exact[p]; ok {
			return i
		}
		pats = append(pats, p)
	}
	for i, k := range keys {
		if skip[i] {
			continue
		}
		for _, p := range pats {
			if strings.Contains(k, p) {
				return i
			}
		}
	}
	return -1
}

// MatchLabel maps a free-text row label (matrix sheets) onto a canonical
// metric using the schema aliases in priority order. Labels matching an
// ignore pattern are ratios and never map.
func MatchLabel(label string, s Schema) (models.Metric, bool) {
	k := fold(label)
	if k == "" {
		return "", false
	}
	for _, ig := range s.IgnoreLabels {
		if p := fold(ig); p != "" && strings.Contains(k, p) {
			return "", false
		}
	}
	for _, m := range s.Metrics {
		for _, a := range m.Aliases {
			if fold(a) == k {
				return m.Key, true
			}
		}
	}
	for _, m := range s.Metrics {
		for _, a := range m.Aliases {
			if p := fold(a); p != "" && strings.Contains(k, p) {
				return m.Key, true
			}
		}
	}
	return "", false
}

// Suggestion is the column picked for one role when previewing a sheet.
type Suggestion struct {
	Role   string
	Header string
	Found  bool
}

// Suggest lists the column each role would resolve to, date and period
// first, then metrics in schema order.
func Suggest(headers []string, s Schema) []Suggestion {
	out := make([]Suggestion, 0, len(s.Metrics)+2)
	add := func(role string, cands []string) {
		h, ok := Resolve(headers, cands)
		out = append(out, Suggestion{Role: role, Header: h, Found: ok})
	}
	add("date", s.DateColumns)
	add("period", s.PeriodColumns)
	for _, m := range s.Metrics {
		add(string(m.Key), m.Aliases)
	}
	return out
}
