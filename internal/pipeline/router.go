package pipeline

import "strings"

const (
	TypeChat    = "chat"
	defaultType = "replanejamento"
)

// typeKeywords is checked in order; the first type with a hit wins.
var typeKeywords = []struct {
	name string
	kws  []string
}{
	{"replanejamento", []string{"replanejamento", "revisão do plano", "revisão de estratégia", "re-plan"}},
	{"planejamento", []string{"planejamento", "plano", "estratégia"}},
	{"checkin", []string{"check-in", "checkin", "check in"}},
	{"weekly", []string{"weekly", "semanal", "wk"}},
	{"daily", []string{"daily", "diária", "reunião diária"}},
	{"benchmarking", []string{"benchmark", "concorrentes", "competitive analysis", "mop", "estudo de concorrência"}},
	{TypeChat, []string{"chat", "conversa", "pergunta", "responda", "diga", "fale"}},
}

var adsHints = []string{"mídia", "google ads", "meta", "facebook", "instagram", "cpl", "ctr", "cpc", "cpa", "conversões", "cliques", "impressões", "gasto"}

// DetectType guesses the deliverable a question is about.
func DetectType(q string) string {
	ql := strings.ToLower(q)
	for _, t := range typeKeywords {
		for _, k := range t.kws {
			if strings.Contains(ql, k) {
				return t.name
			}
		}
	}
	return defaultType
}

// WantsAds reports whether q mentions media metrics.
func WantsAds(q string) bool {
	ql := strings.ToLower(q)
	for _, k := range adsHints {
		if strings.Contains(ql, k) {
			return true
		}
	}
	return false
}

// Augment appends the report instructions to the user question.
func Augment(q string, ads bool) string {
	q = strings.TrimSpace(q)
	if ads {
		return q + " | Se houver KPIs de mídia (Google/Meta) no contexto, combine e destaque: " +
			"gasto, impressões, cliques, conversões, CTR, CPC, CPA; " +
			"traga 6 bullets e próximos passos. Cite fontes."
	}
	return q + " | Traga 6 bullets executivos e próximos passos. Cite fontes."
}
