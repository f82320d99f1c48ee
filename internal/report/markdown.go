package report

import (
	"strings"
	"time"
)

const header = "# Relatório Executivo\n"

// BuildMarkdown wraps a model answer into the executive report layout.
func BuildMarkdown(question, body string, now time.Time) string {
	md := []string{
		header,
		"**Pergunta:** " + question + "\n",
		"**Gerado em:** " + now.Format("2006-01-02 15:04") + "\n",
		"---\n",
		strings.TrimSpace(body),
		"",
	}
	return strings.Join(md, "\n")
}
