package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/normalize"
)

// Preview prints the columns, the suggested role of each and the first n rows.
func Preview(w io.Writer, name string, t models.RawTable, s normalize.Schema, n int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s | rows=%d cols=%d ===\n", name, len(t.Rows), len(t.Headers))
	fmt.Fprintf(&b, "Colunas: %s\n", strings.Join(t.Headers, ", "))
	b.WriteString("Sugestões:\n")
	for _, sg := range normalize.Suggest(t.Headers, s) {
		h := "-"
		if sg.Found {
			h = sg.Header
		}
		fmt.Fprintf(&b, "  %s: %s\n", sg.Role, h)
	}
	for i := 0; i < n && i < len(t.Rows); i++ {
		cells := make([]string, len(t.Headers))
		for j := range cells {
			cells[j] = t.At(i, j).Text()
		}
		b.WriteString(strings.Join(cells, "\t") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
