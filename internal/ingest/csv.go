package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

var ErrNoHeader = errors.New("table has no header row")

var bom = []byte{0xEF, 0xBB, 0xBF}

func ReadCSVFile(path string) (models.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawTable{}, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses an ads export. Blank fields become missing cells and
// short rows are padded to the header width.
func ReadCSV(r io.Reader) (models.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.RawTable{}, err
	}
	data = bytes.TrimPrefix(data, bom)
	if !utf8.Valid(data) {
		if data, err = charmap.ISO8859_1.NewDecoder().Bytes(data); err != nil {
			return models.RawTable{}, err
		}
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return models.RawTable{}, err
	}
	if len(records) == 0 {
		return models.RawTable{}, ErrNoHeader
	}
	t := models.RawTable{Headers: make([]string, len(records[0]))}
	for j, h := range records[0] {
		t.Headers[j] = strings.TrimSpace(h)
	}
	for _, rec := range records[1:] {
		row := make([]models.Cell, len(t.Headers))
		for j := range row {
			if j < len(rec) && strings.TrimSpace(rec[j]) != "" {
				row[j] = models.Str(strings.TrimSpace(rec[j]))
			} else {
				row[j] = models.Missing()
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// sniffDelimiter picks the most frequent of , ; and tab on the header line,
// ignoring quoted text.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	counts := map[rune]int{}
	quoted := false
	for _, c := range string(line) {
		switch {
		case c == '"':
			quoted = !quoted
		case !quoted && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}
	best := ','
	for _, d := range []rune{';', '\t'} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
