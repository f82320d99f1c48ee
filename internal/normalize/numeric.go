package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

// Locale selects the separator convention used to read numeric strings.
type Locale int

const (
	// LocaleAuto guesses per value, biased to pt-BR on ambiguous input.
	LocaleAuto Locale = iota
	// LocaleBR reads "1.234,56": periods and spaces group thousands, comma is decimal.
	LocaleBR
	// LocaleCommaDecimal reads "1234,56": comma is decimal, nothing else is touched.
	LocaleCommaDecimal
	// LocaleDot reads "1,234.56".
	LocaleDot
)

func (l Locale) String() string {
	switch l {
	case LocaleBR:
		return "br"
	case LocaleCommaDecimal:
		return "comma"
	case LocaleDot:
		return "dot"
	}
	return "auto"
}

func ParseLocale(s string) (Locale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return LocaleAuto, nil
	case "br", "pt-br", "pt_br":
		return LocaleBR, nil
	case "comma":
		return LocaleCommaDecimal, nil
	case "dot", "en", "us":
		return LocaleDot, nil
	}
	return LocaleAuto, fmt.Errorf("unknown number locale %q", s)
}

var stripMarkers = []string{"R$", "BRL", "%"}

// Parse converts a cell into a float, or missing. Failures are missing,
// never zero.
func Parse(c models.Cell, loc Locale) models.Value {
	switch c.Kind {
	case models.CellNumber:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return models.None()
		}
		return models.Some(c.Num)
	case models.CellString:
		return ParseString(c.Str, loc)
	}
	return models.None()
}

func ParseString(s string, loc Locale) models.Value {
	for _, m := range stripMarkers {
		s = strings.ReplaceAll(s, m, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return models.None()
	}
	switch loc {
	case LocaleBR:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case LocaleCommaDecimal:
		s = strings.ReplaceAll(s, ",", ".")
	case LocaleDot:
		s = strings.ReplaceAll(s, ",", "")
	default:
		s = guessSeparators(s)
	}
	if !plainNumber(s) {
		return models.None()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return models.None()
	}
	return models.Some(f)
}

// guessSeparators rewrites s into Go float syntax. When both marks appear
// the later one is the decimal mark. A lone comma is decimal. A lone period
// is a thousands mark only when it groups exactly three digits after a
// short non-zero integer part ("1.234", not "0.125").
func guessSeparators(s string) string {
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dot >= 0:
		if strings.Count(s, ".") > 1 || groupsThousands(s, dot) {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

func groupsThousands(s string, dot int) bool {
	intPart := strings.TrimLeft(s[:dot], "+-")
	frac := s[dot+1:]
	if len(frac) != 3 || !allDigits(frac) {
		return false
	}
	return len(intPart) >= 1 && len(intPart) <= 3 && allDigits(intPart) && intPart[0] != '0'
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// plainNumber rejects Go-only float syntax such as "0x1p4" or "1_000".
func plainNumber(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == 'e', r == 'E', r == '+', r == '-':
		default:
			return false
		}
	}
	return strings.Count(s, ".") <= 1
}
