package normalize

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

// NoDateLabel is the period of a row whose date cell is empty.
const NoDateLabel = "sem_data"

// day-first layouts, tried in order
var dateLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/06",
	"2-1-2006",
	"2.1.2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2006",
	"January 2006",
	"2006-01",
}

// ParseDate reads a date cell, day-first on ambiguous input. Numeric cells
// are Excel serial dates.
func ParseDate(c models.Cell) (time.Time, bool) {
	switch c.Kind {
	case models.CellNumber:
		if c.Num < 1 || c.Num > 2958465 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(c.Num, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case models.CellString:
		s := strings.TrimSpace(c.Str)
		for _, l := range dateLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t, true
			}
		}
		if len(s) > 10 {
			if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// periodFromDate buckets a date cell to YYYY-MM, falling back to the raw
// text when it does not parse.
func periodFromDate(c models.Cell) string {
	if c.IsMissing() {
		return NoDateLabel
	}
	if t, ok := ParseDate(c); ok {
		return t.Format("2006-01")
	}
	return strings.TrimSpace(c.Text())
}

// minPeriodSerial separates Excel date serials from month or year numbers
// in a period column. 10000 is 1927-05-18.
const minPeriodSerial = 10000

func periodLabel(c models.Cell) string {
	if c.IsMissing() {
		return NoDateLabel
	}
	if c.Kind == models.CellNumber && c.Num >= minPeriodSerial {
		return periodFromDate(c)
	}
	return strings.TrimSpace(c.Text())
}
