package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/models"
)

func ListSheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadXLSX loads one sheet; an empty sheet name means the first one.
// Header text comes from formatted values, data cells keep the raw value
// so numbers and date serials arrive as numbers.
func ReadXLSX(path, sheet string) (models.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.RawTable{}, err
	}
	defer f.Close()
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return models.RawTable{}, ErrNoHeader
		}
		sheet = list[0]
	}
	shown, err := f.GetRows(sheet)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return models.RawTable{}, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if len(shown) == 0 {
		return models.RawTable{}, ErrNoHeader
	}
	width := 0
	for _, r := range shown {
		width = max(width, len(r))
	}
	t := models.RawTable{Headers: make([]string, width)}
	for j, h := range shown[0] {
		t.Headers[j] = strings.TrimSpace(h)
	}
	for i := 1; i < len(shown); i++ {
		row := make([]models.Cell, width)
		for j := range row {
			row[j] = xlsxCell(f, sheet, i, j, at(shown[i], j), rawAt(raw, i, j))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func xlsxCell(f *excelize.File, sheet string, i, j int, shown, raw string) models.Cell {
	if strings.TrimSpace(raw) == "" && strings.TrimSpace(shown) == "" {
		return models.Missing()
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		name, _ := excelize.CoordinatesToCellName(j+1, i+1)
		switch typ, _ := f.GetCellType(sheet, name); typ {
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool:
		default:
			return models.Number(n)
		}
	}
	if shown == "" {
		shown = raw
	}
	return models.Str(strings.TrimSpace(shown))
}

func at(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}
	return ""
}

func rawAt(rows [][]string, i, j int) string {
	if i < len(rows) {
		return at(rows[i], j)
	}
	return ""
}

// XLSXToText dumps every sheet as "# Sheet: <name>" followed by
// tab-joined rows and a blank line.
func XLSXToText(path string, w io.Writer) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if _, err := fmt.Fprintf(w, "# Sheet: %s\n", sheet); err != nil {
			return err
		}
		for _, r := range rows {
			if _, err := io.WriteString(w, strings.Join(r, "\t")+"\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
