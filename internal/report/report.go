// Package report exports calculator states to spreadsheets, one sheet per
// calculator, with validation levels highlighted in their UI colours.
package report

import (
	"fmt"

	"github.com/vk/calcgrid/internal/session"
	"github.com/vk/calcgrid/internal/validation"
	"github.com/xuri/excelize/v2"
)

// maxSheetName is the sheet name limit of the xlsx format.
const maxSheetName = 31

var headers = []string{"Variable", "Value", "Displayed", "Unit", "Direction", "Group", "Level", "Message"}

// Export writes every state to its own sheet of a new workbook.
func Export(states ...session.State) (*excelize.File, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	levelStyles := make(map[string]int)
	for _, l := range []validation.Level{validation.Ok, validation.Warning, validation.Error} {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{l.BackgroundColor()}, Pattern: 1},
		})
		if err != nil {
			return nil, err
		}
		levelStyles[l.String()] = style
	}

	used := make(map[string]int)
	for i, st := range states {
		name := sheetName(st.Calculator, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, name, st, headerStyle, levelStyles); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	return f, nil
}

// Save exports states to an xlsx file at path.
func Save(path string, states ...session.State) error {
	f, err := Export(states...)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, st session.State, headerStyle int, levelStyles map[string]int) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	r := 2
	for _, v := range st.Variables {
		if v.Hidden {
			continue
		}
		row := []any{v.Name, v.Value, v.Formatted, v.Unit, v.Direction, v.Group, v.Level, v.Message}
		cell, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		if style, ok := levelStyles[v.Level]; ok {
			levelCell, _ := excelize.CoordinatesToCellName(7, r)
			if err := f.SetCellStyle(sheet, levelCell, levelCell, style); err != nil {
				return err
			}
		}
		r++
	}

	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "G", 14); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "H", "H", 50)
}

// sheetName truncates name to the xlsx limit and makes it unique.
func sheetName(name string, used map[string]int) string {
	base := []rune(name)
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	out := string(base)
	used[out]++
	if n := used[out]; n > 1 {
		suffix := fmt.Sprintf(" (%d)", n)
		keep := min(len(base), maxSheetName-len(suffix))
		out = string(base[:keep]) + suffix
	}
	return out
}
