package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// XLSXExporter writes one worksheet per dataset.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Sheet is a named dataset.
type Sheet struct {
	Name string
	Data Dataset
}

func (e *XLSXExporter) Render(sheets ...Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one sheet")
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create body style: %w", err)
	}

	used := make(map[string]bool)
	for i, sheet := range sheets {
		if len(sheet.Data.Headers) == 0 {
			return nil, fmt.Errorf("xlsx sheet %q requires at least one header", sheet.Name)
		}
		name := sheetName(sheet.Name, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}

		lastColumn, _ := excelize.ColumnNumberToName(len(sheet.Data.Headers))
		if err := f.SetColWidth(name, "A", "A", 14); err != nil {
			return nil, err
		}
		if len(sheet.Data.Headers) > 1 {
			if err := f.SetColWidth(name, "B", lastColumn, 32); err != nil {
				return nil, err
			}
		}

		for column, header := range sheet.Data.Headers {
			cell, _ := excelize.CoordinatesToCellName(column+1, 1)
			if err := f.SetCellValue(name, cell, header); err != nil {
				return nil, err
			}
		}
		if err := f.SetCellStyle(name, "A1", lastColumn+"1", headerStyle); err != nil {
			return nil, err
		}

		for r, row := range sheet.Data.Rows {
			for column, header := range sheet.Data.Headers {
				cell, _ := excelize.CoordinatesToCellName(column+1, r+2)
				if err := f.SetCellValue(name, cell, row[header]); err != nil {
					return nil, err
				}
			}
		}
		if len(sheet.Data.Rows) > 0 {
			last := fmt.Sprintf("%v%d", lastColumn, len(sheet.Data.Rows)+1)
			if err := f.SetCellStyle(name, "A2", last, bodyStyle); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName strips characters Excel forbids, truncates to 31 characters and keeps names unique.
// Excel counts characters, not bytes, and rejects a leading or trailing apostrophe.
func sheetName(name string, position int, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	runes := []rune(strings.Trim(name, "'"))
	if len(runes) > maxSheetName {
		runes = []rune(strings.TrimRight(string(runes[:maxSheetName]), "'"))
	}
	if len(runes) == 0 {
		runes = []rune(fmt.Sprintf("Sheet%d", position+1))
	}
	for candidate, n := string(runes), 2; ; n++ {
		if !used[strings.ToLower(candidate)] {
			used[strings.ToLower(candidate)] = true
			return candidate
		}
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = string(runes[:min(len(runes), maxSheetName-len(suffix))]) + suffix
	}
}
