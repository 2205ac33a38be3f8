// Package e2e provides end-to-end tests; this file builds xlsx import
// fixtures from the corpus.
package e2e

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook writes the corpus pairs to an xlsx workbook at path, in the
// layout the importer expects: category, question, answer, comma-separated
// keywords, with a header row.
func WriteWorkbook(path string, pairs []CorpusPair) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []string{"category", "question", "answer", "keywords"}
	for j, cell := range header {
		name, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, name, cell); err != nil {
			return err
		}
	}
	for i, p := range pairs {
		row := []string{p.Category, p.Question, p.Answer, strings.Join(p.Keywords, ", ")}
		for j, cell := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, name, cell); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}
