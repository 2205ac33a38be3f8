// Package importer bulk-loads QA pairs from spreadsheet files into the
// knowledge base through the engine's validated add path.
package importer

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/models"
)

// Report summarizes one import run.
type Report struct {
	Imported int
	Skipped  int
}

// Importer reads xlsx workbooks of QA rows and adds them to the engine.
type Importer struct {
	engine *engine.Engine
	logger *zap.Logger
}

// New returns an Importer adding entries through eng.
func New(eng *engine.Engine, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{engine: eng, logger: logger}
}

// ImportFile reads every sheet of the workbook at path. Each row holds
// category, question, answer, and an optional comma-separated keyword list.
// A first row starting with "category" (any case) is treated as a header and
// skipped. Invalid rows are skipped and counted, not fatal.
func (im *Importer) ImportFile(path string) (*Report, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	report := &Report{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for i, row := range rows {
			if i == 0 && isHeaderRow(row) {
				continue
			}
			if isBlankRow(row) {
				continue
			}
			in := rowToInput(row)
			if _, err := im.engine.AddEntry(in); err != nil {
				report.Skipped++
				im.logger.Warn("skipping invalid row",
					zap.String("sheet", sheet), zap.Int("row", i+1), zap.Error(err))
				continue
			}
			report.Imported++
		}
	}
	im.logger.Info("import finished",
		zap.String("path", path),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func rowToInput(row []string) models.QAPairInput {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	in := models.QAPairInput{
		Category: get(0),
		Question: get(1),
		Answer:   get(2),
	}
	if kw := get(3); kw != "" {
		for _, part := range strings.Split(kw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				in.Keywords = append(in.Keywords, part)
			}
		}
	}
	return in
}

func isHeaderRow(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "category")
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
