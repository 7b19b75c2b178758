// Package export writes batch results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/feichai0017/docfiler/internal/service/batch"
	"github.com/feichai0017/docfiler/pkg/logger"
)

const SheetName = "Suggestions"

var Headers = []string{
	"Source File",
	"Suggested Filename",
	"Destination",
	"Target",
	"Confidence",
	"Reasoning",
	"Error",
	"Duration (ms)",
	"Source Path",
}

type XLSXWriter struct {
	logger logger.Logger
}

func NewXLSXWriter(log logger.Logger) *XLSXWriter {
	return &XLSXWriter{logger: log.Named("export")}
}

// Write renders one row per result to w.
func (x *XLSXWriter) Write(w io.Writer, results []batch.Result) error {
	f, err := x.build(results)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// WriteFile saves the workbook at path.
func (x *XLSXWriter) WriteFile(path string, results []batch.Result) error {
	f, err := x.build(results)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx save: %w", err)
	}
	x.logger.Info("Exported suggestions",
		logger.String("path", path),
		logger.Int("rows", len(results)),
	)
	return nil
}

func (x *XLSXWriter) build(results []batch.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, err
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for i, r := range results {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(1, filepath.Base(r.Path))
		if s := r.Suggestion; s != nil {
			write(2, s.Filename)
			write(3, s.Destination)
			write(4, s.String())
			write(5, s.Confidence)
			write(6, s.Reasoning)
		}
		if r.Err != nil {
			write(7, r.Err.Error())
		}
		write(8, r.Duration.Milliseconds())
		write(9, r.Path)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 28)
	_ = f.SetColWidth(SheetName, "B", "B", 40)
	_ = f.SetColWidth(SheetName, "C", "D", 36)
	_ = f.SetColWidth(SheetName, "E", "E", 12)
	_ = f.SetColWidth(SheetName, "F", "G", 60)
	_ = f.SetColWidth(SheetName, "I", "I", 60)

	if len(results) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
		if err == nil {
			last, _ := excelize.CoordinatesToCellName(5, len(results)+1)
			_ = f.SetCellStyle(SheetName, "E2", last, style)
		}
	}
	return f, nil
}
