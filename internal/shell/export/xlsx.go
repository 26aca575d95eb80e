// Package export writes a rendered patient history to an XLSX workbook.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/news2/shell/internal/shell/history"
)

const (
	HistorySheet    = "History"
	StatisticsSheet = "Statistics"
)

var historyHeader = []string{"Date/Time", "Crisp Score", "Fuzzy Score", "Risk Category", "Response"}

var historyWidths = []float64{20, 12, 12, 16, 60}

var ErrEmptyHistory = errors.New("export: patient has no assessments")

// WriteXLSX writes r as a workbook with a history sheet (newest first) and a
// statistics sheet.
func WriteXLSX(w io.Writer, r *history.Render) (err error) {
	if r == nil || r.Empty {
		return ErrEmptyHistory
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	idx, err := f.NewSheet(HistorySheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, h := range historyHeader {
		if err := setCell(f, HistorySheet, i+1, 1, h); err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(HistorySheet, col, col, historyWidths[i]); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	if err := f.SetCellStyle(HistorySheet, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}

	for i, row := range r.Rows {
		line := i + 2
		values := []any{row.Time, row.CrispScore, row.FuzzyScore, string(row.Risk), row.Response}
		for col, v := range values {
			if err := setCell(f, HistorySheet, col+1, line, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(HistorySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}

	if _, err := f.NewSheet(StatisticsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	stats := [][2]string{
		{"Patient ID", r.PatientID},
		{"Average Score", r.Stats.Average},
		{"Max Score", r.Stats.Max},
		{"Trend", r.Stats.Trend},
		{"Assessments", r.Stats.Assessments},
	}
	for i, kv := range stats {
		if err := setCell(f, StatisticsSheet, 1, i+1, kv[0]); err != nil {
			return err
		}
		if err := setCell(f, StatisticsSheet, 2, i+1, kv[1]); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(StatisticsSheet, "A1", fmt.Sprintf("A%d", len(stats)), headerStyle); err != nil {
		return fmt.Errorf("set label style: %w", err)
	}
	if err := f.SetColWidth(StatisticsSheet, "A", "B", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
	}
	return nil
}
