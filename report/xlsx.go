package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/dojang/attendance/calendar"
)

const xlsxSheet = "Report"

var detailHeaders = []string{"date", "gregorian", "weekday", "status"}

// WriteXLSX exports rep as a workbook: a summary block followed by one row
// per detail entry, newest first.
func WriteXLSX(w io.Writer, title string, rep Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	summary := [][]any{
		{"member", title},
		{"total", rep.Total},
		{"present", rep.Present},
		{"absent", rep.Absent},
		{"rate", rep.Rate.StringFixed(2) + "%"},
	}
	row := 1
	for _, line := range summary {
		if err := setRow(f, row, line...); err != nil {
			return err
		}
		row++
	}

	row++
	headerRow := row
	headers := make([]any, len(detailHeaders))
	for i, h := range detailHeaders {
		headers[i] = h
	}
	if err := setRow(f, row, headers...); err != nil {
		return err
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		first, _ := excelize.CoordinatesToCellName(1, headerRow)
		last, _ := excelize.CoordinatesToCellName(len(detailHeaders), headerRow)
		_ = f.SetCellStyle(xlsxSheet, first, last, bold)
	}

	for _, e := range rep.Detail {
		row++
		status := "absent"
		if e.Present {
			status = "present"
		}
		if err := setRow(f, row, e.Display.String(), e.Date.String(), calendar.WeekdayName(e.Date.Weekday()), status); err != nil {
			return err
		}
	}

	if len(rep.Warnings) > 0 {
		row += 2
		if err := setRow(f, row, "warnings"); err != nil {
			return err
		}
		for _, warn := range rep.Warnings {
			row++
			if err := setRow(f, row, calendar.FormatSecondary(warn.Date), warn.Date.String(), string(warn.Kind)); err != nil {
				return err
			}
		}
	}

	_ = f.SetColWidth(xlsxSheet, "A", "D", 14)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values ...any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell value: %w", err)
		}
	}
	return nil
}
