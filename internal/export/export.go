// Package export renders reports as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/sitecheck/internal/domain"
)

const (
	issuesSheet = "Issues"
	reportSheet = "Work Report"
	dateLayout  = "2006-01-02 15:04"
)

var (
	issueHeaders = []string{"Building", "Apartment", "Trade", "Area", "Description", "Status", "Date Added", "Remarks", "Media"}
	columnWidths = []float64{10, 10, 14, 22, 36, 22, 20, 48, 48}
)

// IssuesWorkbook writes one row per issue under a frozen, styled header.
func IssuesWorkbook(rows []domain.IssueRow) ([]byte, error) {
	f, err := newWorkbook(issuesSheet)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return nil, err
	}

	for col, header := range issueHeaders {
		if err := setCell(f, issuesSheet, col+1, 1, header); err != nil {
			return nil, err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(issuesSheet, name, name, columnWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := styleRow(f, issuesSheet, 1, len(issueHeaders), headerStyle); err != nil {
		return nil, err
	}

	for i, r := range rows {
		values := []any{
			r.Building,
			r.Apartment,
			r.Trade,
			r.Issue.Area,
			r.Issue.Description,
			r.Issue.Status,
			r.Issue.DateAdded.UTC().Format(dateLayout),
			strings.Join(r.Issue.Remarks, "\n"),
			strings.Join(r.Issue.Media, "\n"),
		}
		for col, v := range values {
			if err := setCell(f, issuesSheet, col+1, i+2, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(issuesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}
	return write(f)
}

// WorkReportWorkbook lays out one communication work report: a details block,
// the hardware table and the photo links.
func WorkReportWorkbook(r domain.WorkReport, siteName string) ([]byte, error) {
	f, err := newWorkbook(reportSheet)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(reportSheet, "A", "A", 20); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(reportSheet, "B", "B", 60); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	rows := [][]any{
		{"Project", siteName},
		{"Date", r.Timestamp.UTC().Format(dateLayout)},
		{"Technician", r.TechnicianName},
		{"Status", string(r.Status)},
		{"Description", r.Description},
		{},
		{"Hardware Used"},
		{"Item", "Quantity"},
	}
	hardwareHeader := len(rows)
	for _, h := range r.Hardware {
		rows = append(rows, []any{h.Item, h.Quantity})
	}
	rows = append(rows, []any{}, []any{"Photos"})
	for _, url := range r.Photos {
		rows = append(rows, []any{url})
	}

	for i, values := range rows {
		for col, v := range values {
			if err := setCell(f, reportSheet, col+1, i+1, v); err != nil {
				return nil, err
			}
		}
	}
	if err := styleRow(f, reportSheet, hardwareHeader, 2, headerStyle); err != nil {
		return nil, err
	}
	return write(f)
}

func newWorkbook(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)
	return f, nil
}

func newHeaderStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	return style, nil
}

// styleRow applies style to the first cols cells of row.
func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

func write(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
