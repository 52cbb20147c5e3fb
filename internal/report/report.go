// Package report turns raw order totals into the daily and per-employee
// breakdowns the shop runs on, and renders them as Excel workbooks.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/oltinwash/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

var ErrNoOrders = errors.New("failed to generate report, 0 orders were provided")

// Revenue split between the washers and the company. These are business
// constants, not configuration.
const (
	employeeShareRate = 0.40
	companyShareRate  = 0.60
)

// Generator holds the state for the Excel report generation process.
type Generator struct {
	file *excelize.File
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		file: excelize.NewFile(),
	}
}

// Aggregate applies the revenue split to raw per-day totals. Rounding is
// left to the presentation layer; the shares stay exact here.
func Aggregate(rows []models.DailyReport) []models.DailyReport {
	reports := make([]models.DailyReport, len(rows))
	for i, row := range rows {
		row.EmployeeShare = row.TotalAmount * employeeShareRate
		row.CompanyShare = row.TotalAmount * companyShareRate
		reports[i] = row
	}

	return reports
}

// AggregateEmployees applies the revenue split to per-employee totals.
func AggregateEmployees(rows []models.EmployeeStats) []models.EmployeeStats {
	stats := make([]models.EmployeeStats, len(rows))
	for i, row := range rows {
		row.EmployeeShare = row.TotalAmount * employeeShareRate
		row.CompanyShare = row.TotalAmount * companyShareRate
		stats[i] = row
	}

	return stats
}

// GenerateExcelReport renders the daily breakdown of a period as a single
// sheet workbook. The rows must already carry their shares.
func GenerateExcelReport(reports []models.DailyReport, from, to time.Time) (*bytes.Buffer, error) {
	var err error

	if len(reports) == 0 {
		return nil, ErrNoOrders
	}

	gen := NewGenerator()
	defer gen.file.Close()

	sheetName := truncateSheetName(fmt.Sprintf("%s - %s", from.Format("02.01.2006"), to.Format("02.01.2006")))
	if _, err = gen.file.NewSheet(sheetName); err != nil {
		return nil, fmt.Errorf("failed to generate new sheet '%s': %w", sheetName, err)
	}

	if err = gen.setupSheet(sheetName, len(reports)); err != nil {
		return nil, fmt.Errorf("failed to setup sheet '%s': %w", sheetName, err)
	}

	headerIndex := 2
	for i, report := range reports {
		if err = gen.addRow(sheetName, i+headerIndex, report); err != nil {
			return nil, fmt.Errorf("failed to add row '%d': %w", i+headerIndex, err)
		}
	}

	gen.file.SetActiveSheet(0)

	// delete default sheet
	if sheetIndex, _ := gen.file.GetSheetIndex("Sheet1"); sheetIndex != -1 {
		if err = gen.file.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("failed to delete default sheet 'Sheet1': %w", err)
		}
	}

	buffer, err := gen.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write data from saved file: %w", err)
	}

	return buffer, nil
}

// setupSheet initializes the sheet with headers, styles and column widths,
// and wraps the data range in a table.
func (g *Generator) setupSheet(sheetName string, rowCount int) error {
	var err error

	headerStyle, err := g.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center", Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create new style: %w", err)
	}

	rowHeight := 20
	headers := []string{"Date", "Washes", "Total", "Employee Share", "Company Share"}
	if err = g.file.SetRowHeight(sheetName, 1, float64(rowHeight)); err != nil {
		return fmt.Errorf("failed to set row height for headers: %w", err)
	}
	if err = g.file.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to set sheet row for headers: %w", err)
	}
	if err = g.file.SetCellStyle(sheetName, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("failed to set cell style for headers: %w", err)
	}

	widths := map[string]float64{
		"A": 14, "B": 10, "C": 16, "D": 16, "E": 16, //nolint:mnd // const values for row width
	}
	for col, width := range widths {
		if err = g.file.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err = g.file.AddTable(sheetName, &excelize.Table{
		Range:     fmt.Sprintf("A1:E%d", rowCount+1),
		Name:      "daily_report",
		StyleName: "TableStyleMedium9",
	}); err != nil {
		return fmt.Errorf("failed to add table: %w", err)
	}

	return nil
}

// addRow adds one day of the report to the sheet.
func (g *Generator) addRow(sheetName string, rowNum int, report models.DailyReport) error {
	rowData := []interface{}{
		report.Date.Format("02.01.2006"),
		report.TotalWashes,
		report.TotalAmount,
		report.EmployeeShare,
		report.CompanyShare,
	}
	cell, _ := excelize.CoordinatesToCellName(1, rowNum)

	if err := g.file.SetSheetRow(sheetName, cell, &rowData); err != nil {
		return fmt.Errorf("failed to set sheet row: %w", err)
	}

	return nil
}

// truncateSheetName truncates the given sheet name to a maximum of 31 runes.
// Excel rejects anything longer.
func truncateSheetName(name string) string {
	if utf8.RuneCountInString(name) > 31 {
		runes := []rune(name)
		return string(runes[:31])
	}
	return name
}
