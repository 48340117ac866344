package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hemovault/bloodbank/pkg/db"
)

// ReportKind selects which aggregation to export
type ReportKind string

const (
	ReportInventory     ReportKind = "inventory"
	ReportRequests      ReportKind = "requests"
	ReportDonorActivity ReportKind = "donors"
	ReportMonthly       ReportKind = "monthly"
)

// ReportParams bounds a report run
type ReportParams struct {
	From time.Time
	To   time.Time
	Year int
}

// ExportReport runs the selected aggregation and writes it to an XLSX
// file at path. It returns the number of data rows written.
func ExportReport(ctx context.Context, reports db.ReportStore, logger *zap.Logger, kind ReportKind, params ReportParams, path string) (int, error) {
	var (
		headers []string
		data    [][]any
		title   string
	)

	switch kind {
	case ReportInventory:
		rows, err := reports.InventorySummary(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to build inventory summary: %w", err)
		}
		title = "Blood Type Inventory"
		headers = []string{"Blood Type", "Available", "Assigned", "Used", "Expired", "Available Volume (ml)"}
		for _, r := range rows {
			data = append(data, []any{r.BloodType, r.Available, r.Assigned, r.Used, r.Expired, r.TotalVolumeML})
		}
	case ReportRequests:
		rows, err := reports.RequestSummary(ctx, params.From, params.To)
		if err != nil {
			return 0, fmt.Errorf("failed to build request summary: %w", err)
		}
		title = "Blood Request Summary"
		headers = []string{"Status", "Priority", "Requests", "Units Required"}
		for _, r := range rows {
			data = append(data, []any{string(r.Status), string(r.Priority), r.RequestCount, r.UnitsRequired})
		}
	case ReportDonorActivity:
		rows, err := reports.DonorActivity(ctx, params.From, params.To)
		if err != nil {
			return 0, fmt.Errorf("failed to build donor activity: %w", err)
		}
		title = "Donor Activity"
		headers = []string{"Donor", "Blood Type", "Donations", "Last Donation"}
		for _, r := range rows {
			last := ""
			if r.LastDonation != nil {
				last = r.LastDonation.Format("2006-01-02")
			}
			data = append(data, []any{r.DonorName, r.BloodType, r.DonationCount, last})
		}
	case ReportMonthly:
		rows, err := reports.MonthlyStatistics(ctx, params.Year)
		if err != nil {
			return 0, fmt.Errorf("failed to build monthly statistics: %w", err)
		}
		title = fmt.Sprintf("Monthly Statistics %d", params.Year)
		headers = []string{"Month", "Units Collected", "Requests", "Units Requested"}
		for _, r := range rows {
			data = append(data, []any{r.Month, r.UnitsCollected, r.RequestsMade, r.UnitsRequested})
		}
	default:
		return 0, &db.ValidationError{Field: "report kind", Reason: fmt.Sprintf("unknown report %q", kind)}
	}

	f, err := BuildWorkbook(title, headers, data)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}

	logger.Info("Report exported",
		zap.String("kind", string(kind)),
		zap.String("path", path),
		zap.Int("rows", len(data)))

	return len(data), nil
}

// BuildWorkbook lays out a single-sheet workbook with a styled header
// row, frozen so it stays visible while scrolling.
func BuildWorkbook(sheetName string, headers []string, rows [][]any) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FCE4E4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to compute data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write data cell: %w", err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze header row: %w", err)
	}

	return f, nil
}
