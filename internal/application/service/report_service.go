package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/expenseflow/expenseflow/internal/application/port"
)

// ReportService exports approved claims as a spreadsheet for accounting.
type ReportService interface {
	// ApprovedClaims renders an xlsx workbook of claims approved within
	// [from, to] and returns its bytes.
	ApprovedClaims(ctx context.Context, companyID int64, from, to time.Time) ([]byte, error)
}

type reportServiceImpl struct {
	claims port.ClaimRepository
	logger Logger
}

// NewReportService creates a new ReportService
func NewReportService(claims port.ClaimRepository, logger Logger) ReportService {
	return &reportServiceImpl{claims: claims, logger: logger}
}

var reportHeaders = []string{
	"Ref", "Submitter", "Category", "Description",
	"Amount", "Currency", "Converted Amount", "Base Currency",
	"Exchange Rate", "Expense Date", "Approved At",
}

// ApprovedClaims builds the export workbook.
func (s *reportServiceImpl) ApprovedClaims(ctx context.Context, companyID int64, from, to time.Time) ([]byte, error) {
	claims, err := s.claims.ListApproved(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list approved claims: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Approved Claims"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range reportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("set header: %w", err)
		}
	}

	var total float64
	for i, c := range claims {
		row := i + 2
		values := []interface{}{
			c.Ref,
			c.SubmitterID,
			c.Category,
			c.Description,
			c.Amount,
			c.Currency,
			c.ConvertedAmount,
			c.BaseCurrency,
			c.ExchangeRate,
			c.ExpenseDate.Format("2006-01-02"),
			c.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("set cell: %w", err)
			}
		}
		total += c.ConvertedAmount
	}

	totalRow := len(claims) + 3
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
		return nil, fmt.Errorf("set total label: %w", err)
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("G%d", totalRow), total); err != nil {
		return nil, fmt.Errorf("set total: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("Approved claims report generated",
		"company_id", companyID, "claims", len(claims), "total", total)
	return buf.Bytes(), nil
}
