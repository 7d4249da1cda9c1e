package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/storage"
)

type ExportService struct {
	loanRepo      repository.LoanRepository
	repaymentRepo repository.RepaymentRepository
	metricsSvc    *MetricsService
	store         *storage.LocalStorage
}

func NewExportService(loanRepo repository.LoanRepository, repaymentRepo repository.RepaymentRepository, metricsSvc *MetricsService, store *storage.LocalStorage) *ExportService {
	return &ExportService{
		loanRepo:      loanRepo,
		repaymentRepo: repaymentRepo,
		metricsSvc:    metricsSvc,
		store:         store,
	}
}

func (s *ExportService) fetchLoans(ctx context.Context, query *repository.LoanQuery) ([]models.Loan, error) {
	query.PerPage = 0 // exports are never paginated
	loans, _, err := s.loanRepo.List(ctx, query)
	return loans, err
}

func (s *ExportService) fetchRepayments(ctx context.Context, query *repository.RepaymentQuery) ([]models.Repayment, error) {
	query.PerPage = 0
	repayments, _, err := s.repaymentRepo.List(ctx, query)
	return repayments, err
}

func loanRow(loan *models.Loan) []string {
	member := ""
	if loan.UnionMember.ID != 0 {
		member = loan.UnionMember.FullName()
	}
	union := ""
	if loan.Union.ID != 0 {
		union = loan.Union.Name
	}
	start := ""
	if loan.StartDate != nil {
		start = loan.StartDate.Format("2006-01-02")
	}
	end := ""
	if loan.EndDate != nil {
		end = loan.EndDate.Format("2006-01-02")
	}
	return []string{
		loan.LoanNumber,
		member,
		union,
		fmt.Sprintf("%.2f", loan.PrincipalAmount),
		fmt.Sprintf("%d %s", loan.TermCount, loan.TermUnit),
		start,
		end,
		fmt.Sprintf("%.2f", loan.TotalPaid),
		loan.Status,
	}
}

var loanHeaders = []string{"Loan Number", "Member", "Union", "Principal", "Term", "Start Date", "End Date", "Total Paid", "Status"}

func (s *ExportService) ExportLoansCSV(ctx context.Context, query *repository.LoanQuery) ([]byte, string, error) {
	loans, err := s.fetchLoans(ctx, query)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Loan Report", time.Now().Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})
	_ = writer.Write(loanHeaders)
	for i := range loans {
		_ = writer.Write(loanRow(&loans[i]))
	}
	writer.Flush()

	filename := fmt.Sprintf("loans_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func (s *ExportService) ExportLoansXLSX(ctx context.Context, query *repository.LoanQuery) ([]byte, string, error) {
	loans, err := s.fetchLoans(ctx, query)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Loans"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", "Loan Report")
	_ = f.SetCellValue(sheet, "B1", time.Now().Format("2006-01-02 15:04"))

	for col, header := range loanHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 3)
		_ = f.SetCellValue(sheet, cell, header)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i := range loans {
		row := loanRow(&loans[i])
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+4)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("loans_%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportPortfolioPDF renders the portfolio summary as a one-page PDF
func (s *ExportService) ExportPortfolioPDF(ctx context.Context) ([]byte, string, error) {
	summary, err := s.metricsSvc.GetPortfolioSummary(ctx)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Portfolio Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Loan Book")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	line := func(label, value string) {
		pdf.Cell(60, 10, label)
		pdf.Cell(40, 10, value)
		pdf.Ln(6)
	}

	line("Total Loans:", fmt.Sprintf("%d", summary.TotalLoans))
	line("Open Loans:", fmt.Sprintf("%d", summary.OpenLoans))
	line("Total Outstanding:", fmt.Sprintf("%.2f", summary.TotalOutstanding))
	line("Due Today:", fmt.Sprintf("%.2f", summary.TotalDueToday))
	line("Accrued Penalties:", fmt.Sprintf("%.2f", summary.TotalPenalty))
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Repayment Status")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	line("Fully Paid:", fmt.Sprintf("%d", summary.FullyPaid))
	line("Under Repayment:", fmt.Sprintf("%d", summary.UnderRepayment))
	line("Overdue:", fmt.Sprintf("%d", summary.Overdue))

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("portfolio_%s.pdf", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// RepaymentReceipt renders a PDF receipt for a single repayment.
// Receipts are immutable once issued, so the rendered file is cached
// on disk and served from there on subsequent requests.
func (s *ExportService) RepaymentReceipt(ctx context.Context, repaymentID uint) ([]byte, string, error) {
	filename := fmt.Sprintf("receipt_%d.pdf", repaymentID)
	cachePath := fmt.Sprintf("receipts/%d.pdf", repaymentID)

	if s.store != nil && s.store.Exists(cachePath) {
		data, err := s.store.Read(cachePath)
		if err == nil {
			return data, filename, nil
		}
	}

	repayment, err := s.repaymentRepo.FindByID(ctx, repaymentID)
	if err != nil {
		return nil, "", ErrNotFound
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Repayment Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	line := func(label, value string) {
		pdf.Cell(60, 8, label)
		pdf.Cell(80, 8, value)
		pdf.Ln(6)
	}

	line("Receipt No:", fmt.Sprintf("R%06d", repayment.ID))
	line("Date:", repayment.ReceivedAt.Format("2006-01-02 15:04"))
	line("Loan Number:", repayment.Loan.LoanNumber)
	if repayment.Loan.UnionMember.ID != 0 {
		line("Member:", repayment.Loan.UnionMember.FullName())
	}
	line("Amount:", fmt.Sprintf("%.2f", repayment.Amount))
	line("Method:", repayment.Method)
	if repayment.Reference != nil && *repayment.Reference != "" {
		line("Reference:", *repayment.Reference)
	}
	if repayment.ReceivedBy != nil {
		line("Received By:", repayment.ReceivedBy.FullName())
	}
	pdf.Ln(6)

	if len(repayment.Allocations) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(40, 10, "Applied To")
		pdf.Ln(8)

		pdf.SetFont("Arial", "", 10)
		for _, a := range repayment.Allocations {
			label := fmt.Sprintf("Installment %d", a.ScheduleItem.Sequence)
			if a.ScheduleItem.ID != 0 {
				label += fmt.Sprintf(" (due %s)", a.ScheduleItem.DueDate.Format("2006-01-02"))
			}
			line(label, fmt.Sprintf("%.2f", a.Amount))
		}
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	if s.store != nil {
		// Best effort; the receipt is still returned if caching fails
		_ = s.store.Write(cachePath, buf.Bytes())
	}

	return buf.Bytes(), filename, nil
}

func (s *ExportService) ExportRepaymentsCSV(ctx context.Context, query *repository.RepaymentQuery) ([]byte, string, error) {
	repayments, err := s.fetchRepayments(ctx, query)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Repayment Report", time.Now().Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"Date", "Loan Number", "Member", "Amount", "Method", "Reference", "Received By"})

	for i := range repayments {
		r := &repayments[i]
		member := ""
		if r.Loan.UnionMember.ID != 0 {
			member = r.Loan.UnionMember.FullName()
		}
		reference := ""
		if r.Reference != nil {
			reference = *r.Reference
		}
		receivedBy := ""
		if r.ReceivedBy != nil {
			receivedBy = r.ReceivedBy.FullName()
		}
		_ = writer.Write([]string{
			r.ReceivedAt.Format("2006-01-02 15:04"),
			r.Loan.LoanNumber,
			member,
			fmt.Sprintf("%.2f", r.Amount),
			r.Method,
			reference,
			receivedBy,
		})
	}
	writer.Flush()

	filename := fmt.Sprintf("repayments_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
