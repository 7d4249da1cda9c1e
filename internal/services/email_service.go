package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/config"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/pkg/logger"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

// appURL should come from config
const appURL = "https://dashboard.milleniumpotters.com"

type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

func (s *EmailService) SendRecoveryCode(ctx context.Context, user *models.User, code string) error {
	data := struct {
		Name    string
		Code    string
		Minutes int
		AppURL  string
	}{
		Name:    user.FullName(),
		Code:    code,
		Minutes: 15,
		AppURL:  appURL,
	}

	body, err := s.renderTemplate("reset_code.html", data)
	if err != nil {
		return err
	}

	return s.send(user.Email, "Password reset code", body)
}

func (s *EmailService) SendAccountCreated(ctx context.Context, user *models.User) error {
	data := struct {
		Name   string
		Email  string
		Role   string
		AppURL string
	}{
		Name:   user.FullName(),
		Email:  user.Email,
		Role:   user.Role,
		AppURL: appURL,
	}

	body, err := s.renderTemplate("account_created.html", data)
	if err != nil {
		return err
	}

	return s.send(user.Email, "Welcome to Millenium Potters", body)
}

// SendLoanApproved notifies the credit officer that a loan in their
// portfolio was approved. The loan must come preloaded with its union,
// member and credit officer.
func (s *EmailService) SendLoanApproved(ctx context.Context, loan *models.Loan) error {
	if loan.Union.CreditOfficer == nil {
		return nil
	}
	officer := loan.Union.CreditOfficer

	data := struct {
		Name       string
		LoanNumber string
		MemberName string
		UnionName  string
		Principal  string
		TermCount  int
		TermUnit   string
		AppURL     string
	}{
		Name:       officer.FullName(),
		LoanNumber: loan.LoanNumber,
		MemberName: loan.UnionMember.FullName(),
		UnionName:  loan.Union.Name,
		Principal:  fmt.Sprintf("%.2f", loan.PrincipalAmount),
		TermCount:  loan.TermCount,
		TermUnit:   loan.TermUnit,
		AppURL:     appURL,
	}

	body, err := s.renderTemplate("loan_approved.html", data)
	if err != nil {
		return err
	}

	return s.send(officer.Email, fmt.Sprintf("Loan %s approved", loan.LoanNumber), body)
}

type DueInstallmentData struct {
	LoanNumber string
	MemberName string
	Amount     string
	DueDate    string
}

// SendDueInstallments sends a credit officer the list of installments
// falling due, grouped into a single reminder email.
func (s *EmailService) SendDueInstallments(ctx context.Context, officer *models.User, items []models.RepaymentScheduleItem) error {
	var rows []DueInstallmentData
	for _, item := range items {
		rows = append(rows, DueInstallmentData{
			LoanNumber: item.Loan.LoanNumber,
			MemberName: item.Loan.UnionMember.FullName(),
			Amount:     fmt.Sprintf("%.2f", item.Remaining()),
			DueDate:    item.DueDate.Format("02/01/2006"),
		})
	}

	data := struct {
		Name         string
		Installments []DueInstallmentData
		AppURL       string
	}{
		Name:         officer.FullName(),
		Installments: rows,
		AppURL:       appURL,
	}

	body, err := s.renderTemplate("due_installments.html", data)
	if err != nil {
		return err
	}

	return s.send(officer.Email, fmt.Sprintf("Installments due (%d)", len(items)), body)
}

func (s *EmailService) send(to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	if _, err := s.resendClient.Emails.Send(params); err != nil {
		logger.Error(fmt.Sprintf("Failed to send email to %s: %v", to, err))
		return err
	}

	logger.Info(fmt.Sprintf("📧 [Email Sent] To: %s | Subject: %s", to, subject))
	return nil
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
