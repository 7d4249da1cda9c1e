package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/config"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/pkg/logger"
)

func TestEmailService_RenderTemplates(t *testing.T) {
	logger.Setup("test")
	service := NewEmailService(&config.Config{FromEmail: "noreply@example.com"})

	t.Run("reset code", func(t *testing.T) {
		data := struct {
			Name    string
			Code    string
			Minutes int
			AppURL  string
		}{Name: "Ada Obi", Code: "482913", Minutes: 15, AppURL: appURL}

		body, err := service.renderTemplate("reset_code.html", data)
		assert.NoError(t, err)
		assert.Contains(t, body, "Ada Obi")
		assert.Contains(t, body, "482913")
		assert.Contains(t, body, "15")
	})

	t.Run("account created", func(t *testing.T) {
		data := struct {
			Name   string
			Email  string
			Role   string
			AppURL string
		}{Name: "Ada Obi", Email: "ada@example.com", Role: models.RoleCreditOfficer, AppURL: appURL}

		body, err := service.renderTemplate("account_created.html", data)
		assert.NoError(t, err)
		assert.Contains(t, body, "ada@example.com")
		assert.Contains(t, body, appURL)
	})

	t.Run("due installments lists every row", func(t *testing.T) {
		data := struct {
			Name         string
			Installments []DueInstallmentData
			AppURL       string
		}{
			Name: "Ada Obi",
			Installments: []DueInstallmentData{
				{LoanNumber: "LN00000001", MemberName: "Chinedu Eze", Amount: "250.00", DueDate: "01/09/2026"},
				{LoanNumber: "LN00000002", MemberName: "Bola Ade", Amount: "100.00", DueDate: "01/09/2026"},
			},
			AppURL: appURL,
		}

		body, err := service.renderTemplate("due_installments.html", data)
		assert.NoError(t, err)
		assert.Contains(t, body, "LN00000001")
		assert.Contains(t, body, "LN00000002")
		assert.Contains(t, body, "Chinedu Eze")
		assert.Contains(t, body, "250.00")
	})

	t.Run("unknown template fails", func(t *testing.T) {
		_, err := service.renderTemplate("missing.html", nil)
		assert.Error(t, err)
	})
}

func TestEmailService_SendLoanApproved_NoOfficer(t *testing.T) {
	logger.Setup("test")
	service := NewEmailService(&config.Config{FromEmail: "noreply@example.com"})

	start := time.Now()
	loan := &models.Loan{
		LoanNumber:      "LN00000009",
		PrincipalAmount: 5000,
		TermCount:       3,
		TermUnit:        models.TermUnitMonth,
		StartDate:       &start,
		Union:           models.Union{Name: "Aba Traders"},
	}

	// Without a credit officer there is nobody to notify; the call is a no-op
	err := service.SendLoanApproved(context.Background(), loan)
	assert.NoError(t, err)
}
