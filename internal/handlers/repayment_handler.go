package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/middleware"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/services"
)

type RepaymentHandler struct {
	repaymentService *services.RepaymentService
	metricsService   *services.MetricsService
	exportService    *services.ExportService
}

func NewRepaymentHandler(repaymentService *services.RepaymentService, metricsService *services.MetricsService, exportService *services.ExportService) *RepaymentHandler {
	return &RepaymentHandler{
		repaymentService: repaymentService,
		metricsService:   metricsService,
		exportService:    exportService,
	}
}

func (h *RepaymentHandler) buildQuery(c *gin.Context) *repository.RepaymentQuery {
	query := &repository.RepaymentQuery{ListQuery: repository.NewListQuery()}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.Query("sort_dir")
	if loanID, err := strconv.ParseUint(c.Query("loan_id"), 10, 32); err == nil {
		query.LoanID = uint(loanID)
	}
	if unionID, err := strconv.ParseUint(c.Query("union_id"), 10, 32); err == nil {
		query.UnionID = uint(unionID)
	}
	if startDate := c.Query("start_date"); startDate != "" {
		query.Filters["start_date"] = startDate
	}
	if endDate := c.Query("end_date"); endDate != "" {
		query.Filters["end_date"] = endDate
	}
	query.Filters["method"] = c.Query("method")

	query.IsAdmin = middleware.IsAdmin(c) || middleware.IsSupervisor(c)
	query.CreditOfficerID = middleware.GetUserID(c)
	return query
}

// @Summary List Repayments
// @Description Get a paginated list of repayments (scoped to the credit officer's unions unless admin)
// @Tags Repayments
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param loan_id query int false "Filter by loan"
// @Param start_date query string false "Received from (YYYY-MM-DD)"
// @Param end_date query string false "Received until (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /repayments [get]
func (h *RepaymentHandler) Index(c *gin.Context) {
	query := h.buildQuery(c)

	repayments, total, err := h.repaymentService.List(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []interface{}
	for i := range repayments {
		responses = append(responses, repayments[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"repayments": responses,
		"pagination": gin.H{
			"page":     query.Page,
			"per_page": query.PerPage,
			"total":    total,
		},
	})
}

// @Summary Get Repayment
// @Description Get a repayment by ID with its allocations
// @Tags Repayments
// @Accept json
// @Produce json
// @Param repayment_id path int true "Repayment ID"
// @Success 200 {object} models.RepaymentResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /repayments/{repayment_id} [get]
func (h *RepaymentHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("repayment_id"), 10, 32)
	repayment, err := h.repaymentService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Repayment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"repayment": repayment.ToResponse()})
}

// @Summary Record Repayment
// @Description Record a payment against a loan. The amount is validated against the outstanding balance before anything is persisted.
// @Tags Repayments
// @Accept json
// @Produce json
// @Param request body services.CreateRepaymentInput true "Repayment Data"
// @Success 201 {object} models.RepaymentResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /repayments [post]
func (h *RepaymentHandler) Create(c *gin.Context) {
	var input services.CreateRepaymentInput
	if err := BindNestedOrFlat(c, "repayment", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	repayment, err := h.repaymentService.Create(c.Request.Context(), &input, middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Loan or schedule item not found"})
		case errors.Is(err, services.ErrLoanNotOpen):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Loan is not open for repayments"})
		case errors.Is(err, services.ErrInvalidAmount):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Amount must be greater than zero"})
		case errors.Is(err, services.ErrAmountExceedsBalance):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Amount exceeds the outstanding balance"})
		case errors.Is(err, services.ErrInvalidMethod):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Unknown repayment method"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"repayment": repayment.ToResponse()})
}

// @Summary Repayment Receipt
// @Description Download the PDF receipt for a repayment
// @Tags Repayments
// @Produce application/pdf
// @Param repayment_id path int true "Repayment ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /repayments/{repayment_id}/receipt [get]
func (h *RepaymentHandler) Receipt(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("repayment_id"), 10, 32)
	data, filename, err := h.exportService.RepaymentReceipt(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Repayment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

// @Summary Portfolio Summary
// @Description Get aggregate repayment metrics across the open loan book
// @Tags Repayments
// @Accept json
// @Produce json
// @Success 200 {object} services.PortfolioSummary
// @Security BearerAuth
// @Router /repayments/summary [get]
func (h *RepaymentHandler) Summary(c *gin.Context) {
	summary, err := h.metricsService.GetPortfolioSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Export Repayments
// @Description Export repayments as CSV
// @Tags Repayments
// @Produce text/csv
// @Param start_date query string false "Received from (YYYY-MM-DD)"
// @Param end_date query string false "Received until (YYYY-MM-DD)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /repayments/export [get]
func (h *RepaymentHandler) Export(c *gin.Context) {
	query := h.buildQuery(c)

	data, filename, err := h.exportService.ExportRepaymentsCSV(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}

// @Summary Portfolio Report PDF
// @Description Download the portfolio summary as a PDF
// @Tags Repayments
// @Produce application/pdf
// @Success 200 {file} file
// @Security BearerAuth
// @Router /reports/portfolio [get]
func (h *RepaymentHandler) PortfolioReport(c *gin.Context) {
	data, filename, err := h.exportService.ExportPortfolioPDF(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}
