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

type LoanHandler struct {
	loanService   *services.LoanService
	metricsService *services.MetricsService
	exportService *services.ExportService
}

func NewLoanHandler(loanService *services.LoanService, metricsService *services.MetricsService, exportService *services.ExportService) *LoanHandler {
	return &LoanHandler{
		loanService:   loanService,
		metricsService: metricsService,
		exportService: exportService,
	}
}

func (h *LoanHandler) buildQuery(c *gin.Context) *repository.LoanQuery {
	query := &repository.LoanQuery{ListQuery: repository.NewListQuery()}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Status = c.Query("status")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.Query("sort_dir")
	if unionID, err := strconv.ParseUint(c.Query("union_id"), 10, 32); err == nil {
		query.UnionID = uint(unionID)
	}
	if memberID, err := strconv.ParseUint(c.Query("member_id"), 10, 32); err == nil {
		query.UnionMemberID = uint(memberID)
	}
	if startDate := c.Query("start_date"); startDate != "" {
		query.Filters["start_date"] = startDate
	}
	if endDate := c.Query("end_date"); endDate != "" {
		query.Filters["end_date"] = endDate
	}
	if statusIn := c.Query("status_in"); statusIn != "" {
		query.Filters["status_in"] = statusIn
	}

	// Admins and supervisors see the whole book; credit officers only
	// see loans in their own unions
	query.IsAdmin = middleware.IsAdmin(c) || middleware.IsSupervisor(c)
	query.CreditOfficerID = middleware.GetUserID(c)
	return query
}

// @Summary List Loans
// @Description Get a paginated list of loans (scoped to the credit officer's unions unless admin)
// @Tags Loans
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search term"
// @Param status query string false "Filter by status"
// @Param union_id query int false "Filter by union"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /loans [get]
func (h *LoanHandler) Index(c *gin.Context) {
	query := h.buildQuery(c)

	loans, total, err := h.loanService.List(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []interface{}
	for i := range loans {
		responses = append(responses, loans[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Get Loan Stats
// @Description Get loan count statistics by status
// @Tags Loans
// @Accept json
// @Produce json
// @Success 200 {object} repository.LoanStats
// @Security BearerAuth
// @Router /loans/stats [get]
func (h *LoanHandler) GetStats(c *gin.Context) {
	stats, err := h.loanService.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Get Loan
// @Description Get a loan by ID with its schedule and repayments
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /loans/{loan_id} [get]
func (h *LoanHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	loan, err := h.loanService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
}

// @Summary Get Loan Metrics
// @Description Get live repayment metrics for a loan (daily due, outstanding, penalty, status)
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} metrics.RepaymentMetrics
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /loans/{loan_id}/metrics [get]
func (h *LoanHandler) Metrics(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	m, err := h.metricsService.GetLoanMetrics(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": m})
}

// @Summary Create Loan
// @Description Register a new loan in draft state
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body services.CreateLoanInput true "Loan Data"
// @Success 201 {object} models.LoanResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	var input services.CreateLoanInput
	if err := BindNestedOrFlat(c, "loan", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.loanService.Create(c.Request.Context(), &input, middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Member or loan type not found"})
		case errors.Is(err, services.ErrMemberHasOpenLoan):
			c.JSON(http.StatusConflict, gin.H{"error": "Member already has an open loan"})
		case errors.Is(err, services.ErrAmountOutOfRange):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Principal amount is outside the range allowed by the loan type"})
		case errors.Is(err, services.ErrInvalidAmount):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Principal amount must be greater than zero"})
		default:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"loan": loan.ToResponse()})
}

// lifecycleAction runs one of the loan state transitions and renders
// the common error handling
func (h *LoanHandler) lifecycleAction(c *gin.Context, action func(ctx *gin.Context, id uint) error) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	if err := action(c, uint(id)); err != nil {
		if errors.Is(err, services.ErrInvalidState) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Loan is not in a state that allows this action"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
}

// @Summary Submit Loan
// @Description Send a draft loan for approval
// @Tags Loans
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /loans/{loan_id}/submit [post]
func (h *LoanHandler) Submit(c *gin.Context) {
	h.lifecycleAction(c, func(ctx *gin.Context, id uint) error {
		loan, err := h.loanService.Submit(ctx.Request.Context(), id, middleware.GetUserID(ctx), ctx.ClientIP(), ctx.Request.UserAgent())
		if err != nil {
			return err
		}
		ctx.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
		return nil
	})
}

// @Summary Approve Loan
// @Description Approve a pending loan (Admin/Supervisor)
// @Tags Loans
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /loans/{loan_id}/approve [post]
func (h *LoanHandler) Approve(c *gin.Context) {
	h.lifecycleAction(c, func(ctx *gin.Context, id uint) error {
		loan, err := h.loanService.Approve(ctx.Request.Context(), id, middleware.GetUserID(ctx), ctx.ClientIP(), ctx.Request.UserAgent())
		if err != nil {
			return err
		}
		ctx.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
		return nil
	})
}

// @Summary Disburse Loan
// @Description Activate an approved loan and generate its repayment schedule
// @Tags Loans
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /loans/{loan_id}/disburse [post]
func (h *LoanHandler) Disburse(c *gin.Context) {
	h.lifecycleAction(c, func(ctx *gin.Context, id uint) error {
		loan, err := h.loanService.Disburse(ctx.Request.Context(), id, middleware.GetUserID(ctx), ctx.ClientIP(), ctx.Request.UserAgent())
		if err != nil {
			return err
		}
		ctx.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
		return nil
	})
}

type CancelLoanRequest struct {
	Reason string `json:"reason"`
}

// @Summary Cancel Loan
// @Description Void a loan that has not been disbursed yet
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Param request body CancelLoanRequest false "Cancellation Reason"
// @Success 200 {object} models.LoanResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /loans/{loan_id}/cancel [post]
func (h *LoanHandler) Cancel(c *gin.Context) {
	var req CancelLoanRequest
	BindNestedOrFlat(c, "loan", &req)

	h.lifecycleAction(c, func(ctx *gin.Context, id uint) error {
		loan, err := h.loanService.Cancel(ctx.Request.Context(), id, middleware.GetUserID(ctx), req.Reason, ctx.ClientIP(), ctx.Request.UserAgent())
		if err != nil {
			return err
		}
		ctx.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
		return nil
	})
}

// @Summary Export Loans
// @Description Export the loan book as CSV or XLSX
// @Tags Loans
// @Produce application/octet-stream
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /loans/export [get]
func (h *LoanHandler) Export(c *gin.Context) {
	query := h.buildQuery(c)

	var (
		data     []byte
		filename string
		err      error
	)
	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		data, filename, err = h.exportService.ExportLoansXLSX(c.Request.Context(), query)
		if err == nil {
			c.Header("Content-Disposition", "attachment; filename="+filename)
			c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
			return
		}
	default:
		data, filename, err = h.exportService.ExportLoansCSV(c.Request.Context(), query)
		if err == nil {
			c.Header("Content-Disposition", "attachment; filename="+filename)
			c.Data(http.StatusOK, "text/csv", data)
			return
		}
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
