package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/middleware"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/services"
)

type UnionHandler struct {
	unionService *services.UnionService
}

func NewUnionHandler(unionService *services.UnionService) *UnionHandler {
	return &UnionHandler{unionService: unionService}
}

// @Summary List Unions
// @Description Get a paginated list of unions
// @Tags Unions
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search term"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /unions [get]
func (h *UnionHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")

	// Credit officers only see their own unions
	if !middleware.IsAdmin(c) && !middleware.IsSupervisor(c) {
		unions, err := h.unionService.FindByCreditOfficer(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var responses []interface{}
		for _, u := range unions {
			responses = append(responses, u.ToResponse())
		}
		c.JSON(http.StatusOK, gin.H{"unions": responses, "pagination": gin.H{"total": len(unions)}})
		return
	}

	unions, total, err := h.unionService.List(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []interface{}
	for _, u := range unions {
		responses = append(responses, u.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"unions": responses, "pagination": gin.H{"total": total}})
}

// @Summary Get Union
// @Description Get a union by ID with its members
// @Tags Unions
// @Accept json
// @Produce json
// @Param union_id path int true "Union ID"
// @Success 200 {object} models.UnionResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /unions/{union_id} [get]
func (h *UnionHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("union_id"), 10, 32)
	union, err := h.unionService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Union not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"union": union.ToResponse()})
}

// @Summary Create Union
// @Description Create a new union
// @Tags Unions
// @Accept json
// @Produce json
// @Param request body models.Union true "Union Data"
// @Success 201 {object} models.UnionResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /unions [post]
func (h *UnionHandler) Create(c *gin.Context) {
	var union models.Union
	if err := BindNestedOrFlat(c, "union", &union); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if union.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Union name is required"})
		return
	}

	if err := h.unionService.Create(c.Request.Context(), &union, middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "A union with that code already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"union": union.ToResponse()})
}

// @Summary Update Union
// @Description Update an existing union
// @Tags Unions
// @Accept json
// @Produce json
// @Param union_id path int true "Union ID"
// @Param request body models.Union true "Union Data"
// @Success 200 {object} models.UnionResponse
// @Security BearerAuth
// @Router /unions/{union_id} [put]
func (h *UnionHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("union_id"), 10, 32)
	existing, err := h.unionService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Union not found"})
		return
	}

	var union models.Union
	if err := BindNestedOrFlat(c, "union", &union); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	union.ID = uint(id)
	if union.Code == "" {
		union.Code = existing.Code
	}
	if union.Name == "" {
		union.Name = existing.Name
	}
	if union.CreditOfficerID == nil {
		union.CreditOfficerID = existing.CreditOfficerID
	}

	if err := h.unionService.Update(c.Request.Context(), &union, middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"union": union.ToResponse()})
}

// @Summary Delete Union
// @Description Soft delete a union (refused while it has open loans)
// @Tags Unions
// @Accept json
// @Produce json
// @Param union_id path int true "Union ID"
// @Success 200 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /unions/{union_id} [delete]
func (h *UnionHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("union_id"), 10, 32)
	if err := h.unionService.Delete(c.Request.Context(), uint(id), middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrInvalidState) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Union still has open loans"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Union deleted"})
}

type UnionMemberHandler struct {
	memberService *services.UnionMemberService
}

func NewUnionMemberHandler(memberService *services.UnionMemberService) *UnionMemberHandler {
	return &UnionMemberHandler{memberService: memberService}
}

// @Summary List Union Members
// @Description Get the members of a union
// @Tags Members
// @Accept json
// @Produce json
// @Param union_id path int true "Union ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /unions/{union_id}/members [get]
func (h *UnionMemberHandler) Index(c *gin.Context) {
	unionID, _ := strconv.ParseUint(c.Param("union_id"), 10, 32)
	members, err := h.memberService.FindByUnion(c.Request.Context(), uint(unionID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []interface{}
	for _, m := range members {
		responses = append(responses, m.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"members": responses})
}

// @Summary Search Members
// @Description Search members across all unions
// @Tags Members
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search term"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /members [get]
func (h *UnionMemberHandler) Search(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Filters["union_id"] = c.Query("union_id")

	members, total, err := h.memberService.List(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []interface{}
	for _, m := range members {
		responses = append(responses, m.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"members": responses, "pagination": gin.H{"total": total}})
}

// @Summary Get Member
// @Description Get a union member by ID
// @Tags Members
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Success 200 {object} models.UnionMemberResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /members/{member_id} [get]
func (h *UnionMemberHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("member_id"), 10, 32)
	member, err := h.memberService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member.ToResponse()})
}

// @Summary Create Member
// @Description Register a new member in a union
// @Tags Members
// @Accept json
// @Produce json
// @Param union_id path int true "Union ID"
// @Param request body models.UnionMember true "Member Data"
// @Success 201 {object} models.UnionMemberResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /unions/{union_id}/members [post]
func (h *UnionMemberHandler) Create(c *gin.Context) {
	unionID, _ := strconv.ParseUint(c.Param("union_id"), 10, 32)
	var member models.UnionMember
	if err := BindNestedOrFlat(c, "member", &member); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	member.UnionID = uint(unionID)
	if member.FirstName == "" && member.LastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Member name is required"})
		return
	}

	if err := h.memberService.Create(c.Request.Context(), &member, middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "A member with that code already exists"})
			return
		}
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Union not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"member": member.ToResponse()})
}

// @Summary Update Member
// @Description Update an existing union member
// @Tags Members
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Param request body models.UnionMember true "Member Data"
// @Success 200 {object} models.UnionMemberResponse
// @Security BearerAuth
// @Router /members/{member_id} [put]
func (h *UnionMemberHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("member_id"), 10, 32)
	var member models.UnionMember
	if err := BindNestedOrFlat(c, "member", &member); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	member.ID = uint(id)

	if err := h.memberService.Update(c.Request.Context(), &member, middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"member": member.ToResponse()})
}

// @Summary Delete Member
// @Description Soft delete a union member
// @Tags Members
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /members/{member_id} [delete]
func (h *UnionMemberHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("member_id"), 10, 32)
	if err := h.memberService.Delete(c.Request.Context(), uint(id), middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member deleted"})
}

type LoanTypeHandler struct {
	loanTypeService *services.LoanTypeService
}

func NewLoanTypeHandler(loanTypeService *services.LoanTypeService) *LoanTypeHandler {
	return &LoanTypeHandler{loanTypeService: loanTypeService}
}

// @Summary List Loan Types
// @Description Get all loan types (active only unless all=true)
// @Tags LoanTypes
// @Accept json
// @Produce json
// @Param all query bool false "Include inactive types"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /loan_types [get]
func (h *LoanTypeHandler) Index(c *gin.Context) {
	var (
		types []models.LoanType
		err   error
	)
	if c.Query("all") == "true" {
		types, err = h.loanTypeService.FindAll(c.Request.Context())
	} else {
		types, err = h.loanTypeService.FindActive(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"loan_types": types})
}

// @Summary Create Loan Type
// @Description Create a new loan product (Admin)
// @Tags LoanTypes
// @Accept json
// @Produce json
// @Param request body models.LoanType true "Loan Type Data"
// @Success 201 {object} models.LoanType
// @Security BearerAuth
// @Router /loan_types [post]
func (h *LoanTypeHandler) Create(c *gin.Context) {
	var loanType models.LoanType
	if err := BindNestedOrFlat(c, "loan_type", &loanType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if loanType.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Loan type name is required"})
		return
	}

	if err := h.loanTypeService.Create(c.Request.Context(), &loanType, middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrAmountOutOfRange) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid amount range"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"loan_type": loanType})
}

// @Summary Update Loan Type
// @Description Update an existing loan product (Admin)
// @Tags LoanTypes
// @Accept json
// @Produce json
// @Param loan_type_id path int true "Loan Type ID"
// @Param request body models.LoanType true "Loan Type Data"
// @Success 200 {object} models.LoanType
// @Security BearerAuth
// @Router /loan_types/{loan_type_id} [put]
func (h *LoanTypeHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_type_id"), 10, 32)
	var loanType models.LoanType
	if err := BindNestedOrFlat(c, "loan_type", &loanType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loanType.ID = uint(id)

	if err := h.loanTypeService.Update(c.Request.Context(), &loanType, middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrAmountOutOfRange) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid amount range"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"loan_type": loanType})
}

// @Summary Delete Loan Type
// @Description Soft delete a loan product (Admin)
// @Tags LoanTypes
// @Accept json
// @Produce json
// @Param loan_type_id path int true "Loan Type ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /loan_types/{loan_type_id} [delete]
func (h *LoanTypeHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_type_id"), 10, 32)
	if err := h.loanTypeService.Delete(c.Request.Context(), uint(id), middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Loan type deleted"})
}
