package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/middleware"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/services"
)

type MemberDocumentHandler struct {
	documentService *services.MemberDocumentService
}

func NewMemberDocumentHandler(documentService *services.MemberDocumentService) *MemberDocumentHandler {
	return &MemberDocumentHandler{documentService: documentService}
}

// @Summary List Member Documents
// @Description Get the documents on record for a union member
// @Tags Members
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /members/{member_id}/documents [get]
func (h *MemberDocumentHandler) Index(c *gin.Context) {
	memberID, _ := strconv.ParseUint(c.Param("member_id"), 10, 32)
	docs, err := h.documentService.FindByMember(c.Request.Context(), uint(memberID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []interface{}
	for _, d := range docs {
		responses = append(responses, d.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"documents": responses})
}

// @Summary Upload Member Document
// @Description Upload a document (jpg, png, pdf, doc) for a union member, 5MB max
// @Tags Members
// @Accept multipart/form-data
// @Produce json
// @Param member_id path int true "Member ID"
// @Param file formData file true "Document file"
// @Success 201 {object} models.MemberDocumentResponse
// @Failure 404 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /members/{member_id}/documents [post]
func (h *MemberDocumentHandler) Upload(c *gin.Context) {
	memberID, _ := strconv.ParseUint(c.Param("member_id"), 10, 32)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.documentService.Upload(c.Request.Context(), uint(memberID),
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data, middleware.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		case errors.Is(err, services.ErrDocumentTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Document exceeds the 5MB limit"})
		case errors.Is(err, services.ErrUnsupportedDocument):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Only jpg, jpeg, png, pdf, doc and docx files are accepted"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"document": doc.ToResponse()})
}

// @Summary Download Member Document
// @Description Download a member document
// @Tags Members
// @Produce octet-stream
// @Param member_id path int true "Member ID"
// @Param document_id path int true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /members/{member_id}/documents/{document_id} [get]
func (h *MemberDocumentHandler) Download(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("document_id"), 10, 32)
	doc, data, err := h.documentService.Download(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, data)
}

// @Summary Delete Member Document
// @Description Remove a member document and its stored file
// @Tags Members
// @Accept json
// @Produce json
// @Param member_id path int true "Member ID"
// @Param document_id path int true "Document ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /members/{member_id}/documents/{document_id} [delete]
func (h *MemberDocumentHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("document_id"), 10, 32)
	if err := h.documentService.Delete(c.Request.Context(), uint(id), middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
