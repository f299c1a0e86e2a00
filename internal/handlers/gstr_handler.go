package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"tax-engine/internal/models"
	"tax-engine/internal/repository"
	"tax-engine/internal/services"
)

// GSTRHandler handles GST return generation and filing HTTP requests
type GSTRHandler struct {
	service *services.GSTRService
	repo    *repository.FilingRepository
}

// NewGSTRHandler creates a new GST return handler
func NewGSTRHandler(service *services.GSTRService, repo *repository.FilingRepository) *GSTRHandler {
	return &GSTRHandler{
		service: service,
		repo:    repo,
	}
}

// ListFilings returns all return filings for a tenant
func (h *GSTRHandler) ListFilings(c *gin.Context) {
	filings, err := h.repo.ListFilings(c.Request.Context(), getTenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list filings",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, filings)
}

// GetReturn returns the filing for a return type and period, generating
// a fresh draft when the period has not been filed yet
func (h *GSTRHandler) GetReturn(c *gin.Context) {
	returnType, ok := parseReturnType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid return type"})
		return
	}

	filing, err := h.service.GetReturn(c.Request.Context(), getTenantID(c), returnType, c.Param("period"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidPeriod) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid period",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate return",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, filing)
}

// FileReturn freezes the current draft for a period as filed
func (h *GSTRHandler) FileReturn(c *gin.Context) {
	returnType, ok := parseReturnType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid return type"})
		return
	}

	filing, err := h.service.File(c.Request.Context(), getTenantID(c), returnType, c.Param("period"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidPeriod) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid period",
				"message": err.Error(),
			})
			return
		}
		if errors.Is(err, repository.ErrAlreadyFiled) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Return already filed",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to file return",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, filing)
}

// parseReturnType maps the :type path segment to a return type
func parseReturnType(param string) (models.ReturnType, bool) {
	switch strings.ToLower(param) {
	case "gstr1":
		return models.ReturnTypeGSTR1, true
	case "gstr3b":
		return models.ReturnTypeGSTR3B, true
	}
	return "", false
}
