package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"tax-engine/internal/models"
	"tax-engine/internal/repository"
	"tax-engine/internal/services"
)

// ITCHandler handles input tax credit HTTP requests
type ITCHandler struct {
	service *services.ITCService
	repo    *repository.ITCRepository
}

// NewITCHandler creates a new input tax credit handler
func NewITCHandler(service *services.ITCService, repo *repository.ITCRepository) *ITCHandler {
	return &ITCHandler{
		service: service,
		repo:    repo,
	}
}

// RecordITC records GST paid on a purchase invoice as available credit
func (h *ITCHandler) RecordITC(c *gin.Context) {
	var req models.RecordITCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	itc, err := h.service.Record(c.Request.Context(), getTenantID(c), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to record input tax credit",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, itc)
}

// ListITC returns input tax credits, optionally filtered by status and
// claim period
func (h *ITCHandler) ListITC(c *gin.Context) {
	status := models.ITCStatus(c.Query("status"))
	period := c.Query("period")

	credits, err := h.repo.ListITC(c.Request.Context(), getTenantID(c), status, period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list input tax credits",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, credits)
}

// GetITCSummary returns the per-status ITC rollup for a tenant
func (h *ITCHandler) GetITCSummary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), getTenantID(c), c.Query("period"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidPeriod) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid period",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to summarize input tax credits",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ClaimITC marks an available credit as claimed in a return
func (h *ITCHandler) ClaimITC(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credit ID"})
		return
	}

	itc, err := h.service.Claim(c.Request.Context(), getTenantID(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Input tax credit not found"})
			return
		}
		if errors.Is(err, services.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Invalid status transition",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to claim input tax credit",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, itc)
}

// ReverseITC reverses a previously recorded credit
func (h *ITCHandler) ReverseITC(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credit ID"})
		return
	}

	var req models.ReverseITCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	itc, err := h.service.Reverse(c.Request.Context(), getTenantID(c), id, req.Reason)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Input tax credit not found"})
			return
		}
		if errors.Is(err, services.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Invalid status transition",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reverse input tax credit",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, itc)
}
