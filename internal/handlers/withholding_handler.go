package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"tax-engine/internal/events"
	"tax-engine/internal/models"
	"tax-engine/internal/repository"
	"tax-engine/internal/services"
)

// WithholdingHandler handles TDS and TCS HTTP requests
type WithholdingHandler struct {
	tdsService *services.TDSService
	tcsService *services.TCSService
	repo       *repository.WithholdingRepository
}

// NewWithholdingHandler creates a new withholding handler
func NewWithholdingHandler(tdsService *services.TDSService, tcsService *services.TCSService, repo *repository.WithholdingRepository) *WithholdingHandler {
	return &WithholdingHandler{
		tdsService: tdsService,
		tcsService: tcsService,
		repo:       repo,
	}
}

// ==================== TDS ====================

// CalculateTDS previews a TDS deduction without posting it
func (h *WithholdingHandler) CalculateTDS(c *gin.Context) {
	var req models.TDSDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	response, err := h.tdsService.CalculateTDS(c.Request.Context(), getTenantID(c), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}
		if errors.Is(err, services.ErrRateNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Withholding rate not configured",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to calculate TDS",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// RecordTDSDeduction posts a TDS deduction against a payment
func (h *WithholdingHandler) RecordTDSDeduction(c *gin.Context) {
	var req models.TDSDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	deduction, err := h.tdsService.RecordDeduction(c.Request.Context(), getTenantID(c), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}
		if errors.Is(err, services.ErrRateNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Withholding rate not configured",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to record TDS deduction",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, deduction)
}

// ListTDSDeductions returns posted TDS deductions, optionally filtered
// by financial year, quarter and deductee
func (h *WithholdingHandler) ListTDSDeductions(c *gin.Context) {
	var deducteeID *uuid.UUID
	if idStr := c.Query("deducteeId"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deductee ID"})
			return
		}
		deducteeID = &id
	}

	deductions, err := h.repo.ListDeductions(c.Request.Context(), getTenantID(c), c.Query("financialYear"), c.Query("quarter"), deducteeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list TDS deductions",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, deductions)
}

// ListTDSRates returns the configured TDS section rates
func (h *WithholdingHandler) ListTDSRates(c *gin.Context) {
	rates, err := h.repo.ListTDSRates(c.Request.Context(), getTenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list TDS rates",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, rates)
}

// CreateTDSRate configures a TDS rate for a section
func (h *WithholdingHandler) CreateTDSRate(c *gin.Context) {
	var rate models.TDSRate
	if err := c.ShouldBindJSON(&rate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	rate.TenantID = getTenantID(c)

	if err := h.repo.CreateTDSRate(c.Request.Context(), &rate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create TDS rate",
			"message": err.Error(),
		})
		return
	}

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishWithholdingRateSaved(c.Request.Context(), rate.TenantID, rate.ID.String(), rate.RateWithPAN.InexactFloat64())
	}

	c.JSON(http.StatusCreated, rate)
}

// UpdateTDSRate updates a configured TDS rate
func (h *WithholdingHandler) UpdateTDSRate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rate ID"})
		return
	}

	var rate models.TDSRate
	if err := c.ShouldBindJSON(&rate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	rate.ID = id
	rate.TenantID = getTenantID(c)

	if err := h.repo.UpdateTDSRate(c.Request.Context(), &rate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update TDS rate",
			"message": err.Error(),
		})
		return
	}

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishWithholdingRateSaved(c.Request.Context(), rate.TenantID, rate.ID.String(), rate.RateWithPAN.InexactFloat64())
	}

	c.JSON(http.StatusOK, rate)
}

// ==================== TCS ====================

// CalculateTCS previews a TCS collection without posting it
func (h *WithholdingHandler) CalculateTCS(c *gin.Context) {
	var req models.TCSCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	response, err := h.tcsService.CalculateTCS(c.Request.Context(), getTenantID(c), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}
		if errors.Is(err, services.ErrRateNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Withholding rate not configured",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to calculate TCS",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// RecordTCSCollection posts a TCS collection against a sale
func (h *WithholdingHandler) RecordTCSCollection(c *gin.Context) {
	var req models.TCSCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	collection, err := h.tcsService.RecordCollection(c.Request.Context(), getTenantID(c), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}
		if errors.Is(err, services.ErrRateNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Withholding rate not configured",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to record TCS collection",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, collection)
}

// ListTCSCollections returns posted TCS collections, optionally filtered
// by financial year, quarter and customer
func (h *WithholdingHandler) ListTCSCollections(c *gin.Context) {
	var customerID *uuid.UUID
	if idStr := c.Query("customerId"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
			return
		}
		customerID = &id
	}

	collections, err := h.repo.ListCollections(c.Request.Context(), getTenantID(c), c.Query("financialYear"), c.Query("quarter"), customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list TCS collections",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, collections)
}

// ListTCSRates returns the configured TCS section rates
func (h *WithholdingHandler) ListTCSRates(c *gin.Context) {
	rates, err := h.repo.ListTCSRates(c.Request.Context(), getTenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list TCS rates",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, rates)
}

// CreateTCSRate configures a TCS rate for a section
func (h *WithholdingHandler) CreateTCSRate(c *gin.Context) {
	var rate models.TCSRate
	if err := c.ShouldBindJSON(&rate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	rate.TenantID = getTenantID(c)

	if err := h.repo.CreateTCSRate(c.Request.Context(), &rate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create TCS rate",
			"message": err.Error(),
		})
		return
	}

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishWithholdingRateSaved(c.Request.Context(), rate.TenantID, rate.ID.String(), rate.RateWithPAN.InexactFloat64())
	}

	c.JSON(http.StatusCreated, rate)
}

// UpdateTCSRate updates a configured TCS rate
func (h *WithholdingHandler) UpdateTCSRate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rate ID"})
		return
	}

	var rate models.TCSRate
	if err := c.ShouldBindJSON(&rate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	rate.ID = id
	rate.TenantID = getTenantID(c)

	if err := h.repo.UpdateTCSRate(c.Request.Context(), &rate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update TCS rate",
			"message": err.Error(),
		})
		return
	}

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishWithholdingRateSaved(c.Request.Context(), rate.TenantID, rate.ID.String(), rate.RateWithPAN.InexactFloat64())
	}

	c.JSON(http.StatusOK, rate)
}
