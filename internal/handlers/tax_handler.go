package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"tax-engine/internal/events"
	"tax-engine/internal/models"
	"tax-engine/internal/repository"
	"tax-engine/internal/services"
)

// TaxHandler handles GST calculation and tax reference data HTTP requests
type TaxHandler struct {
	calculator *services.TaxCalculator
	repo       *repository.TaxRepository
}

// NewTaxHandler creates a new tax handler
func NewTaxHandler(calculator *services.TaxCalculator, repo *repository.TaxRepository) *TaxHandler {
	return &TaxHandler{
		calculator: calculator,
		repo:       repo,
	}
}

// ==================== Tax Calculation ====================

// CalculateTax handles tax calculation requests
func (h *TaxHandler) CalculateTax(c *gin.Context) {
	var req models.CalculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	req.TenantID = getTenantID(c)

	response, err := h.calculator.CalculateTax(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) || errors.Is(err, services.ErrInvalidJurisdiction) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to calculate tax",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// ValidateAddress handles address validation requests
func (h *TaxHandler) ValidateAddress(c *gin.Context) {
	var req models.ValidateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	response, err := h.calculator.ValidateAddress(c.Request.Context(), req.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to validate address",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// ==================== Jurisdiction Management ====================

// ListJurisdictions returns all jurisdictions for a tenant
func (h *TaxHandler) ListJurisdictions(c *gin.Context) {
	tenantID := getTenantID(c)

	jurisdictions, err := h.repo.ListJurisdictions(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list jurisdictions",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, jurisdictions)
}

// GetJurisdiction returns a specific jurisdiction
func (h *TaxHandler) GetJurisdiction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid jurisdiction ID"})
		return
	}

	jurisdiction, err := h.repo.GetJurisdiction(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Jurisdiction not found"})
		return
	}

	c.JSON(http.StatusOK, jurisdiction)
}

// CreateJurisdiction creates a new jurisdiction
func (h *TaxHandler) CreateJurisdiction(c *gin.Context) {
	var jurisdiction models.TaxJurisdiction
	if err := c.ShouldBindJSON(&jurisdiction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	jurisdiction.TenantID = getTenantID(c)

	if err := h.repo.CreateJurisdiction(c.Request.Context(), &jurisdiction); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create jurisdiction",
			"message": err.Error(),
		})
		return
	}

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishJurisdictionCreated(c.Request.Context(), jurisdiction.TenantID, jurisdiction.ID.String(), jurisdiction.Name, string(jurisdiction.Type))
	}

	c.JSON(http.StatusCreated, jurisdiction)
}

// UpdateJurisdiction updates an existing jurisdiction
func (h *TaxHandler) UpdateJurisdiction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid jurisdiction ID"})
		return
	}

	var jurisdiction models.TaxJurisdiction
	if err := c.ShouldBindJSON(&jurisdiction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	jurisdiction.ID = id
	jurisdiction.TenantID = getTenantID(c)

	if err := h.repo.UpdateJurisdiction(c.Request.Context(), &jurisdiction); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update jurisdiction",
			"message": err.Error(),
		})
		return
	}

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishJurisdictionUpdated(c.Request.Context(), jurisdiction.TenantID, jurisdiction.ID.String(), jurisdiction.Name)
	}

	c.JSON(http.StatusOK, jurisdiction)
}

// DeleteJurisdiction deletes a jurisdiction
func (h *TaxHandler) DeleteJurisdiction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid jurisdiction ID"})
		return
	}

	if err := h.repo.DeleteJurisdiction(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete jurisdiction",
			"message": err.Error(),
		})
		return
	}

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishJurisdictionDeleted(c.Request.Context(), getTenantID(c), id.String())
	}

	c.JSON(http.StatusOK, gin.H{"message": "Jurisdiction deleted successfully"})
}

// ==================== Product Tax Categories ====================

// ListProductCategories returns all product tax categories for a tenant
func (h *TaxHandler) ListProductCategories(c *gin.Context) {
	tenantID := getTenantID(c)

	categories, err := h.repo.ListProductCategories(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list product categories",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, categories)
}

// GetProductCategory returns a specific product tax category
func (h *TaxHandler) GetProductCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	category, err := h.repo.GetProductCategory(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product category not found"})
		return
	}

	c.JSON(http.StatusOK, category)
}

// CreateProductCategory creates a new product tax category
func (h *TaxHandler) CreateProductCategory(c *gin.Context) {
	var category models.ProductTaxCategory
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	category.TenantID = getTenantID(c)

	if err := h.repo.CreateProductCategory(c.Request.Context(), &category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create product category",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, category)
}

// UpdateProductCategory updates an existing product tax category
func (h *TaxHandler) UpdateProductCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	var category models.ProductTaxCategory
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	category.ID = id
	category.TenantID = getTenantID(c)

	if err := h.repo.UpdateProductCategory(c.Request.Context(), &category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update product category",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteProductCategory deletes a product tax category
func (h *TaxHandler) DeleteProductCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	if err := h.repo.DeleteProductCategory(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete product category",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product category deleted successfully"})
}

// ==================== GST Registrations ====================

// ListRegistrations returns all GST registrations for a tenant
func (h *TaxHandler) ListRegistrations(c *gin.Context) {
	tenantID := getTenantID(c)

	registrations, err := h.repo.ListRegistrations(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list registrations",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, registrations)
}

// CreateRegistration registers a tenant's GSTIN for a state
func (h *TaxHandler) CreateRegistration(c *gin.Context) {
	var registration models.GSTRegistration
	if err := c.ShouldBindJSON(&registration); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return
	}

	registration.TenantID = getTenantID(c)
	if registration.EffectiveDate.IsZero() {
		registration.EffectiveDate = time.Now()
	}

	if err := h.repo.CreateRegistration(c.Request.Context(), &registration); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create registration",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, registration)
}

// getTenantID extracts tenant ID from the request context
func getTenantID(c *gin.Context) string {
	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		// For now, use a default tenant ID
		// In production, this should come from JWT token or subdomain
		tenantID = "00000000-0000-0000-0000-000000000001"
	}
	return tenantID
}
