package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tax-engine/internal/models"
)

// Repository errors
var (
	ErrNotFound = errors.New("record not found")
)

// GlobalTenantID is the special tenant ID for global data accessible to all tenants
const GlobalTenantID = "global"

// Cache TTL constants for tax data
const (
	JurisdictionCacheTTL    = 30 * time.Minute // Jurisdictions change infrequently
	ProductCategoryCacheTTL = 30 * time.Minute // Product categories
	RegistrationCacheTTL    = 10 * time.Minute // GST registrations
)

// TaxRepositoryInterface defines the data operations the tax services depend on
type TaxRepositoryInterface interface {
	GetProductCategory(ctx context.Context, categoryID uuid.UUID) (*models.ProductTaxCategory, error)
	GetProductCategoryByHSN(ctx context.Context, tenantID, hsnCode string) (*models.ProductTaxCategory, error)
	GetProductCategoryBySAC(ctx context.Context, tenantID, sacCode string) (*models.ProductTaxCategory, error)
	GetActiveRegistration(ctx context.Context, tenantID string) (*models.GSTRegistration, error)
	GetCachedTaxCalculation(ctx context.Context, cacheKey string) (*models.TaxCalculationCache, error)
	CacheTaxCalculation(ctx context.Context, cache *models.TaxCalculationCache) error
}

// TaxRepository handles tax data operations
type TaxRepository struct {
	db    *gorm.DB
	redis *redis.Client
	cache *cache.CacheLayer
}

// NewTaxRepository creates a new tax repository
func NewTaxRepository(db *gorm.DB, redisClient *redis.Client) *TaxRepository {
	repo := &TaxRepository{
		db:    db,
		redis: redisClient,
	}

	// Initialize CacheLayer with the existing Redis client
	if redisClient != nil {
		cacheConfig := cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 1000,
			L1TTL:      30 * time.Second,
			DefaultTTL: JurisdictionCacheTTL,
			KeyPrefix:  "tesseract:tax:",
		}
		repo.cache = cache.NewCacheLayerFromClient(redisClient, cacheConfig)
	}

	return repo
}

// generateJurisdictionCacheKey creates a cache key for jurisdiction lookups
func generateJurisdictionCacheKey(jurisdictionID uuid.UUID) string {
	return fmt.Sprintf("jurisdiction:%s", jurisdictionID.String())
}

// generateProductCategoryCacheKey creates a cache key for product category lookups
func generateProductCategoryCacheKey(categoryID uuid.UUID) string {
	return fmt.Sprintf("category:%s", categoryID.String())
}

// generateRegistrationCacheKey creates a cache key for the active registration lookup
func generateRegistrationCacheKey(tenantID string) string {
	return fmt.Sprintf("registration:active:%s", tenantID)
}

// invalidateJurisdictionCache invalidates jurisdiction-related caches
func (r *TaxRepository) invalidateJurisdictionCache(ctx context.Context, jurisdictionID uuid.UUID) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, generateJurisdictionCacheKey(jurisdictionID))
	// Invalidate list caches
	_ = r.cache.DeletePattern(ctx, "jurisdiction:list:*")
}

// invalidateProductCategoryCache invalidates product category caches
func (r *TaxRepository) invalidateProductCategoryCache(ctx context.Context, categoryID uuid.UUID) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, generateProductCategoryCacheKey(categoryID))
	// Invalidate list caches
	_ = r.cache.DeletePattern(ctx, "category:list:*")
}

// invalidateRegistrationCache invalidates the active-registration cache
func (r *TaxRepository) invalidateRegistrationCache(ctx context.Context, tenantID string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, generateRegistrationCacheKey(tenantID))
}

// ==================== Jurisdiction CRUD ====================

// CreateJurisdiction creates a new jurisdiction
func (r *TaxRepository) CreateJurisdiction(ctx context.Context, jurisdiction *models.TaxJurisdiction) error {
	err := r.db.WithContext(ctx).Create(jurisdiction).Error
	if err == nil {
		r.invalidateJurisdictionCache(ctx, jurisdiction.ID)
	}
	return err
}

// UpdateJurisdiction updates a jurisdiction
func (r *TaxRepository) UpdateJurisdiction(ctx context.Context, jurisdiction *models.TaxJurisdiction) error {
	jurisdiction.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(jurisdiction).Error
	if err == nil {
		r.invalidateJurisdictionCache(ctx, jurisdiction.ID)
	}
	return err
}

// DeleteJurisdiction soft deletes a jurisdiction
func (r *TaxRepository) DeleteJurisdiction(ctx context.Context, jurisdictionID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.TaxJurisdiction{}).
		Where("id = ?", jurisdictionID).
		Update("is_active", false).Error
	if err == nil {
		r.invalidateJurisdictionCache(ctx, jurisdictionID)
	}
	return err
}

// GetJurisdiction gets a jurisdiction by ID
func (r *TaxRepository) GetJurisdiction(ctx context.Context, jurisdictionID uuid.UUID) (*models.TaxJurisdiction, error) {
	cacheKey := generateJurisdictionCacheKey(jurisdictionID)

	// Try to get from cache first
	if r.redis != nil {
		val, err := r.redis.Get(ctx, "tesseract:tax:"+cacheKey).Result()
		if err == nil {
			var jurisdiction models.TaxJurisdiction
			if err := json.Unmarshal([]byte(val), &jurisdiction); err == nil {
				return &jurisdiction, nil
			}
		}
	}

	// Query from database
	var jurisdiction models.TaxJurisdiction
	err := r.db.WithContext(ctx).
		Preload("Parent").
		Preload("Children").
		First(&jurisdiction, "id = ?", jurisdictionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Cache the result
	if r.redis != nil {
		data, marshalErr := json.Marshal(jurisdiction)
		if marshalErr == nil {
			r.redis.Set(ctx, "tesseract:tax:"+cacheKey, data, JurisdictionCacheTTL)
		}
	}

	return &jurisdiction, nil
}

// ListJurisdictions lists all jurisdictions for a tenant (including global data)
func (r *TaxRepository) ListJurisdictions(ctx context.Context, tenantID string) ([]models.TaxJurisdiction, error) {
	var jurisdictions []models.TaxJurisdiction
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ?", []string{tenantID, GlobalTenantID}).
		Order("type, name").
		Find(&jurisdictions).Error
	return jurisdictions, err
}

// GetJurisdictionByStateCode gets a jurisdiction by GST state code (includes global data)
func (r *TaxRepository) GetJurisdictionByStateCode(ctx context.Context, tenantID string, stateCode string) (*models.TaxJurisdiction, error) {
	var jurisdiction models.TaxJurisdiction
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ? AND state_code = ? AND is_active = true", []string{tenantID, GlobalTenantID}, stateCode).
		First(&jurisdiction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &jurisdiction, nil
}

// GetJurisdictionByCode gets a jurisdiction by code and type (used for registration provisioning)
func (r *TaxRepository) GetJurisdictionByCode(ctx context.Context, tenantID, code, jurisdictionType string) (*models.TaxJurisdiction, error) {
	var jurisdiction models.TaxJurisdiction
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ? AND code = ? AND type = ? AND is_active = true",
			[]string{tenantID, GlobalTenantID}, code, jurisdictionType).
		First(&jurisdiction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &jurisdiction, nil
}

// ==================== Product Category CRUD ====================

// CreateProductCategory creates a new product tax category
func (r *TaxRepository) CreateProductCategory(ctx context.Context, category *models.ProductTaxCategory) error {
	err := r.db.WithContext(ctx).Create(category).Error
	if err == nil {
		r.invalidateProductCategoryCache(ctx, category.ID)
	}
	return err
}

// UpdateProductCategory updates a product tax category
func (r *TaxRepository) UpdateProductCategory(ctx context.Context, category *models.ProductTaxCategory) error {
	category.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(category).Error
	if err == nil {
		r.invalidateProductCategoryCache(ctx, category.ID)
	}
	return err
}

// DeleteProductCategory deletes a product tax category
func (r *TaxRepository) DeleteProductCategory(ctx context.Context, categoryID uuid.UUID) error {
	err := r.db.WithContext(ctx).Delete(&models.ProductTaxCategory{}, "id = ?", categoryID).Error
	if err == nil {
		r.invalidateProductCategoryCache(ctx, categoryID)
	}
	return err
}

// ListProductCategories lists all product tax categories (including global data)
func (r *TaxRepository) ListProductCategories(ctx context.Context, tenantID string) ([]models.ProductTaxCategory, error) {
	var categories []models.ProductTaxCategory
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ?", []string{tenantID, GlobalTenantID}).
		Order("name").
		Find(&categories).Error
	return categories, err
}

// GetProductCategory gets a product tax category by ID
func (r *TaxRepository) GetProductCategory(ctx context.Context, categoryID uuid.UUID) (*models.ProductTaxCategory, error) {
	cacheKey := generateProductCategoryCacheKey(categoryID)

	// Try to get from cache first
	if r.redis != nil {
		val, err := r.redis.Get(ctx, "tesseract:tax:"+cacheKey).Result()
		if err == nil {
			var category models.ProductTaxCategory
			if err := json.Unmarshal([]byte(val), &category); err == nil {
				return &category, nil
			}
		}
	}

	// Query from database
	var category models.ProductTaxCategory
	err := r.db.WithContext(ctx).First(&category, "id = ?", categoryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Cache the result
	if r.redis != nil {
		data, marshalErr := json.Marshal(category)
		if marshalErr == nil {
			r.redis.Set(ctx, "tesseract:tax:"+cacheKey, data, ProductCategoryCacheTTL)
		}
	}

	return &category, nil
}

// GetProductCategoryByHSN gets a product category by HSN code (includes global data)
func (r *TaxRepository) GetProductCategoryByHSN(ctx context.Context, tenantID string, hsnCode string) (*models.ProductTaxCategory, error) {
	var category models.ProductTaxCategory
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ? AND hsn_code = ?", []string{tenantID, GlobalTenantID}, hsnCode).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// GetProductCategoryBySAC gets a product category by SAC code (includes global data)
func (r *TaxRepository) GetProductCategoryBySAC(ctx context.Context, tenantID string, sacCode string) (*models.ProductTaxCategory, error) {
	var category models.ProductTaxCategory
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ? AND sac_code = ?", []string{tenantID, GlobalTenantID}, sacCode).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// ==================== GST Registration ====================

// CreateRegistration creates a new GST registration
func (r *TaxRepository) CreateRegistration(ctx context.Context, registration *models.GSTRegistration) error {
	err := r.db.WithContext(ctx).Create(registration).Error
	if err == nil {
		r.invalidateRegistrationCache(ctx, registration.TenantID)
	}
	return err
}

// UpdateRegistration updates a GST registration
func (r *TaxRepository) UpdateRegistration(ctx context.Context, registration *models.GSTRegistration) error {
	registration.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(registration).Error
	if err == nil {
		r.invalidateRegistrationCache(ctx, registration.TenantID)
	}
	return err
}

// ListRegistrations lists all GST registrations for a tenant
func (r *TaxRepository) ListRegistrations(ctx context.Context, tenantID string) ([]models.GSTRegistration, error) {
	var registrations []models.GSTRegistration
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("is_primary DESC, created_at ASC").
		Find(&registrations).Error
	return registrations, err
}

// GetActiveRegistration returns the tenant's principal active registration.
// Used as the origin fallback when a calculation request has no origin
// address, and as the GSTIN source for return generation.
func (r *TaxRepository) GetActiveRegistration(ctx context.Context, tenantID string) (*models.GSTRegistration, error) {
	cacheKey := generateRegistrationCacheKey(tenantID)

	// Try to get from cache first
	if r.redis != nil {
		val, err := r.redis.Get(ctx, "tesseract:tax:"+cacheKey).Result()
		if err == nil {
			var registration models.GSTRegistration
			if err := json.Unmarshal([]byte(val), &registration); err == nil {
				return &registration, nil
			}
		}
	}

	var registration models.GSTRegistration
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = true", tenantID).
		Order("is_primary DESC, created_at ASC").
		First(&registration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Cache the result
	if r.redis != nil {
		data, marshalErr := json.Marshal(registration)
		if marshalErr == nil {
			r.redis.Set(ctx, "tesseract:tax:"+cacheKey, data, RegistrationCacheTTL)
		}
	}

	return &registration, nil
}

// ==================== Calculation Cache ====================

// GetCachedTaxCalculation retrieves a cached tax calculation
func (r *TaxRepository) GetCachedTaxCalculation(ctx context.Context, cacheKey string) (*models.TaxCalculationCache, error) {
	var cached models.TaxCalculationCache

	err := r.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", cacheKey, time.Now()).
		First(&cached).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &cached, nil
}

// CacheTaxCalculation stores a tax calculation in cache
func (r *TaxRepository) CacheTaxCalculation(ctx context.Context, cache *models.TaxCalculationCache) error {
	return r.db.WithContext(ctx).Create(cache).Error
}
