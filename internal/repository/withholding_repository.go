package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tax-engine/internal/models"
)

// WithholdingRepositoryInterface defines data operations for TDS/TCS
type WithholdingRepositoryInterface interface {
	GetTDSRate(ctx context.Context, tenantID, section string) (*models.TDSRate, error)
	ListTDSRates(ctx context.Context, tenantID string) ([]models.TDSRate, error)
	CreateTDSRate(ctx context.Context, rate *models.TDSRate) error
	UpdateTDSRate(ctx context.Context, rate *models.TDSRate) error
	GetTCSRate(ctx context.Context, tenantID, section string) (*models.TCSRate, error)
	ListTCSRates(ctx context.Context, tenantID string) ([]models.TCSRate, error)
	CreateTCSRate(ctx context.Context, rate *models.TCSRate) error
	UpdateTCSRate(ctx context.Context, rate *models.TCSRate) error
	GetCumulativeAmount(ctx context.Context, tenantID string, partyID uuid.UUID, financialYear string, taxType models.WithholdingTaxType) (decimal.Decimal, error)
	PostDeduction(ctx context.Context, deduction *models.TDSDeduction, finalize func(cumulative decimal.Decimal)) error
	PostCollection(ctx context.Context, collection *models.TCSCollection, finalize func(cumulative decimal.Decimal)) error
	ListDeductions(ctx context.Context, tenantID, financialYear, quarter string, deducteeID *uuid.UUID) ([]models.TDSDeduction, error)
	ListCollections(ctx context.Context, tenantID, financialYear, quarter string, customerID *uuid.UUID) ([]models.TCSCollection, error)
}

// WithholdingRepository handles TDS/TCS data operations
type WithholdingRepository struct {
	db *gorm.DB
}

// NewWithholdingRepository creates a new withholding repository
func NewWithholdingRepository(db *gorm.DB) *WithholdingRepository {
	return &WithholdingRepository{db: db}
}

// ==================== Section Rates ====================

// GetTDSRate gets the active TDS rate for a section. A tenant-specific
// rate overrides the global seed for the same section.
func (r *WithholdingRepository) GetTDSRate(ctx context.Context, tenantID, section string) (*models.TDSRate, error) {
	var rate models.TDSRate
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND section = ? AND is_active = true", tenantID, section).
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.db.WithContext(ctx).
			Where("tenant_id = ? AND section = ? AND is_active = true", GlobalTenantID, section).
			First(&rate).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rate, nil
}

// ListTDSRates lists all TDS rates visible to a tenant (includes global data)
func (r *WithholdingRepository) ListTDSRates(ctx context.Context, tenantID string) ([]models.TDSRate, error) {
	var rates []models.TDSRate
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ?", []string{tenantID, GlobalTenantID}).
		Order("section").
		Find(&rates).Error
	return rates, err
}

// CreateTDSRate creates a tenant TDS rate
func (r *WithholdingRepository) CreateTDSRate(ctx context.Context, rate *models.TDSRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

// UpdateTDSRate updates a tenant TDS rate
func (r *WithholdingRepository) UpdateTDSRate(ctx context.Context, rate *models.TDSRate) error {
	rate.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(rate).Error
}

// GetTCSRate gets the active TCS rate for a section. A tenant-specific
// rate overrides the global seed for the same section.
func (r *WithholdingRepository) GetTCSRate(ctx context.Context, tenantID, section string) (*models.TCSRate, error) {
	var rate models.TCSRate
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND section = ? AND is_active = true", tenantID, section).
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.db.WithContext(ctx).
			Where("tenant_id = ? AND section = ? AND is_active = true", GlobalTenantID, section).
			First(&rate).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rate, nil
}

// ListTCSRates lists all TCS rates visible to a tenant (includes global data)
func (r *WithholdingRepository) ListTCSRates(ctx context.Context, tenantID string) ([]models.TCSRate, error) {
	var rates []models.TCSRate
	err := r.db.WithContext(ctx).
		Where("tenant_id IN ?", []string{tenantID, GlobalTenantID}).
		Order("section").
		Find(&rates).Error
	return rates, err
}

// CreateTCSRate creates a tenant TCS rate
func (r *WithholdingRepository) CreateTCSRate(ctx context.Context, rate *models.TCSRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

// UpdateTCSRate updates a tenant TCS rate
func (r *WithholdingRepository) UpdateTCSRate(ctx context.Context, rate *models.TCSRate) error {
	rate.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(rate).Error
}

// ==================== Threshold Tracker ====================

// GetCumulativeAmount reads the financial-year running total for a party
// without locking. Preview calculations use this; posting re-reads the
// tracker under a row lock.
func (r *WithholdingRepository) GetCumulativeAmount(ctx context.Context, tenantID string, partyID uuid.UUID, financialYear string, taxType models.WithholdingTaxType) (decimal.Decimal, error) {
	var tracker models.WithholdingThresholdTracker
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND party_id = ? AND financial_year = ? AND tax_type = ?",
			tenantID, partyID, financialYear, taxType).
		First(&tracker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return tracker.CumulativeAmount, nil
}

// lockTracker ensures the tracker row exists and locks it FOR UPDATE
// inside the given transaction.
func lockTracker(tx *gorm.DB, tenantID string, partyID uuid.UUID, financialYear string, taxType models.WithholdingTaxType) (*models.WithholdingThresholdTracker, error) {
	seed := models.WithholdingThresholdTracker{
		TenantID:         tenantID,
		PartyID:          partyID,
		FinancialYear:    financialYear,
		TaxType:          taxType,
		CumulativeAmount: decimal.Zero,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "party_id"}, {Name: "financial_year"}, {Name: "tax_type"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var tracker models.WithholdingThresholdTracker
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND party_id = ? AND financial_year = ? AND tax_type = ?",
			tenantID, partyID, financialYear, taxType).
		First(&tracker).Error; err != nil {
		return nil, err
	}
	return &tracker, nil
}

// PostDeduction inserts a TDS deduction and advances the threshold
// tracker in one transaction. The finalize callback runs while the
// tracker row is locked, so the amounts it computes see a cumulative no
// concurrent posting can also see.
func (r *WithholdingRepository) PostDeduction(ctx context.Context, deduction *models.TDSDeduction, finalize func(cumulative decimal.Decimal)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tracker, err := lockTracker(tx, deduction.TenantID, deduction.DeducteeID, deduction.FinancialYear, models.WithholdingTDS)
		if err != nil {
			return err
		}

		finalize(tracker.CumulativeAmount)

		if err := tx.Create(deduction).Error; err != nil {
			return err
		}

		tracker.CumulativeAmount = tracker.CumulativeAmount.Add(deduction.GrossAmount)
		tracker.UpdatedAt = time.Now()
		return tx.Save(tracker).Error
	})
}

// PostCollection inserts a TCS collection and advances the threshold
// tracker in one transaction, mirroring PostDeduction.
func (r *WithholdingRepository) PostCollection(ctx context.Context, collection *models.TCSCollection, finalize func(cumulative decimal.Decimal)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tracker, err := lockTracker(tx, collection.TenantID, collection.CustomerID, collection.FinancialYear, models.WithholdingTCS)
		if err != nil {
			return err
		}

		finalize(tracker.CumulativeAmount)

		if err := tx.Create(collection).Error; err != nil {
			return err
		}

		tracker.CumulativeAmount = tracker.CumulativeAmount.Add(collection.SaleAmount)
		tracker.UpdatedAt = time.Now()
		return tx.Save(tracker).Error
	})
}

// ==================== Records ====================

// ListDeductions lists TDS deductions with optional filters
func (r *WithholdingRepository) ListDeductions(ctx context.Context, tenantID, financialYear, quarter string, deducteeID *uuid.UUID) ([]models.TDSDeduction, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if financialYear != "" {
		query = query.Where("financial_year = ?", financialYear)
	}
	if quarter != "" {
		query = query.Where("quarter = ?", quarter)
	}
	if deducteeID != nil {
		query = query.Where("deductee_id = ?", *deducteeID)
	}

	var deductions []models.TDSDeduction
	err := query.Order("payment_date DESC, created_at DESC").Find(&deductions).Error
	return deductions, err
}

// ListCollections lists TCS collections with optional filters
func (r *WithholdingRepository) ListCollections(ctx context.Context, tenantID, financialYear, quarter string, customerID *uuid.UUID) ([]models.TCSCollection, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if financialYear != "" {
		query = query.Where("financial_year = ?", financialYear)
	}
	if quarter != "" {
		query = query.Where("quarter = ?", quarter)
	}
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	var collections []models.TCSCollection
	err := query.Order("collection_date DESC, created_at DESC").Find(&collections).Error
	return collections, err
}
