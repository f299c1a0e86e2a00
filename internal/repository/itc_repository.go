package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tax-engine/internal/models"
)

// ITCRepositoryInterface defines data operations for input tax credits
type ITCRepositoryInterface interface {
	CreateITC(ctx context.Context, itc *models.InputTaxCredit) error
	GetITC(ctx context.Context, tenantID string, id uuid.UUID) (*models.InputTaxCredit, error)
	ListITC(ctx context.Context, tenantID string, status models.ITCStatus, claimPeriod string) ([]models.InputTaxCredit, error)
	MarkITCClaimed(ctx context.Context, tenantID string, id uuid.UUID) error
	MarkITCReversed(ctx context.Context, tenantID string, id uuid.UUID, reason string) error
}

// ITCRepository handles input tax credit data operations
type ITCRepository struct {
	db *gorm.DB
}

// NewITCRepository creates a new ITC repository
func NewITCRepository(db *gorm.DB) *ITCRepository {
	return &ITCRepository{db: db}
}

// CreateITC records a new input tax credit
func (r *ITCRepository) CreateITC(ctx context.Context, itc *models.InputTaxCredit) error {
	return r.db.WithContext(ctx).Create(itc).Error
}

// GetITC gets an input tax credit by ID, scoped to the tenant
func (r *ITCRepository) GetITC(ctx context.Context, tenantID string, id uuid.UUID) (*models.InputTaxCredit, error) {
	var itc models.InputTaxCredit
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&itc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &itc, nil
}

// ListITC lists input tax credits with optional status and period filters
func (r *ITCRepository) ListITC(ctx context.Context, tenantID string, status models.ITCStatus, claimPeriod string) ([]models.InputTaxCredit, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if claimPeriod != "" {
		query = query.Where("claim_period = ?", claimPeriod)
	}

	var credits []models.InputTaxCredit
	err := query.Order("invoice_date DESC, created_at DESC").Find(&credits).Error
	return credits, err
}

// MarkITCClaimed transitions an available credit to CLAIMED. The status
// guard in the WHERE clause keeps concurrent claims from both winning.
func (r *ITCRepository) MarkITCClaimed(ctx context.Context, tenantID string, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.InputTaxCredit{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, models.ITCStatusAvailable).
		Updates(map[string]interface{}{
			"status":     models.ITCStatusClaimed,
			"claimed_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkITCReversed transitions an available or claimed credit to REVERSED
func (r *ITCRepository) MarkITCReversed(ctx context.Context, tenantID string, id uuid.UUID, reason string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.InputTaxCredit{}).
		Where("id = ? AND tenant_id = ? AND status IN ?", id, tenantID,
			[]models.ITCStatus{models.ITCStatusAvailable, models.ITCStatusClaimed}).
		Updates(map[string]interface{}{
			"status":          models.ITCStatusReversed,
			"reversed_at":     now,
			"reversal_reason": reason,
			"updated_at":      now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
