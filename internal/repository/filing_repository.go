package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tax-engine/internal/models"
)

// ErrAlreadyFiled is returned when a filed return is asked to change
var ErrAlreadyFiled = errors.New("return already filed")

// FilingRepositoryInterface defines data operations for return filings
type FilingRepositoryInterface interface {
	GetFiling(ctx context.Context, tenantID string, returnType models.ReturnType, period string) (*models.GSTRFiling, error)
	ListFilings(ctx context.Context, tenantID string) ([]models.GSTRFiling, error)
	UpsertDraft(ctx context.Context, filing *models.GSTRFiling) error
	MarkFiled(ctx context.Context, tenantID string, returnType models.ReturnType, period string) (*models.GSTRFiling, error)
}

// FilingRepository handles return filing snapshots
type FilingRepository struct {
	db *gorm.DB
}

// NewFilingRepository creates a new filing repository
func NewFilingRepository(db *gorm.DB) *FilingRepository {
	return &FilingRepository{db: db}
}

// GetFiling gets the filing snapshot for a return type and period
func (r *FilingRepository) GetFiling(ctx context.Context, tenantID string, returnType models.ReturnType, period string) (*models.GSTRFiling, error) {
	var filing models.GSTRFiling
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND return_type = ? AND period = ?", tenantID, returnType, period).
		First(&filing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &filing, nil
}

// ListFilings lists all filings for a tenant, newest period first
func (r *FilingRepository) ListFilings(ctx context.Context, tenantID string) ([]models.GSTRFiling, error) {
	var filings []models.GSTRFiling
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("period_start DESC, return_type ASC").
		Find(&filings).Error
	return filings, err
}

// UpsertDraft inserts or refreshes a draft snapshot for the
// (tenant, return type, period) key. Callers must not upsert over a
// filed snapshot; the service checks status before regenerating.
func (r *FilingRepository) UpsertDraft(ctx context.Context, filing *models.GSTRFiling) error {
	filing.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "return_type"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"gstin", "period_start", "period_end", "total_taxable", "total_tax", "payload", "updated_at",
		}),
	}).Create(filing).Error
}

// MarkFiled freezes a draft snapshot. The row is locked for the check
// so two concurrent filings cannot both succeed.
func (r *FilingRepository) MarkFiled(ctx context.Context, tenantID string, returnType models.ReturnType, period string) (*models.GSTRFiling, error) {
	var filing models.GSTRFiling
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND return_type = ? AND period = ?", tenantID, returnType, period).
			First(&filing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if filing.Status == models.FilingStatusFiled {
			return ErrAlreadyFiled
		}

		now := time.Now()
		filing.Status = models.FilingStatusFiled
		filing.FiledAt = &now
		filing.UpdatedAt = now
		return tx.Save(&filing).Error
	})
	if err != nil {
		return nil, err
	}
	return &filing, nil
}
