package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tax-engine/internal/models"
)

// InvoiceRepositoryInterface defines read access to the posted-invoice feed
type InvoiceRepositoryInterface interface {
	ListInvoicesByPeriod(ctx context.Context, tenantID string, periodStart, periodEnd time.Time) ([]models.PostedInvoice, error)
}

// InvoiceRepository reads the posted-invoice feed maintained by the
// bookkeeping service. The tax engine never writes these rows.
type InvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// ListInvoicesByPeriod lists all invoices (posted and cancelled) dated
// inside [periodStart, periodEnd) with their items. Cancelled invoices
// are needed for the documents-issued summary.
func (r *InvoiceRepository) ListInvoicesByPeriod(ctx context.Context, tenantID string, periodStart, periodEnd time.Time) ([]models.PostedInvoice, error) {
	var invoices []models.PostedInvoice
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_date >= ? AND invoice_date < ?", tenantID, periodStart, periodEnd).
		Preload("Items").
		Order("invoice_date ASC, invoice_number ASC").
		Find(&invoices).Error
	return invoices, err
}
