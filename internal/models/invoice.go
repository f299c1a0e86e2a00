package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the posting state of an invoice in the feed
type InvoiceStatus string

const (
	InvoiceStatusPosted    InvoiceStatus = "POSTED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// ExportType marks export invoices: WPAY (with IGST payment) or WOPAY
// (under LUT/bond, without payment). Empty for domestic supplies.
type ExportType string

const (
	ExportWithPayment    ExportType = "WPAY"
	ExportWithoutPayment ExportType = "WOPAY"
)

// PostedInvoice is the read model for invoices posted by the bookkeeping
// service. The tax engine only aggregates these into returns; invoice
// lifecycle is owned upstream.
type PostedInvoice struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID      string          `json:"tenantId" gorm:"type:varchar(255);not null;index:idx_invoice_tenant_date,priority:1"`
	InvoiceNumber string          `json:"invoiceNumber" gorm:"type:varchar(100);not null"`
	InvoiceDate   time.Time       `json:"invoiceDate" gorm:"type:date;not null;index:idx_invoice_tenant_date,priority:2"`
	CustomerID    *uuid.UUID      `json:"customerId" gorm:"type:uuid"`
	CustomerGSTIN string          `json:"customerGstin" gorm:"type:varchar(15)"` // empty for B2C supplies
	PlaceOfSupply string          `json:"placeOfSupply" gorm:"type:varchar(10);not null"` // numeric GSTN state code
	IsInterstate  bool            `json:"isInterstate" gorm:"default:false"`
	ExportType    ExportType      `json:"exportType" gorm:"type:varchar(10)"`
	InvoiceValue  decimal.Decimal `json:"invoiceValue" gorm:"type:decimal(15,2);not null"`
	Status        InvoiceStatus   `json:"status" gorm:"type:varchar(20);default:'POSTED'"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	// Relationships
	Items []PostedInvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
}

// PostedInvoiceItem is one tax line of a posted invoice
type PostedInvoiceItem struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	InvoiceID     uuid.UUID       `json:"invoiceId" gorm:"type:uuid;not null;index"`
	Description   string          `json:"description" gorm:"type:varchar(255)"`
	HSNCode       string          `json:"hsnCode" gorm:"type:varchar(10)"`
	SACCode       string          `json:"sacCode" gorm:"type:varchar(10)"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);default:1"`
	Unit          string          `json:"unit" gorm:"type:varchar(10)"` // UQC code (NOS, KGS, ...)
	TaxableAmount decimal.Decimal `json:"taxableAmount" gorm:"type:decimal(15,2);not null"`
	GSTRate       decimal.Decimal `json:"gstRate" gorm:"type:decimal(5,2);not null"`
	CGSTAmount    decimal.Decimal `json:"cgstAmount" gorm:"type:decimal(15,2);default:0"`
	SGSTAmount    decimal.Decimal `json:"sgstAmount" gorm:"type:decimal(15,2);default:0"`
	IGSTAmount    decimal.Decimal `json:"igstAmount" gorm:"type:decimal(15,2);default:0"`
	CessAmount    decimal.Decimal `json:"cessAmount" gorm:"type:decimal(15,2);default:0"`
}
