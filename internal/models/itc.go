package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ITCStatus represents the lifecycle state of an input tax credit
type ITCStatus string

const (
	ITCStatusAvailable ITCStatus = "AVAILABLE"
	ITCStatusClaimed   ITCStatus = "CLAIMED"
	ITCStatusReversed  ITCStatus = "REVERSED"
)

// InputTaxCredit represents GST paid on a purchase invoice that the
// tenant can offset against output liability. The full recorded amount
// is treated as eligible; ineligible classification happens upstream.
type InputTaxCredit struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID        string          `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	SupplierID      *uuid.UUID      `json:"supplierId" gorm:"type:uuid;index"`
	SupplierGSTIN   string          `json:"supplierGstin" gorm:"type:varchar(15)"`
	InvoiceNumber   string          `json:"invoiceNumber" gorm:"type:varchar(100);not null"`
	InvoiceDate     time.Time       `json:"invoiceDate" gorm:"type:date;not null"`
	TaxableAmount   decimal.Decimal `json:"taxableAmount" gorm:"type:decimal(15,2);not null"`
	CGSTAmount      decimal.Decimal `json:"cgstAmount" gorm:"type:decimal(15,2);default:0"`
	SGSTAmount      decimal.Decimal `json:"sgstAmount" gorm:"type:decimal(15,2);default:0"`
	IGSTAmount      decimal.Decimal `json:"igstAmount" gorm:"type:decimal(15,2);default:0"`
	CessAmount      decimal.Decimal `json:"cessAmount" gorm:"type:decimal(15,2);default:0"`
	TotalITC        decimal.Decimal `json:"totalItc" gorm:"type:decimal(15,2);not null"`
	EligibleITC     decimal.Decimal `json:"eligibleItc" gorm:"type:decimal(15,2);not null"`
	IsReverseCharge bool            `json:"isReverseCharge" gorm:"default:false"` // tax payable by recipient under RCM
	ClaimPeriod     string          `json:"claimPeriod" gorm:"type:varchar(6);not null;index"` // MMYYYY return period
	Status          ITCStatus       `json:"status" gorm:"type:varchar(20);default:'AVAILABLE'"`
	ClaimedAt       *time.Time      `json:"claimedAt"`
	ReversedAt      *time.Time      `json:"reversedAt"`
	ReversalReason  string          `json:"reversalReason" gorm:"type:varchar(255)"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
