package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithholdingTaxType represents the direction of withholding
type WithholdingTaxType string

const (
	WithholdingTDS WithholdingTaxType = "TDS" // Tax Deducted at Source (payments out)
	WithholdingTCS WithholdingTaxType = "TCS" // Tax Collected at Source (sales in)
)

// WithholdingStatus represents the lifecycle state of a withholding record
type WithholdingStatus string

const (
	WithholdingStatusPosted    WithholdingStatus = "POSTED"
	WithholdingStatusDeposited WithholdingStatus = "DEPOSITED"
	WithholdingStatusCancelled WithholdingStatus = "CANCELLED"
)

// TDSRate represents the configured rate for an Income Tax Act TDS section
type TDSRate struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID          string          `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_tds_rate_unique,priority:1"`
	Section           string          `json:"section" gorm:"type:varchar(20);not null;uniqueIndex:idx_tds_rate_unique,priority:2"` // e.g. 194C, 194J
	NatureOfPayment   string          `json:"natureOfPayment" gorm:"type:varchar(255)"`
	RateWithPAN       decimal.Decimal `json:"rateWithPan" gorm:"type:decimal(5,2);not null"`
	RateWithoutPAN    decimal.Decimal `json:"rateWithoutPan" gorm:"type:decimal(5,2);not null"` // section 206AA penal rate
	ThresholdAmount   decimal.Decimal `json:"thresholdAmount" gorm:"type:decimal(15,2);default:0"`
	ThresholdPerAnnum bool            `json:"thresholdPerAnnum" gorm:"default:true"` // threshold applies to FY cumulative, not per payment
	EffectiveFrom     time.Time       `json:"effectiveFrom" gorm:"type:date"`
	IsActive          bool            `json:"isActive" gorm:"default:true"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// TCSRate represents the configured rate for an Income Tax Act TCS section
type TCSRate struct {
	ID                 uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID           string          `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_tcs_rate_unique,priority:1"`
	Section            string          `json:"section" gorm:"type:varchar(20);not null;uniqueIndex:idx_tcs_rate_unique,priority:2"` // e.g. 206C(1H)
	NatureOfCollection string          `json:"natureOfCollection" gorm:"type:varchar(255)"`
	RateWithPAN        decimal.Decimal `json:"rateWithPan" gorm:"type:decimal(5,2);not null"`
	RateWithoutPAN     decimal.Decimal `json:"rateWithoutPan" gorm:"type:decimal(5,2);not null"` // section 206CC penal rate
	ThresholdAmount    decimal.Decimal `json:"thresholdAmount" gorm:"type:decimal(15,2);default:0"`
	ThresholdPerAnnum  bool            `json:"thresholdPerAnnum" gorm:"default:true"`
	EffectiveFrom      time.Time       `json:"effectiveFrom" gorm:"type:date"`
	IsActive           bool            `json:"isActive" gorm:"default:true"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// TDSDeduction represents a posted TDS deduction against a payment.
// Zero-tax payments below the threshold are posted too, so the FY
// cumulative keeps accumulating toward the threshold.
type TDSDeduction struct {
	ID               uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID         string            `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	DeducteeID       uuid.UUID         `json:"deducteeId" gorm:"type:uuid;not null;index"`
	DeducteePAN      string            `json:"deducteePan" gorm:"type:varchar(10)"`
	Section          string            `json:"section" gorm:"type:varchar(20);not null"`
	GrossAmount      decimal.Decimal   `json:"grossAmount" gorm:"type:decimal(15,2);not null"`
	AppliedRate      decimal.Decimal   `json:"appliedRate" gorm:"type:decimal(5,2);not null"`
	TDSAmount        decimal.Decimal   `json:"tdsAmount" gorm:"type:decimal(15,2);not null"`
	NetAmount        decimal.Decimal   `json:"netAmount" gorm:"type:decimal(15,2);not null"` // gross minus TDS
	ThresholdApplied bool              `json:"thresholdApplied" gorm:"default:false"`
	PaymentDate      time.Time         `json:"paymentDate" gorm:"type:date;not null"`
	FinancialYear    string            `json:"financialYear" gorm:"type:varchar(7);not null;index"` // 2024-25
	Quarter          string            `json:"quarter" gorm:"type:varchar(2);not null"`             // Q1..Q4
	ReferenceID      string            `json:"referenceId" gorm:"type:varchar(100)"`                // payment/voucher reference
	Status           WithholdingStatus `json:"status" gorm:"type:varchar(20);default:'POSTED'"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// TCSCollection represents a posted TCS collection against a sale
type TCSCollection struct {
	ID               uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID         string            `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	CustomerID       uuid.UUID         `json:"customerId" gorm:"type:uuid;not null;index"`
	CustomerPAN      string            `json:"customerPan" gorm:"type:varchar(10)"`
	Section          string            `json:"section" gorm:"type:varchar(20);not null"`
	SaleAmount       decimal.Decimal   `json:"saleAmount" gorm:"type:decimal(15,2);not null"`
	TaxableAmount    decimal.Decimal   `json:"taxableAmount" gorm:"type:decimal(15,2);not null"` // portion of the sale TCS applies to
	AppliedRate      decimal.Decimal   `json:"appliedRate" gorm:"type:decimal(5,2);not null"`
	TCSAmount        decimal.Decimal   `json:"tcsAmount" gorm:"type:decimal(15,2);not null"`
	TotalAmount      decimal.Decimal   `json:"totalAmount" gorm:"type:decimal(15,2);not null"` // sale plus TCS
	ThresholdApplied bool              `json:"thresholdApplied" gorm:"default:false"`
	CollectionDate   time.Time         `json:"collectionDate" gorm:"type:date;not null"`
	FinancialYear    string            `json:"financialYear" gorm:"type:varchar(7);not null;index"`
	Quarter          string            `json:"quarter" gorm:"type:varchar(2);not null"`
	ReferenceID      string            `json:"referenceId" gorm:"type:varchar(100)"`
	Status           WithholdingStatus `json:"status" gorm:"type:varchar(20);default:'POSTED'"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// WithholdingThresholdTracker keeps the running financial-year total per
// counterparty. Rows are locked FOR UPDATE while posting so concurrent
// deductions cannot both read the pre-threshold cumulative.
type WithholdingThresholdTracker struct {
	ID               uuid.UUID          `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID         string             `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_threshold_tracker_unique,priority:1"`
	PartyID          uuid.UUID          `json:"partyId" gorm:"type:uuid;not null;uniqueIndex:idx_threshold_tracker_unique,priority:2"`
	FinancialYear    string             `json:"financialYear" gorm:"type:varchar(7);not null;uniqueIndex:idx_threshold_tracker_unique,priority:3"`
	TaxType          WithholdingTaxType `json:"taxType" gorm:"type:varchar(3);not null;uniqueIndex:idx_threshold_tracker_unique,priority:4"`
	CumulativeAmount decimal.Decimal    `json:"cumulativeAmount" gorm:"type:decimal(15,2);not null;default:0"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}
