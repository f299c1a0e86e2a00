package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CalculateTaxRequest represents a request to calculate GST
type CalculateTaxRequest struct {
	TenantID        string          `json:"tenantId"` // resolved from the X-Tenant-ID header, not the body
	ShippingAddress AddressInput    `json:"shippingAddress" binding:"required"`
	BillingAddress  *AddressInput   `json:"billingAddress"` // Optional billing address
	OriginAddress   *AddressInput   `json:"originAddress"`  // Seller/origin address for place-of-supply determination
	LineItems       []LineItemInput `json:"lineItems" binding:"required"`
	ShippingAmount  decimal.Decimal `json:"shippingAmount"`
	CustomerID      *uuid.UUID      `json:"customerId"`
	CustomerGSTIN   string          `json:"customerGstin"` // Customer's GSTIN for B2B transactions
}

// AddressInput represents an address for tax calculation
type AddressInput struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state"`
	StateCode    string `json:"stateCode"` // GST state code (MH, KA, etc.)
	Zip          string `json:"zip"`
	Country      string `json:"country" binding:"required"`
	CountryCode  string `json:"countryCode"` // ISO 3166-1 alpha-2 (IN, US, GB, etc.)
}

// LineItemInput represents a line item for tax calculation
type LineItemInput struct {
	ProductID  string          `json:"productId"`
	CategoryID *uuid.UUID      `json:"categoryId"`
	HSNCode    string          `json:"hsnCode"` // Harmonized System Nomenclature (goods)
	SACCode    string          `json:"sacCode"` // Services Accounting Code
	Quantity   int             `json:"quantity" binding:"required"`
	UnitPrice  decimal.Decimal `json:"unitPrice" binding:"required"`
	Subtotal   decimal.Decimal `json:"subtotal" binding:"required"`
	IsService  bool            `json:"isService"` // True if this is a service (uses SAC), false for goods (uses HSN)
}

// TaxCalculationResponse represents the response from tax calculation
type TaxCalculationResponse struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingAmount decimal.Decimal `json:"shippingAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Total          decimal.Decimal `json:"total"`
	TaxBreakdown   []TaxBreakdown  `json:"taxBreakdown"`
	IsExempt       bool            `json:"isExempt"`
	ExemptReason   string          `json:"exemptReason,omitempty"`
	GSTSummary     *GSTSummary     `json:"gstSummary,omitempty"`
}

// TaxBreakdown represents tax breakdown by jurisdiction and component
type TaxBreakdown struct {
	JurisdictionID   uuid.UUID       `json:"jurisdictionId"`
	JurisdictionName string          `json:"jurisdictionName"`
	TaxType          string          `json:"taxType"` // CGST, SGST, IGST, CESS
	Rate             decimal.Decimal `json:"rate"`
	TaxableAmount    decimal.Decimal `json:"taxableAmount"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	HSNCode          string          `json:"hsnCode,omitempty"`
	SACCode          string          `json:"sacCode,omitempty"`
}

// GSTSummary represents the GST component totals for invoicing
type GSTSummary struct {
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
	Cess         decimal.Decimal `json:"cess"`
	TotalGST     decimal.Decimal `json:"totalGst"`
	IsInterstate bool            `json:"isInterstate"`
}

// ValidateAddressRequest represents a request to validate an address
type ValidateAddressRequest struct {
	Address AddressInput `json:"address" binding:"required"`
}

// ValidateAddressResponse represents the response from address validation
type ValidateAddressResponse struct {
	IsValid             bool         `json:"isValid"`
	Errors              []string     `json:"errors,omitempty"`
	StandardizedAddress AddressInput `json:"standardizedAddress"`
}

// TDSDeductionRequest is the payload for TDS calculation and posting
type TDSDeductionRequest struct {
	DeducteeID  uuid.UUID       `json:"deducteeId" binding:"required"`
	DeducteePAN string          `json:"deducteePan" binding:"omitempty,len=10"`
	Section     string          `json:"section" binding:"required"`
	GrossAmount decimal.Decimal `json:"grossAmount" binding:"required"`
	PaymentDate string          `json:"paymentDate" binding:"required"` // YYYY-MM-DD
	ReferenceID string          `json:"referenceId"`
}

// TDSCalculationResponse is the preview result of a TDS calculation
type TDSCalculationResponse struct {
	Section          string          `json:"section"`
	GrossAmount      decimal.Decimal `json:"grossAmount"`
	AppliedRate      decimal.Decimal `json:"appliedRate"`
	TDSAmount        decimal.Decimal `json:"tdsAmount"`
	NetAmount        decimal.Decimal `json:"netAmount"`
	FinancialYear    string          `json:"financialYear"`
	Quarter          string          `json:"quarter"`
	ThresholdApplied bool            `json:"thresholdApplied"`
	PANAvailable     bool            `json:"panAvailable"`
	CumulativeAmount decimal.Decimal `json:"cumulativeAmount"` // FY total before this payment
}

// TCSCollectionRequest is the payload for TCS calculation and posting
type TCSCollectionRequest struct {
	CustomerID     uuid.UUID       `json:"customerId" binding:"required"`
	CustomerPAN    string          `json:"customerPan" binding:"omitempty,len=10"`
	Section        string          `json:"section" binding:"required"`
	SaleAmount     decimal.Decimal `json:"saleAmount" binding:"required"`
	CollectionDate string          `json:"collectionDate" binding:"required"` // YYYY-MM-DD
	ReferenceID    string          `json:"referenceId"`
}

// TCSCalculationResponse is the preview result of a TCS calculation
type TCSCalculationResponse struct {
	Section          string          `json:"section"`
	SaleAmount       decimal.Decimal `json:"saleAmount"`
	TaxableAmount    decimal.Decimal `json:"taxableAmount"`
	AppliedRate      decimal.Decimal `json:"appliedRate"`
	TCSAmount        decimal.Decimal `json:"tcsAmount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	FinancialYear    string          `json:"financialYear"`
	Quarter          string          `json:"quarter"`
	ThresholdApplied bool            `json:"thresholdApplied"`
	PANAvailable     bool            `json:"panAvailable"`
	CumulativeAmount decimal.Decimal `json:"cumulativeAmount"` // FY total before this sale
}

// RecordITCRequest is the payload for recording an input tax credit
type RecordITCRequest struct {
	SupplierID      *uuid.UUID      `json:"supplierId"`
	SupplierGSTIN   string          `json:"supplierGstin" binding:"omitempty,len=15"`
	InvoiceNumber   string          `json:"invoiceNumber" binding:"required"`
	InvoiceDate     string          `json:"invoiceDate" binding:"required"` // YYYY-MM-DD
	TaxableAmount   decimal.Decimal `json:"taxableAmount" binding:"required"`
	CGSTAmount      decimal.Decimal `json:"cgstAmount"`
	SGSTAmount      decimal.Decimal `json:"sgstAmount"`
	IGSTAmount      decimal.Decimal `json:"igstAmount"`
	CessAmount      decimal.Decimal `json:"cessAmount"`
	IsReverseCharge bool            `json:"isReverseCharge"`
}

// ReverseITCRequest carries the reason for an ITC reversal
type ReverseITCRequest struct {
	Reason string `json:"reason"`
}

// ITCTotals aggregates input tax credits by component
type ITCTotals struct {
	Count int             `json:"count"`
	CGST  decimal.Decimal `json:"cgst"`
	SGST  decimal.Decimal `json:"sgst"`
	IGST  decimal.Decimal `json:"igst"`
	Cess  decimal.Decimal `json:"cess"`
	Total decimal.Decimal `json:"total"`
}

// ITCSummaryResponse is the per-status ITC rollup for a tenant
type ITCSummaryResponse struct {
	Period    string    `json:"period,omitempty"`
	Available ITCTotals `json:"available"`
	Claimed   ITCTotals `json:"claimed"`
	Reversed  ITCTotals `json:"reversed"`
}
