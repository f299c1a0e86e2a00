package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateBucket accumulates the taxable value and tax amounts of all
// invoice lines sharing one GST rate.
type RateBucket struct {
	Rate          decimal.Decimal `json:"rate"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	IGSTAmount    decimal.Decimal `json:"igstAmount"`
	CGSTAmount    decimal.Decimal `json:"cgstAmount"`
	SGSTAmount    decimal.Decimal `json:"sgstAmount"`
	CessAmount    decimal.Decimal `json:"cessAmount"`
}

// GSTR1Invoice is one invoice inside a GSTR-1 section, with its lines
// collapsed into per-rate buckets.
type GSTR1Invoice struct {
	InvoiceNumber string          `json:"invoiceNumber"`
	InvoiceDate   time.Time       `json:"invoiceDate"`
	InvoiceValue  decimal.Decimal `json:"invoiceValue"`
	PlaceOfSupply string          `json:"placeOfSupply"`
	IsInterstate  bool            `json:"isInterstate"`
	RateBuckets   []RateBucket    `json:"rateBuckets"`
}

// B2BEntry groups a counterparty's invoices for the B2B section
type B2BEntry struct {
	CounterpartyGSTIN string         `json:"counterpartyGstin"`
	Invoices          []GSTR1Invoice `json:"invoices"`
}

// B2CLargeEntry groups large interstate consumer invoices by place of supply
type B2CLargeEntry struct {
	PlaceOfSupply string         `json:"placeOfSupply"`
	Invoices      []GSTR1Invoice `json:"invoices"`
}

// B2CSmallEntry is one consolidated (place-of-supply, rate) consumer bucket
type B2CSmallEntry struct {
	PlaceOfSupply string          `json:"placeOfSupply"`
	IsInterstate  bool            `json:"isInterstate"`
	Rate          decimal.Decimal `json:"rate"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	IGSTAmount    decimal.Decimal `json:"igstAmount"`
	CGSTAmount    decimal.Decimal `json:"cgstAmount"`
	SGSTAmount    decimal.Decimal `json:"sgstAmount"`
	CessAmount    decimal.Decimal `json:"cessAmount"`
}

// ExportEntry groups export invoices by export type (WPAY/WOPAY)
type ExportEntry struct {
	ExportType ExportType     `json:"exportType"`
	Invoices   []GSTR1Invoice `json:"invoices"`
}

// HSNSummaryEntry is the per-HSN/SAC rollup of outward supplies
type HSNSummaryEntry struct {
	HSNCode       string          `json:"hsnCode"`
	Description   string          `json:"description"`
	UQC           string          `json:"uqc"`
	Quantity      decimal.Decimal `json:"quantity"`
	TotalValue    decimal.Decimal `json:"totalValue"` // taxable plus all tax components
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	IGSTAmount    decimal.Decimal `json:"igstAmount"`
	CGSTAmount    decimal.Decimal `json:"cgstAmount"`
	SGSTAmount    decimal.Decimal `json:"sgstAmount"`
	CessAmount    decimal.Decimal `json:"cessAmount"`
}

// DocSeriesEntry summarizes the invoice number series issued in the period
type DocSeriesEntry struct {
	SeriesFrom string `json:"seriesFrom"`
	SeriesTo   string `json:"seriesTo"`
	TotalCount int    `json:"totalCount"`
	Cancelled  int    `json:"cancelled"`
	NetIssued  int    `json:"netIssued"`
}

// GSTR1Data is the aggregated outward-supply return for one period
type GSTR1Data struct {
	GSTIN      string            `json:"gstin"`
	Period     string            `json:"period"` // MMYYYY
	B2B        []B2BEntry        `json:"b2b"`
	B2CLarge   []B2CLargeEntry   `json:"b2cLarge"`
	B2CSmall   []B2CSmallEntry   `json:"b2cSmall"`
	Exports    []ExportEntry     `json:"exports"`
	HSNSummary []HSNSummaryEntry `json:"hsnSummary"`
	DocsIssued []DocSeriesEntry  `json:"docsIssued"`

	TotalInvoices int             `json:"totalInvoices"`
	TotalTaxable  decimal.Decimal `json:"totalTaxable"`
	TotalTax      decimal.Decimal `json:"totalTax"`
}

// SupplySummary is one outward-supply line of a GSTR-3B
type SupplySummary struct {
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	IGSTAmount    decimal.Decimal `json:"igstAmount"`
	CGSTAmount    decimal.Decimal `json:"cgstAmount"`
	SGSTAmount    decimal.Decimal `json:"sgstAmount"`
	CessAmount    decimal.Decimal `json:"cessAmount"`
}

// ITCSummary is one input-tax-credit line of a GSTR-3B
type ITCSummary struct {
	IGSTAmount decimal.Decimal `json:"igstAmount"`
	CGSTAmount decimal.Decimal `json:"cgstAmount"`
	SGSTAmount decimal.Decimal `json:"sgstAmount"`
	CessAmount decimal.Decimal `json:"cessAmount"`
}

// GSTR3BData is the summary return for one period
type GSTR3BData struct {
	GSTIN  string `json:"gstin"`
	Period string `json:"period"`

	OutwardTaxable   SupplySummary   `json:"outwardTaxable"`
	OutwardZeroRated SupplySummary   `json:"outwardZeroRated"`
	OutwardNilExempt SupplySummary   `json:"outwardNilExempt"`
	InwardRevCharge  SupplySummary   `json:"inwardReverseCharge"`
	ITCAvailable     ITCSummary      `json:"itcAvailable"`
	ITCReversed      ITCSummary      `json:"itcReversed"`
	ITCNet           ITCSummary      `json:"itcNet"`
	NetPayableIGST   decimal.Decimal `json:"netPayableIgst"`
	NetPayableCGST   decimal.Decimal `json:"netPayableCgst"`
	NetPayableSGST   decimal.Decimal `json:"netPayableSgst"`
	NetPayableCess   decimal.Decimal `json:"netPayableCess"`
}
