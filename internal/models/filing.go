package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnType identifies which GST return a filing holds
type ReturnType string

const (
	ReturnTypeGSTR1  ReturnType = "GSTR1"
	ReturnTypeGSTR3B ReturnType = "GSTR3B"
)

// FilingStatus represents the lifecycle of a return filing
type FilingStatus string

const (
	FilingStatusDraft FilingStatus = "DRAFT"
	FilingStatusFiled FilingStatus = "FILED"
)

// GSTRFiling is a snapshot of a generated return for one period. Draft
// snapshots are regenerated on demand; once filed the payload is frozen.
type GSTRFiling struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     string          `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_filing_unique,priority:1"`
	ReturnType   ReturnType      `json:"returnType" gorm:"type:varchar(10);not null;uniqueIndex:idx_filing_unique,priority:2"`
	Period       string          `json:"period" gorm:"type:varchar(6);not null;uniqueIndex:idx_filing_unique,priority:3"` // MMYYYY
	GSTIN        string          `json:"gstin" gorm:"type:varchar(15)"`
	PeriodStart  time.Time       `json:"periodStart" gorm:"type:date"`
	PeriodEnd    time.Time       `json:"periodEnd" gorm:"type:date"`
	TotalTaxable decimal.Decimal `json:"totalTaxable" gorm:"type:decimal(15,2);default:0"`
	TotalTax     decimal.Decimal `json:"totalTax" gorm:"type:decimal(15,2);default:0"`
	Payload      JSONB           `json:"payload" gorm:"type:jsonb"` // GSTN-format return body
	Status       FilingStatus    `json:"status" gorm:"type:varchar(20);default:'DRAFT'"`
	FiledAt      *time.Time      `json:"filedAt"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ==================== GSTN wire format ====================
//
// Field names below are the literal codes the GST portal expects in
// return JSON uploads. They must not be renamed.

// ItemDetail carries the per-rate amounts of one invoice line bucket
type ItemDetail struct {
	Rate         decimal.Decimal `json:"rt"`
	TaxableValue decimal.Decimal `json:"txval"`
	IGST         decimal.Decimal `json:"iamt,omitzero"`
	CGST         decimal.Decimal `json:"camt,omitzero"`
	SGST         decimal.Decimal `json:"samt,omitzero"`
	Cess         decimal.Decimal `json:"csamt"`
}

// SectionItem wraps an ItemDetail with its serial number
type SectionItem struct {
	Num    int        `json:"num"`
	Detail ItemDetail `json:"itm_det"`
}

// SectionInvoice is one invoice inside a b2b/b2cl/exp section
type SectionInvoice struct {
	Number        string          `json:"inum"`
	Date          string          `json:"idt"` // DD-MM-YYYY
	Value         decimal.Decimal `json:"val"`
	PlaceOfSupply string          `json:"pos,omitempty"`
	ReverseCharge string          `json:"rchrg,omitempty"`
	InvoiceType   string          `json:"inv_typ,omitempty"`
	Items         []SectionItem   `json:"itms"`
}

// B2BSection groups registered-counterparty invoices under their GSTIN
type B2BSection struct {
	CounterpartyGSTIN string           `json:"ctin"`
	Invoices          []SectionInvoice `json:"inv"`
}

// B2CLSection groups large interstate consumer invoices by place of supply
type B2CLSection struct {
	PlaceOfSupply string           `json:"pos"`
	Invoices      []SectionInvoice `json:"inv"`
}

// ExportSection groups export invoices by export type
type ExportSection struct {
	ExportType string           `json:"exp_typ"` // WPAY / WOPAY
	Invoices   []SectionInvoice `json:"inv"`
}

// B2CSRow is one consolidated small-consumer supply row
type B2CSRow struct {
	SupplyType    string          `json:"sply_ty"` // INTER / INTRA
	PlaceOfSupply string          `json:"pos"`
	Type          string          `json:"typ"` // OE (other than e-commerce)
	Rate          decimal.Decimal `json:"rt"`
	TaxableValue  decimal.Decimal `json:"txval"`
	IGST          decimal.Decimal `json:"iamt,omitzero"`
	CGST          decimal.Decimal `json:"camt,omitzero"`
	SGST          decimal.Decimal `json:"samt,omitzero"`
	Cess          decimal.Decimal `json:"csamt"`
}

// HSNRow is one line of the HSN-wise summary
type HSNRow struct {
	Num          int             `json:"num"`
	HSNCode      string          `json:"hsn_sc"`
	Description  string          `json:"desc"`
	UQC          string          `json:"uqc"`
	Quantity     decimal.Decimal `json:"qty"`
	TotalValue   decimal.Decimal `json:"val"`
	TaxableValue decimal.Decimal `json:"txval"`
	IGST         decimal.Decimal `json:"iamt,omitzero"`
	CGST         decimal.Decimal `json:"camt,omitzero"`
	SGST         decimal.Decimal `json:"samt,omitzero"`
	Cess         decimal.Decimal `json:"csamt"`
}

// HSNSection wraps the HSN summary rows
type HSNSection struct {
	Data []HSNRow `json:"data"`
}

// DocSeries is one issued document number series
type DocSeries struct {
	Num        int    `json:"num"`
	From       string `json:"from"`
	To         string `json:"to"`
	TotalCount int    `json:"totnum"`
	Cancelled  int    `json:"cancel"`
	NetIssued  int    `json:"net_issue"`
}

// DocDetail groups document series by document nature (1 = invoices)
type DocDetail struct {
	DocNum int         `json:"doc_num"`
	Docs   []DocSeries `json:"docs"`
}

// DocIssueSection wraps the documents-issued summary
type DocIssueSection struct {
	Details []DocDetail `json:"doc_det"`
}

// GSTR1Payload is the complete GSTR-1 upload body
type GSTR1Payload struct {
	GSTIN        string           `json:"gstin"`
	ReturnPeriod string           `json:"ret_period"`
	B2B          []B2BSection     `json:"b2b,omitempty"`
	B2CL         []B2CLSection    `json:"b2cl,omitempty"`
	B2CS         []B2CSRow        `json:"b2cs,omitempty"`
	Exports      []ExportSection  `json:"exp,omitempty"`
	HSN          *HSNSection      `json:"hsn,omitempty"`
	DocIssue     *DocIssueSection `json:"doc_issue,omitempty"`
}

// SupplyDetail is one outward/inward supply row of a GSTR-3B
type SupplyDetail struct {
	TaxableValue decimal.Decimal `json:"txval"`
	IGST         decimal.Decimal `json:"iamt,omitzero"`
	CGST         decimal.Decimal `json:"camt,omitzero"`
	SGST         decimal.Decimal `json:"samt,omitzero"`
	Cess         decimal.Decimal `json:"csamt,omitzero"`
}

// SupplySection is section 3.1 of GSTR-3B
type SupplySection struct {
	OutwardTaxable   SupplyDetail `json:"osup_det"`
	OutwardZeroRated SupplyDetail `json:"osup_zero"`
	OutwardNilExempt SupplyDetail `json:"osup_nil_exmp"`
	InwardRevCharge  SupplyDetail `json:"isup_rev"`
}

// ITCDetail is one row of the eligible-ITC section
type ITCDetail struct {
	Type string          `json:"ty,omitempty"` // OTH for all-others bucket
	IGST decimal.Decimal `json:"iamt"`
	CGST decimal.Decimal `json:"camt"`
	SGST decimal.Decimal `json:"samt"`
	Cess decimal.Decimal `json:"csamt"`
}

// ITCSection is section 4 of GSTR-3B
type ITCSection struct {
	Available []ITCDetail `json:"itc_avl"`
	Reversed  []ITCDetail `json:"itc_rev"`
	Net       ITCDetail   `json:"itc_net"`
}

// GSTR3BPayload is the complete GSTR-3B upload body
type GSTR3BPayload struct {
	GSTIN         string        `json:"gstin"`
	ReturnPeriod  string        `json:"ret_period"`
	SupplySection SupplySection `json:"sup_details"`
	ITCSection    ITCSection    `json:"itc_elg"`
}
