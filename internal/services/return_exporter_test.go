package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tax-engine/internal/models"
)

func marshalPayload(t *testing.T, payload any) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	assert.NoError(t, err)
	return string(raw)
}

// ===========================================
// GSTR-1 Export Tests
// ===========================================

func TestExportGSTR1_B2BInvoiceWireFormat(t *testing.T) {
	exporter := NewReturnExporter()

	data := &models.GSTR1Data{
		GSTIN:  "27AAPFU0939F1ZV",
		Period: "052025",
		B2B: []models.B2BEntry{{
			CounterpartyGSTIN: "29AABCT1332L1ZU",
			Invoices: []models.GSTR1Invoice{{
				InvoiceNumber: "INV-1",
				InvoiceDate:   time.Date(2025, time.May, 9, 0, 0, 0, 0, time.UTC),
				InvoiceValue:  decimal.NewFromInt(11800),
				PlaceOfSupply: "27",
				RateBuckets: []models.RateBucket{{
					Rate:          decimal.NewFromInt(18),
					TaxableAmount: decimal.NewFromInt(10000),
					CGSTAmount:    decimal.NewFromInt(900),
					SGSTAmount:    decimal.NewFromInt(900),
				}},
			}},
		}},
	}

	// Dates flip to DD-MM-YYYY, amounts are bare numbers, zero iamt is
	// dropped while csamt is always reported.
	expected := `{
		"gstin": "27AAPFU0939F1ZV",
		"ret_period": "052025",
		"b2b": [{
			"ctin": "29AABCT1332L1ZU",
			"inv": [{
				"inum": "INV-1",
				"idt": "09-05-2025",
				"val": 11800,
				"pos": "27",
				"rchrg": "N",
				"inv_typ": "R",
				"itms": [{
					"num": 1,
					"itm_det": {"rt": 18, "txval": 10000, "camt": 900, "samt": 900, "csamt": 0}
				}]
			}]
		}]
	}`

	assert.JSONEq(t, expected, marshalPayload(t, exporter.ExportGSTR1(data)))
}

func TestExportGSTR1_ConsumerSections(t *testing.T) {
	exporter := NewReturnExporter()

	data := &models.GSTR1Data{
		GSTIN:  "27AAPFU0939F1ZV",
		Period: "052025",
		B2CLarge: []models.B2CLargeEntry{{
			PlaceOfSupply: "29",
			Invoices: []models.GSTR1Invoice{{
				InvoiceNumber: "INV-2",
				InvoiceDate:   time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC),
				InvoiceValue:  decimal.NewFromInt(295000),
				PlaceOfSupply: "29",
				IsInterstate:  true,
				RateBuckets: []models.RateBucket{{
					Rate:          decimal.NewFromInt(18),
					TaxableAmount: decimal.NewFromInt(250000),
					IGSTAmount:    decimal.NewFromInt(45000),
				}},
			}},
		}},
		B2CSmall: []models.B2CSmallEntry{
			{
				PlaceOfSupply: "27",
				Rate:          decimal.NewFromInt(18),
				TaxableAmount: decimal.NewFromInt(3000),
				CGSTAmount:    decimal.NewFromInt(270),
				SGSTAmount:    decimal.NewFromInt(270),
			},
			{
				PlaceOfSupply: "29",
				IsInterstate:  true,
				Rate:          decimal.NewFromInt(18),
				TaxableAmount: decimal.NewFromInt(1500),
				IGSTAmount:    decimal.NewFromInt(270),
			},
		},
	}

	// B2CL invoices carry pos on the section, not the invoice; B2CS rows
	// are consolidated with the INTRA/INTER marker.
	expected := `{
		"gstin": "27AAPFU0939F1ZV",
		"ret_period": "052025",
		"b2cl": [{
			"pos": "29",
			"inv": [{
				"inum": "INV-2",
				"idt": "15-05-2025",
				"val": 295000,
				"itms": [{
					"num": 1,
					"itm_det": {"rt": 18, "txval": 250000, "iamt": 45000, "csamt": 0}
				}]
			}]
		}],
		"b2cs": [
			{"sply_ty": "INTRA", "pos": "27", "typ": "OE", "rt": 18, "txval": 3000, "camt": 270, "samt": 270, "csamt": 0},
			{"sply_ty": "INTER", "pos": "29", "typ": "OE", "rt": 18, "txval": 1500, "iamt": 270, "csamt": 0}
		]
	}`

	assert.JSONEq(t, expected, marshalPayload(t, exporter.ExportGSTR1(data)))
}

func TestExportGSTR1_HSNAndDocumentSeries(t *testing.T) {
	exporter := NewReturnExporter()

	data := &models.GSTR1Data{
		GSTIN:  "27AAPFU0939F1ZV",
		Period: "052025",
		HSNSummary: []models.HSNSummaryEntry{{
			HSNCode:       "8517",
			Description:   "Mobile phones",
			UQC:           "NOS",
			Quantity:      decimal.NewFromInt(3),
			TotalValue:    decimal.NewFromInt(35400),
			TaxableAmount: decimal.NewFromInt(30000),
			CGSTAmount:    decimal.NewFromInt(2700),
			SGSTAmount:    decimal.NewFromInt(2700),
		}},
		DocsIssued: []models.DocSeriesEntry{{
			SeriesFrom: "INV-1",
			SeriesTo:   "INV-10",
			TotalCount: 5,
			Cancelled:  1,
			NetIssued:  4,
		}},
	}

	expected := `{
		"gstin": "27AAPFU0939F1ZV",
		"ret_period": "052025",
		"hsn": {
			"data": [{
				"num": 1,
				"hsn_sc": "8517",
				"desc": "Mobile phones",
				"uqc": "NOS",
				"qty": 3,
				"val": 35400,
				"txval": 30000,
				"camt": 2700,
				"samt": 2700,
				"csamt": 0
			}]
		},
		"doc_issue": {
			"doc_det": [{
				"doc_num": 1,
				"docs": [{"num": 1, "from": "INV-1", "to": "INV-10", "totnum": 5, "cancel": 1, "net_issue": 4}]
			}]
		}
	}`

	assert.JSONEq(t, expected, marshalPayload(t, exporter.ExportGSTR1(data)))
}

func TestExportGSTR1_ExportInvoicesCarryNoDomesticFlags(t *testing.T) {
	exporter := NewReturnExporter()

	data := &models.GSTR1Data{
		GSTIN:  "27AAPFU0939F1ZV",
		Period: "052025",
		Exports: []models.ExportEntry{{
			ExportType: models.ExportWithPayment,
			Invoices: []models.GSTR1Invoice{{
				InvoiceNumber: "EXP-1",
				InvoiceDate:   time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC),
				InvoiceValue:  decimal.NewFromInt(11800),
				IsInterstate:  true,
				RateBuckets: []models.RateBucket{{
					Rate:          decimal.NewFromInt(18),
					TaxableAmount: decimal.NewFromInt(10000),
					IGSTAmount:    decimal.NewFromInt(1800),
				}},
			}},
		}},
	}

	// No pos, rchrg or inv_typ on export invoices
	expected := `{
		"gstin": "27AAPFU0939F1ZV",
		"ret_period": "052025",
		"exp": [{
			"exp_typ": "WPAY",
			"inv": [{
				"inum": "EXP-1",
				"idt": "20-05-2025",
				"val": 11800,
				"itms": [{
					"num": 1,
					"itm_det": {"rt": 18, "txval": 10000, "iamt": 1800, "csamt": 0}
				}]
			}]
		}]
	}`

	assert.JSONEq(t, expected, marshalPayload(t, exporter.ExportGSTR1(data)))
}

func TestExportGSTR1_EmptyPeriodOmitsSections(t *testing.T) {
	exporter := NewReturnExporter()

	payload := exporter.ExportGSTR1(&models.GSTR1Data{Period: "062025"})

	assert.JSONEq(t, `{"gstin": "", "ret_period": "062025"}`, marshalPayload(t, payload))
}

// ===========================================
// GSTR-3B Export Tests
// ===========================================

func TestExportGSTR3B_WireFormat(t *testing.T) {
	exporter := NewReturnExporter()

	data := &models.GSTR3BData{
		GSTIN:  "27AAPFU0939F1ZV",
		Period: "052025",
		OutwardTaxable: models.SupplySummary{
			TaxableAmount: decimal.NewFromInt(10000),
			CGSTAmount:    decimal.NewFromInt(900),
			SGSTAmount:    decimal.NewFromInt(900),
		},
		OutwardZeroRated: models.SupplySummary{
			TaxableAmount: decimal.NewFromInt(10000),
			IGSTAmount:    decimal.NewFromInt(1800),
		},
		OutwardNilExempt: models.SupplySummary{
			TaxableAmount: decimal.NewFromInt(5000),
		},
		ITCAvailable: models.ITCSummary{
			IGSTAmount: decimal.NewFromInt(200),
			CGSTAmount: decimal.NewFromInt(450),
			SGSTAmount: decimal.NewFromInt(450),
		},
		ITCReversed: models.ITCSummary{
			IGSTAmount: decimal.NewFromInt(200),
		},
		ITCNet: models.ITCSummary{
			CGSTAmount: decimal.NewFromInt(450),
			SGSTAmount: decimal.NewFromInt(450),
		},
	}

	// Supply rows always carry txval and drop zero tax components; ITC
	// rows always carry every component.
	expected := `{
		"gstin": "27AAPFU0939F1ZV",
		"ret_period": "052025",
		"sup_details": {
			"osup_det": {"txval": 10000, "camt": 900, "samt": 900},
			"osup_zero": {"txval": 10000, "iamt": 1800},
			"osup_nil_exmp": {"txval": 5000},
			"isup_rev": {"txval": 0}
		},
		"itc_elg": {
			"itc_avl": [{"ty": "OTH", "iamt": 200, "camt": 450, "samt": 450, "csamt": 0}],
			"itc_rev": [{"iamt": 200, "camt": 0, "samt": 0, "csamt": 0}],
			"itc_net": {"iamt": 0, "camt": 450, "samt": 450, "csamt": 0}
		}
	}`

	assert.JSONEq(t, expected, marshalPayload(t, exporter.ExportGSTR3B(data)))
}
