package services

import (
	"tax-engine/internal/models"
)

// gstnDateFormat is the DD-MM-YYYY layout the portal expects
const gstnDateFormat = "02-01-2006"

// ReturnExporter maps aggregated return data onto the GSTN upload
// structures. The JSON field codes live on the wire structs; this layer
// only decides which sections and flags each return carries.
type ReturnExporter struct{}

// NewReturnExporter creates a new return exporter
func NewReturnExporter() *ReturnExporter {
	return &ReturnExporter{}
}

// ExportGSTR1 builds the GSTR-1 upload body
func (e *ReturnExporter) ExportGSTR1(data *models.GSTR1Data) *models.GSTR1Payload {
	payload := &models.GSTR1Payload{
		GSTIN:        data.GSTIN,
		ReturnPeriod: data.Period,
	}

	for _, entry := range data.B2B {
		section := models.B2BSection{CounterpartyGSTIN: entry.CounterpartyGSTIN}
		for _, invoice := range entry.Invoices {
			wire := sectionInvoice(invoice)
			wire.PlaceOfSupply = invoice.PlaceOfSupply
			wire.ReverseCharge = "N"
			wire.InvoiceType = "R"
			section.Invoices = append(section.Invoices, wire)
		}
		payload.B2B = append(payload.B2B, section)
	}

	for _, entry := range data.B2CLarge {
		section := models.B2CLSection{PlaceOfSupply: entry.PlaceOfSupply}
		for _, invoice := range entry.Invoices {
			section.Invoices = append(section.Invoices, sectionInvoice(invoice))
		}
		payload.B2CL = append(payload.B2CL, section)
	}

	for _, row := range data.B2CSmall {
		supplyType := "INTRA"
		if row.IsInterstate {
			supplyType = "INTER"
		}
		payload.B2CS = append(payload.B2CS, models.B2CSRow{
			SupplyType:    supplyType,
			PlaceOfSupply: row.PlaceOfSupply,
			Type:          "OE",
			Rate:          row.Rate,
			TaxableValue:  row.TaxableAmount,
			IGST:          row.IGSTAmount,
			CGST:          row.CGSTAmount,
			SGST:          row.SGSTAmount,
			Cess:          row.CessAmount,
		})
	}

	for _, entry := range data.Exports {
		section := models.ExportSection{ExportType: string(entry.ExportType)}
		for _, invoice := range entry.Invoices {
			section.Invoices = append(section.Invoices, sectionInvoice(invoice))
		}
		payload.Exports = append(payload.Exports, section)
	}

	if len(data.HSNSummary) > 0 {
		section := &models.HSNSection{}
		for i, entry := range data.HSNSummary {
			section.Data = append(section.Data, models.HSNRow{
				Num:          i + 1,
				HSNCode:      entry.HSNCode,
				Description:  entry.Description,
				UQC:          entry.UQC,
				Quantity:     entry.Quantity,
				TotalValue:   entry.TotalValue,
				TaxableValue: entry.TaxableAmount,
				IGST:         entry.IGSTAmount,
				CGST:         entry.CGSTAmount,
				SGST:         entry.SGSTAmount,
				Cess:         entry.CessAmount,
			})
		}
		payload.HSN = section
	}

	if len(data.DocsIssued) > 0 {
		detail := models.DocDetail{DocNum: 1} // 1 = invoices for outward supply
		for i, entry := range data.DocsIssued {
			detail.Docs = append(detail.Docs, models.DocSeries{
				Num:        i + 1,
				From:       entry.SeriesFrom,
				To:         entry.SeriesTo,
				TotalCount: entry.TotalCount,
				Cancelled:  entry.Cancelled,
				NetIssued:  entry.NetIssued,
			})
		}
		payload.DocIssue = &models.DocIssueSection{Details: []models.DocDetail{detail}}
	}

	return payload
}

// ExportGSTR3B builds the GSTR-3B upload body
func (e *ReturnExporter) ExportGSTR3B(data *models.GSTR3BData) *models.GSTR3BPayload {
	return &models.GSTR3BPayload{
		GSTIN:        data.GSTIN,
		ReturnPeriod: data.Period,
		SupplySection: models.SupplySection{
			OutwardTaxable:   supplyDetail(data.OutwardTaxable),
			OutwardZeroRated: supplyDetail(data.OutwardZeroRated),
			OutwardNilExempt: supplyDetail(data.OutwardNilExempt),
			InwardRevCharge:  supplyDetail(data.InwardRevCharge),
		},
		ITCSection: models.ITCSection{
			Available: []models.ITCDetail{itcDetail("OTH", data.ITCAvailable)},
			Reversed:  []models.ITCDetail{itcDetail("", data.ITCReversed)},
			Net:       itcDetail("", data.ITCNet),
		},
	}
}

func sectionInvoice(invoice models.GSTR1Invoice) models.SectionInvoice {
	wire := models.SectionInvoice{
		Number: invoice.InvoiceNumber,
		Date:   invoice.InvoiceDate.Format(gstnDateFormat),
		Value:  invoice.InvoiceValue,
	}
	for i, bucket := range invoice.RateBuckets {
		wire.Items = append(wire.Items, models.SectionItem{
			Num: i + 1,
			Detail: models.ItemDetail{
				Rate:         bucket.Rate,
				TaxableValue: bucket.TaxableAmount,
				IGST:         bucket.IGSTAmount,
				CGST:         bucket.CGSTAmount,
				SGST:         bucket.SGSTAmount,
				Cess:         bucket.CessAmount,
			},
		})
	}
	return wire
}

func supplyDetail(summary models.SupplySummary) models.SupplyDetail {
	return models.SupplyDetail{
		TaxableValue: summary.TaxableAmount,
		IGST:         summary.IGSTAmount,
		CGST:         summary.CGSTAmount,
		SGST:         summary.SGSTAmount,
		Cess:         summary.CessAmount,
	}
}

func itcDetail(detailType string, summary models.ITCSummary) models.ITCDetail {
	return models.ITCDetail{
		Type: detailType,
		IGST: summary.IGSTAmount,
		CGST: summary.CGSTAmount,
		SGST: summary.SGSTAmount,
		Cess: summary.CessAmount,
	}
}
