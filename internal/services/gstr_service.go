package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tax-engine/internal/events"
	"tax-engine/internal/models"
	"tax-engine/internal/repository"
)

// b2cLargeThreshold is the invoice value above which an interstate
// consumer invoice must be reported invoice-wise (B2C Large).
var b2cLargeThreshold = decimal.NewFromInt(250000)

// GSTRService aggregates posted invoices and input tax credits into
// GSTR-1 and GSTR-3B returns and manages their filing snapshots.
type GSTRService struct {
	taxRepo     repository.TaxRepositoryInterface
	invoiceRepo repository.InvoiceRepositoryInterface
	itcRepo     repository.ITCRepositoryInterface
	filingRepo  repository.FilingRepositoryInterface
	exporter    *ReturnExporter
}

// NewGSTRService creates a new GST return aggregation service
func NewGSTRService(taxRepo repository.TaxRepositoryInterface, invoiceRepo repository.InvoiceRepositoryInterface, itcRepo repository.ITCRepositoryInterface, filingRepo repository.FilingRepositoryInterface) *GSTRService {
	return &GSTRService{
		taxRepo:     taxRepo,
		invoiceRepo: invoiceRepo,
		itcRepo:     itcRepo,
		filingRepo:  filingRepo,
		exporter:    NewReturnExporter(),
	}
}

// GenerateGSTR1 aggregates the period's posted invoices into the
// outward-supply return sections.
func (s *GSTRService) GenerateGSTR1(ctx context.Context, tenantID, period string) (*models.GSTR1Data, error) {
	periodStart, periodEnd, err := parseReturnPeriod(period)
	if err != nil {
		return nil, err
	}

	invoices, err := s.invoiceRepo.ListInvoicesByPeriod(ctx, tenantID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices for period %s: %w", period, err)
	}

	data := &models.GSTR1Data{
		GSTIN:  s.lookupGSTIN(ctx, tenantID),
		Period: period,
	}

	b2b := map[string]*models.B2BEntry{}
	b2cl := map[string]*models.B2CLargeEntry{}
	b2cs := map[b2csKey]*models.B2CSmallEntry{}
	exports := map[models.ExportType]*models.ExportEntry{}
	hsn := map[string]*models.HSNSummaryEntry{}

	for _, invoice := range invoices {
		if invoice.Status == models.InvoiceStatusCancelled {
			continue
		}

		entry := models.GSTR1Invoice{
			InvoiceNumber: invoice.InvoiceNumber,
			InvoiceDate:   invoice.InvoiceDate,
			InvoiceValue:  invoice.InvoiceValue,
			PlaceOfSupply: invoice.PlaceOfSupply,
			IsInterstate:  invoice.IsInterstate,
			RateBuckets:   collapseRateBuckets(invoice.Items),
		}
		data.TotalInvoices++
		for _, bucket := range entry.RateBuckets {
			data.TotalTaxable = data.TotalTaxable.Add(bucket.TaxableAmount)
			data.TotalTax = data.TotalTax.Add(bucket.IGSTAmount).Add(bucket.CGSTAmount).Add(bucket.SGSTAmount).Add(bucket.CessAmount)
		}

		switch {
		case invoice.ExportType != "":
			group, ok := exports[invoice.ExportType]
			if !ok {
				group = &models.ExportEntry{ExportType: invoice.ExportType}
				exports[invoice.ExportType] = group
			}
			group.Invoices = append(group.Invoices, entry)

		case invoice.CustomerGSTIN != "":
			group, ok := b2b[invoice.CustomerGSTIN]
			if !ok {
				group = &models.B2BEntry{CounterpartyGSTIN: invoice.CustomerGSTIN}
				b2b[invoice.CustomerGSTIN] = group
			}
			group.Invoices = append(group.Invoices, entry)

		case invoice.IsInterstate && invoice.InvoiceValue.GreaterThan(b2cLargeThreshold):
			group, ok := b2cl[invoice.PlaceOfSupply]
			if !ok {
				group = &models.B2CLargeEntry{PlaceOfSupply: invoice.PlaceOfSupply}
				b2cl[invoice.PlaceOfSupply] = group
			}
			group.Invoices = append(group.Invoices, entry)

		default:
			// Consolidated only; no per-invoice rows
			for _, bucket := range entry.RateBuckets {
				key := b2csKey{pos: invoice.PlaceOfSupply, rate: bucket.Rate.String(), interstate: invoice.IsInterstate}
				row, ok := b2cs[key]
				if !ok {
					row = &models.B2CSmallEntry{
						PlaceOfSupply: invoice.PlaceOfSupply,
						IsInterstate:  invoice.IsInterstate,
						Rate:          bucket.Rate,
					}
					b2cs[key] = row
				}
				row.TaxableAmount = row.TaxableAmount.Add(bucket.TaxableAmount)
				row.IGSTAmount = row.IGSTAmount.Add(bucket.IGSTAmount)
				row.CGSTAmount = row.CGSTAmount.Add(bucket.CGSTAmount)
				row.SGSTAmount = row.SGSTAmount.Add(bucket.SGSTAmount)
				row.CessAmount = row.CessAmount.Add(bucket.CessAmount)
			}
		}

		accumulateHSN(hsn, invoice.Items)
	}

	data.B2B = flattenB2B(b2b)
	data.B2CLarge = flattenB2CL(b2cl)
	data.B2CSmall = flattenB2CS(b2cs)
	data.Exports = flattenExports(exports)
	data.HSNSummary = flattenHSN(hsn)
	data.DocsIssued = documentSeries(invoices)

	return data, nil
}

// GenerateGSTR3B builds the summary return from the period's invoices
// and input tax credits. ITC read failures degrade to a zero-valued
// credit section; invoice read failures abort.
func (s *GSTRService) GenerateGSTR3B(ctx context.Context, tenantID, period string) (*models.GSTR3BData, error) {
	periodStart, periodEnd, err := parseReturnPeriod(period)
	if err != nil {
		return nil, err
	}

	invoices, err := s.invoiceRepo.ListInvoicesByPeriod(ctx, tenantID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices for period %s: %w", period, err)
	}

	data := &models.GSTR3BData{
		GSTIN:  s.lookupGSTIN(ctx, tenantID),
		Period: period,
	}

	for _, invoice := range invoices {
		if invoice.Status == models.InvoiceStatusCancelled {
			continue
		}
		for _, item := range invoice.Items {
			switch {
			case invoice.ExportType != "":
				addSupply(&data.OutwardZeroRated, item)
			case item.GSTRate.IsZero():
				addSupply(&data.OutwardNilExempt, item)
			default:
				addSupply(&data.OutwardTaxable, item)
			}
		}
	}

	credits, err := s.itcRepo.ListITC(ctx, tenantID, "", period)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"period":    period,
		}).Warn("Failed to load input tax credits for GSTR-3B, reporting zero ITC")
	} else {
		for _, itc := range credits {
			data.ITCAvailable.IGSTAmount = data.ITCAvailable.IGSTAmount.Add(itc.IGSTAmount)
			data.ITCAvailable.CGSTAmount = data.ITCAvailable.CGSTAmount.Add(itc.CGSTAmount)
			data.ITCAvailable.SGSTAmount = data.ITCAvailable.SGSTAmount.Add(itc.SGSTAmount)
			data.ITCAvailable.CessAmount = data.ITCAvailable.CessAmount.Add(itc.CessAmount)
			if itc.Status == models.ITCStatusReversed {
				data.ITCReversed.IGSTAmount = data.ITCReversed.IGSTAmount.Add(itc.IGSTAmount)
				data.ITCReversed.CGSTAmount = data.ITCReversed.CGSTAmount.Add(itc.CGSTAmount)
				data.ITCReversed.SGSTAmount = data.ITCReversed.SGSTAmount.Add(itc.SGSTAmount)
				data.ITCReversed.CessAmount = data.ITCReversed.CessAmount.Add(itc.CessAmount)
			}
			if itc.IsReverseCharge {
				data.InwardRevCharge.TaxableAmount = data.InwardRevCharge.TaxableAmount.Add(itc.TaxableAmount)
				data.InwardRevCharge.IGSTAmount = data.InwardRevCharge.IGSTAmount.Add(itc.IGSTAmount)
				data.InwardRevCharge.CGSTAmount = data.InwardRevCharge.CGSTAmount.Add(itc.CGSTAmount)
				data.InwardRevCharge.SGSTAmount = data.InwardRevCharge.SGSTAmount.Add(itc.SGSTAmount)
				data.InwardRevCharge.CessAmount = data.InwardRevCharge.CessAmount.Add(itc.CessAmount)
			}
		}
	}

	data.ITCNet.IGSTAmount = data.ITCAvailable.IGSTAmount.Sub(data.ITCReversed.IGSTAmount)
	data.ITCNet.CGSTAmount = data.ITCAvailable.CGSTAmount.Sub(data.ITCReversed.CGSTAmount)
	data.ITCNet.SGSTAmount = data.ITCAvailable.SGSTAmount.Sub(data.ITCReversed.SGSTAmount)
	data.ITCNet.CessAmount = data.ITCAvailable.CessAmount.Sub(data.ITCReversed.CessAmount)

	data.NetPayableIGST = data.OutwardTaxable.IGSTAmount.Add(data.OutwardZeroRated.IGSTAmount).Sub(data.ITCNet.IGSTAmount)
	data.NetPayableCGST = data.OutwardTaxable.CGSTAmount.Add(data.OutwardZeroRated.CGSTAmount).Sub(data.ITCNet.CGSTAmount)
	data.NetPayableSGST = data.OutwardTaxable.SGSTAmount.Add(data.OutwardZeroRated.SGSTAmount).Sub(data.ITCNet.SGSTAmount)
	data.NetPayableCess = data.OutwardTaxable.CessAmount.Add(data.OutwardZeroRated.CessAmount).Sub(data.ITCNet.CessAmount)

	return data, nil
}

// GetReturn returns the filing for (type, period): the frozen snapshot
// when already filed, otherwise a freshly regenerated draft.
func (s *GSTRService) GetReturn(ctx context.Context, tenantID string, returnType models.ReturnType, period string) (*models.GSTRFiling, error) {
	existing, err := s.filingRepo.GetFiling(ctx, tenantID, returnType, period)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == models.FilingStatusFiled {
		return existing, nil
	}

	filing, err := s.buildFiling(ctx, tenantID, returnType, period)
	if err != nil {
		return nil, err
	}
	if err := s.filingRepo.UpsertDraft(ctx, filing); err != nil {
		return nil, err
	}
	return filing, nil
}

// File freezes the current draft for (type, period) as FILED. A filed
// return can never be regenerated or filed again.
func (s *GSTRService) File(ctx context.Context, tenantID string, returnType models.ReturnType, period string) (*models.GSTRFiling, error) {
	draft, err := s.GetReturn(ctx, tenantID, returnType, period)
	if err != nil {
		return nil, err
	}
	if draft.Status == models.FilingStatusFiled {
		return nil, repository.ErrAlreadyFiled
	}

	filed, err := s.filingRepo.MarkFiled(ctx, tenantID, returnType, period)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"tenant_id":   tenantID,
		"return_type": returnType,
		"period":      period,
	}).Info("GST return filed")

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishReturnFiled(ctx, filed, tenantID)
	}

	return filed, nil
}

// buildFiling generates the return data and wraps it in an unsaved
// draft row with the authority-format payload snapshot.
func (s *GSTRService) buildFiling(ctx context.Context, tenantID string, returnType models.ReturnType, period string) (*models.GSTRFiling, error) {
	periodStart, periodEnd, err := parseReturnPeriod(period)
	if err != nil {
		return nil, err
	}

	filing := &models.GSTRFiling{
		TenantID:    tenantID,
		ReturnType:  returnType,
		Period:      period,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      models.FilingStatusDraft,
	}

	var payload any
	switch returnType {
	case models.ReturnTypeGSTR1:
		data, err := s.GenerateGSTR1(ctx, tenantID, period)
		if err != nil {
			return nil, err
		}
		filing.GSTIN = data.GSTIN
		filing.TotalTaxable = data.TotalTaxable
		filing.TotalTax = data.TotalTax
		payload = s.exporter.ExportGSTR1(data)

	case models.ReturnTypeGSTR3B:
		data, err := s.GenerateGSTR3B(ctx, tenantID, period)
		if err != nil {
			return nil, err
		}
		filing.GSTIN = data.GSTIN
		filing.TotalTaxable = data.OutwardTaxable.TaxableAmount.
			Add(data.OutwardZeroRated.TaxableAmount).
			Add(data.OutwardNilExempt.TaxableAmount)
		filing.TotalTax = data.OutwardTaxable.IGSTAmount.
			Add(data.OutwardTaxable.CGSTAmount).
			Add(data.OutwardTaxable.SGSTAmount).
			Add(data.OutwardTaxable.CessAmount).
			Add(data.OutwardZeroRated.IGSTAmount)
		payload = s.exporter.ExportGSTR3B(data)

	default:
		return nil, fmt.Errorf("%w: unknown return type %q", ErrInvalidInput, returnType)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", returnType, err)
	}
	filing.Payload = models.JSONB(payloadJSON)
	return filing, nil
}

// lookupGSTIN resolves the tenant's GSTIN from its principal
// registration. Missing registrations degrade to an empty GSTIN so
// drafts can still be inspected.
func (s *GSTRService) lookupGSTIN(ctx context.Context, tenantID string) string {
	registration, err := s.taxRepo.GetActiveRegistration(ctx, tenantID)
	if err != nil {
		logrus.WithField("tenant_id", tenantID).Warn("No active GST registration found, generating return without GSTIN")
		return ""
	}
	return registration.GSTIN
}

type b2csKey struct {
	pos        string
	rate       string
	interstate bool
}

// collapseRateBuckets merges invoice lines sharing a GST rate into one
// bucket per rate, sorted by rate.
func collapseRateBuckets(items []models.PostedInvoiceItem) []models.RateBucket {
	byRate := map[string]*models.RateBucket{}
	for _, item := range items {
		bucket, ok := byRate[item.GSTRate.String()]
		if !ok {
			bucket = &models.RateBucket{Rate: item.GSTRate}
			byRate[item.GSTRate.String()] = bucket
		}
		bucket.TaxableAmount = bucket.TaxableAmount.Add(item.TaxableAmount)
		bucket.IGSTAmount = bucket.IGSTAmount.Add(item.IGSTAmount)
		bucket.CGSTAmount = bucket.CGSTAmount.Add(item.CGSTAmount)
		bucket.SGSTAmount = bucket.SGSTAmount.Add(item.SGSTAmount)
		bucket.CessAmount = bucket.CessAmount.Add(item.CessAmount)
	}

	buckets := make([]models.RateBucket, 0, len(byRate))
	for _, bucket := range byRate {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Rate.LessThan(buckets[j].Rate)
	})
	return buckets
}

// accumulateHSN folds invoice lines into the HSN/SAC summary map
func accumulateHSN(summary map[string]*models.HSNSummaryEntry, items []models.PostedInvoiceItem) {
	for _, item := range items {
		code := item.HSNCode
		if code == "" {
			code = item.SACCode
		}
		if code == "" {
			continue
		}
		entry, ok := summary[code]
		if !ok {
			entry = &models.HSNSummaryEntry{HSNCode: code, Description: item.Description, UQC: item.Unit}
			summary[code] = entry
		}
		entry.Quantity = entry.Quantity.Add(item.Quantity)
		entry.TaxableAmount = entry.TaxableAmount.Add(item.TaxableAmount)
		entry.IGSTAmount = entry.IGSTAmount.Add(item.IGSTAmount)
		entry.CGSTAmount = entry.CGSTAmount.Add(item.CGSTAmount)
		entry.SGSTAmount = entry.SGSTAmount.Add(item.SGSTAmount)
		entry.CessAmount = entry.CessAmount.Add(item.CessAmount)
		entry.TotalValue = entry.TaxableAmount.
			Add(entry.IGSTAmount).Add(entry.CGSTAmount).Add(entry.SGSTAmount).Add(entry.CessAmount)
	}
}

// addSupply folds one invoice line into a GSTR-3B supply summary
func addSupply(summary *models.SupplySummary, item models.PostedInvoiceItem) {
	summary.TaxableAmount = summary.TaxableAmount.Add(item.TaxableAmount)
	summary.IGSTAmount = summary.IGSTAmount.Add(item.IGSTAmount)
	summary.CGSTAmount = summary.CGSTAmount.Add(item.CGSTAmount)
	summary.SGSTAmount = summary.SGSTAmount.Add(item.SGSTAmount)
	summary.CessAmount = summary.CessAmount.Add(item.CessAmount)
}

// documentSeries summarizes issued invoice number series, including
// cancelled documents. The series is the invoice number with its
// trailing digits stripped.
func documentSeries(invoices []models.PostedInvoice) []models.DocSeriesEntry {
	type seriesAgg struct {
		from      string
		to        string
		total     int
		cancelled int
	}
	series := map[string]*seriesAgg{}

	for _, invoice := range invoices {
		prefix, _ := splitInvoiceNumber(invoice.InvoiceNumber)
		agg, ok := series[prefix]
		if !ok {
			agg = &seriesAgg{from: invoice.InvoiceNumber, to: invoice.InvoiceNumber}
			series[prefix] = agg
		}
		if invoiceNumberLess(invoice.InvoiceNumber, agg.from) {
			agg.from = invoice.InvoiceNumber
		}
		if invoiceNumberLess(agg.to, invoice.InvoiceNumber) {
			agg.to = invoice.InvoiceNumber
		}
		agg.total++
		if invoice.Status == models.InvoiceStatusCancelled {
			agg.cancelled++
		}
	}

	prefixes := make([]string, 0, len(series))
	for prefix := range series {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	entries := make([]models.DocSeriesEntry, 0, len(prefixes))
	for _, prefix := range prefixes {
		agg := series[prefix]
		entries = append(entries, models.DocSeriesEntry{
			SeriesFrom: agg.from,
			SeriesTo:   agg.to,
			TotalCount: agg.total,
			Cancelled:  agg.cancelled,
			NetIssued:  agg.total - agg.cancelled,
		})
	}
	return entries
}

// splitInvoiceNumber separates the series prefix from the trailing
// numeric part of an invoice number.
func splitInvoiceNumber(number string) (string, string) {
	i := len(number)
	for i > 0 && number[i-1] >= '0' && number[i-1] <= '9' {
		i--
	}
	return number[:i], number[i:]
}

// invoiceNumberLess orders invoice numbers within one series: shorter
// numbers sort first so INV-9 precedes INV-10 without zero padding.
func invoiceNumberLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func flattenB2B(entries map[string]*models.B2BEntry) []models.B2BEntry {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]models.B2BEntry, 0, len(keys))
	for _, key := range keys {
		out = append(out, *entries[key])
	}
	return out
}

func flattenB2CL(entries map[string]*models.B2CLargeEntry) []models.B2CLargeEntry {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]models.B2CLargeEntry, 0, len(keys))
	for _, key := range keys {
		out = append(out, *entries[key])
	}
	return out
}

func flattenB2CS(entries map[b2csKey]*models.B2CSmallEntry) []models.B2CSmallEntry {
	keys := make([]b2csKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pos != keys[j].pos {
			return keys[i].pos < keys[j].pos
		}
		return entries[keys[i]].Rate.LessThan(entries[keys[j]].Rate)
	})
	out := make([]models.B2CSmallEntry, 0, len(keys))
	for _, key := range keys {
		out = append(out, *entries[key])
	}
	return out
}

func flattenExports(entries map[models.ExportType]*models.ExportEntry) []models.ExportEntry {
	out := make([]models.ExportEntry, 0, len(entries))
	for _, exportType := range []models.ExportType{models.ExportWithPayment, models.ExportWithoutPayment} {
		if entry, ok := entries[exportType]; ok {
			out = append(out, *entry)
		}
	}
	return out
}

func flattenHSN(entries map[string]*models.HSNSummaryEntry) []models.HSNSummaryEntry {
	codes := make([]string, 0, len(entries))
	for code := range entries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]models.HSNSummaryEntry, 0, len(codes))
	for _, code := range codes {
		out = append(out, *entries[code])
	}
	return out
}
