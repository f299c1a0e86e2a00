package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tax-engine/internal/events"
	"tax-engine/internal/models"
	"tax-engine/internal/repository"
)

// ITCService records input tax credits from purchase invoices and
// manages their claim lifecycle.
type ITCService struct {
	repo repository.ITCRepositoryInterface
}

// NewITCService creates a new input tax credit service
func NewITCService(repo repository.ITCRepositoryInterface) *ITCService {
	return &ITCService{repo: repo}
}

// Record stores an input tax credit. The full component sum is treated
// as eligible; Rule 42/43 apportionment is not computed here.
func (s *ITCService) Record(ctx context.Context, tenantID string, req models.RecordITCRequest) (*models.InputTaxCredit, error) {
	invoiceDate, err := time.Parse("2006-01-02", req.InvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invoice date must be YYYY-MM-DD, got %q", ErrInvalidInput, req.InvoiceDate)
	}
	if !req.TaxableAmount.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: taxable amount must be positive", ErrInvalidInput)
	}
	for _, amount := range []decimal.Decimal{req.CGSTAmount, req.SGSTAmount, req.IGSTAmount, req.CessAmount} {
		if amount.LessThan(decimal.Zero) {
			return nil, fmt.Errorf("%w: tax amounts cannot be negative", ErrInvalidInput)
		}
	}

	totalITC := req.CGSTAmount.Add(req.SGSTAmount).Add(req.IGSTAmount).Add(req.CessAmount)
	itc := &models.InputTaxCredit{
		TenantID:        tenantID,
		SupplierID:      req.SupplierID,
		SupplierGSTIN:   strings.ToUpper(strings.TrimSpace(req.SupplierGSTIN)),
		InvoiceNumber:   req.InvoiceNumber,
		InvoiceDate:     invoiceDate,
		TaxableAmount:   req.TaxableAmount,
		CGSTAmount:      req.CGSTAmount,
		SGSTAmount:      req.SGSTAmount,
		IGSTAmount:      req.IGSTAmount,
		CessAmount:      req.CessAmount,
		TotalITC:        totalITC,
		EligibleITC:     totalITC,
		IsReverseCharge: req.IsReverseCharge,
		ClaimPeriod:     returnPeriodOf(invoiceDate),
		Status:          models.ITCStatusAvailable,
	}
	if err := s.repo.CreateITC(ctx, itc); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"tenant_id":    tenantID,
		"invoice":      itc.InvoiceNumber,
		"total_itc":    itc.TotalITC,
		"claim_period": itc.ClaimPeriod,
	}).Info("Input tax credit recorded")

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishITCRecorded(ctx, itc, tenantID)
	}

	return itc, nil
}

// Claim marks an available credit as claimed in a return
func (s *ITCService) Claim(ctx context.Context, tenantID string, id uuid.UUID) (*models.InputTaxCredit, error) {
	itc, err := s.repo.GetITC(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if itc.Status != models.ITCStatusAvailable {
		return nil, fmt.Errorf("%w: cannot claim credit in status %s", ErrInvalidTransition, itc.Status)
	}
	if err := s.repo.MarkITCClaimed(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost the race with another transition
			return nil, fmt.Errorf("%w: credit is no longer available", ErrInvalidTransition)
		}
		return nil, err
	}
	return s.repo.GetITC(ctx, tenantID, id)
}

// Reverse marks a credit as reversed. Reversed amounts feed the ITC
// reversal section of GSTR-3B for the period.
func (s *ITCService) Reverse(ctx context.Context, tenantID string, id uuid.UUID, reason string) (*models.InputTaxCredit, error) {
	itc, err := s.repo.GetITC(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if itc.Status == models.ITCStatusReversed {
		return nil, fmt.Errorf("%w: credit is already reversed", ErrInvalidTransition)
	}
	if err := s.repo.MarkITCReversed(ctx, tenantID, id, reason); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: credit is no longer reversible", ErrInvalidTransition)
		}
		return nil, err
	}
	return s.repo.GetITC(ctx, tenantID, id)
}

// Summary rolls up credits by status, optionally restricted to one
// MMYYYY claim period.
func (s *ITCService) Summary(ctx context.Context, tenantID, period string) (*models.ITCSummaryResponse, error) {
	if period != "" {
		if _, _, err := parseReturnPeriod(period); err != nil {
			return nil, err
		}
	}

	credits, err := s.repo.ListITC(ctx, tenantID, "", period)
	if err != nil {
		return nil, err
	}

	summary := &models.ITCSummaryResponse{Period: period}
	for _, itc := range credits {
		switch itc.Status {
		case models.ITCStatusAvailable:
			accumulateITC(&summary.Available, itc)
		case models.ITCStatusClaimed:
			accumulateITC(&summary.Claimed, itc)
		case models.ITCStatusReversed:
			accumulateITC(&summary.Reversed, itc)
		}
	}
	return summary, nil
}

func accumulateITC(totals *models.ITCTotals, itc models.InputTaxCredit) {
	totals.Count++
	totals.CGST = totals.CGST.Add(itc.CGSTAmount)
	totals.SGST = totals.SGST.Add(itc.SGSTAmount)
	totals.IGST = totals.IGST.Add(itc.IGSTAmount)
	totals.Cess = totals.Cess.Add(itc.CessAmount)
	totals.Total = totals.Total.Add(itc.TotalITC)
}
