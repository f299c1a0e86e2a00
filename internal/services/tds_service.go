package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tax-engine/internal/events"
	"tax-engine/internal/models"
	"tax-engine/internal/repository"
)

// panRegexp matches the Income Tax Department PAN format (AAAAA9999A)
var panRegexp = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// TDSService computes and posts Tax Deducted at Source on outgoing
// payments.
type TDSService struct {
	repo repository.WithholdingRepositoryInterface
}

// NewTDSService creates a new TDS service
func NewTDSService(repo repository.WithholdingRepositoryInterface) *TDSService {
	return &TDSService{repo: repo}
}

// CalculateTDS computes the deduction for a payment without posting it.
// The cumulative figure is read without locking, so the result is
// advisory until RecordDeduction posts it.
func (s *TDSService) CalculateTDS(ctx context.Context, tenantID string, req models.TDSDeductionRequest) (*models.TDSCalculationResponse, error) {
	rate, paymentDate, err := s.resolve(ctx, tenantID, &req)
	if err != nil {
		return nil, err
	}

	financialYear := financialYearOf(paymentDate)
	cumulative, err := s.repo.GetCumulativeAmount(ctx, tenantID, req.DeducteeID, financialYear, models.WithholdingTDS)
	if err != nil {
		return nil, err
	}

	return s.assess(req, rate, paymentDate, financialYear, cumulative), nil
}

// RecordDeduction posts an immutable deduction record. The rate policy
// is re-applied inside the repository transaction against the locked
// financial-year cumulative, so concurrent payments to the same
// deductee cannot both claim the below-threshold exemption.
func (s *TDSService) RecordDeduction(ctx context.Context, tenantID string, req models.TDSDeductionRequest) (*models.TDSDeduction, error) {
	rate, paymentDate, err := s.resolve(ctx, tenantID, &req)
	if err != nil {
		return nil, err
	}

	financialYear := financialYearOf(paymentDate)
	deduction := &models.TDSDeduction{
		TenantID:      tenantID,
		DeducteeID:    req.DeducteeID,
		DeducteePAN:   req.DeducteePAN,
		Section:       rate.Section,
		GrossAmount:   req.GrossAmount,
		PaymentDate:   paymentDate,
		FinancialYear: financialYear,
		Quarter:       quarterOf(paymentDate),
		ReferenceID:   req.ReferenceID,
		Status:        models.WithholdingStatusPosted,
	}

	err = s.repo.PostDeduction(ctx, deduction, func(cumulative decimal.Decimal) {
		result := s.assess(req, rate, paymentDate, financialYear, cumulative)
		deduction.AppliedRate = result.AppliedRate
		deduction.TDSAmount = result.TDSAmount
		deduction.NetAmount = result.NetAmount
		deduction.ThresholdApplied = result.ThresholdApplied
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"section":    deduction.Section,
		"tds_amount": deduction.TDSAmount,
	}).Info("TDS deduction recorded")

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishDeductionRecorded(ctx, deduction, tenantID)
	}

	return deduction, nil
}

// resolve validates the request and loads the section rate
func (s *TDSService) resolve(ctx context.Context, tenantID string, req *models.TDSDeductionRequest) (*models.TDSRate, time.Time, error) {
	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: payment date must be YYYY-MM-DD, got %q", ErrInvalidInput, req.PaymentDate)
	}
	if !req.GrossAmount.GreaterThan(decimal.Zero) {
		return nil, time.Time{}, fmt.Errorf("%w: gross amount must be positive", ErrInvalidInput)
	}
	req.DeducteePAN = strings.ToUpper(strings.TrimSpace(req.DeducteePAN))

	rate, err := s.repo.GetTDSRate(ctx, tenantID, req.Section)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, time.Time{}, fmt.Errorf("%w: no TDS rate configured for section %s", ErrRateNotFound, req.Section)
		}
		return nil, time.Time{}, err
	}
	return rate, paymentDate, nil
}

// assess applies the section's rate policy to a payment given the
// financial-year cumulative already posted for the deductee.
func (s *TDSService) assess(req models.TDSDeductionRequest, rate *models.TDSRate, paymentDate time.Time, financialYear string, cumulative decimal.Decimal) *models.TDSCalculationResponse {
	panAvailable := panRegexp.MatchString(req.DeducteePAN)
	appliedRate := rate.RateWithPAN
	if !panAvailable {
		appliedRate = rate.RateWithoutPAN
	}

	thresholdApplied := false
	if rate.ThresholdAmount.GreaterThan(decimal.Zero) {
		if rate.ThresholdPerAnnum {
			// No deduction until the FY cumulative reaches the threshold
			thresholdApplied = cumulative.Add(req.GrossAmount).LessThan(rate.ThresholdAmount)
		} else {
			thresholdApplied = req.GrossAmount.LessThan(rate.ThresholdAmount)
		}
	}

	tdsAmount := decimal.Zero
	if thresholdApplied {
		appliedRate = decimal.Zero
	} else {
		tdsAmount = taxOn(req.GrossAmount, appliedRate)
	}

	return &models.TDSCalculationResponse{
		Section:          rate.Section,
		GrossAmount:      req.GrossAmount,
		AppliedRate:      appliedRate,
		TDSAmount:        tdsAmount,
		NetAmount:        req.GrossAmount.Sub(tdsAmount),
		FinancialYear:    financialYear,
		Quarter:          quarterOf(paymentDate),
		ThresholdApplied: thresholdApplied,
		PANAvailable:     panAvailable,
		CumulativeAmount: cumulative,
	}
}
