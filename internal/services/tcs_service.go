package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tax-engine/internal/events"
	"tax-engine/internal/models"
	"tax-engine/internal/repository"
)

// TCSService computes and posts Tax Collected at Source on sales
// receipts.
type TCSService struct {
	repo repository.WithholdingRepositoryInterface
}

// NewTCSService creates a new TCS service
func NewTCSService(repo repository.WithholdingRepositoryInterface) *TCSService {
	return &TCSService{repo: repo}
}

// CalculateTCS computes the collection for a sale without posting it
func (s *TCSService) CalculateTCS(ctx context.Context, tenantID string, req models.TCSCollectionRequest) (*models.TCSCalculationResponse, error) {
	rate, collectionDate, err := s.resolve(ctx, tenantID, &req)
	if err != nil {
		return nil, err
	}

	financialYear := financialYearOf(collectionDate)
	cumulative, err := s.repo.GetCumulativeAmount(ctx, tenantID, req.CustomerID, financialYear, models.WithholdingTCS)
	if err != nil {
		return nil, err
	}

	return s.assess(req, rate, collectionDate, financialYear, cumulative), nil
}

// RecordCollection posts an immutable collection record, re-applying
// the rate policy against the locked financial-year cumulative.
func (s *TCSService) RecordCollection(ctx context.Context, tenantID string, req models.TCSCollectionRequest) (*models.TCSCollection, error) {
	rate, collectionDate, err := s.resolve(ctx, tenantID, &req)
	if err != nil {
		return nil, err
	}

	financialYear := financialYearOf(collectionDate)
	collection := &models.TCSCollection{
		TenantID:       tenantID,
		CustomerID:     req.CustomerID,
		CustomerPAN:    req.CustomerPAN,
		Section:        rate.Section,
		SaleAmount:     req.SaleAmount,
		CollectionDate: collectionDate,
		FinancialYear:  financialYear,
		Quarter:        quarterOf(collectionDate),
		ReferenceID:    req.ReferenceID,
		Status:         models.WithholdingStatusPosted,
	}

	err = s.repo.PostCollection(ctx, collection, func(cumulative decimal.Decimal) {
		result := s.assess(req, rate, collectionDate, financialYear, cumulative)
		collection.TaxableAmount = result.TaxableAmount
		collection.AppliedRate = result.AppliedRate
		collection.TCSAmount = result.TCSAmount
		collection.TotalAmount = result.TotalAmount
		collection.ThresholdApplied = result.ThresholdApplied
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"section":    collection.Section,
		"tcs_amount": collection.TCSAmount,
	}).Info("TCS collection recorded")

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishCollectionRecorded(ctx, collection, tenantID)
	}

	return collection, nil
}

// resolve validates the request and loads the section rate
func (s *TCSService) resolve(ctx context.Context, tenantID string, req *models.TCSCollectionRequest) (*models.TCSRate, time.Time, error) {
	collectionDate, err := time.Parse("2006-01-02", req.CollectionDate)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: collection date must be YYYY-MM-DD, got %q", ErrInvalidInput, req.CollectionDate)
	}
	if !req.SaleAmount.GreaterThan(decimal.Zero) {
		return nil, time.Time{}, fmt.Errorf("%w: sale amount must be positive", ErrInvalidInput)
	}
	req.CustomerPAN = strings.ToUpper(strings.TrimSpace(req.CustomerPAN))

	rate, err := s.repo.GetTCSRate(ctx, tenantID, req.Section)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, time.Time{}, fmt.Errorf("%w: no TCS rate configured for section %s", ErrRateNotFound, req.Section)
		}
		return nil, time.Time{}, err
	}
	return rate, collectionDate, nil
}

// assess applies the section's rate policy to a sale. Annual-threshold
// sections (206C(1H) style) tax only the excess of the financial-year
// cumulative over the threshold, clamped to the sale amount; other
// sections tax the full sale.
func (s *TCSService) assess(req models.TCSCollectionRequest, rate *models.TCSRate, collectionDate time.Time, financialYear string, cumulative decimal.Decimal) *models.TCSCalculationResponse {
	panAvailable := panRegexp.MatchString(req.CustomerPAN)
	appliedRate := rate.RateWithPAN
	if !panAvailable {
		appliedRate = rate.RateWithoutPAN
	}

	taxable := req.SaleAmount
	thresholdApplied := false
	if rate.ThresholdAmount.GreaterThan(decimal.Zero) {
		if rate.ThresholdPerAnnum {
			excess := cumulative.Add(req.SaleAmount).Sub(rate.ThresholdAmount)
			if excess.LessThan(decimal.Zero) {
				excess = decimal.Zero
			}
			if excess.GreaterThan(req.SaleAmount) {
				excess = req.SaleAmount
			}
			taxable = excess
			thresholdApplied = taxable.IsZero()
		} else if req.SaleAmount.LessThan(rate.ThresholdAmount) {
			taxable = decimal.Zero
			thresholdApplied = true
		}
	}

	tcsAmount := decimal.Zero
	if taxable.GreaterThan(decimal.Zero) {
		tcsAmount = taxOn(taxable, appliedRate)
	} else {
		appliedRate = decimal.Zero
	}

	return &models.TCSCalculationResponse{
		Section:          rate.Section,
		SaleAmount:       req.SaleAmount,
		TaxableAmount:    taxable,
		AppliedRate:      appliedRate,
		TCSAmount:        tcsAmount,
		TotalAmount:      req.SaleAmount.Add(tcsAmount),
		FinancialYear:    financialYear,
		Quarter:          quarterOf(collectionDate),
		ThresholdApplied: thresholdApplied,
		PANAvailable:     panAvailable,
		CumulativeAmount: cumulative,
	}
}
