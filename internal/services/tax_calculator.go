package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
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

var (
	// ErrRateNotFound indicates no withholding rate row matched the section
	ErrRateNotFound = errors.New("rate not found")

	// ErrInvalidInput indicates a request that passed binding but fails a
	// domain rule
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidJurisdiction indicates neither origin nor destination state
	// could be resolved
	ErrInvalidJurisdiction = errors.New("invalid jurisdiction")

	// ErrInvalidPeriod indicates a malformed return period
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidTransition indicates a state change the record does not allow
	ErrInvalidTransition = errors.New("invalid status transition")
)

var pinCodeRegexp = regexp.MustCompile(`^[0-9]{6}$`)

// taxRegime calculates tax for one country's rules
type taxRegime interface {
	Calculate(ctx context.Context, req models.CalculateTaxRequest) (*models.TaxCalculationResponse, error)
}

// TaxCalculator dispatches calculation requests to the regime for the
// destination country and caches results.
type TaxCalculator struct {
	repo     repository.TaxRepositoryInterface
	cacheTTL time.Duration
	regimes  map[string]taxRegime
	fallback taxRegime
}

// NewTaxCalculator creates a new tax calculator service
func NewTaxCalculator(repo repository.TaxRepositoryInterface, cacheTTL time.Duration) *TaxCalculator {
	return &TaxCalculator{
		repo:     repo,
		cacheTTL: cacheTTL,
		regimes: map[string]taxRegime{
			"IN": newIndiaGSTRegime(repo),
		},
		fallback: zeroTaxRegime{},
	}
}

// CalculateTax calculates tax for a transaction
func (c *TaxCalculator) CalculateTax(ctx context.Context, req models.CalculateTaxRequest) (*models.TaxCalculationResponse, error) {
	// Check cache first
	cacheKey := c.generateCacheKey(req)
	cached, err := c.repo.GetCachedTaxCalculation(ctx, cacheKey)
	if err == nil && cached != nil {
		var response models.TaxCalculationResponse
		if err := json.Unmarshal([]byte(cached.CalculationResult), &response); err == nil {
			logrus.WithField("cache_key", cacheKey).Debug("Tax calculation cache hit")
			return &response, nil
		}
	}

	countryCode := resolveCountryCode(req.ShippingAddress)
	regime, ok := c.regimes[countryCode]
	if !ok {
		regime = c.fallback
	}

	response, err := regime.Calculate(ctx, req)
	if err != nil {
		return nil, err
	}

	c.cacheResult(ctx, req, cacheKey, response)

	if publisher := events.GetPublisher(); publisher != nil {
		publisher.PublishTaxCalculated(ctx, req, response, req.TenantID)
	}

	return response, nil
}

// ValidateAddress validates and standardizes an address for tax purposes
func (c *TaxCalculator) ValidateAddress(ctx context.Context, address models.AddressInput) (*models.ValidateAddressResponse, error) {
	var validationErrors []string

	standardized := address
	standardized.StateCode = strings.ToUpper(strings.TrimSpace(standardized.StateCode))
	standardized.CountryCode = strings.ToUpper(strings.TrimSpace(standardized.CountryCode))

	if strings.TrimSpace(address.City) == "" {
		validationErrors = append(validationErrors, "city is required")
	}
	if strings.TrimSpace(address.Country) == "" && standardized.CountryCode == "" {
		validationErrors = append(validationErrors, "country is required")
	}

	if resolveCountryCode(standardized) == "IN" {
		standardized.CountryCode = "IN"
		if standardized.StateCode == "" {
			validationErrors = append(validationErrors, "state code is required for Indian addresses")
		} else if state, ok := indiaStates[standardized.StateCode]; !ok {
			validationErrors = append(validationErrors, fmt.Sprintf("unknown state code: %s", standardized.StateCode))
		} else if standardized.State == "" {
			standardized.State = state.Name
		}
		if standardized.Zip != "" && !pinCodeRegexp.MatchString(standardized.Zip) {
			validationErrors = append(validationErrors, "PIN code must be 6 digits")
		}
	}

	return &models.ValidateAddressResponse{
		IsValid:             len(validationErrors) == 0,
		Errors:              validationErrors,
		StandardizedAddress: standardized,
	}, nil
}

// resolveCountryCode normalizes the destination country to an ISO code
func resolveCountryCode(address models.AddressInput) string {
	if code := strings.ToUpper(strings.TrimSpace(address.CountryCode)); code != "" {
		return code
	}
	switch strings.ToLower(strings.TrimSpace(address.Country)) {
	case "india", "in":
		return "IN"
	case "united states", "usa", "us":
		return "US"
	case "united kingdom", "uk", "gb":
		return "GB"
	}
	return strings.ToUpper(strings.TrimSpace(address.Country))
}

// sumLineSubtotals totals the line item subtotals
func sumLineSubtotals(items []models.LineItemInput) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
	}
	return subtotal
}

// generateCacheKey generates a cache key for the tax calculation
func (c *TaxCalculator) generateCacheKey(req models.CalculateTaxRequest) string {
	originState := ""
	if req.OriginAddress != nil {
		originState = req.OriginAddress.StateCode
	}

	keyData := fmt.Sprintf("%s:%s:%s:%s:%s",
		req.TenantID,
		resolveCountryCode(req.ShippingAddress),
		originState,
		req.ShippingAddress.StateCode,
		req.ShippingAmount.String(),
	)
	for _, item := range req.LineItems {
		categoryID := ""
		if item.CategoryID != nil {
			categoryID = item.CategoryID.String()
		}
		keyData += fmt.Sprintf(":%s:%s:%s:%s", categoryID, item.HSNCode, item.SACCode, item.Subtotal.String())
	}

	hash := md5.Sum([]byte(keyData))
	return fmt.Sprintf("%x", hash)
}

// cacheResult caches a tax calculation result
func (c *TaxCalculator) cacheResult(ctx context.Context, req models.CalculateTaxRequest, cacheKey string, response *models.TaxCalculationResponse) {
	resultJSON, err := json.Marshal(response)
	if err != nil {
		logrus.WithError(err).Warn("Failed to marshal tax calculation for cache")
		return
	}
	breakdownJSON, err := json.Marshal(response.TaxBreakdown)
	if err != nil {
		logrus.WithError(err).Warn("Failed to marshal tax breakdown for cache")
		return
	}

	cache := &models.TaxCalculationCache{
		CacheKey:          cacheKey,
		Subtotal:          response.Subtotal,
		ShippingAmount:    response.ShippingAmount,
		TaxAmount:         response.TaxAmount,
		TaxBreakdown:      models.JSONB(breakdownJSON),
		CalculationResult: string(resultJSON),
		ExpiresAt:         time.Now().Add(c.cacheTTL),
	}
	if err := c.repo.CacheTaxCalculation(ctx, cache); err != nil {
		logrus.WithError(err).Warn("Failed to cache tax calculation")
	}
}

// zeroTaxRegime returns a zero-tax passthrough for destinations with no
// supported tax rules.
type zeroTaxRegime struct{}

func (zeroTaxRegime) Calculate(_ context.Context, req models.CalculateTaxRequest) (*models.TaxCalculationResponse, error) {
	subtotal := sumLineSubtotals(req.LineItems)
	return &models.TaxCalculationResponse{
		Subtotal:       subtotal,
		ShippingAmount: req.ShippingAmount,
		TaxAmount:      decimal.Zero,
		Total:          subtotal.Add(req.ShippingAmount),
		TaxBreakdown:   []models.TaxBreakdown{},
		IsExempt:       false,
		ExemptReason:   "No GST obligation for destination country",
	}, nil
}
