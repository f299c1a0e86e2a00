package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tax-engine/internal/models"
	"tax-engine/internal/repository"
)

// MockWithholdingRepository is a mock implementation of WithholdingRepositoryInterface
type MockWithholdingRepository struct {
	mock.Mock
}

// Ensure MockWithholdingRepository implements the interface
var _ repository.WithholdingRepositoryInterface = (*MockWithholdingRepository)(nil)

func (m *MockWithholdingRepository) GetTDSRate(ctx context.Context, tenantID, section string) (*models.TDSRate, error) {
	args := m.Called(ctx, tenantID, section)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TDSRate), args.Error(1)
}

func (m *MockWithholdingRepository) ListTDSRates(ctx context.Context, tenantID string) ([]models.TDSRate, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TDSRate), args.Error(1)
}

func (m *MockWithholdingRepository) CreateTDSRate(ctx context.Context, rate *models.TDSRate) error {
	args := m.Called(ctx, rate)
	if args.Error(0) == nil {
		rate.ID = uuid.New()
		rate.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockWithholdingRepository) UpdateTDSRate(ctx context.Context, rate *models.TDSRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *MockWithholdingRepository) GetTCSRate(ctx context.Context, tenantID, section string) (*models.TCSRate, error) {
	args := m.Called(ctx, tenantID, section)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TCSRate), args.Error(1)
}

func (m *MockWithholdingRepository) ListTCSRates(ctx context.Context, tenantID string) ([]models.TCSRate, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TCSRate), args.Error(1)
}

func (m *MockWithholdingRepository) CreateTCSRate(ctx context.Context, rate *models.TCSRate) error {
	args := m.Called(ctx, rate)
	if args.Error(0) == nil {
		rate.ID = uuid.New()
		rate.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockWithholdingRepository) UpdateTCSRate(ctx context.Context, rate *models.TCSRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *MockWithholdingRepository) GetCumulativeAmount(ctx context.Context, tenantID string, partyID uuid.UUID, financialYear string, taxType models.WithholdingTaxType) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, partyID, financialYear, taxType)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// PostDeduction runs finalize with the cumulative configured as the second
// Return value, standing in for the locked tracker read inside the real
// transaction.
func (m *MockWithholdingRepository) PostDeduction(ctx context.Context, deduction *models.TDSDeduction, finalize func(cumulative decimal.Decimal)) error {
	args := m.Called(ctx, deduction)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	finalize(args.Get(1).(decimal.Decimal))
	deduction.ID = uuid.New()
	deduction.CreatedAt = time.Now()
	return nil
}

func (m *MockWithholdingRepository) PostCollection(ctx context.Context, collection *models.TCSCollection, finalize func(cumulative decimal.Decimal)) error {
	args := m.Called(ctx, collection)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	finalize(args.Get(1).(decimal.Decimal))
	collection.ID = uuid.New()
	collection.CreatedAt = time.Now()
	return nil
}

func (m *MockWithholdingRepository) ListDeductions(ctx context.Context, tenantID, financialYear, quarter string, deducteeID *uuid.UUID) ([]models.TDSDeduction, error) {
	args := m.Called(ctx, tenantID, financialYear, quarter, deducteeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TDSDeduction), args.Error(1)
}

func (m *MockWithholdingRepository) ListCollections(ctx context.Context, tenantID, financialYear, quarter string, customerID *uuid.UUID) ([]models.TCSCollection, error) {
	args := m.Called(ctx, tenantID, financialYear, quarter, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TCSCollection), args.Error(1)
}

// Helper to create a configured TDS rate
func testTDSRate(section, rateWithPAN, rateWithoutPAN string, threshold int64, perAnnum bool) *models.TDSRate {
	return &models.TDSRate{
		ID:                uuid.New(),
		TenantID:          "tenant-123",
		Section:           section,
		NatureOfPayment:   "Fees for professional services",
		RateWithPAN:       decimal.RequireFromString(rateWithPAN),
		RateWithoutPAN:    decimal.RequireFromString(rateWithoutPAN),
		ThresholdAmount:   decimal.NewFromInt(threshold),
		ThresholdPerAnnum: perAnnum,
		IsActive:          true,
	}
}

func tdsRequest(deducteeID uuid.UUID, pan, gross, paymentDate string) models.TDSDeductionRequest {
	return models.TDSDeductionRequest{
		DeducteeID:  deducteeID,
		DeducteePAN: pan,
		Section:     "194J",
		GrossAmount: decimal.RequireFromString(gross),
		PaymentDate: paymentDate,
		ReferenceID: "PAY-2025-001",
	}
}

// ===========================================
// TDS Calculation Tests
// ===========================================

func TestCalculateTDS_BelowThresholdNoDeduction(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	mockRepo := new(MockWithholdingRepository)
	service := NewTDSService(mockRepo)

	// 194J: 10% with PAN, 20% without, 30,000 per-annum threshold
	mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
		Return(testTDSRate("194J", "10", "20", 30000, true), nil)
	mockRepo.On("GetCumulativeAmount", ctx, "tenant-123", deducteeID, "2025-26", models.WithholdingTDS).
		Return(decimal.Zero, nil)

	resp, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "25000", "2025-05-10"))

	assert.NoError(t, err)
	assert.True(t, resp.ThresholdApplied)
	assertDecimal(t, "0", resp.AppliedRate)
	assertDecimal(t, "0", resp.TDSAmount)
	assertDecimal(t, "25000", resp.NetAmount)
	assert.Equal(t, "2025-26", resp.FinancialYear)
	assert.Equal(t, "Q1", resp.Quarter)
	assert.True(t, resp.PANAvailable)
	assertDecimal(t, "0", resp.CumulativeAmount)
	mockRepo.AssertExpectations(t)
}

func TestCalculateTDS_ThresholdCrossedTaxesFullPayment(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	mockRepo := new(MockWithholdingRepository)
	service := NewTDSService(mockRepo)

	mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
		Return(testTDSRate("194J", "10", "20", 30000, true), nil)
	mockRepo.On("GetCumulativeAmount", ctx, "tenant-123", deducteeID, "2025-26", models.WithholdingTDS).
		Return(decimal.NewFromInt(20000), nil)

	// 20,000 + 15,000 crosses the 30,000 threshold: the whole payment is
	// taxed, not just the excess.
	resp, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "15000", "2025-05-10"))

	assert.NoError(t, err)
	assert.False(t, resp.ThresholdApplied)
	assertDecimal(t, "10", resp.AppliedRate)
	assertDecimal(t, "1500", resp.TDSAmount)
	assertDecimal(t, "13500", resp.NetAmount)
	assertDecimal(t, "20000", resp.CumulativeAmount)
	mockRepo.AssertExpectations(t)
}

func TestCalculateTDS_ExactlyAtThresholdIsTaxed(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	mockRepo := new(MockWithholdingRepository)
	service := NewTDSService(mockRepo)

	mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
		Return(testTDSRate("194J", "10", "20", 30000, true), nil)
	mockRepo.On("GetCumulativeAmount", ctx, "tenant-123", deducteeID, "2025-26", models.WithholdingTDS).
		Return(decimal.NewFromInt(10000), nil)

	resp, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "20000", "2025-05-10"))

	assert.NoError(t, err)
	assert.False(t, resp.ThresholdApplied)
	assertDecimal(t, "2000", resp.TDSAmount)
	mockRepo.AssertExpectations(t)
}

func TestCalculateTDS_PenalRateWithoutPAN(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	mockRepo := new(MockWithholdingRepository)
	service := NewTDSService(mockRepo)

	mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
		Return(testTDSRate("194J", "10", "20", 30000, true), nil)
	mockRepo.On("GetCumulativeAmount", ctx, "tenant-123", deducteeID, "2025-26", models.WithholdingTDS).
		Return(decimal.Zero, nil)

	resp, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "", "50000", "2025-05-10"))

	assert.NoError(t, err)
	assert.False(t, resp.PANAvailable)
	assertDecimal(t, "20", resp.AppliedRate)
	assertDecimal(t, "10000", resp.TDSAmount)
	assertDecimal(t, "40000", resp.NetAmount)
	mockRepo.AssertExpectations(t)
}

func TestCalculateTDS_PANNormalizedBeforeValidation(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	t.Run("lowercase_pan_accepted", func(t *testing.T) {
		mockRepo := new(MockWithholdingRepository)
		service := NewTDSService(mockRepo)

		mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
			Return(testTDSRate("194J", "10", "20", 30000, true), nil)
		mockRepo.On("GetCumulativeAmount", ctx, "tenant-123", deducteeID, "2025-26", models.WithholdingTDS).
			Return(decimal.Zero, nil)

		resp, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "abcde1234f", "50000", "2025-05-10"))

		assert.NoError(t, err)
		assert.True(t, resp.PANAvailable)
		assertDecimal(t, "5000", resp.TDSAmount)
		mockRepo.AssertExpectations(t)
	})

	t.Run("malformed_pan_treated_as_missing", func(t *testing.T) {
		mockRepo := new(MockWithholdingRepository)
		service := NewTDSService(mockRepo)

		mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
			Return(testTDSRate("194J", "10", "20", 30000, true), nil)
		mockRepo.On("GetCumulativeAmount", ctx, "tenant-123", deducteeID, "2025-26", models.WithholdingTDS).
			Return(decimal.Zero, nil)

		// Digit in the first five characters
		resp, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "AB1DE1234F", "50000", "2025-05-10"))

		assert.NoError(t, err)
		assert.False(t, resp.PANAvailable)
		assertDecimal(t, "10000", resp.TDSAmount)
		mockRepo.AssertExpectations(t)
	})
}

func TestCalculateTDS_JanuaryFallsInPreviousFinancialYear(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	mockRepo := new(MockWithholdingRepository)
	service := NewTDSService(mockRepo)

	mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
		Return(testTDSRate("194J", "10", "20", 30000, true), nil)
	// The cumulative lookup must use FY 2025-26 even though the calendar
	// year is 2026.
	mockRepo.On("GetCumulativeAmount", ctx, "tenant-123", deducteeID, "2025-26", models.WithholdingTDS).
		Return(decimal.Zero, nil)

	resp, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "40000", "2026-01-15"))

	assert.NoError(t, err)
	assert.Equal(t, "2025-26", resp.FinancialYear)
	assert.Equal(t, "Q4", resp.Quarter)
	assertDecimal(t, "4000", resp.TDSAmount)
	mockRepo.AssertExpectations(t)
}

func TestCalculateTDS_PerPaymentThresholdIgnoresCumulative(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	mockRepo := new(MockWithholdingRepository)
	service := NewTDSService(mockRepo)

	mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
		Return(testTDSRate("194J", "10", "20", 30000, false), nil)
	mockRepo.On("GetCumulativeAmount", ctx, "tenant-123", deducteeID, "2025-26", models.WithholdingTDS).
		Return(decimal.NewFromInt(100000), nil)

	// Per-payment threshold: this 25,000 payment stays below 30,000 no
	// matter how much was paid earlier in the year.
	resp, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "25000", "2025-05-10"))

	assert.NoError(t, err)
	assert.True(t, resp.ThresholdApplied)
	assertDecimal(t, "0", resp.TDSAmount)
	mockRepo.AssertExpectations(t)
}

func TestCalculateTDS_InvalidInput(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	t.Run("malformed_payment_date", func(t *testing.T) {
		mockRepo := new(MockWithholdingRepository)
		service := NewTDSService(mockRepo)

		_, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "25000", "15-01-2026"))

		assert.ErrorIs(t, err, ErrInvalidInput)
		mockRepo.AssertExpectations(t)
	})

	t.Run("non_positive_gross_amount", func(t *testing.T) {
		mockRepo := new(MockWithholdingRepository)
		service := NewTDSService(mockRepo)

		_, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "0", "2025-05-10"))

		assert.ErrorIs(t, err, ErrInvalidInput)
		mockRepo.AssertExpectations(t)
	})

	t.Run("section_not_configured", func(t *testing.T) {
		mockRepo := new(MockWithholdingRepository)
		service := NewTDSService(mockRepo)

		mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
			Return(nil, repository.ErrNotFound)

		_, err := service.CalculateTDS(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "25000", "2025-05-10"))

		assert.ErrorIs(t, err, ErrRateNotFound)
		mockRepo.AssertExpectations(t)
	})
}

// ===========================================
// TDS Posting Tests
// ===========================================

func TestRecordDeduction_PostsWithLockedCumulative(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	mockRepo := new(MockWithholdingRepository)
	service := NewTDSService(mockRepo)

	mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
		Return(testTDSRate("194J", "10", "20", 30000, true), nil)
	// The cumulative comes from the locked tracker inside PostDeduction,
	// not from a separate advisory read.
	mockRepo.On("PostDeduction", ctx, mock.AnythingOfType("*models.TDSDeduction")).
		Return(nil, decimal.NewFromInt(20000))

	deduction, err := service.RecordDeduction(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "15000", "2025-07-02"))

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, deduction.ID)
	assert.Equal(t, "194J", deduction.Section)
	assert.Equal(t, models.WithholdingStatusPosted, deduction.Status)
	assert.Equal(t, "2025-26", deduction.FinancialYear)
	assert.Equal(t, "Q2", deduction.Quarter)
	assert.False(t, deduction.ThresholdApplied)
	assertDecimal(t, "10", deduction.AppliedRate)
	assertDecimal(t, "1500", deduction.TDSAmount)
	assertDecimal(t, "13500", deduction.NetAmount)
	mockRepo.AssertExpectations(t)
}

func TestRecordDeduction_BelowThresholdStillPosted(t *testing.T) {
	ctx := context.Background()
	deducteeID := uuid.New()

	mockRepo := new(MockWithholdingRepository)
	service := NewTDSService(mockRepo)

	mockRepo.On("GetTDSRate", ctx, "tenant-123", "194J").
		Return(testTDSRate("194J", "10", "20", 30000, true), nil)
	mockRepo.On("PostDeduction", ctx, mock.AnythingOfType("*models.TDSDeduction")).
		Return(nil, decimal.Zero)

	// Zero-tax deductions are still posted so the tracker accumulates
	// toward the threshold.
	deduction, err := service.RecordDeduction(ctx, "tenant-123", tdsRequest(deducteeID, "ABCDE1234F", "25000", "2025-05-10"))

	assert.NoError(t, err)
	assert.True(t, deduction.ThresholdApplied)
	assert.Equal(t, models.WithholdingStatusPosted, deduction.Status)
	assertDecimal(t, "0", deduction.TDSAmount)
	assertDecimal(t, "25000", deduction.NetAmount)
	mockRepo.AssertExpectations(t)
}
