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

// MockITCRepository is a mock implementation of ITCRepositoryInterface
type MockITCRepository struct {
	mock.Mock
}

// Ensure MockITCRepository implements the interface
var _ repository.ITCRepositoryInterface = (*MockITCRepository)(nil)

func (m *MockITCRepository) CreateITC(ctx context.Context, itc *models.InputTaxCredit) error {
	args := m.Called(ctx, itc)
	if args.Error(0) == nil {
		itc.ID = uuid.New()
		itc.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockITCRepository) GetITC(ctx context.Context, tenantID string, id uuid.UUID) (*models.InputTaxCredit, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InputTaxCredit), args.Error(1)
}

func (m *MockITCRepository) ListITC(ctx context.Context, tenantID string, status models.ITCStatus, claimPeriod string) ([]models.InputTaxCredit, error) {
	args := m.Called(ctx, tenantID, status, claimPeriod)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InputTaxCredit), args.Error(1)
}

func (m *MockITCRepository) MarkITCClaimed(ctx context.Context, tenantID string, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockITCRepository) MarkITCReversed(ctx context.Context, tenantID string, id uuid.UUID, reason string) error {
	args := m.Called(ctx, tenantID, id, reason)
	return args.Error(0)
}

// Helper to create a stored credit with the given component amounts
func testITC(status models.ITCStatus, cgst, sgst, igst, cess string) *models.InputTaxCredit {
	cgstAmt := decimal.RequireFromString(cgst)
	sgstAmt := decimal.RequireFromString(sgst)
	igstAmt := decimal.RequireFromString(igst)
	cessAmt := decimal.RequireFromString(cess)
	total := cgstAmt.Add(sgstAmt).Add(igstAmt).Add(cessAmt)
	return &models.InputTaxCredit{
		ID:            uuid.New(),
		TenantID:      "tenant-123",
		SupplierGSTIN: "29AABCT1332L1ZU",
		InvoiceNumber: "PINV-1001",
		InvoiceDate:   time.Date(2025, time.May, 9, 0, 0, 0, 0, time.UTC),
		TaxableAmount: decimal.NewFromInt(10000),
		CGSTAmount:    cgstAmt,
		SGSTAmount:    sgstAmt,
		IGSTAmount:    igstAmt,
		CessAmount:    cessAmt,
		TotalITC:      total,
		EligibleITC:   total,
		ClaimPeriod:   "052025",
		Status:        status,
	}
}

// ===========================================
// ITC Recording Tests
// ===========================================

func TestRecordITC_TotalsComponents(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	mockRepo.On("CreateITC", ctx, mock.AnythingOfType("*models.InputTaxCredit")).
		Return(nil)

	itc, err := service.Record(ctx, "tenant-123", models.RecordITCRequest{
		SupplierGSTIN: "29aabct1332l1zu",
		InvoiceNumber: "PINV-1001",
		InvoiceDate:   "2025-05-09",
		TaxableAmount: decimal.NewFromInt(10000),
		CGSTAmount:    decimal.NewFromInt(900),
		SGSTAmount:    decimal.NewFromInt(900),
		CessAmount:    decimal.NewFromInt(100),
	})

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, itc.ID)
	assert.Equal(t, "29AABCT1332L1ZU", itc.SupplierGSTIN)
	assert.Equal(t, "052025", itc.ClaimPeriod)
	assert.Equal(t, models.ITCStatusAvailable, itc.Status)
	assertDecimal(t, "1900", itc.TotalITC)
	assertDecimal(t, "1900", itc.EligibleITC)
	mockRepo.AssertExpectations(t)
}

func TestRecordITC_InvalidInput(t *testing.T) {
	ctx := context.Background()

	validReq := func() models.RecordITCRequest {
		return models.RecordITCRequest{
			InvoiceNumber: "PINV-1001",
			InvoiceDate:   "2025-05-09",
			TaxableAmount: decimal.NewFromInt(10000),
			CGSTAmount:    decimal.NewFromInt(900),
			SGSTAmount:    decimal.NewFromInt(900),
		}
	}

	t.Run("malformed_invoice_date", func(t *testing.T) {
		mockRepo := new(MockITCRepository)
		service := NewITCService(mockRepo)

		req := validReq()
		req.InvoiceDate = "09-05-2025"

		_, err := service.Record(ctx, "tenant-123", req)

		assert.ErrorIs(t, err, ErrInvalidInput)
		mockRepo.AssertExpectations(t)
	})

	t.Run("non_positive_taxable_amount", func(t *testing.T) {
		mockRepo := new(MockITCRepository)
		service := NewITCService(mockRepo)

		req := validReq()
		req.TaxableAmount = decimal.Zero

		_, err := service.Record(ctx, "tenant-123", req)

		assert.ErrorIs(t, err, ErrInvalidInput)
		mockRepo.AssertExpectations(t)
	})

	t.Run("negative_component", func(t *testing.T) {
		mockRepo := new(MockITCRepository)
		service := NewITCService(mockRepo)

		req := validReq()
		req.CGSTAmount = decimal.NewFromInt(-5)

		_, err := service.Record(ctx, "tenant-123", req)

		assert.ErrorIs(t, err, ErrInvalidInput)
		mockRepo.AssertExpectations(t)
	})
}

// ===========================================
// ITC Lifecycle Tests
// ===========================================

func TestClaimITC_MarksAvailableCreditClaimed(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	available := testITC(models.ITCStatusAvailable, "900", "900", "0", "0")
	claimed := *available
	claimed.Status = models.ITCStatusClaimed
	now := time.Now()
	claimed.ClaimedAt = &now

	mockRepo.On("GetITC", ctx, "tenant-123", available.ID).
		Return(available, nil).Once()
	mockRepo.On("MarkITCClaimed", ctx, "tenant-123", available.ID).
		Return(nil)
	mockRepo.On("GetITC", ctx, "tenant-123", available.ID).
		Return(&claimed, nil).Once()

	itc, err := service.Claim(ctx, "tenant-123", available.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.ITCStatusClaimed, itc.Status)
	assert.NotNil(t, itc.ClaimedAt)
	mockRepo.AssertExpectations(t)
}

func TestClaimITC_RejectsNonAvailableCredit(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	claimed := testITC(models.ITCStatusClaimed, "900", "900", "0", "0")

	mockRepo.On("GetITC", ctx, "tenant-123", claimed.ID).
		Return(claimed, nil)

	_, err := service.Claim(ctx, "tenant-123", claimed.ID)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	mockRepo.AssertExpectations(t)
}

func TestClaimITC_LostRaceMapsToInvalidTransition(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	available := testITC(models.ITCStatusAvailable, "900", "900", "0", "0")

	mockRepo.On("GetITC", ctx, "tenant-123", available.ID).
		Return(available, nil)
	// Another request transitioned the credit between the read and the
	// conditional update.
	mockRepo.On("MarkITCClaimed", ctx, "tenant-123", available.ID).
		Return(repository.ErrNotFound)

	_, err := service.Claim(ctx, "tenant-123", available.ID)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	mockRepo.AssertExpectations(t)
}

func TestClaimITC_UnknownCredit(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	id := uuid.New()
	mockRepo.On("GetITC", ctx, "tenant-123", id).
		Return(nil, repository.ErrNotFound)

	_, err := service.Claim(ctx, "tenant-123", id)

	assert.ErrorIs(t, err, repository.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestReverseITC_FromClaimed(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	claimed := testITC(models.ITCStatusClaimed, "450", "450", "0", "0")
	reversed := *claimed
	reversed.Status = models.ITCStatusReversed
	reversed.ReversalReason = "goods returned to supplier"

	mockRepo.On("GetITC", ctx, "tenant-123", claimed.ID).
		Return(claimed, nil).Once()
	mockRepo.On("MarkITCReversed", ctx, "tenant-123", claimed.ID, "goods returned to supplier").
		Return(nil)
	mockRepo.On("GetITC", ctx, "tenant-123", claimed.ID).
		Return(&reversed, nil).Once()

	itc, err := service.Reverse(ctx, "tenant-123", claimed.ID, "goods returned to supplier")

	assert.NoError(t, err)
	assert.Equal(t, models.ITCStatusReversed, itc.Status)
	assert.Equal(t, "goods returned to supplier", itc.ReversalReason)
	mockRepo.AssertExpectations(t)
}

func TestReverseITC_AlreadyReversed(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	reversed := testITC(models.ITCStatusReversed, "450", "450", "0", "0")

	mockRepo.On("GetITC", ctx, "tenant-123", reversed.ID).
		Return(reversed, nil)

	_, err := service.Reverse(ctx, "tenant-123", reversed.ID, "duplicate entry")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	mockRepo.AssertExpectations(t)
}

// ===========================================
// ITC Summary Tests
// ===========================================

func TestITCSummary_BucketsByStatus(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	credits := []models.InputTaxCredit{
		*testITC(models.ITCStatusAvailable, "900", "900", "0", "0"),
		*testITC(models.ITCStatusAvailable, "0", "0", "1800", "0"),
		*testITC(models.ITCStatusClaimed, "450", "450", "0", "0"),
		*testITC(models.ITCStatusReversed, "0", "0", "500", "0"),
	}

	mockRepo.On("ListITC", ctx, "tenant-123", models.ITCStatus(""), "").
		Return(credits, nil)

	summary, err := service.Summary(ctx, "tenant-123", "")

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Available.Count)
	assertDecimal(t, "900", summary.Available.CGST)
	assertDecimal(t, "1800", summary.Available.IGST)
	assertDecimal(t, "3600", summary.Available.Total)
	assert.Equal(t, 1, summary.Claimed.Count)
	assertDecimal(t, "900", summary.Claimed.Total)
	assert.Equal(t, 1, summary.Reversed.Count)
	assertDecimal(t, "500", summary.Reversed.Total)
	mockRepo.AssertExpectations(t)
}

func TestITCSummary_FiltersByClaimPeriod(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	mockRepo.On("ListITC", ctx, "tenant-123", models.ITCStatus(""), "052025").
		Return([]models.InputTaxCredit{
			*testITC(models.ITCStatusAvailable, "900", "900", "0", "0"),
		}, nil)

	summary, err := service.Summary(ctx, "tenant-123", "052025")

	assert.NoError(t, err)
	assert.Equal(t, "052025", summary.Period)
	assert.Equal(t, 1, summary.Available.Count)
	mockRepo.AssertExpectations(t)
}

func TestITCSummary_RejectsMalformedPeriod(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockITCRepository)
	service := NewITCService(mockRepo)

	_, err := service.Summary(ctx, "tenant-123", "132025")

	assert.ErrorIs(t, err, ErrInvalidPeriod)
	mockRepo.AssertExpectations(t)
}
