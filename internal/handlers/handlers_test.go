package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"tax-engine/internal/models"
	"tax-engine/internal/repository"
	"tax-engine/internal/services"
)

// Helper to setup test router
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r
}

// Helper to decode the error field from a JSON error response
func errorField(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	msg, _ := response["error"].(string)
	return msg
}

// ===========================================
// Tenant Resolution Tests
// ===========================================

func TestGetTenantID_FromHeader(t *testing.T) {
	router := setupTestRouter()

	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenantId": getTenantID(c)})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-Tenant-ID", "tenant-123")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "tenant-123", response["tenantId"])
}

func TestGetTenantID_DefaultsWhenHeaderMissing(t *testing.T) {
	router := setupTestRouter()

	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenantId": getTenantID(c)})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", response["tenantId"])
}

// ===========================================
// Tax Calculation Handler Tests
// ===========================================

func TestCalculateTax_Handler_InvalidJSON(t *testing.T) {
	router := setupTestRouter()
	handler := &TaxHandler{}

	router.POST("/api/v1/tax/calculate", handler.CalculateTax)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/tax/calculate", bytes.NewBuffer([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateTax_Handler_MissingRequiredFields(t *testing.T) {
	router := setupTestRouter()
	handler := &TaxHandler{}

	router.POST("/api/v1/tax/calculate", handler.CalculateTax)

	// No shippingAddress and no lineItems
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/tax/calculate", bytes.NewBuffer([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "tenant-123")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request", errorField(t, w))
}

func TestValidateAddress_Handler_MissingAddress(t *testing.T) {
	router := setupTestRouter()
	handler := &TaxHandler{}

	router.POST("/api/v1/tax/validate-address", handler.ValidateAddress)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/tax/validate-address", bytes.NewBuffer([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ===========================================
// Jurisdiction Handler Tests
// ===========================================

func TestGetJurisdiction_Handler_InvalidID(t *testing.T) {
	router := setupTestRouter()
	handler := &TaxHandler{}

	router.GET("/api/v1/jurisdictions/:id", handler.GetJurisdiction)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/jurisdictions/invalid-uuid", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid jurisdiction ID", errorField(t, w))
}

func TestUpdateJurisdiction_Handler_InvalidJSON(t *testing.T) {
	router := setupTestRouter()
	handler := &TaxHandler{}

	router.PUT("/api/v1/jurisdictions/:id", handler.UpdateJurisdiction)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/jurisdictions/"+uuid.New().String(), bytes.NewBuffer([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteJurisdiction_Handler_InvalidID(t *testing.T) {
	router := setupTestRouter()
	handler := &TaxHandler{}

	router.DELETE("/api/v1/jurisdictions/:id", handler.DeleteJurisdiction)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/v1/jurisdictions/invalid-uuid", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ===========================================
// Product Category Handler Tests
// ===========================================

func TestGetProductCategory_Handler_InvalidID(t *testing.T) {
	router := setupTestRouter()
	handler := &TaxHandler{}

	router.GET("/api/v1/categories/:id", handler.GetProductCategory)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/categories/invalid-uuid", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid category ID", errorField(t, w))
}

func TestCreateProductCategory_Handler_InvalidJSON(t *testing.T) {
	router := setupTestRouter()
	handler := &TaxHandler{}

	router.POST("/api/v1/categories", handler.CreateProductCategory)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/categories", bytes.NewBuffer([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ===========================================
// Withholding Handler Tests
// ===========================================

func TestCalculateTDS_Handler_MissingRequiredFields(t *testing.T) {
	router := setupTestRouter()
	handler := &WithholdingHandler{}

	router.POST("/api/v1/tds/calculate", handler.CalculateTDS)

	// deducteeId, section, grossAmount and paymentDate are all required
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/tds/calculate", bytes.NewBuffer([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTDSDeductions_Handler_InvalidDeducteeID(t *testing.T) {
	router := setupTestRouter()
	handler := &WithholdingHandler{}

	router.GET("/api/v1/tds/deductions", handler.ListTDSDeductions)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/tds/deductions?deducteeId=not-a-uuid", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid deductee ID", errorField(t, w))
}

func TestUpdateTDSRate_Handler_InvalidID(t *testing.T) {
	router := setupTestRouter()
	handler := &WithholdingHandler{}

	router.PUT("/api/v1/tds/rates/:id", handler.UpdateTDSRate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/tds/rates/invalid-uuid", bytes.NewBuffer([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid rate ID", errorField(t, w))
}

func TestCalculateTCS_Handler_MissingRequiredFields(t *testing.T) {
	router := setupTestRouter()
	handler := &WithholdingHandler{}

	router.POST("/api/v1/tcs/calculate", handler.CalculateTCS)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/tcs/calculate", bytes.NewBuffer([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTCSCollections_Handler_InvalidCustomerID(t *testing.T) {
	router := setupTestRouter()
	handler := &WithholdingHandler{}

	router.GET("/api/v1/tcs/collections", handler.ListTCSCollections)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/tcs/collections?customerId=not-a-uuid", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid customer ID", errorField(t, w))
}

// ===========================================
// Input Tax Credit Handler Tests
// ===========================================

func TestRecordITC_Handler_MissingRequiredFields(t *testing.T) {
	router := setupTestRouter()
	handler := &ITCHandler{}

	router.POST("/api/v1/itc", handler.RecordITC)

	// invoiceNumber, invoiceDate and taxableAmount are required
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/itc", bytes.NewBuffer([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClaimITC_Handler_InvalidID(t *testing.T) {
	router := setupTestRouter()
	handler := &ITCHandler{}

	router.POST("/api/v1/itc/:id/claim", handler.ClaimITC)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/itc/invalid-uuid/claim", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid credit ID", errorField(t, w))
}

func TestReverseITC_Handler_InvalidJSON(t *testing.T) {
	router := setupTestRouter()
	handler := &ITCHandler{}

	router.POST("/api/v1/itc/:id/reverse", handler.ReverseITC)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/itc/"+uuid.New().String()+"/reverse", bytes.NewBuffer([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ===========================================
// Return Handler Tests
// ===========================================

func TestGetReturn_Handler_InvalidType(t *testing.T) {
	router := setupTestRouter()
	handler := &GSTRHandler{}

	router.GET("/api/v1/gstr/filings/:type/:period", handler.GetReturn)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/gstr/filings/gstr2a/052025", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid return type", errorField(t, w))
}

func TestFileReturn_Handler_InvalidType(t *testing.T) {
	router := setupTestRouter()
	handler := &GSTRHandler{}

	router.POST("/api/v1/gstr/filings/:type/:period/file", handler.FileReturn)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/gstr/filings/annual/052025/file", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseReturnType(t *testing.T) {
	testCases := []struct {
		param    string
		expected models.ReturnType
		ok       bool
	}{
		{"gstr1", models.ReturnTypeGSTR1, true},
		{"GSTR1", models.ReturnTypeGSTR1, true},
		{"gstr3b", models.ReturnTypeGSTR3B, true},
		{"GSTR3B", models.ReturnTypeGSTR3B, true},
		{"gstr2a", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		returnType, ok := parseReturnType(tc.param)
		assert.Equal(t, tc.ok, ok, "param %q", tc.param)
		assert.Equal(t, tc.expected, returnType, "param %q", tc.param)
	}
}

// ===========================================
// Error Response Tests
// ===========================================

func TestErrorResponses(t *testing.T) {
	testCases := []struct {
		name         string
		serviceError error
		expectedCode int
	}{
		{"invalid_input", services.ErrInvalidInput, http.StatusBadRequest},
		{"invalid_jurisdiction", services.ErrInvalidJurisdiction, http.StatusBadRequest},
		{"invalid_period", services.ErrInvalidPeriod, http.StatusBadRequest},
		{"not_found", repository.ErrNotFound, http.StatusNotFound},
		{"invalid_transition", services.ErrInvalidTransition, http.StatusConflict},
		{"already_filed", repository.ErrAlreadyFiled, http.StatusConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Map error to status code (matching handler logic)
			var statusCode int
			switch tc.serviceError {
			case services.ErrInvalidInput, services.ErrInvalidJurisdiction, services.ErrInvalidPeriod:
				statusCode = http.StatusBadRequest
			case repository.ErrNotFound:
				statusCode = http.StatusNotFound
			case services.ErrInvalidTransition, repository.ErrAlreadyFiled:
				statusCode = http.StatusConflict
			default:
				statusCode = http.StatusInternalServerError
			}
			assert.Equal(t, tc.expectedCode, statusCode)
		})
	}
}
