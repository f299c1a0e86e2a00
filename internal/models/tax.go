package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// GSTN return payloads require bare numeric JSON fields, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// JurisdictionType represents the type of tax jurisdiction
type JurisdictionType string

const (
	JurisdictionTypeCountry        JurisdictionType = "COUNTRY"
	JurisdictionTypeState          JurisdictionType = "STATE"
	JurisdictionTypeUnionTerritory JurisdictionType = "UNION_TERRITORY"
)

// TaxType represents the type of GST component
type TaxType string

const (
	TaxTypeCGST TaxType = "CGST" // Central GST (intrastate)
	TaxTypeSGST TaxType = "SGST" // State GST (intrastate)
	TaxTypeIGST TaxType = "IGST" // Integrated GST (interstate)
	TaxTypeCESS TaxType = "CESS" // GST Compensation Cess (luxury/sin goods)
)

// TaxJurisdiction represents a tax jurisdiction (country, state, union territory)
type TaxJurisdiction struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  string           `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_jurisdiction_unique,priority:1"`
	Name      string           `json:"name" gorm:"type:varchar(255);not null"`
	Type      JurisdictionType `json:"type" gorm:"type:varchar(50);not null;uniqueIndex:idx_jurisdiction_unique,priority:2"`
	Code      string           `json:"code" gorm:"type:varchar(50);not null;uniqueIndex:idx_jurisdiction_unique,priority:3"`
	StateCode string           `json:"stateCode" gorm:"type:varchar(10)"` // GST state code (MH, KA, etc.) for place-of-supply checks
	GSTCode   string           `json:"gstCode" gorm:"type:varchar(2)"`    // numeric GSTN state code (27 for Maharashtra)
	ParentID  *uuid.UUID       `json:"parentId" gorm:"type:uuid"`
	IsActive  bool             `json:"isActive" gorm:"default:true"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`

	// Relationships
	Parent   *TaxJurisdiction  `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children []TaxJurisdiction `json:"children,omitempty" gorm:"foreignKey:ParentID"`
}

// ProductTaxCategory represents a product category with its GST treatment
type ProductTaxCategory struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    string          `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_category_unique,priority:1"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_category_unique,priority:2"`
	Description string          `json:"description" gorm:"type:text"`
	HSNCode     string          `json:"hsnCode" gorm:"type:varchar(10)"`  // Harmonized System of Nomenclature (goods)
	SACCode     string          `json:"sacCode" gorm:"type:varchar(10)"`  // Services Accounting Code
	GSTSlab     decimal.Decimal `json:"gstSlab" gorm:"type:decimal(5,2)"` // GST slab rate (0, 5, 12, 18, 28)
	CessRate    decimal.Decimal `json:"cessRate" gorm:"type:decimal(5,2);default:0"`
	IsTaxExempt bool            `json:"isTaxExempt" gorm:"default:false"`
	IsNilRated  bool            `json:"isNilRated" gorm:"default:false"` // 0% GST but not exempt
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// GSTRegistration represents a tenant's GST registration in a state.
// A tenant registered in multiple states carries one GSTIN per state.
type GSTRegistration struct {
	ID                  uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID            string     `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_registration_unique,priority:1"`
	GSTIN               string     `json:"gstin" gorm:"type:varchar(15)"` // 15-char Goods and Services Tax Identification Number
	LegalName           string     `json:"legalName" gorm:"type:varchar(255)"`
	StateCode           string     `json:"stateCode" gorm:"type:varchar(10);not null;uniqueIndex:idx_registration_unique,priority:2"`
	JurisdictionID      *uuid.UUID `json:"jurisdictionId" gorm:"type:uuid"`
	IsCompositionScheme bool       `json:"isCompositionScheme" gorm:"default:false"` // composition scheme (limited to intrastate B2C)
	IsPrimary           bool       `json:"isPrimary" gorm:"default:false"`           // principal place of business, used as origin fallback
	EffectiveDate       time.Time  `json:"effectiveDate" gorm:"type:date"`
	IsActive            bool       `json:"isActive" gorm:"default:true"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`

	// Relationships
	Jurisdiction *TaxJurisdiction `json:"jurisdiction,omitempty" gorm:"foreignKey:JurisdictionID"`
}

// JSONB is a custom type for PostgreSQL JSONB fields
type JSONB json.RawMessage

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = JSONB(v)
		return nil
	case string:
		*j = JSONB([]byte(v))
		return nil
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler
func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSONB) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		*j = nil
		return nil
	}
	*j = JSONB(data)
	return nil
}

// TaxCalculationCache represents cached tax calculations for performance
type TaxCalculationCache struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CacheKey          string          `json:"cacheKey" gorm:"type:varchar(255);not null;uniqueIndex"`
	Subtotal          decimal.Decimal `json:"subtotal" gorm:"type:decimal(15,2);not null"`
	ShippingAmount    decimal.Decimal `json:"shippingAmount" gorm:"type:decimal(15,2)"`
	TaxAmount         decimal.Decimal `json:"taxAmount" gorm:"type:decimal(15,2);not null"`
	TaxBreakdown      JSONB           `json:"taxBreakdown" gorm:"type:jsonb"`
	CalculationResult string          `json:"calculationResult" gorm:"type:text"` // Full JSON response for cache
	CreatedAt         time.Time       `json:"createdAt"`
	ExpiresAt         time.Time       `json:"expiresAt" gorm:"not null;index"`
}

// BeforeCreate hook for TaxCalculationCache to set expiry
func (c *TaxCalculationCache) BeforeCreate(tx *gorm.DB) error {
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = time.Now().Add(1 * time.Hour) // Default 1 hour TTL
	}
	return nil
}
