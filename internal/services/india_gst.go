package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tax-engine/internal/models"
	"tax-engine/internal/repository"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)

	// Freight and logistics services carry the standard slab
	shippingGSTSlab = decimal.NewFromInt(18)

	// defaultGSTSlab applies when no category matches the line item
	defaultGSTSlab = decimal.NewFromInt(18)
)

// indiaState maps a GST state code to its name and numeric GSTN code
type indiaState struct {
	Name    string
	GSTCode string
}

// indiaStates covers the 28 states and 8 union territories with their
// GSTN codes.
var indiaStates = map[string]indiaState{
	"AP": {"Andhra Pradesh", "37"},
	"AR": {"Arunachal Pradesh", "12"},
	"AS": {"Assam", "18"},
	"BR": {"Bihar", "10"},
	"CG": {"Chhattisgarh", "22"},
	"GA": {"Goa", "30"},
	"GJ": {"Gujarat", "24"},
	"HR": {"Haryana", "06"},
	"HP": {"Himachal Pradesh", "02"},
	"JH": {"Jharkhand", "20"},
	"KA": {"Karnataka", "29"},
	"KL": {"Kerala", "32"},
	"MP": {"Madhya Pradesh", "23"},
	"MH": {"Maharashtra", "27"},
	"MN": {"Manipur", "14"},
	"ML": {"Meghalaya", "17"},
	"MZ": {"Mizoram", "15"},
	"NL": {"Nagaland", "13"},
	"OD": {"Odisha", "21"},
	"PB": {"Punjab", "03"},
	"RJ": {"Rajasthan", "08"},
	"SK": {"Sikkim", "11"},
	"TN": {"Tamil Nadu", "33"},
	"TS": {"Telangana", "36"},
	"TR": {"Tripura", "16"},
	"UP": {"Uttar Pradesh", "09"},
	"UK": {"Uttarakhand", "05"},
	"WB": {"West Bengal", "19"},
	"AN": {"Andaman and Nicobar Islands", "35"},
	"CH": {"Chandigarh", "04"},
	"DN": {"Dadra and Nagar Haveli and Daman and Diu", "26"},
	"DL": {"Delhi", "07"},
	"JK": {"Jammu and Kashmir", "01"},
	"LA": {"Ladakh", "38"},
	"LD": {"Lakshadweep", "31"},
	"PY": {"Puducherry", "34"},
}

// taxOn computes base × rate%, rounded to the paise. Every GST
// component is rounded independently at computation time; totals sum
// the already-rounded components.
func taxOn(base, ratePercent decimal.Decimal) decimal.Decimal {
	return base.Mul(ratePercent).Div(hundred).Round(2)
}

// indiaGSTRegime calculates CGST/SGST for intrastate supplies and IGST
// for interstate supplies.
type indiaGSTRegime struct {
	repo repository.TaxRepositoryInterface
}

func newIndiaGSTRegime(repo repository.TaxRepositoryInterface) *indiaGSTRegime {
	return &indiaGSTRegime{repo: repo}
}

// Calculate implements the taxRegime interface for Indian GST
func (g *indiaGSTRegime) Calculate(ctx context.Context, req models.CalculateTaxRequest) (*models.TaxCalculationResponse, error) {
	subtotal := sumLineSubtotals(req.LineItems)

	// Resolve origin state: request origin wins, then the tenant's
	// principal registration.
	originStateCode := ""
	if req.OriginAddress != nil {
		originStateCode = req.OriginAddress.StateCode
	}
	if originStateCode == "" {
		registration, err := g.repo.GetActiveRegistration(ctx, req.TenantID)
		if err == nil && registration != nil {
			originStateCode = registration.StateCode
		}
	}
	destStateCode := req.ShippingAddress.StateCode
	if originStateCode == "" && destStateCode == "" {
		return nil, fmt.Errorf("%w: no origin or destination state for GST calculation", ErrInvalidJurisdiction)
	}

	isInterstate := originStateCode != "" && destStateCode != "" && originStateCode != destStateCode

	totalTax := decimal.Zero
	var taxBreakdown []models.TaxBreakdown
	gstSummary := &models.GSTSummary{IsInterstate: isInterstate}
	zeroRatedLines := 0

	for _, item := range req.LineItems {
		gstSlab, cessRate := g.slabFor(ctx, req.TenantID, item)

		if gstSlab.IsZero() {
			zeroRatedLines++
			continue // Exempt or nil-rated
		}

		if isInterstate {
			// IGST = full GST rate
			igstAmount := taxOn(item.Subtotal, gstSlab)
			totalTax = totalTax.Add(igstAmount)
			gstSummary.IGST = gstSummary.IGST.Add(igstAmount)

			taxBreakdown = append(taxBreakdown, models.TaxBreakdown{
				JurisdictionName: "India",
				TaxType:          string(models.TaxTypeIGST),
				Rate:             gstSlab,
				TaxableAmount:    item.Subtotal,
				TaxAmount:        igstAmount,
				HSNCode:          item.HSNCode,
				SACCode:          item.SACCode,
			})
		} else {
			// CGST + SGST = half each, rounded independently
			halfRate := gstSlab.Div(two)
			cgstAmount := taxOn(item.Subtotal, halfRate)
			sgstAmount := taxOn(item.Subtotal, halfRate)
			totalTax = totalTax.Add(cgstAmount).Add(sgstAmount)
			gstSummary.CGST = gstSummary.CGST.Add(cgstAmount)
			gstSummary.SGST = gstSummary.SGST.Add(sgstAmount)

			taxBreakdown = append(taxBreakdown, models.TaxBreakdown{
				JurisdictionName: "India - Central",
				TaxType:          string(models.TaxTypeCGST),
				Rate:             halfRate,
				TaxableAmount:    item.Subtotal,
				TaxAmount:        cgstAmount,
				HSNCode:          item.HSNCode,
				SACCode:          item.SACCode,
			})
			taxBreakdown = append(taxBreakdown, models.TaxBreakdown{
				JurisdictionName: g.destStateName(req.ShippingAddress),
				TaxType:          string(models.TaxTypeSGST),
				Rate:             halfRate,
				TaxableAmount:    item.Subtotal,
				TaxAmount:        sgstAmount,
				HSNCode:          item.HSNCode,
				SACCode:          item.SACCode,
			})
		}

		if cessRate.GreaterThan(decimal.Zero) {
			cessAmount := taxOn(item.Subtotal, cessRate)
			totalTax = totalTax.Add(cessAmount)
			gstSummary.Cess = gstSummary.Cess.Add(cessAmount)

			taxBreakdown = append(taxBreakdown, models.TaxBreakdown{
				JurisdictionName: "India",
				TaxType:          string(models.TaxTypeCESS),
				Rate:             cessRate,
				TaxableAmount:    item.Subtotal,
				TaxAmount:        cessAmount,
				HSNCode:          item.HSNCode,
				SACCode:          item.SACCode,
			})
		}
	}

	// Shipping is taxed at the standard slab, split like the goods
	if req.ShippingAmount.GreaterThan(decimal.Zero) {
		if isInterstate {
			igstAmount := taxOn(req.ShippingAmount, shippingGSTSlab)
			totalTax = totalTax.Add(igstAmount)
			gstSummary.IGST = gstSummary.IGST.Add(igstAmount)
		} else {
			halfRate := shippingGSTSlab.Div(two)
			cgstAmount := taxOn(req.ShippingAmount, halfRate)
			sgstAmount := taxOn(req.ShippingAmount, halfRate)
			totalTax = totalTax.Add(cgstAmount).Add(sgstAmount)
			gstSummary.CGST = gstSummary.CGST.Add(cgstAmount)
			gstSummary.SGST = gstSummary.SGST.Add(sgstAmount)
		}
	}

	gstSummary.TotalGST = totalTax

	response := &models.TaxCalculationResponse{
		Subtotal:       subtotal,
		ShippingAmount: req.ShippingAmount,
		TaxAmount:      totalTax,
		Total:          subtotal.Add(req.ShippingAmount).Add(totalTax),
		TaxBreakdown:   taxBreakdown,
		IsExempt:       false,
		GSTSummary:     gstSummary,
	}

	if totalTax.IsZero() && len(req.LineItems) > 0 && zeroRatedLines == len(req.LineItems) {
		response.IsExempt = true
		response.ExemptReason = "All items are exempt or nil-rated"
	}

	return response, nil
}

// slabFor resolves the GST slab and cess rate for a line item. Lookup
// order: HSN code, SAC code, category ID, then the default slab.
func (g *indiaGSTRegime) slabFor(ctx context.Context, tenantID string, item models.LineItemInput) (decimal.Decimal, decimal.Decimal) {
	category := g.lookupCategory(ctx, tenantID, item)
	if category == nil {
		return defaultGSTSlab, decimal.Zero
	}
	if category.IsTaxExempt || category.IsNilRated {
		return decimal.Zero, decimal.Zero
	}
	return category.GSTSlab, category.CessRate
}

// lookupCategory finds the product tax category for a line item
func (g *indiaGSTRegime) lookupCategory(ctx context.Context, tenantID string, item models.LineItemInput) *models.ProductTaxCategory {
	if item.HSNCode != "" {
		if category, err := g.repo.GetProductCategoryByHSN(ctx, tenantID, item.HSNCode); err == nil {
			return category
		}
	}
	if item.SACCode != "" {
		if category, err := g.repo.GetProductCategoryBySAC(ctx, tenantID, item.SACCode); err == nil {
			return category
		}
	}
	if item.CategoryID != nil {
		if category, err := g.repo.GetProductCategory(ctx, *item.CategoryID); err == nil {
			return category
		}
	}
	return nil
}

// destStateName labels the SGST breakdown row with the destination state
func (g *indiaGSTRegime) destStateName(address models.AddressInput) string {
	if address.State != "" {
		return address.State
	}
	if state, ok := indiaStates[address.StateCode]; ok {
		return state.Name
	}
	return address.StateCode
}
