package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	IssueNoMasterRate        = "no_master_rate"
	IssueNoSupplierAvailable = "no_supplier_available"
	IssueInvalidQuantity     = "invalid_quantity"
	IssueLowMargin           = "low_margin"
)

type ValidationIssue struct {
	ItemIndex int
	Code      string
	Message   string
}

type ValidationResult struct {
	Valid      bool
	Errors     []ValidationIssue
	Warnings   []ValidationIssue
	Selections []domain.SupplierSelection
}

// AvailabilityValidator previews a booking without mutating state. Advisory
// only: the authoritative capacity check is the conditional update inside
// the booking transaction.
type AvailabilityValidator struct {
	selector         *SupplierSelector
	lowMarginPercent decimal.Decimal
}

var defaultLowMarginPercent = decimal.NewFromInt(10)

type ValidatorOption func(*AvailabilityValidator)

// WithLowMarginPercent overrides the margin-of-selling-price percentage
// below which a warning is raised.
func WithLowMarginPercent(pct decimal.Decimal) ValidatorOption {
	return func(v *AvailabilityValidator) {
		if pct.IsPositive() {
			v.lowMarginPercent = pct
		}
	}
}

func NewAvailabilityValidator(selector *SupplierSelector, opts ...ValidatorOption) *AvailabilityValidator {
	v := &AvailabilityValidator{
		selector:         selector,
		lowMarginPercent: defaultLowMarginPercent,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *AvailabilityValidator) ValidateBooking(ctx context.Context, orgID string, items []BookingItemInput) (ValidationResult, error) {
	if orgID == "" {
		return ValidationResult{}, domain.ErrOrgRequired
	}
	if len(items) == 0 {
		return ValidationResult{}, domain.ErrNoItems
	}

	result := ValidationResult{Valid: true}
	for i, item := range items {
		if item.Quantity <= 0 {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationIssue{
				ItemIndex: i,
				Code:      IssueInvalidQuantity,
				Message:   "quantity must be positive",
			})
			continue
		}

		sel, err := v.selector.SelectBestSupplier(ctx, orgID, item.ProductVariantID, item.StartDate, item.Quantity)
		switch {
		case errors.Is(err, domain.ErrNoMasterRate):
			result.Valid = false
			result.Errors = append(result.Errors, ValidationIssue{
				ItemIndex: i,
				Code:      IssueNoMasterRate,
				Message:   fmt.Sprintf("no selling price for variant %s on %s", item.ProductVariantID, item.StartDate.Format("2006-01-02")),
			})
			continue
		case errors.Is(err, domain.ErrNoSupplierAvailable):
			result.Valid = false
			result.Errors = append(result.Errors, ValidationIssue{
				ItemIndex: i,
				Code:      IssueNoSupplierAvailable,
				Message:   fmt.Sprintf("no supplier can fulfill %d units of variant %s on %s", item.Quantity, item.ProductVariantID, item.StartDate.Format("2006-01-02")),
			})
			continue
		case err != nil:
			return ValidationResult{}, err
		}

		result.Selections = append(result.Selections, sel)

		if sel.SellingPrice.IsPositive() {
			marginPct := sel.Margin.Div(sel.SellingPrice).Mul(decimal.NewFromInt(100))
			if marginPct.LessThan(v.lowMarginPercent) {
				result.Warnings = append(result.Warnings, ValidationIssue{
					ItemIndex: i,
					Code:      IssueLowMargin,
					Message:   fmt.Sprintf("margin %s%% of selling price is below %s%%", marginPct.Round(1), v.lowMarginPercent),
				})
			}
		}
	}
	return result, nil
}
