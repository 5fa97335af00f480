package app

import (
	"context"
	"testing"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/shopspring/decimal"
)

func TestAvailabilityValidator_ValidateBooking(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	makeValidator := func(sellingPrice string, candidates []domain.SupplierCandidate, opts ...ValidatorOption) *AvailabilityValidator {
		plans := []domain.RatePlan{{
			ID:               "plan-master",
			OrgID:            "org-1",
			ProductVariantID: "variant-1",
			ValidFrom:        date.AddDate(0, -1, 0),
			ValidTo:          date.AddDate(0, 1, 0),
			Priority:         1,
			Preferred:        true,
			Currency:         "GBP",
			Price:            price(sellingPrice),
		}}
		rates := NewRateResolver(&fakeRateRepo{plans: plans})
		selector := NewSupplierSelector(rates, &fakeCandidateRepo{candidates: candidates})
		return NewAvailabilityValidator(selector, opts...)
	}

	item := BookingItemInput{ProductVariantID: "variant-1", StartDate: date, Quantity: 2}

	t.Run("valid booking returns selections and no issues", func(t *testing.T) {
		v := makeValidator("150.00", []domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(10), "60.00", 1, nil),
		})

		result, err := v.ValidateBooking(context.Background(), "org-1", []BookingItemInput{item})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.Valid {
			t.Fatalf("expected valid result: %+v", result)
		}
		if len(result.Errors) != 0 || len(result.Warnings) != 0 {
			t.Fatalf("expected no issues, got %+v", result)
		}
		if len(result.Selections) != 1 || result.Selections[0].SupplierID != "sup-a" {
			t.Fatalf("expected sup-a selection, got %+v", result.Selections)
		}
	})

	t.Run("thin margin warns but stays valid", func(t *testing.T) {
		v := makeValidator("150.00", []domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(10), "140.00", 1, nil),
		})

		result, err := v.ValidateBooking(context.Background(), "org-1", []BookingItemInput{item})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.Valid {
			t.Fatalf("expected warnings not to invalidate: %+v", result)
		}
		if len(result.Warnings) != 1 || result.Warnings[0].Code != IssueLowMargin {
			t.Fatalf("expected low margin warning, got %+v", result.Warnings)
		}
		if len(result.Selections) != 1 {
			t.Fatalf("expected the selection still returned, got %+v", result.Selections)
		}
	})

	t.Run("margin exactly at threshold does not warn", func(t *testing.T) {
		v := makeValidator("100.00", []domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(10), "90.00", 1, nil),
		})

		result, err := v.ValidateBooking(context.Background(), "org-1", []BookingItemInput{item})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Warnings) != 0 {
			t.Fatalf("expected no warnings at exactly 10%%, got %+v", result.Warnings)
		}
	})

	t.Run("threshold override", func(t *testing.T) {
		v := makeValidator("100.00", []domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(10), "80.00", 1, nil),
		}, WithLowMarginPercent(decimal.NewFromInt(25)))

		result, err := v.ValidateBooking(context.Background(), "org-1", []BookingItemInput{item})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("expected 20%% margin to warn at 25%% threshold, got %+v", result.Warnings)
		}
	})

	t.Run("no supplier capacity flags the item", func(t *testing.T) {
		v := makeValidator("150.00", []domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(1), "60.00", 1, nil),
		})

		result, err := v.ValidateBooking(context.Background(), "org-1", []BookingItemInput{item})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Valid {
			t.Fatalf("expected invalid result")
		}
		if len(result.Errors) != 1 || result.Errors[0].Code != IssueNoSupplierAvailable {
			t.Fatalf("expected no_supplier_available, got %+v", result.Errors)
		}
		if result.Errors[0].ItemIndex != 0 {
			t.Fatalf("expected item index 0, got %d", result.Errors[0].ItemIndex)
		}
	})

	t.Run("missing master rate flags the item", func(t *testing.T) {
		rates := NewRateResolver(&fakeRateRepo{})
		selector := NewSupplierSelector(rates, &fakeCandidateRepo{candidates: []domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(10), "60.00", 1, nil),
		}})
		v := NewAvailabilityValidator(selector)

		result, err := v.ValidateBooking(context.Background(), "org-1", []BookingItemInput{item})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Valid {
			t.Fatalf("expected invalid result")
		}
		if len(result.Errors) != 1 || result.Errors[0].Code != IssueNoMasterRate {
			t.Fatalf("expected no_master_rate, got %+v", result.Errors)
		}
	})

	t.Run("zero quantity flags without hitting the selector", func(t *testing.T) {
		v := makeValidator("150.00", nil)

		result, err := v.ValidateBooking(context.Background(), "org-1", []BookingItemInput{
			{ProductVariantID: "variant-1", StartDate: date, Quantity: 0},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Valid {
			t.Fatalf("expected invalid result")
		}
		if len(result.Errors) != 1 || result.Errors[0].Code != IssueInvalidQuantity {
			t.Fatalf("expected invalid_quantity, got %+v", result.Errors)
		}
	})

	t.Run("issues accumulate per item", func(t *testing.T) {
		v := makeValidator("150.00", []domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(10), "60.00", 1, nil),
		})

		result, err := v.ValidateBooking(context.Background(), "org-1", []BookingItemInput{
			item,
			{ProductVariantID: "variant-1", StartDate: date, Quantity: -1},
			{ProductVariantID: "variant-1", StartDate: date, Quantity: 50},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Valid {
			t.Fatalf("expected invalid result")
		}
		if len(result.Errors) != 2 {
			t.Fatalf("expected 2 errors, got %+v", result.Errors)
		}
		if result.Errors[0].ItemIndex != 1 || result.Errors[1].ItemIndex != 2 {
			t.Fatalf("unexpected item indexes: %+v", result.Errors)
		}
		if len(result.Selections) != 1 {
			t.Fatalf("expected the good item still selected, got %+v", result.Selections)
		}
	})

	t.Run("empty items returns ErrNoItems", func(t *testing.T) {
		v := makeValidator("150.00", nil)

		_, err := v.ValidateBooking(context.Background(), "org-1", nil)
		if err != domain.ErrNoItems {
			t.Fatalf("expected ErrNoItems, got %v", err)
		}
	})

	t.Run("missing org returns ErrOrgRequired", func(t *testing.T) {
		v := makeValidator("150.00", nil)

		_, err := v.ValidateBooking(context.Background(), "", []BookingItemInput{item})
		if err != domain.ErrOrgRequired {
			t.Fatalf("expected ErrOrgRequired, got %v", err)
		}
	})
}
