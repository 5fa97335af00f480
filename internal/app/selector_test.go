package app

import (
	"context"
	"testing"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/shopspring/decimal"
)

func TestSupplierSelector_SelectBestSupplier(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	masterPlan := domain.RatePlan{
		ID:               "plan-master",
		OrgID:            "org-1",
		ProductVariantID: "variant-1",
		ValidFrom:        date.AddDate(0, -1, 0),
		ValidTo:          date.AddDate(0, 1, 0),
		Priority:         1,
		Preferred:        true,
		Currency:         "GBP",
		Price:            price("150.00"),
	}

	makeSelector := func(candidates []domain.SupplierCandidate) *SupplierSelector {
		rates := NewRateResolver(&fakeRateRepo{plans: []domain.RatePlan{masterPlan}})
		return NewSupplierSelector(rates, &fakeCandidateRepo{candidates: candidates})
	}

	t.Run("lower cost wins on equal priority when both can fulfill", func(t *testing.T) {
		selector := makeSelector([]domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(5), "80.00", 10, nil),
			candidate("sup-b", date, intPtr(3), "60.00", 10, nil),
		})

		sel, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sel.SupplierID != "sup-b" {
			t.Fatalf("expected sup-b, got %s", sel.SupplierID)
		}
		if !sel.UnitCost.Equal(price("60.00")) {
			t.Fatalf("expected unit cost 60.00, got %s", sel.UnitCost)
		}
		if !sel.Margin.Equal(price("90.00")) {
			t.Fatalf("expected margin 90.00, got %s", sel.Margin)
		}
		if sel.Currency != "GBP" {
			t.Fatalf("expected currency GBP, got %s", sel.Currency)
		}
	})

	t.Run("higher priority beats lower cost", func(t *testing.T) {
		selector := makeSelector([]domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(5), "40.00", 1, nil),
			candidate("sup-b", date, intPtr(5), "90.00", 20, nil),
		})

		sel, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sel.SupplierID != "sup-b" {
			t.Fatalf("expected sup-b, got %s", sel.SupplierID)
		}
	})

	t.Run("supplier id breaks a full tie", func(t *testing.T) {
		selector := makeSelector([]domain.SupplierCandidate{
			candidate("sup-b", date, intPtr(5), "70.00", 5, nil),
			candidate("sup-a", date, intPtr(5), "70.00", 5, nil),
		})

		sel, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sel.SupplierID != "sup-a" {
			t.Fatalf("expected sup-a, got %s", sel.SupplierID)
		}
	})

	t.Run("selection is stable across input orderings", func(t *testing.T) {
		a := candidate("sup-a", date, intPtr(5), "80.00", 10, nil)
		b := candidate("sup-b", date, intPtr(3), "60.00", 10, nil)
		c := candidate("sup-c", date, intPtr(9), "60.00", 2, nil)

		orderings := [][]domain.SupplierCandidate{
			{a, b, c},
			{c, b, a},
			{b, c, a},
		}
		for _, candidates := range orderings {
			sel, err := makeSelector(candidates).SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 2)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if sel.SupplierID != "sup-b" {
				t.Fatalf("expected sup-b regardless of input order, got %s", sel.SupplierID)
			}
		}
	})

	t.Run("skips suppliers that cannot cover the quantity", func(t *testing.T) {
		selector := makeSelector([]domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(2), "50.00", 10, nil),
			candidate("sup-b", date, intPtr(6), "90.00", 1, nil),
		})

		sel, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 4)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sel.SupplierID != "sup-b" {
			t.Fatalf("expected sup-b, got %s", sel.SupplierID)
		}
	})

	t.Run("skips stop-sell and blackout records", func(t *testing.T) {
		stopped := candidate("sup-a", date, intPtr(10), "40.00", 10, nil)
		stopped.Allocation.StopSell = true
		dark := candidate("sup-b", date, intPtr(10), "45.00", 10, nil)
		dark.Allocation.Blackout = true

		selector := makeSelector([]domain.SupplierCandidate{
			stopped,
			dark,
			candidate("sup-c", date, intPtr(10), "95.00", 1, nil),
		})

		sel, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sel.SupplierID != "sup-c" {
			t.Fatalf("expected sup-c, got %s", sel.SupplierID)
		}
	})

	t.Run("skips suppliers that opted out of auto selection", func(t *testing.T) {
		selector := makeSelector([]domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(10), "40.00", 10, boolPtr(false)),
			candidate("sup-b", date, intPtr(10), "95.00", 1, boolPtr(true)),
		})

		sel, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sel.SupplierID != "sup-b" {
			t.Fatalf("expected sup-b, got %s", sel.SupplierID)
		}
	})

	t.Run("unset auto select participates", func(t *testing.T) {
		selector := makeSelector([]domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(10), "40.00", 10, nil),
		})

		sel, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sel.SupplierID != "sup-a" {
			t.Fatalf("expected sup-a, got %s", sel.SupplierID)
		}
	})

	t.Run("freesale covers any quantity", func(t *testing.T) {
		selector := makeSelector([]domain.SupplierCandidate{
			candidate("sup-a", date, nil, "55.00", 1, nil),
		})

		sel, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 500)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sel.Available != domain.FreesaleAvailable {
			t.Fatalf("expected freesale availability, got %d", sel.Available)
		}
	})

	t.Run("no candidates returns ErrNoSupplierAvailable", func(t *testing.T) {
		selector := makeSelector(nil)

		_, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 1)
		if err != domain.ErrNoSupplierAvailable {
			t.Fatalf("expected ErrNoSupplierAvailable, got %v", err)
		}
	})

	t.Run("missing master rate returns ErrNoMasterRate", func(t *testing.T) {
		rates := NewRateResolver(&fakeRateRepo{})
		selector := NewSupplierSelector(rates, &fakeCandidateRepo{candidates: []domain.SupplierCandidate{
			candidate("sup-a", date, intPtr(10), "40.00", 10, nil),
		}})

		_, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 1)
		if err != domain.ErrNoMasterRate {
			t.Fatalf("expected ErrNoMasterRate, got %v", err)
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		selector := makeSelector(nil)

		_, err := selector.SelectBestSupplier(context.Background(), "org-1", "variant-1", date, 0)
		if err != domain.ErrInvalidQuantity {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("rejects missing org", func(t *testing.T) {
		selector := makeSelector(nil)

		_, err := selector.SelectBestSupplier(context.Background(), "", "variant-1", date, 1)
		if err != domain.ErrOrgRequired {
			t.Fatalf("expected ErrOrgRequired, got %v", err)
		}
	})
}

func candidate(supplierID string, date time.Time, quantity *int, unitCost string, priority int, autoSelect *bool) domain.SupplierCandidate {
	return domain.SupplierCandidate{
		Allocation: domain.AllocationRecord{
			ID:               "alloc-" + supplierID,
			OrgID:            "org-1",
			ProductVariantID: "variant-1",
			SupplierID:       supplierID,
			SupplierName:     "Supplier " + supplierID,
			Date:             date,
			Quantity:         quantity,
			UnitCost:         price(unitCost),
			Currency:         "GBP",
			Type:             domain.AllocationCommitted,
		},
		Rate: &domain.SupplierRate{
			RatePlanID: "plan-" + supplierID,
			SupplierID: supplierID,
			UnitCost:   price(unitCost),
			Currency:   "GBP",
			Priority:   priority,
			AutoSelect: autoSelect,
		},
	}
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(n int) *int {
	return &n
}

func boolPtr(b bool) *bool {
	return &b
}

type fakeRateRepo struct {
	plans []domain.RatePlan
	rates []domain.SupplierRate
	err   error
}

func (f *fakeRateRepo) ListMasterRatePlans(_ context.Context, orgID, variantID string, from, to time.Time) ([]domain.RatePlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.RatePlan
	for _, p := range f.plans {
		if p.OrgID != orgID || p.ProductVariantID != variantID {
			continue
		}
		if p.ValidTo.Before(from) || p.ValidFrom.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRateRepo) ListSupplierRates(_ context.Context, _, _ string, _ time.Time) ([]domain.SupplierRate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

type fakeCandidateRepo struct {
	candidates []domain.SupplierCandidate
	err        error
}

func (f *fakeCandidateRepo) ListCandidates(_ context.Context, orgID, variantID string, date time.Time) ([]domain.SupplierCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.SupplierCandidate
	for _, c := range f.candidates {
		if c.Allocation.OrgID != orgID || c.Allocation.ProductVariantID != variantID {
			continue
		}
		if !sameDay(c.Allocation.Date, date) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCandidateRepo) ListCandidatesRange(_ context.Context, orgID, variantID string, from, to time.Time) ([]domain.SupplierCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.SupplierCandidate
	for _, c := range f.candidates {
		if c.Allocation.OrgID != orgID || c.Allocation.ProductVariantID != variantID {
			continue
		}
		if c.Allocation.Date.Before(from) || c.Allocation.Date.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func sameDay(a, b time.Time) bool {
	return a.UTC().Format("2006-01-02") == b.UTC().Format("2006-01-02")
}
