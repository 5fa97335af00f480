package app

import (
	"context"
	"sort"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
)

type CandidateReader interface {
	// ListCandidates returns all allocation records for (variant, date)
	// joined with each supplier's current rate plan, if any.
	ListCandidates(ctx context.Context, orgID, variantID string, date time.Time) ([]domain.SupplierCandidate, error)
}

// SupplierSelector picks exactly one supplier to fulfill a request. It is a
// pure read: it never mutates booked or held.
type SupplierSelector struct {
	rates       *RateResolver
	allocations CandidateReader
}

func NewSupplierSelector(rates *RateResolver, allocations CandidateReader) *SupplierSelector {
	return &SupplierSelector{
		rates:       rates,
		allocations: allocations,
	}
}

func (s *SupplierSelector) SelectBestSupplier(ctx context.Context, orgID, variantID string, date time.Time, quantity int) (domain.SupplierSelection, error) {
	if orgID == "" {
		return domain.SupplierSelection{}, domain.ErrOrgRequired
	}
	if quantity <= 0 {
		return domain.SupplierSelection{}, domain.ErrInvalidQuantity
	}

	master, err := s.rates.ResolveMasterRate(ctx, orgID, variantID, date)
	if err != nil {
		return domain.SupplierSelection{}, err
	}

	candidates, err := s.allocations.ListCandidates(ctx, orgID, variantID, date)
	if err != nil {
		return domain.SupplierSelection{}, err
	}

	eligible := make([]domain.SupplierCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Allocation.Sellable() {
			continue
		}
		if c.Allocation.Available() < quantity {
			continue
		}
		if !c.AutoSelectable() {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return domain.SupplierSelection{}, domain.ErrNoSupplierAvailable
	}

	sort.Slice(eligible, func(i, j int) bool {
		return lessCandidate(eligible[i], eligible[j])
	})

	best := eligible[0]
	return domain.SupplierSelection{
		SupplierID:      best.Allocation.SupplierID,
		SupplierName:    best.Allocation.SupplierName,
		AllocationID:    best.Allocation.ID,
		InventoryPoolID: best.Allocation.InventoryPoolID,
		UnitCost:        best.Allocation.UnitCost,
		SellingPrice:    master.SellingPrice,
		Margin:          master.SellingPrice.Sub(best.Allocation.UnitCost),
		Currency:        master.Currency,
		Available:       best.Allocation.Available(),
		Priority:        best.Priority(),
	}, nil
}

// lessCandidate orders candidates by priority desc, then unit cost asc, then
// supplier id asc. The supplier-id leg keeps selection reproducible when
// priority and cost both tie.
func lessCandidate(a, b domain.SupplierCandidate) bool {
	if a.Priority() != b.Priority() {
		return a.Priority() > b.Priority()
	}
	if cmp := a.Allocation.UnitCost.Cmp(b.Allocation.UnitCost); cmp != 0 {
		return cmp < 0
	}
	return a.Allocation.SupplierID < b.Allocation.SupplierID
}
