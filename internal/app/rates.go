package app

import (
	"context"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
)

type RateRepository interface {
	// ListMasterRatePlans returns preferred master rate plans (supplier
	// unset) whose validity window overlaps [from, to].
	ListMasterRatePlans(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.RatePlan, error)
	// ListSupplierRates returns supplier cost rates valid on date, ordered
	// priority desc, price asc, supplier id asc.
	ListSupplierRates(ctx context.Context, orgID, variantID string, date time.Time) ([]domain.SupplierRate, error)
}

// RateResolver resolves the single master selling price and the competing
// supplier cost rates for a variant/date.
type RateResolver struct {
	repo RateRepository
}

func NewRateResolver(repo RateRepository) *RateResolver {
	return &RateResolver{repo: repo}
}

func (r *RateResolver) ResolveMasterRate(ctx context.Context, orgID, variantID string, date time.Time) (domain.MasterRate, error) {
	if orgID == "" {
		return domain.MasterRate{}, domain.ErrOrgRequired
	}
	plans, err := r.repo.ListMasterRatePlans(ctx, orgID, variantID, date, date)
	if err != nil {
		return domain.MasterRate{}, err
	}
	best := bestMasterPlan(plans, date)
	if best == nil {
		return domain.MasterRate{}, domain.ErrNoMasterRate
	}
	return domain.MasterRate{
		RatePlanID:   best.ID,
		SellingPrice: best.Price,
		Currency:     best.Currency,
		Priority:     best.Priority,
	}, nil
}

// ResolveSupplierRates returns all supplier cost rates valid on date. An
// empty result is valid: "no supplier priced" is distinct from "no capacity".
func (r *RateResolver) ResolveSupplierRates(ctx context.Context, orgID, variantID string, date time.Time) ([]domain.SupplierRate, error) {
	if orgID == "" {
		return nil, domain.ErrOrgRequired
	}
	return r.repo.ListSupplierRates(ctx, orgID, variantID, date)
}

// bestMasterPlan picks the winning master plan for a date: highest priority,
// then most recently valid, then id for a stable last resort.
func bestMasterPlan(plans []domain.RatePlan, date time.Time) *domain.RatePlan {
	var best *domain.RatePlan
	for i := range plans {
		p := &plans[i]
		if p.SupplierID != nil || !p.Preferred || !p.ValidOn(date) {
			continue
		}
		if best == nil {
			best = p
			continue
		}
		switch {
		case p.Priority != best.Priority:
			if p.Priority > best.Priority {
				best = p
			}
		case !p.ValidFrom.Equal(best.ValidFrom):
			if p.ValidFrom.After(best.ValidFrom) {
				best = p
			}
		case p.ID < best.ID:
			best = p
		}
	}
	return best
}
