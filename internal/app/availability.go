package app

import (
	"context"
	"sort"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type RangeCandidateReader interface {
	// ListCandidatesRange returns candidates for every date in [from, to],
	// ordered by date then supplier id.
	ListCandidatesRange(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.SupplierCandidate, error)
}

// AvailabilityService aggregates per-supplier capacity records into per-day
// calendar and summary views. Read-only; never gates booking.
type AvailabilityService struct {
	rates                 RateRepository
	allocations           RangeCandidateReader
	lowInventoryThreshold int
}

const defaultLowInventoryThreshold = 5

type AvailabilityOption func(*AvailabilityService)

// WithLowInventoryThreshold overrides the unit count below which a day is
// flagged low_inventory.
func WithLowInventoryThreshold(n int) AvailabilityOption {
	return func(s *AvailabilityService) {
		if n > 0 {
			s.lowInventoryThreshold = n
		}
	}
}

func NewAvailabilityService(rates RateRepository, allocations RangeCandidateReader, opts ...AvailabilityOption) *AvailabilityService {
	svc := &AvailabilityService{
		rates:                 rates,
		allocations:           allocations,
		lowInventoryThreshold: defaultLowInventoryThreshold,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *AvailabilityService) Calendar(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.CalendarEntry, error) {
	candidates, _, err := s.fetchRange(ctx, orgID, variantID, from, to)
	if err != nil {
		return nil, err
	}
	return s.buildEntries(candidates, from, to), nil
}

func (s *AvailabilityService) Summary(ctx context.Context, orgID, variantID string, from, to time.Time) (domain.AvailabilitySummary, error) {
	candidates, plans, err := s.fetchRange(ctx, orgID, variantID, from, to)
	if err != nil {
		return domain.AvailabilitySummary{}, err
	}
	entries := s.buildEntries(candidates, from, to)

	summary := domain.AvailabilitySummary{
		From: from,
		To:   to,
		Days: len(entries),
	}

	marginSum := decimal.Zero
	marginDays := 0
	for _, entry := range entries {
		summary.TotalQuantity += entry.TotalQuantity
		summary.TotalBooked += entry.TotalBooked
		summary.TotalAvailable += entry.TotalAvailable

		switch entry.Status {
		case domain.CalendarStatusAvailable:
			summary.AvailableDays++
		case domain.CalendarStatusLowInventory:
			summary.LowInventoryDays++
		case domain.CalendarStatusSoldOut:
			summary.SoldOutDays++
		case domain.CalendarStatusStopSell:
			summary.StopSellDays++
		case domain.CalendarStatusBlackout:
			summary.BlackoutDays++
		}

		// Margin counts only days where both a master rate and a
		// recommended supplier exist.
		if entry.RecommendedSupplier == nil {
			continue
		}
		master := bestMasterPlan(plans, entry.Date)
		if master == nil {
			continue
		}
		marginSum = marginSum.Add(master.Price.Sub(entry.RecommendedSupplier.UnitCost))
		marginDays++
		if summary.Currency == "" {
			summary.Currency = master.Currency
		}
	}

	if marginDays > 0 {
		summary.AverageMargin = marginSum.Div(decimal.NewFromInt(int64(marginDays))).Round(2)
	} else {
		summary.AverageMargin = decimal.Zero
	}
	return summary, nil
}

// fetchRange reads allocation candidates and master rate plans for the range
// concurrently.
func (s *AvailabilityService) fetchRange(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.SupplierCandidate, []domain.RatePlan, error) {
	if orgID == "" {
		return nil, nil, domain.ErrOrgRequired
	}
	if to.Before(from) {
		return nil, nil, domain.ErrInvalidDateRange
	}

	var (
		candidates []domain.SupplierCandidate
		plans      []domain.RatePlan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = s.allocations.ListCandidatesRange(gctx, orgID, variantID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		plans, err = s.rates.ListMasterRatePlans(gctx, orgID, variantID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return candidates, plans, nil
}

func (s *AvailabilityService) buildEntries(candidates []domain.SupplierCandidate, from, to time.Time) []domain.CalendarEntry {
	byDay := make(map[string][]domain.SupplierCandidate)
	for _, c := range candidates {
		key := dayKey(c.Allocation.Date)
		byDay[key] = append(byDay[key], c)
	}

	var entries []domain.CalendarEntry
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		entries = append(entries, s.buildEntry(day, byDay[dayKey(day)]))
	}
	return entries
}

func (s *AvailabilityService) buildEntry(day time.Time, candidates []domain.SupplierCandidate) domain.CalendarEntry {
	entry := domain.CalendarEntry{Date: day}

	stopSell := false
	blackout := false
	seenPools := make(map[string]bool)
	for _, c := range candidates {
		a := c.Allocation
		if a.StopSell {
			stopSell = true
		}
		if a.Blackout {
			blackout = true
		}
		// Pooled allocations all carry the same pool counters; count each
		// pool once.
		if a.InventoryPoolID != nil {
			if seenPools[*a.InventoryPoolID] {
				continue
			}
			seenPools[*a.InventoryPoolID] = true
		}
		if a.Quantity != nil {
			entry.TotalQuantity += *a.Quantity
		}
		entry.TotalBooked += a.Booked
		entry.TotalAvailable += a.Available()
	}

	switch {
	case stopSell:
		entry.Status = domain.CalendarStatusStopSell
	case blackout:
		entry.Status = domain.CalendarStatusBlackout
	case entry.TotalAvailable == 0:
		entry.Status = domain.CalendarStatusSoldOut
	case entry.TotalAvailable < s.lowInventoryThreshold:
		entry.Status = domain.CalendarStatusLowInventory
	default:
		entry.Status = domain.CalendarStatusAvailable
	}

	entry.RecommendedSupplier = recommendSupplier(candidates)
	return entry
}

// recommendSupplier applies the selector's ordering to the day's sellable
// candidates with remaining availability.
func recommendSupplier(candidates []domain.SupplierCandidate) *domain.RecommendedSupplier {
	eligible := make([]domain.SupplierCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Allocation.Sellable() || c.Allocation.Available() == 0 || !c.AutoSelectable() {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.Slice(eligible, func(i, j int) bool {
		return lessCandidate(eligible[i], eligible[j])
	})
	best := eligible[0]
	return &domain.RecommendedSupplier{
		SupplierID:   best.Allocation.SupplierID,
		SupplierName: best.Allocation.SupplierName,
		UnitCost:     best.Allocation.UnitCost,
		Priority:     best.Priority(),
		Available:    best.Allocation.Available(),
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
