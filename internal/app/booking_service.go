package app

import (
	"context"
	"log"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/audit"
	"github.com/danielGPGT/tour-ops-engine/internal/clock"
	"github.com/danielGPGT/tour-ops-engine/internal/domain"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateBooking(ctx context.Context, booking domain.Booking) error
	CreateBookingItem(ctx context.Context, item domain.BookingItem) error
	CreatePassenger(ctx context.Context, passenger domain.Passenger) error
	GetBooking(ctx context.Context, orgID, bookingID string) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, orgID, bookingID string) (domain.Booking, error)
	ListItems(ctx context.Context, orgID, bookingID string) ([]domain.BookingItem, error)
	ListPassengers(ctx context.Context, orgID, bookingID string) ([]domain.Passenger, error)
	MarkBookingCancelled(ctx context.Context, orgID, bookingID, reason string, at time.Time) error
	MarkItemsCancelled(ctx context.Context, orgID, bookingID string) error
}

type CapacityRepository interface {
	// ReserveCapacity runs the conditional booked increment against the
	// allocation row, or the pool row when poolID is set. Returns the new
	// booked count; domain.ErrCapacityExceeded when the guard rejects it.
	ReserveCapacity(ctx context.Context, orgID, allocationID string, poolID *string, quantity int) (int, error)
	// ReleaseCapacity decrements booked, flooring at zero. Returns the
	// booked count before and after the decrement.
	ReleaseCapacity(ctx context.Context, orgID, allocationID string, poolID *string, quantity int) (before, after int, err error)
}

// BookingService is the booking transaction coordinator: the only component
// permitted to mutate capacity state.
type BookingService struct {
	repo     BookingRepository
	capacity CapacityRepository
	selector *SupplierSelector
	audit    audit.Sink
	clock    clock.Clock
}

const referenceAttempts = 3

func NewBookingService(repo BookingRepository, capacity CapacityRepository, selector *SupplierSelector, sink audit.Sink, clk clock.Clock) *BookingService {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &BookingService{
		repo:     repo,
		capacity: capacity,
		selector: selector,
		audit:    sink,
		clock:    clk,
	}
}

type BookingItemInput struct {
	ProductVariantID string
	StartDate        time.Time
	EndDate          time.Time
	Quantity         int
	Adults           int
	Children         int
}

type PassengerInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Lead      bool
}

type CreateBookingInput struct {
	OrgID      string
	Channel    string
	Currency   string
	Items      []BookingItemInput
	Passengers []PassengerInput
}

type CreateBookingResult struct {
	Booking    domain.Booking
	Items      []domain.BookingItem
	Selections []domain.SupplierSelection
}

// CreateBooking commits a multi-item booking all-or-nothing. Supplier
// selection is re-run inside the transaction and each item's capacity
// increment is guarded by a conditional update, so two racing bookings can
// never both consume the same unit of capacity.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (CreateBookingResult, error) {
	if in.OrgID == "" {
		return CreateBookingResult{}, domain.ErrOrgRequired
	}
	if len(in.Items) == 0 {
		return CreateBookingResult{}, domain.ErrNoItems
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return CreateBookingResult{}, domain.ErrInvalidQuantity
		}
		if !item.EndDate.IsZero() && item.EndDate.Before(item.StartDate) {
			return CreateBookingResult{}, domain.ErrInvalidDateRange
		}
	}

	now := s.clock.Now()
	var result CreateBookingResult
	var changes []audit.CapacityChange

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		booking := domain.Booking{
			ID:        newUUID(),
			OrgID:     in.OrgID,
			Reference: newBookingReference(),
			Channel:   in.Channel,
			Currency:  in.Currency,
			Status:    domain.BookingStatusConfirmed,
			CreatedAt: now,
		}

		items := make([]domain.BookingItem, 0, len(in.Items))
		selections := make([]domain.SupplierSelection, 0, len(in.Items))
		for _, itemIn := range in.Items {
			sel, err := s.selector.SelectBestSupplier(txCtx, in.OrgID, itemIn.ProductVariantID, itemIn.StartDate, itemIn.Quantity)
			if err != nil {
				return err
			}
			if booking.Currency == "" {
				booking.Currency = sel.Currency
			}
			endDate := itemIn.EndDate
			if endDate.IsZero() {
				endDate = itemIn.StartDate
			}
			items = append(items, domain.BookingItem{
				ID:               newUUID(),
				OrgID:            in.OrgID,
				BookingID:        booking.ID,
				ProductVariantID: itemIn.ProductVariantID,
				SupplierID:       sel.SupplierID,
				SupplierName:     sel.SupplierName,
				AllocationID:     sel.AllocationID,
				InventoryPoolID:  sel.InventoryPoolID,
				StartDate:        itemIn.StartDate,
				EndDate:          endDate,
				Quantity:         itemIn.Quantity,
				Adults:           itemIn.Adults,
				Children:         itemIn.Children,
				UnitCost:         sel.UnitCost,
				UnitPrice:        sel.SellingPrice,
				Margin:           sel.Margin,
				State:            domain.ItemStateConfirmed,
			})
			selections = append(selections, sel)
		}

		booking.TotalCost, booking.TotalPrice, booking.TotalMargin = domain.Totals(items)

		if err := s.createWithReferenceRetry(txCtx, &booking); err != nil {
			return err
		}
		for _, item := range items {
			if err := s.repo.CreateBookingItem(txCtx, item); err != nil {
				return err
			}
		}
		for _, paxIn := range in.Passengers {
			pax := domain.Passenger{
				ID:        newUUID(),
				OrgID:     in.OrgID,
				BookingID: booking.ID,
				FirstName: paxIn.FirstName,
				LastName:  paxIn.LastName,
				Email:     paxIn.Email,
				Phone:     paxIn.Phone,
				Lead:      paxIn.Lead,
			}
			if err := s.repo.CreatePassenger(txCtx, pax); err != nil {
				return err
			}
		}

		// Capacity re-check at mutation time, not merely at selection time.
		changes = changes[:0]
		for _, item := range items {
			booked, err := s.capacity.ReserveCapacity(txCtx, in.OrgID, item.AllocationID, item.InventoryPoolID, item.Quantity)
			if err != nil {
				return err
			}
			changes = append(changes, audit.CapacityChange{
				AllocationID: item.AllocationID,
				PoolID:       item.InventoryPoolID,
				SupplierID:   item.SupplierID,
				Quantity:     item.Quantity,
				BookedBefore: booked - item.Quantity,
				BookedAfter:  booked,
			})
		}

		result = CreateBookingResult{
			Booking:    booking,
			Items:      items,
			Selections: selections,
		}
		return nil
	})
	if err != nil {
		return CreateBookingResult{}, err
	}

	s.emit(ctx, audit.Event{
		ID:          newUUID(),
		Type:        audit.EventBookingCreated,
		OrgID:       in.OrgID,
		BookingID:   result.Booking.ID,
		Reference:   result.Booking.Reference,
		TotalCost:   result.Booking.TotalCost,
		TotalPrice:  result.Booking.TotalPrice,
		TotalMargin: result.Booking.TotalMargin,
		Capacity:    changes,
		OccurredAt:  now,
	})
	return result, nil
}

// createWithReferenceRetry regenerates the reference on a per-org collision.
func (s *BookingService) createWithReferenceRetry(ctx context.Context, booking *domain.Booking) error {
	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		err = s.repo.CreateBooking(ctx, *booking)
		if err != domain.ErrReferenceConflict {
			return err
		}
		booking.Reference = newBookingReference()
	}
	return err
}

// CancelBooking reverses a previously committed booking: releases every
// non-cancelled item's capacity and marks the graph cancelled, in one
// transaction. Cancellation is one-way.
func (s *BookingService) CancelBooking(ctx context.Context, orgID, bookingID, reason string) error {
	if orgID == "" {
		return domain.ErrOrgRequired
	}

	now := s.clock.Now()
	var cancelled domain.Booking
	var changes []audit.CapacityChange

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.GetBookingForUpdate(txCtx, orgID, bookingID)
		if err != nil {
			return err
		}
		if booking.Status == domain.BookingStatusCancelled {
			return domain.ErrAlreadyCancelled
		}

		items, err := s.repo.ListItems(txCtx, orgID, bookingID)
		if err != nil {
			return err
		}

		changes = changes[:0]
		for _, item := range items {
			if item.State == domain.ItemStateCancelled {
				continue
			}
			before, after, err := s.capacity.ReleaseCapacity(txCtx, orgID, item.AllocationID, item.InventoryPoolID, item.Quantity)
			if err != nil {
				return err
			}
			changes = append(changes, audit.CapacityChange{
				AllocationID: item.AllocationID,
				PoolID:       item.InventoryPoolID,
				SupplierID:   item.SupplierID,
				Quantity:     item.Quantity,
				BookedBefore: before,
				BookedAfter:  after,
			})
		}

		if err := s.repo.MarkItemsCancelled(txCtx, orgID, bookingID); err != nil {
			return err
		}
		if err := s.repo.MarkBookingCancelled(txCtx, orgID, bookingID, reason, now); err != nil {
			return err
		}

		cancelled = booking
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, audit.Event{
		ID:          newUUID(),
		Type:        audit.EventBookingCancelled,
		OrgID:       orgID,
		BookingID:   bookingID,
		Reference:   cancelled.Reference,
		TotalCost:   cancelled.TotalCost,
		TotalPrice:  cancelled.TotalPrice,
		TotalMargin: cancelled.TotalMargin,
		Capacity:    changes,
		OccurredAt:  now,
	})
	return nil
}

type BookingDetails struct {
	Booking           domain.Booking
	Items             []domain.BookingItem
	Passengers        []domain.Passenger
	SupplierBreakdown []domain.SupplierBreakdown
}

// GetBookingDetails returns the full booking graph with a derived
// per-supplier breakdown.
func (s *BookingService) GetBookingDetails(ctx context.Context, orgID, bookingID string) (BookingDetails, error) {
	if orgID == "" {
		return BookingDetails{}, domain.ErrOrgRequired
	}

	booking, err := s.repo.GetBooking(ctx, orgID, bookingID)
	if err != nil {
		return BookingDetails{}, err
	}
	items, err := s.repo.ListItems(ctx, orgID, bookingID)
	if err != nil {
		return BookingDetails{}, err
	}
	passengers, err := s.repo.ListPassengers(ctx, orgID, bookingID)
	if err != nil {
		return BookingDetails{}, err
	}

	return BookingDetails{
		Booking:           booking,
		Items:             items,
		Passengers:        passengers,
		SupplierBreakdown: domain.BreakdownFromItems(items),
	}, nil
}

func (s *BookingService) emit(ctx context.Context, event audit.Event) {
	if err := s.audit.Publish(ctx, event); err != nil {
		log.Printf("WARN: audit publish %s for booking %s: %v", event.Type, event.BookingID, err)
	}
}
