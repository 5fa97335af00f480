package audit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingCancelled EventType = "booking.cancelled"
)

// CapacityChange records one allocation counter mutation. BookedBefore and
// BookedAfter describe the row the mutation targeted (the pool row when
// PoolID is set).
type CapacityChange struct {
	AllocationID string  `json:"allocation_id"`
	PoolID       *string `json:"pool_id,omitempty"`
	SupplierID   string  `json:"supplier_id"`
	Quantity     int     `json:"quantity"`
	BookedBefore int     `json:"booked_before"`
	BookedAfter  int     `json:"booked_after"`
}

// Event is one audit record per booking creation or cancellation. The exact
// downstream format is owned by the audit log consumer; this is the engine's
// emission contract.
type Event struct {
	ID          string           `json:"id"`
	Type        EventType        `json:"type"`
	OrgID       string           `json:"org_id"`
	BookingID   string           `json:"booking_id"`
	Reference   string           `json:"reference"`
	TotalCost   decimal.Decimal  `json:"total_cost"`
	TotalPrice  decimal.Decimal  `json:"total_price"`
	TotalMargin decimal.Decimal  `json:"total_margin"`
	Capacity    []CapacityChange `json:"capacity"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// Sink receives audit events. Implementations must be safe for concurrent
// use; publish failures are advisory and never fail the booking.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// NopSink discards events. Used in tests and deployments without a broker.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }
