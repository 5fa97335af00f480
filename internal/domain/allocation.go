package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AllocationType string

const (
	AllocationCommitted AllocationType = "committed"
	AllocationFreesale  AllocationType = "freesale"
	AllocationOnRequest AllocationType = "on_request"
)

// FreesaleAvailable is the sentinel availability reported for unbounded
// (freesale) allocations.
const FreesaleAvailable = 999999

// AllocationRecord is the capacity for one (product variant, supplier, date)
// tuple. A nil Quantity means unbounded freesale capacity. When
// InventoryPoolID is set, Quantity/Booked/Held carry the pool's shared
// counters and capacity mutations must target the pool row.
type AllocationRecord struct {
	ID               string
	OrgID            string
	ProductVariantID string
	SupplierID       string
	SupplierName     string
	Date             time.Time
	Quantity         *int
	Booked           int
	Held             int
	UnitCost         decimal.Decimal
	Currency         string
	StopSell         bool
	Blackout         bool
	Type             AllocationType
	InventoryPoolID  *string
}

// Available returns quantity - booked - held, floored at zero, or the
// freesale sentinel for unbounded records.
func (a AllocationRecord) Available() int {
	if a.Quantity == nil {
		return FreesaleAvailable
	}
	available := *a.Quantity - a.Booked - a.Held
	if available < 0 {
		return 0
	}
	return available
}

// Sellable reports whether the record can be offered at all.
func (a AllocationRecord) Sellable() bool {
	return !a.StopSell && !a.Blackout
}

// InventoryPool is a shared capacity counter referenced by allocation records
// across product variants.
type InventoryPool struct {
	ID       string
	OrgID    string
	Name     string
	Quantity int
	Booked   int
	Held     int
}
