package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type ItemState string

const (
	ItemStateConfirmed ItemState = "confirmed"
	ItemStateCancelled ItemState = "cancelled"
)

// Booking is the aggregate root of a committed reservation. Totals are
// derived from non-cancelled items and never hand-entered.
type Booking struct {
	ID           string
	OrgID        string
	Reference    string
	Channel      string
	Currency     string
	Status       BookingStatus
	TotalCost    decimal.Decimal
	TotalPrice   decimal.Decimal
	TotalMargin  decimal.Decimal
	CancelReason string
	CancelledAt  *time.Time
	CreatedAt    time.Time
}

// BookingItem is one line of a booking. SupplierID and AllocationID are
// chosen once at commit time and immutable thereafter.
type BookingItem struct {
	ID               string
	OrgID            string
	BookingID        string
	ProductVariantID string
	SupplierID       string
	SupplierName     string
	AllocationID     string
	InventoryPoolID  *string
	StartDate        time.Time
	EndDate          time.Time
	Quantity         int
	Adults           int
	Children         int
	UnitCost         decimal.Decimal
	UnitPrice        decimal.Decimal
	Margin           decimal.Decimal
	State            ItemState
}

func (i BookingItem) LineCost() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i BookingItem) LinePrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i BookingItem) LineMargin() decimal.Decimal {
	return i.Margin.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Passenger holds denormalized contact details owned by a booking. Not
// capacity-relevant.
type Passenger struct {
	ID        string
	OrgID     string
	BookingID string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Lead      bool
}

// SupplierBreakdown groups booking items by supplier.
type SupplierBreakdown struct {
	SupplierID   string
	SupplierName string
	ItemCount    int
	Quantity     int
	TotalCost    decimal.Decimal
	TotalPrice   decimal.Decimal
	TotalMargin  decimal.Decimal
}

// Totals sums line totals over non-cancelled items.
func Totals(items []BookingItem) (cost, price, margin decimal.Decimal) {
	cost, price, margin = decimal.Zero, decimal.Zero, decimal.Zero
	for _, item := range items {
		if item.State == ItemStateCancelled {
			continue
		}
		cost = cost.Add(item.LineCost())
		price = price.Add(item.LinePrice())
		margin = margin.Add(item.LineMargin())
	}
	return cost, price, margin
}

// BreakdownFromItems groups non-cancelled items by supplier, ordered by
// supplier id for stable output.
func BreakdownFromItems(items []BookingItem) []SupplierBreakdown {
	bySupplier := make(map[string]*SupplierBreakdown)
	for _, item := range items {
		if item.State == ItemStateCancelled {
			continue
		}
		entry, ok := bySupplier[item.SupplierID]
		if !ok {
			entry = &SupplierBreakdown{
				SupplierID:   item.SupplierID,
				SupplierName: item.SupplierName,
				TotalCost:    decimal.Zero,
				TotalPrice:   decimal.Zero,
				TotalMargin:  decimal.Zero,
			}
			bySupplier[item.SupplierID] = entry
		}
		entry.ItemCount++
		entry.Quantity += item.Quantity
		entry.TotalCost = entry.TotalCost.Add(item.LineCost())
		entry.TotalPrice = entry.TotalPrice.Add(item.LinePrice())
		entry.TotalMargin = entry.TotalMargin.Add(item.LineMargin())
	}

	out := make([]SupplierBreakdown, 0, len(bySupplier))
	for _, entry := range bySupplier {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SupplierID < out[j].SupplierID
	})
	return out
}
