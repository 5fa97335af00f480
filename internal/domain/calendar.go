package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CalendarStatus string

const (
	CalendarStatusStopSell     CalendarStatus = "stop_sell"
	CalendarStatusBlackout     CalendarStatus = "blackout"
	CalendarStatusSoldOut      CalendarStatus = "sold_out"
	CalendarStatusLowInventory CalendarStatus = "low_inventory"
	CalendarStatusAvailable    CalendarStatus = "available"
)

// RecommendedSupplier is the highest-priority sellable supplier with
// remaining availability for a calendar day.
type RecommendedSupplier struct {
	SupplierID   string
	SupplierName string
	UnitCost     decimal.Decimal
	Priority     int
	Available    int
}

// CalendarEntry aggregates all allocation records for one variant/date across
// suppliers.
type CalendarEntry struct {
	Date                time.Time
	TotalQuantity       int
	TotalBooked         int
	TotalAvailable      int
	Status              CalendarStatus
	RecommendedSupplier *RecommendedSupplier
}

// AvailabilitySummary is a reporting rollup over a date range. It never gates
// booking.
type AvailabilitySummary struct {
	From             time.Time
	To               time.Time
	Days             int
	AvailableDays    int
	LowInventoryDays int
	SoldOutDays      int
	StopSellDays     int
	BlackoutDays     int
	TotalQuantity    int
	TotalBooked      int
	TotalAvailable   int
	AverageMargin    decimal.Decimal
	Currency         string
}
