package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RatePlan is a pricing definition scoped to a product variant. A nil
// SupplierID marks the master (selling) rate; a set SupplierID marks a
// supplier cost rate. AutoSelect is a typed tri-state: nil means the supplier
// has not opted out of automatic selection.
type RatePlan struct {
	ID               string
	OrgID            string
	ProductVariantID string
	SupplierID       *string
	ValidFrom        time.Time
	ValidTo          time.Time
	Priority         int
	Preferred        bool
	AutoSelect       *bool
	InventoryModel   string
	Currency         string
	Price            decimal.Decimal
}

// ValidOn reports whether the plan's validity window contains the date.
func (p RatePlan) ValidOn(date time.Time) bool {
	return !date.Before(p.ValidFrom) && !date.After(p.ValidTo)
}

// MasterRate is the resolved selling price for a variant on a date.
type MasterRate struct {
	RatePlanID   string
	SellingPrice decimal.Decimal
	Currency     string
	Priority     int
}

// SupplierRate is one supplier's cost rate valid on a date.
type SupplierRate struct {
	RatePlanID string
	SupplierID string
	UnitCost   decimal.Decimal
	Currency   string
	Priority   int
	AutoSelect *bool
}
