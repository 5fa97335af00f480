package domain

import "github.com/shopspring/decimal"

// SupplierCandidate joins an allocation record with the supplier's current
// rate plan, when one exists. Candidates are the selector's raw input.
type SupplierCandidate struct {
	Allocation AllocationRecord
	Rate       *SupplierRate
}

// Priority is the candidate's selection priority; candidates without a rate
// plan rank at zero.
func (c SupplierCandidate) Priority() int {
	if c.Rate != nil {
		return c.Rate.Priority
	}
	return 0
}

// AutoSelectable reports whether the supplier participates in automatic
// selection. Only an explicit opt-out on the rate plan excludes it.
func (c SupplierCandidate) AutoSelectable() bool {
	return c.Rate == nil || c.Rate.AutoSelect == nil || *c.Rate.AutoSelect
}

// SupplierSelection is the selector's output: the single supplier chosen to
// fulfill a request. It is transient and must be recomputed inside the commit
// transaction rather than reused from an earlier dry run.
type SupplierSelection struct {
	SupplierID      string
	SupplierName    string
	AllocationID    string
	InventoryPoolID *string
	UnitCost        decimal.Decimal
	SellingPrice    decimal.Decimal
	Margin          decimal.Decimal
	Currency        string
	Available       int
	Priority        int
}
