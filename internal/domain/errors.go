package domain

import "errors"

var (
	ErrNoMasterRate        = errors.New("no master rate for variant and date")
	ErrNoSupplierAvailable = errors.New("no supplier available")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrTransactionConflict = errors.New("transaction conflict")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrAlreadyCancelled    = errors.New("booking already cancelled")
	ErrAllocationNotFound  = errors.New("allocation not found")
	ErrPoolNotFound        = errors.New("inventory pool not found")
	ErrReferenceConflict   = errors.New("booking reference conflict")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrNoItems             = errors.New("booking has no items")
	ErrOrgRequired         = errors.New("org id required")
	ErrInvalidID           = errors.New("invalid id")
)
