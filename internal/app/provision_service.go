package app

import (
	"context"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type ProvisionRepository interface {
	CreateAllocation(ctx context.Context, record domain.AllocationRecord) error
	CreatePool(ctx context.Context, pool domain.InventoryPool) error
	ListAllocations(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.AllocationRecord, error)
}

// ProvisionService creates allocation rows and shared pools. It never writes
// rate plans; those come from the contract layer.
type ProvisionService struct {
	repo ProvisionRepository
}

func NewProvisionService(repo ProvisionRepository) *ProvisionService {
	return &ProvisionService{repo: repo}
}

type ProvisionAllocationsInput struct {
	OrgID            string
	ProductVariantID string
	SupplierID       string
	SupplierName     string
	From             time.Time
	To               time.Time
	Quantity         *int // nil provisions unbounded freesale capacity
	UnitCost         decimal.Decimal
	Currency         string
	Type             domain.AllocationType
	InventoryPoolID  *string
}

// ProvisionAllocations creates one allocation row per day in [From, To].
func (s *ProvisionService) ProvisionAllocations(ctx context.Context, in ProvisionAllocationsInput) ([]domain.AllocationRecord, error) {
	if in.OrgID == "" {
		return nil, domain.ErrOrgRequired
	}
	if in.ProductVariantID == "" || in.SupplierID == "" {
		return nil, domain.ErrInvalidID
	}
	if in.To.Before(in.From) {
		return nil, domain.ErrInvalidDateRange
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	allocType := in.Type
	if allocType == "" {
		if in.Quantity == nil {
			allocType = domain.AllocationFreesale
		} else {
			allocType = domain.AllocationCommitted
		}
	}

	var records []domain.AllocationRecord
	for day := in.From; !day.After(in.To); day = day.AddDate(0, 0, 1) {
		record := domain.AllocationRecord{
			ID:               newUUID(),
			OrgID:            in.OrgID,
			ProductVariantID: in.ProductVariantID,
			SupplierID:       in.SupplierID,
			SupplierName:     in.SupplierName,
			Date:             day,
			Quantity:         in.Quantity,
			UnitCost:         in.UnitCost,
			Currency:         in.Currency,
			Type:             allocType,
			InventoryPoolID:  in.InventoryPoolID,
		}
		if err := s.repo.CreateAllocation(ctx, record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

type CreatePoolInput struct {
	OrgID    string
	Name     string
	Quantity int
}

func (s *ProvisionService) CreatePool(ctx context.Context, in CreatePoolInput) (domain.InventoryPool, error) {
	if in.OrgID == "" {
		return domain.InventoryPool{}, domain.ErrOrgRequired
	}
	if in.Quantity <= 0 {
		return domain.InventoryPool{}, domain.ErrInvalidQuantity
	}

	pool := domain.InventoryPool{
		ID:       newUUID(),
		OrgID:    in.OrgID,
		Name:     in.Name,
		Quantity: in.Quantity,
	}
	if err := s.repo.CreatePool(ctx, pool); err != nil {
		return domain.InventoryPool{}, err
	}
	return pool, nil
}

func (s *ProvisionService) ListAllocations(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.AllocationRecord, error) {
	if orgID == "" {
		return nil, domain.ErrOrgRequired
	}
	if to.Before(from) {
		return nil, domain.ErrInvalidDateRange
	}
	return s.repo.ListAllocations(ctx, orgID, variantID, from, to)
}
