package app

import (
	"context"
	"testing"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
)

func TestProvisionService_ProvisionAllocations(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	base := ProvisionAllocationsInput{
		OrgID:            "org-1",
		ProductVariantID: "variant-1",
		SupplierID:       "sup-a",
		SupplierName:     "Supplier A",
		From:             from,
		To:               from.AddDate(0, 0, 2),
		Quantity:         intPtr(10),
		UnitCost:         price("60.00"),
		Currency:         "GBP",
	}

	t.Run("creates one allocation per day", func(t *testing.T) {
		repo := &fakeProvisionRepo{}
		svc := NewProvisionService(repo)

		records, err := svc.ProvisionAllocations(context.Background(), base)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		if len(repo.allocations) != 3 {
			t.Fatalf("expected 3 rows created, got %d", len(repo.allocations))
		}
		for i, record := range records {
			if !record.Date.Equal(from.AddDate(0, 0, i)) {
				t.Fatalf("expected day %d at %v, got %v", i, from.AddDate(0, 0, i), record.Date)
			}
			if record.ID == "" {
				t.Fatalf("expected generated id")
			}
			if record.Type != domain.AllocationCommitted {
				t.Fatalf("expected committed type for bounded quantity, got %s", record.Type)
			}
		}
	})

	t.Run("nil quantity defaults to freesale", func(t *testing.T) {
		repo := &fakeProvisionRepo{}
		svc := NewProvisionService(repo)

		in := base
		in.Quantity = nil
		in.To = in.From

		records, err := svc.ProvisionAllocations(context.Background(), in)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if records[0].Type != domain.AllocationFreesale {
			t.Fatalf("expected freesale, got %s", records[0].Type)
		}
		if records[0].Quantity != nil {
			t.Fatalf("expected unbounded quantity")
		}
	})

	t.Run("explicit type is kept", func(t *testing.T) {
		repo := &fakeProvisionRepo{}
		svc := NewProvisionService(repo)

		in := base
		in.To = in.From
		in.Type = domain.AllocationOnRequest

		records, err := svc.ProvisionAllocations(context.Background(), in)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if records[0].Type != domain.AllocationOnRequest {
			t.Fatalf("expected on_request, got %s", records[0].Type)
		}
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		svc := NewProvisionService(&fakeProvisionRepo{})

		in := base
		in.To = in.From.AddDate(0, 0, -1)

		_, err := svc.ProvisionAllocations(context.Background(), in)
		if err != domain.ErrInvalidDateRange {
			t.Fatalf("expected ErrInvalidDateRange, got %v", err)
		}
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		svc := NewProvisionService(&fakeProvisionRepo{})

		in := base
		in.Quantity = intPtr(-1)

		_, err := svc.ProvisionAllocations(context.Background(), in)
		if err != domain.ErrInvalidQuantity {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("rejects missing identifiers", func(t *testing.T) {
		svc := NewProvisionService(&fakeProvisionRepo{})

		in := base
		in.SupplierID = ""
		if _, err := svc.ProvisionAllocations(context.Background(), in); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}

		in = base
		in.OrgID = ""
		if _, err := svc.ProvisionAllocations(context.Background(), in); err != domain.ErrOrgRequired {
			t.Fatalf("expected ErrOrgRequired, got %v", err)
		}
	})
}

func TestProvisionService_CreatePool(t *testing.T) {
	t.Parallel()

	t.Run("creates pool", func(t *testing.T) {
		repo := &fakeProvisionRepo{}
		svc := NewProvisionService(repo)

		pool, err := svc.CreatePool(context.Background(), CreatePoolInput{
			OrgID:    "org-1",
			Name:     "Grandstand block",
			Quantity: 40,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pool.ID == "" {
			t.Fatalf("expected generated id")
		}
		if len(repo.pools) != 1 || repo.pools[0].Quantity != 40 {
			t.Fatalf("expected pool persisted, got %+v", repo.pools)
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc := NewProvisionService(&fakeProvisionRepo{})

		_, err := svc.CreatePool(context.Background(), CreatePoolInput{OrgID: "org-1", Quantity: 0})
		if err != domain.ErrInvalidQuantity {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("rejects missing org", func(t *testing.T) {
		svc := NewProvisionService(&fakeProvisionRepo{})

		_, err := svc.CreatePool(context.Background(), CreatePoolInput{Quantity: 5})
		if err != domain.ErrOrgRequired {
			t.Fatalf("expected ErrOrgRequired, got %v", err)
		}
	})
}

func TestProvisionService_ListAllocations(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("rejects inverted range", func(t *testing.T) {
		svc := NewProvisionService(&fakeProvisionRepo{})

		_, err := svc.ListAllocations(context.Background(), "org-1", "variant-1", from, from.AddDate(0, 0, -1))
		if err != domain.ErrInvalidDateRange {
			t.Fatalf("expected ErrInvalidDateRange, got %v", err)
		}
	})

	t.Run("passes through repository results", func(t *testing.T) {
		repo := &fakeProvisionRepo{listResult: []domain.AllocationRecord{{ID: "alloc-1"}}}
		svc := NewProvisionService(repo)

		records, err := svc.ListAllocations(context.Background(), "org-1", "variant-1", from, from)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(records) != 1 || records[0].ID != "alloc-1" {
			t.Fatalf("unexpected records: %+v", records)
		}
	})
}

type fakeProvisionRepo struct {
	allocations []domain.AllocationRecord
	pools       []domain.InventoryPool
	listResult  []domain.AllocationRecord
}

func (f *fakeProvisionRepo) CreateAllocation(_ context.Context, record domain.AllocationRecord) error {
	f.allocations = append(f.allocations, record)
	return nil
}

func (f *fakeProvisionRepo) CreatePool(_ context.Context, pool domain.InventoryPool) error {
	f.pools = append(f.pools, pool)
	return nil
}

func (f *fakeProvisionRepo) ListAllocations(_ context.Context, _, _ string, _, _ time.Time) ([]domain.AllocationRecord, error) {
	return f.listResult, nil
}
