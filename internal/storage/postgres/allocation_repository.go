package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AllocationRepository struct {
	pool *pgxpool.Pool
}

func NewAllocationRepository(pool *pgxpool.Pool) *AllocationRepository {
	return &AllocationRepository{pool: pool}
}

func (r *AllocationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// candidateQuery joins each allocation with its pool counters (when pooled)
// and the supplier's winning rate plan for the service date (when priced).
const candidateQuery = `
SELECT a.id, a.org_id, a.product_variant_id, a.supplier_id, a.supplier_name, a.service_date,
       CASE WHEN a.inventory_pool_id IS NULL THEN a.quantity ELSE ip.quantity END,
       CASE WHEN a.inventory_pool_id IS NULL THEN a.booked ELSE ip.booked END,
       CASE WHEN a.inventory_pool_id IS NULL THEN a.held ELSE ip.held END,
       a.unit_cost, a.currency, a.stop_sell, a.blackout, a.allocation_type, a.inventory_pool_id,
       rp.id, rp.supplier_id, rp.price, rp.currency, rp.priority, rp.auto_select
FROM allocations a
LEFT JOIN inventory_pools ip
  ON ip.id = a.inventory_pool_id AND ip.org_id = a.org_id
LEFT JOIN LATERAL (
	SELECT id, supplier_id, price, currency, priority, auto_select
	FROM rate_plans
	WHERE org_id = a.org_id
	  AND product_variant_id = a.product_variant_id
	  AND supplier_id = a.supplier_id
	  AND valid_from <= a.service_date AND valid_to >= a.service_date
	ORDER BY priority DESC, price ASC
	LIMIT 1
) rp ON TRUE
WHERE a.org_id = $1 AND a.product_variant_id = $2`

func (r *AllocationRepository) ListCandidates(ctx context.Context, orgID, variantID string, date time.Time) ([]domain.SupplierCandidate, error) {
	query := candidateQuery + `
  AND a.service_date = $3
ORDER BY a.supplier_id`
	return r.scanCandidates(ctx, query, orgID, variantID, date)
}

func (r *AllocationRepository) ListCandidatesRange(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.SupplierCandidate, error) {
	query := candidateQuery + `
  AND a.service_date BETWEEN $3 AND $4
ORDER BY a.service_date, a.supplier_id`
	return r.scanCandidates(ctx, query, orgID, variantID, from, to)
}

func (r *AllocationRepository) scanCandidates(ctx context.Context, query string, args ...any) ([]domain.SupplierCandidate, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.SupplierCandidate
	for rows.Next() {
		var (
			c          domain.SupplierCandidate
			ratePlanID *string
			rate       domain.SupplierRate
			supplierID *string
		)
		if err := rows.Scan(
			&c.Allocation.ID, &c.Allocation.OrgID, &c.Allocation.ProductVariantID,
			&c.Allocation.SupplierID, &c.Allocation.SupplierName, &c.Allocation.Date,
			&c.Allocation.Quantity, &c.Allocation.Booked, &c.Allocation.Held,
			&c.Allocation.UnitCost, &c.Allocation.Currency,
			&c.Allocation.StopSell, &c.Allocation.Blackout,
			&c.Allocation.Type, &c.Allocation.InventoryPoolID,
			&ratePlanID, &supplierID, &rate.UnitCost, &rate.Currency, &rate.Priority, &rate.AutoSelect,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if ratePlanID != nil {
			rate.RatePlanID = *ratePlanID
			if supplierID != nil {
				rate.SupplierID = *supplierID
			}
			c.Rate = &rate
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return candidates, nil
}

// ReserveCapacity increments booked only when the capacity invariant still
// holds at mutation time. Zero rows affected means a concurrent booking won
// the race: domain.ErrCapacityExceeded.
func (r *AllocationRepository) ReserveCapacity(ctx context.Context, orgID, allocationID string, poolID *string, quantity int) (int, error) {
	if poolID != nil {
		const stmt = `
UPDATE inventory_pools
SET booked = booked + $3
WHERE id = $1 AND org_id = $2 AND booked + held + $3 <= quantity
RETURNING booked`
		return r.mutateCounter(ctx, stmt, *poolID, orgID, quantity, domain.ErrCapacityExceeded)
	}

	const stmt = `
UPDATE allocations
SET booked = booked + $3
WHERE id = $1 AND org_id = $2
  AND (quantity IS NULL OR booked + held + $3 <= quantity)
RETURNING booked`
	return r.mutateCounter(ctx, stmt, allocationID, orgID, quantity, domain.ErrCapacityExceeded)
}

// ReleaseCapacity decrements booked, flooring at zero even under data drift.
// Returns the booked count before and after the decrement; when the floor
// applies the two differ by less than quantity.
func (r *AllocationRepository) ReleaseCapacity(ctx context.Context, orgID, allocationID string, poolID *string, quantity int) (int, int, error) {
	if poolID != nil {
		const stmt = `
UPDATE inventory_pools ip
SET booked = GREATEST(ip.booked - $3, 0)
FROM (SELECT id, booked FROM inventory_pools WHERE id = $1 AND org_id = $2 FOR UPDATE) prev
WHERE ip.id = prev.id
RETURNING prev.booked, ip.booked`
		return r.releaseCounter(ctx, stmt, *poolID, orgID, quantity, domain.ErrPoolNotFound)
	}

	const stmt = `
UPDATE allocations a
SET booked = GREATEST(a.booked - $3, 0)
FROM (SELECT id, booked FROM allocations WHERE id = $1 AND org_id = $2 FOR UPDATE) prev
WHERE a.id = prev.id
RETURNING prev.booked, a.booked`
	return r.releaseCounter(ctx, stmt, allocationID, orgID, quantity, domain.ErrAllocationNotFound)
}

func (r *AllocationRepository) mutateCounter(ctx context.Context, stmt, id, orgID string, quantity int, zeroRowsErr error) (int, error) {
	var booked int
	err := r.queryRow(ctx, stmt, id, orgID, quantity).Scan(&booked)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, zeroRowsErr
		}
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("mutate capacity: %w", err)
	}
	return booked, nil
}

func (r *AllocationRepository) releaseCounter(ctx context.Context, stmt, id, orgID string, quantity int, zeroRowsErr error) (int, int, error) {
	var before, after int
	err := r.queryRow(ctx, stmt, id, orgID, quantity).Scan(&before, &after)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, 0, zeroRowsErr
		}
		if isInvalidUUID(err) {
			return 0, 0, domain.ErrInvalidID
		}
		return 0, 0, fmt.Errorf("mutate capacity: %w", err)
	}
	return before, after, nil
}

func (r *AllocationRepository) CreateAllocation(ctx context.Context, a domain.AllocationRecord) error {
	const stmt = `
INSERT INTO allocations (
	id, org_id, product_variant_id, supplier_id, supplier_name, service_date,
	quantity, booked, held, unit_cost, currency, stop_sell, blackout,
	allocation_type, inventory_pool_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.exec(ctx, stmt,
		a.ID, a.OrgID, a.ProductVariantID, a.SupplierID, a.SupplierName, a.Date,
		a.Quantity, a.Booked, a.Held, a.UnitCost, a.Currency, a.StopSell, a.Blackout,
		a.Type, a.InventoryPoolID,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create allocation: %w", err)
	}
	return nil
}

func (r *AllocationRepository) CreatePool(ctx context.Context, p domain.InventoryPool) error {
	const stmt = `
INSERT INTO inventory_pools (id, org_id, name, quantity, booked, held)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, p.ID, p.OrgID, p.Name, p.Quantity, p.Booked, p.Held)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create pool: %w", err)
	}
	return nil
}

func (r *AllocationRepository) ListAllocations(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.AllocationRecord, error) {
	const query = `
SELECT id, org_id, product_variant_id, supplier_id, supplier_name, service_date,
       quantity, booked, held, unit_cost, currency, stop_sell, blackout,
       allocation_type, inventory_pool_id
FROM allocations
WHERE org_id = $1 AND product_variant_id = $2 AND service_date BETWEEN $3 AND $4
ORDER BY service_date, supplier_id`

	rows, err := r.query(ctx, query, orgID, variantID, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var records []domain.AllocationRecord
	for rows.Next() {
		var a domain.AllocationRecord
		if err := rows.Scan(
			&a.ID, &a.OrgID, &a.ProductVariantID, &a.SupplierID, &a.SupplierName, &a.Date,
			&a.Quantity, &a.Booked, &a.Held, &a.UnitCost, &a.Currency, &a.StopSell, &a.Blackout,
			&a.Type, &a.InventoryPoolID,
		); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return records, nil
}

func (r *AllocationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *AllocationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *AllocationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
