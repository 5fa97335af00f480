package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RateRepository struct {
	pool *pgxpool.Pool
}

func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

func (r *RateRepository) ListMasterRatePlans(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.RatePlan, error) {
	const query = `
SELECT id, org_id, product_variant_id, supplier_id, valid_from, valid_to,
       priority, preferred, auto_select, inventory_model, currency, price
FROM rate_plans
WHERE org_id = $1 AND product_variant_id = $2
  AND supplier_id IS NULL AND preferred
  AND valid_from <= $4 AND valid_to >= $3
ORDER BY priority DESC, valid_from DESC, id`

	rows, err := r.query(ctx, query, orgID, variantID, from, to)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list master rate plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.RatePlan
	for rows.Next() {
		var p domain.RatePlan
		if err := rows.Scan(
			&p.ID, &p.OrgID, &p.ProductVariantID, &p.SupplierID,
			&p.ValidFrom, &p.ValidTo, &p.Priority, &p.Preferred,
			&p.AutoSelect, &p.InventoryModel, &p.Currency, &p.Price,
		); err != nil {
			return nil, fmt.Errorf("scan rate plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list master rate plans: %w", err)
	}
	return plans, nil
}

func (r *RateRepository) ListSupplierRates(ctx context.Context, orgID, variantID string, date time.Time) ([]domain.SupplierRate, error) {
	const query = `
SELECT id, supplier_id, price, currency, priority, auto_select
FROM rate_plans
WHERE org_id = $1 AND product_variant_id = $2
  AND supplier_id IS NOT NULL
  AND valid_from <= $3 AND valid_to >= $3
ORDER BY priority DESC, price ASC, supplier_id ASC`

	rows, err := r.query(ctx, query, orgID, variantID, date)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list supplier rates: %w", err)
	}
	defer rows.Close()

	var rates []domain.SupplierRate
	for rows.Next() {
		var sr domain.SupplierRate
		if err := rows.Scan(
			&sr.RatePlanID, &sr.SupplierID, &sr.UnitCost,
			&sr.Currency, &sr.Priority, &sr.AutoSelect,
		); err != nil {
			return nil, fmt.Errorf("scan supplier rate: %w", err)
		}
		rates = append(rates, sr)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list supplier rates: %w", err)
	}
	return rates, nil
}

func (r *RateRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
