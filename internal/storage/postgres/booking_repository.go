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

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// CreateBooking inserts the booking row. A duplicate (org_id, reference) is
// absorbed with ON CONFLICT rather than raised as a unique violation, which
// would abort the surrounding transaction and make a reference retry
// impossible; zero rows affected reports the collision instead.
func (r *BookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (
	id, org_id, reference, channel, currency, status,
	total_cost, total_price, total_margin, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT ON CONSTRAINT bookings_org_reference_uniq DO NOTHING`

	tag, err := r.exec(ctx, stmt,
		b.ID, b.OrgID, b.Reference, b.Channel, b.Currency, b.Status,
		b.TotalCost, b.TotalPrice, b.TotalMargin, b.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReferenceConflict
	}
	return nil
}

func (r *BookingRepository) CreateBookingItem(ctx context.Context, item domain.BookingItem) error {
	const stmt = `
INSERT INTO booking_items (
	id, org_id, booking_id, product_variant_id, supplier_id, supplier_name,
	allocation_id, inventory_pool_id, start_date, end_date,
	quantity, adults, children, unit_cost, unit_price, margin, state
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.exec(ctx, stmt,
		item.ID, item.OrgID, item.BookingID, item.ProductVariantID, item.SupplierID, item.SupplierName,
		item.AllocationID, item.InventoryPoolID, item.StartDate, item.EndDate,
		item.Quantity, item.Adults, item.Children, item.UnitCost, item.UnitPrice, item.Margin, item.State,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking item: %w", err)
	}
	return nil
}

func (r *BookingRepository) CreatePassenger(ctx context.Context, p domain.Passenger) error {
	const stmt = `
INSERT INTO passengers (id, org_id, booking_id, first_name, last_name, email, phone, lead_passenger)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt, p.ID, p.OrgID, p.BookingID, p.FirstName, p.LastName, p.Email, p.Phone, p.Lead)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create passenger: %w", err)
	}
	return nil
}

const bookingColumns = `
id, org_id, reference, channel, currency, status,
total_cost, total_price, total_margin, cancel_reason, cancelled_at, created_at`

func (r *BookingRepository) GetBooking(ctx context.Context, orgID, bookingID string) (domain.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1 AND org_id = $2`
	return r.scanBooking(r.queryRow(ctx, query, bookingID, orgID))
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, orgID, bookingID string) (domain.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1 AND org_id = $2 FOR UPDATE`
	return r.scanBooking(r.queryRow(ctx, query, bookingID, orgID))
}

func (r *BookingRepository) scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.OrgID, &b.Reference, &b.Channel, &b.Currency, &b.Status,
		&b.TotalCost, &b.TotalPrice, &b.TotalMargin, &b.CancelReason, &b.CancelledAt, &b.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) ListItems(ctx context.Context, orgID, bookingID string) ([]domain.BookingItem, error) {
	const query = `
SELECT id, org_id, booking_id, product_variant_id, supplier_id, supplier_name,
       allocation_id, inventory_pool_id, start_date, end_date,
       quantity, adults, children, unit_cost, unit_price, margin, state
FROM booking_items
WHERE booking_id = $1 AND org_id = $2
ORDER BY start_date, id`

	rows, err := r.query(ctx, query, bookingID, orgID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list booking items: %w", err)
	}
	defer rows.Close()

	var items []domain.BookingItem
	for rows.Next() {
		var item domain.BookingItem
		if err := rows.Scan(
			&item.ID, &item.OrgID, &item.BookingID, &item.ProductVariantID, &item.SupplierID, &item.SupplierName,
			&item.AllocationID, &item.InventoryPoolID, &item.StartDate, &item.EndDate,
			&item.Quantity, &item.Adults, &item.Children, &item.UnitCost, &item.UnitPrice, &item.Margin, &item.State,
		); err != nil {
			return nil, fmt.Errorf("scan booking item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list booking items: %w", err)
	}
	return items, nil
}

func (r *BookingRepository) ListPassengers(ctx context.Context, orgID, bookingID string) ([]domain.Passenger, error) {
	const query = `
SELECT id, org_id, booking_id, first_name, last_name, email, phone, lead_passenger
FROM passengers
WHERE booking_id = $1 AND org_id = $2
ORDER BY lead_passenger DESC, last_name, first_name`

	rows, err := r.query(ctx, query, bookingID, orgID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list passengers: %w", err)
	}
	defer rows.Close()

	var passengers []domain.Passenger
	for rows.Next() {
		var p domain.Passenger
		if err := rows.Scan(&p.ID, &p.OrgID, &p.BookingID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Lead); err != nil {
			return nil, fmt.Errorf("scan passenger: %w", err)
		}
		passengers = append(passengers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list passengers: %w", err)
	}
	return passengers, nil
}

func (r *BookingRepository) MarkBookingCancelled(ctx context.Context, orgID, bookingID, reason string, at time.Time) error {
	const stmt = `
UPDATE bookings
SET status = 'cancelled', cancel_reason = $3, cancelled_at = $4
WHERE id = $1 AND org_id = $2`

	tag, err := r.exec(ctx, stmt, bookingID, orgID, reason, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark booking cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) MarkItemsCancelled(ctx context.Context, orgID, bookingID string) error {
	const stmt = `UPDATE booking_items SET state = 'cancelled' WHERE booking_id = $1 AND org_id = $2`

	_, err := r.exec(ctx, stmt, bookingID, orgID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark items cancelled: %w", err)
	}
	return nil
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
