package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-bengkel-orders/internal/postgres"
)

// Repo holds the row-level SQL for orders and their line items. Transaction
// boundaries belong to the orchestrator; every write here takes the caller's
// Querier.
type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, customer_id, car_make, car_type, car_year, plate_number, odometer,
	receive_date, warranty_end, completed, discount_cents, sub_total_cents, total_cents,
	created_at, updated_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.CustomerID, &o.CarMake, &o.CarType, &o.CarYear, &o.PlateNumber,
		&o.Odometer, &o.ReceiveDate, &o.WarrantyEnd, &o.Completed, &o.DiscountCents,
		&o.SubTotalCents, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
}

func (r *Repo) InsertOrder(ctx context.Context, q postgres.Querier, o *Order) error {
	return q.QueryRow(ctx, `
		INSERT INTO orders (id, customer_id, car_make, car_type, car_year, plate_number,
			odometer, receive_date, warranty_end, discount_cents, sub_total_cents, total_cents)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		o.ID, o.CustomerID, o.CarMake, o.CarType, o.CarYear, o.PlateNumber,
		o.Odometer, o.ReceiveDate, o.WarrantyEnd, o.DiscountCents, o.SubTotalCents, o.TotalCents,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
}

// GetForUpdate locks the order row for the rest of the transaction. This is
// the per-order lock that serializes concurrent edits of the same order.
func (r *Repo) GetForUpdate(ctx context.Context, q postgres.Querier, orderID string) (*Order, error) {
	var o Order
	err := scanOrder(q.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateHeader persists car details, discount and the recomputed totals.
func (r *Repo) UpdateHeader(ctx context.Context, q postgres.Querier, o *Order) error {
	ct, err := q.Exec(ctx, `
		UPDATE orders SET car_make=$2, car_type=$3, car_year=$4, plate_number=$5, odometer=$6,
			receive_date=$7, warranty_end=$8, discount_cents=$9, sub_total_cents=$10,
			total_cents=$11, updated_at=now()
		WHERE id=$1`,
		o.ID, o.CarMake, o.CarType, o.CarYear, o.PlateNumber, o.Odometer,
		o.ReceiveDate, o.WarrantyEnd, o.DiscountCents, o.SubTotalCents, o.TotalCents)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repo) UpdateTotals(ctx context.Context, q postgres.Querier, orderID string, subTotal, total int64) error {
	_, err := q.Exec(ctx, `
		UPDATE orders SET sub_total_cents=$2, total_cents=$3, updated_at=now()
		WHERE id=$1`, orderID, subTotal, total)
	return err
}

func (r *Repo) SetCompleted(ctx context.Context, q postgres.Querier, orderID string) error {
	_, err := q.Exec(ctx, `
		UPDATE orders SET completed=true, updated_at=now() WHERE id=$1`, orderID)
	return err
}

func (r *Repo) InsertServiceLines(ctx context.Context, q postgres.Querier, lines []OrderService) error {
	for i := range lines {
		if lines[i].ID == "" {
			lines[i].ID = uuid.NewString()
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO order_services (id, order_id, service_id, price_cents)
			VALUES ($1,$2,$3,$4)`,
			lines[i].ID, lines[i].OrderID, lines[i].ServiceID, lines[i].PriceCents); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) InsertProductLines(ctx context.Context, q postgres.Querier, lines []OrderProduct) error {
	for _, l := range lines {
		if _, err := q.Exec(ctx, `
			INSERT INTO order_products (order_id, service_id, product_id, stock_batch_id, price_cents, quantity)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			l.OrderID, l.ServiceID, l.ProductID, l.StockBatchID, l.PriceCents, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) InsertMechanics(ctx context.Context, q postgres.Querier, orderID string, mechanicIDs []string) error {
	for _, id := range mechanicIDs {
		if _, err := q.Exec(ctx, `
			INSERT INTO order_mechanics (order_id, mechanic_id) VALUES ($1,$2)
			ON CONFLICT (order_id, mechanic_id) DO NOTHING`, orderID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) InsertPayment(ctx context.Context, q postgres.Querier, p *OrderPayment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return q.QueryRow(ctx, `
		INSERT INTO order_payments (id, order_id, type, amount_cents, reference)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING paid_at`,
		p.ID, p.OrderID, p.Type, p.AmountCents, p.Reference).Scan(&p.PaidAt)
}

// DeleteComposition clears every service/product/mechanic line. The edit path
// replaces the whole composition rather than patching it.
func (r *Repo) DeleteComposition(ctx context.Context, q postgres.Querier, orderID string) error {
	for _, stmt := range []string{
		`DELETE FROM order_products WHERE order_id=$1`,
		`DELETE FROM order_services WHERE order_id=$1`,
		`DELETE FROM order_mechanics WHERE order_id=$1`,
	} {
		if _, err := q.Exec(ctx, stmt, orderID); err != nil {
			return err
		}
	}
	return nil
}

// ProductLines returns the persisted allocation of an order.
func (r *Repo) ProductLines(ctx context.Context, q postgres.Querier, orderID string) ([]OrderProduct, error) {
	rows, err := q.Query(ctx, `
		SELECT order_id, service_id, product_id, stock_batch_id, price_cents, quantity
		FROM order_products WHERE order_id=$1
		ORDER BY service_id, product_id, stock_batch_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderProduct
	for rows.Next() {
		var l OrderProduct
		if err := rows.Scan(&l.OrderID, &l.ServiceID, &l.ProductID, &l.StockBatchID, &l.PriceCents, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) serviceLines(ctx context.Context, q postgres.Querier, orderID string) ([]OrderService, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, service_id, price_cents FROM order_services
		WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderService
	for rows.Next() {
		var l OrderService
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ServiceID, &l.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) payments(ctx context.Context, q postgres.Querier, orderID string) ([]OrderPayment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, type, amount_cents, reference, paid_at FROM order_payments
		WHERE order_id=$1 ORDER BY paid_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderPayment
	for rows.Next() {
		var p OrderPayment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Type, &p.AmountCents, &p.Reference, &p.PaidAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) mechanics(ctx context.Context, q postgres.Querier, orderID string) ([]OrderMechanic, error) {
	rows, err := q.Query(ctx, `
		SELECT order_id, mechanic_id FROM order_mechanics
		WHERE order_id=$1 ORDER BY mechanic_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderMechanic
	for rows.Next() {
		var m OrderMechanic
		if err := rows.Scan(&m.OrderID, &m.MechanicID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoadAggregate reads the order with all its lines through the given Querier,
// so the orchestrator can reload inside the mutating transaction.
func (r *Repo) LoadAggregate(ctx context.Context, q postgres.Querier, orderID string) (*Order, error) {
	var o Order
	err := scanOrder(q.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Services, err = r.serviceLines(ctx, q, orderID); err != nil {
		return nil, err
	}
	if o.Products, err = r.ProductLines(ctx, q, orderID); err != nil {
		return nil, err
	}
	if o.Payments, err = r.payments(ctx, q, orderID); err != nil {
		return nil, err
	}
	if o.Mechanics, err = r.mechanics(ctx, q, orderID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return r.LoadAggregate(ctx, r.DB, orderID)
}

// OrderFilter is a typed filter: only explicitly set fields reach the WHERE
// clause, compiled to parameterized SQL.
type OrderFilter struct {
	CustomerID *string
	Completed  *bool
	Limit      int
	Offset     int
}

func (r *Repo) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	where := []string{"true"}
	args := []any{}
	if f.CustomerID != nil {
		args = append(args, *f.CustomerID)
		where = append(where, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if f.Completed != nil {
		args = append(args, *f.Completed)
		where = append(where, fmt.Sprintf("completed=$%d", len(args)))
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	rows, err := r.DB.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// MissingProducts reports requested product ids with no product row. The
// allocation paths reject unknown products before touching the ledger.
func (r *Repo) MissingProducts(ctx context.Context, q postgres.Querier, ids []string) ([]string, error) {
	return r.missingIDs(ctx, q, `SELECT id FROM products WHERE id = ANY($1)`, ids)
}

func (r *Repo) MissingServices(ctx context.Context, q postgres.Querier, ids []string) ([]string, error) {
	return r.missingIDs(ctx, q, `SELECT id FROM services WHERE id = ANY($1)`, ids)
}

func (r *Repo) missingIDs(ctx context.Context, q postgres.Querier, sql string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, sql, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// ServiceNames and ProductNames are the read-only lookups that enrich the
// edit view with display fields.
func (r *Repo) ServiceNames(ctx context.Context, ids []string) (map[string]string, error) {
	return r.names(ctx, `SELECT id, name FROM services WHERE id = ANY($1)`, ids)
}

func (r *Repo) ProductNames(ctx context.Context, ids []string) (map[string]string, error) {
	return r.names(ctx, `SELECT id, name FROM products WHERE id = ANY($1)`, ids)
}

func (r *Repo) names(ctx context.Context, sql string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, sql, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}
