package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-bengkel-orders/internal/postgres"
)

// Ledger owns every mutation of stock_batches. All writes go through
// Deduct/DeductFromBatch/Restore; nothing else touches quantity_on_hand.
type Ledger struct{ DB *pgxpool.Pool }

const batchColumns = `id, product_id, supplier, quantity_on_hand, unit_cost_cents, selling_cents, created_at`

func scanBatch(row pgx.Row, b *StockBatch) error {
	return row.Scan(&b.ID, &b.ProductID, &b.Supplier, &b.QuantityOnHand, &b.UnitCostCents, &b.SellingCents, &b.CreatedAt)
}

// AvailableQuantity sums quantity_on_hand across every batch of a product.
func (l *Ledger) AvailableQuantity(ctx context.Context, productID string) (int, error) {
	var n int
	err := l.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_on_hand), 0) FROM stock_batches
		WHERE product_id = $1`, productID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("available quantity: %w", err)
	}
	return n, nil
}

func (l *Ledger) FindBatchesByProduct(ctx context.Context, productID string) ([]StockBatch, error) {
	rows, err := l.DB.Query(ctx, `
		SELECT `+batchColumns+` FROM stock_batches
		WHERE product_id = $1 ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StockBatch
	for rows.Next() {
		var b StockBatch
		if err := scanBatch(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (l *Ledger) FindBatchByID(ctx context.Context, id string) (*StockBatch, error) {
	var b StockBatch
	err := scanBatch(l.DB.QueryRow(ctx, `
		SELECT `+batchColumns+` FROM stock_batches WHERE id = $1`, id), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBatch registers a new inbound lot.
func (l *Ledger) CreateBatch(ctx context.Context, b *StockBatch) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return l.DB.QueryRow(ctx, `
		INSERT INTO stock_batches (id, product_id, supplier, quantity_on_hand, unit_cost_cents, selling_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		b.ID, b.ProductID, b.Supplier, b.QuantityOnHand, b.UnitCostCents, b.SellingCents,
	).Scan(&b.CreatedAt)
}

// BatchesForUpdate locks a product's batches (oldest first) for the rest of
// the transaction. Allocation always goes through here so two operations
// touching the same product serialize on the row locks.
func (l *Ledger) BatchesForUpdate(ctx context.Context, q postgres.Querier, productID string) ([]StockBatch, error) {
	rows, err := q.Query(ctx, `
		SELECT `+batchColumns+` FROM stock_batches
		WHERE product_id = $1 ORDER BY created_at, id
		FOR UPDATE`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StockBatch
	for rows.Next() {
		var b StockBatch
		if err := scanBatch(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Deduct takes qty from a product's batches oldest-first. Callers must have
// verified aggregate sufficiency first: when the batches run out the walk
// simply stops, leaving the tail of the demand unapplied.
func (l *Ledger) Deduct(ctx context.Context, q postgres.Querier, productID string, qty int) error {
	batches, err := l.BatchesForUpdate(ctx, q, productID)
	if err != nil {
		return err
	}
	draws, _ := PlanDeduction(batches, qty)
	for _, d := range draws {
		if err := l.applyDeduct(ctx, q, d.BatchID, d.Qty); err != nil {
			return err
		}
	}
	return nil
}

// DeductFromBatch takes qty from one explicit batch and fails with
// InsufficientStockError when the batch cannot cover it.
func (l *Ledger) DeductFromBatch(ctx context.Context, q postgres.Querier, batchID string, qty int) error {
	err := l.applyDeduct(ctx, q, batchID, qty)
	if !errors.Is(err, errBatchShort) {
		return err
	}

	var productID string
	var onHand int
	qerr := q.QueryRow(ctx, `
		SELECT product_id, quantity_on_hand FROM stock_batches WHERE id = $1`, batchID,
	).Scan(&productID, &onHand)
	if errors.Is(qerr, pgx.ErrNoRows) {
		return ErrBatchNotFound
	}
	if qerr != nil {
		return qerr
	}
	return &InsufficientStockError{Shortages: []Shortage{
		{ProductID: productID, Required: qty, Available: onHand},
	}}
}

// Restore puts qty back on the named batch. Used when an order's previous
// allocation is undone.
func (l *Ledger) Restore(ctx context.Context, q postgres.Querier, batchID string, qty int) error {
	ct, err := q.Exec(ctx, `
		UPDATE stock_batches SET quantity_on_hand = quantity_on_hand + $2
		WHERE id = $1`, batchID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrBatchNotFound
	}
	return nil
}

var errBatchShort = errors.New("batch short")

// applyDeduct is the single guarded write: the WHERE clause makes a negative
// quantity_on_hand impossible even if a caller got its bookkeeping wrong.
func (l *Ledger) applyDeduct(ctx context.Context, q postgres.Querier, batchID string, qty int) error {
	ct, err := q.Exec(ctx, `
		UPDATE stock_batches SET quantity_on_hand = quantity_on_hand - $2
		WHERE id = $1 AND quantity_on_hand >= $2`, batchID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return errBatchShort
	}
	return nil
}
