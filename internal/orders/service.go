package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bengkel-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-bengkel-orders/internal/kafka"
	"github.com/ariefcatur/go-bengkel-orders/internal/postgres"
	"github.com/ariefcatur/go-bengkel-orders/internal/redisx"
)

// Service orchestrates the order use cases. Every mutating operation runs as
// ONE database transaction: the order row is locked first, then the touched
// batch rows, so concurrent edits of the same order serialize and a failure
// at any step rolls everything back, ledger included.
type Service struct {
	DB       *pgxpool.Pool
	Repo     *Repo
	Ledger   *inventory.Ledger
	Redis    *redis.Client
	Producer *kafkax.Producer
	Name     string
	Log      *zap.Logger
}

type CreateOrderInput struct {
	CustomerID    string
	CarMake       string
	CarType       string
	CarYear       int
	PlateNumber   string
	Odometer      int
	ReceiveDate   time.Time
	WarrantyEnd   time.Time
	DiscountCents int64
	Services      []ServiceInput
	Mechanics     []string
	Payment       *PaymentInput
}

type UpdateOrderInput struct {
	CarMake       string
	CarType       string
	CarYear       int
	PlateNumber   string
	Odometer      int
	ReceiveDate   time.Time
	WarrantyEnd   time.Time
	DiscountCents int64
	Services      []ServiceInput
	Mechanics     []string
}

type PaymentInput struct {
	Type        PaymentType
	AmountCents int64
	Reference   string
}

// CreateOrder validates sufficiency for the whole composition, persists the
// order with its lines and deducts stock FIFO per product — all or nothing.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if in.CustomerID == "" {
		return nil, &ValidationError{Field: "customer_id", Reason: "required"}
	}
	if err := validateServices(in.Services); err != nil {
		return nil, err
	}
	if in.DiscountCents < 0 {
		return nil, &ValidationError{Field: "discount", Reason: "must not be negative"}
	}
	if in.Payment != nil {
		if err := in.Payment.validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	demand := FlattenDemand(in.Services)
	productIDs := sortedKeys(demand)
	if err := s.checkReferences(ctx, tx, in.Services, productIDs); err != nil {
		return nil, err
	}

	batches, avail, err := s.lockAvailability(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}
	if err := ValidateDemand(demand, avail); err != nil {
		return nil, err
	}

	o := &Order{
		ID:            uuid.NewString(),
		CustomerID:    in.CustomerID,
		CarMake:       in.CarMake,
		CarType:       in.CarType,
		CarYear:       in.CarYear,
		PlateNumber:   in.PlateNumber,
		Odometer:      in.Odometer,
		ReceiveDate:   in.ReceiveDate,
		WarrantyEnd:   in.WarrantyEnd,
		DiscountCents: in.DiscountCents,
	}
	o.Services, o.Products, err = expandLines(o.ID, in.Services, batches)
	if err != nil {
		return nil, err
	}
	o.Recalculate()

	if err := s.Repo.InsertOrder(ctx, tx, o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	if err := s.Repo.InsertServiceLines(ctx, tx, o.Services); err != nil {
		return nil, fmt.Errorf("insert service lines: %w", err)
	}
	if err := s.Repo.InsertProductLines(ctx, tx, o.Products); err != nil {
		return nil, fmt.Errorf("insert product lines: %w", err)
	}
	if err := s.Repo.InsertMechanics(ctx, tx, o.ID, in.Mechanics); err != nil {
		return nil, fmt.Errorf("insert mechanics: %w", err)
	}
	if in.Payment != nil {
		p := &OrderPayment{OrderID: o.ID, Type: in.Payment.Type, AmountCents: in.Payment.AmountCents, Reference: in.Payment.Reference}
		if err := s.Repo.InsertPayment(ctx, tx, p); err != nil {
			return nil, fmt.Errorf("insert payment: %w", err)
		}
		o.Payments = append(o.Payments, *p)
	}

	// Deduction is aggregate FIFO per product; the batch id on a line is the
	// edit view's bookkeeping, not the create-path deduction mechanism.
	for _, pid := range productIDs {
		if err := s.Ledger.Deduct(ctx, tx, pid, demand[pid]); err != nil {
			return nil, fmt.Errorf("deduct %s: %w", pid, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.invalidateView(ctx, o.ID)
	s.publish(ctx, TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		PlateNumber:   o.PlateNumber,
		ServiceCount:  len(o.Services),
		SubTotalCents: o.SubTotalCents,
		TotalCents:    o.TotalCents,
	})
	s.Log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
		zap.Int64("total_cents", o.TotalCents))
	return o, nil
}

// AddServices appends service lines to an existing order. Existing lines are
// untouched; only the new demand is checked against current availability.
func (s *Service) AddServices(ctx context.Context, orderID string, services []ServiceInput) error {
	if len(services) == 0 {
		return &ValidationError{Field: "services", Reason: "must not be empty"}
	}
	if err := validateServices(services); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	o, err := s.Repo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if err := o.EnsureMutable(); err != nil {
		return err
	}

	demand := FlattenDemand(services)
	productIDs := sortedKeys(demand)
	if err := s.checkReferences(ctx, tx, services, productIDs); err != nil {
		return err
	}

	batches, avail, err := s.lockAvailability(ctx, tx, productIDs)
	if err != nil {
		return err
	}
	if err := ValidateDemand(demand, avail); err != nil {
		return err
	}

	svcLines, prodLines, err := expandLines(orderID, services, batches)
	if err != nil {
		return err
	}
	if err := s.Repo.InsertServiceLines(ctx, tx, svcLines); err != nil {
		return err
	}
	if err := s.Repo.InsertProductLines(ctx, tx, prodLines); err != nil {
		return err
	}
	for _, pid := range productIDs {
		if err := s.Ledger.Deduct(ctx, tx, pid, demand[pid]); err != nil {
			return fmt.Errorf("deduct %s: %w", pid, err)
		}
	}

	// totals come from the persisted lines, old and new together
	full, err := s.Repo.LoadAggregate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	full.Recalculate()
	if err := s.Repo.UpdateTotals(ctx, tx, orderID, full.SubTotalCents, full.TotalCents); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.invalidateView(ctx, orderID)
	s.publish(ctx, TopicOrderUpdated, EventOrderUpdated, orderID, OrderUpdatedPayload{
		OrderID:      orderID,
		CustomerID:   o.CustomerID,
		ServiceCount: len(full.Services),
		TotalCents:   full.TotalCents,
	})
	s.Log.Info("services added", zap.String("order_id", orderID), zap.Int("count", len(services)))
	return nil
}

// UpdateOrder replaces the whole composition. The ledger effect is the net of
// restoring the old allocation and deducting the new one, merged per batch:
// an unchanged composition mutates nothing, and since it all happens in one
// transaction a failed validation leaves no trace.
func (s *Service) UpdateOrder(ctx context.Context, orderID string, in UpdateOrderInput) (*Order, error) {
	if err := validateServices(in.Services); err != nil {
		return nil, err
	}
	if in.DiscountCents < 0 {
		return nil, &ValidationError{Field: "discount", Reason: "must not be negative"}
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := s.Repo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.EnsureMutable(); err != nil {
		return nil, err
	}

	oldLines, err := s.Repo.ProductLines(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	newDemand := FlattenDemand(in.Services)
	if err := s.checkReferences(ctx, tx, in.Services, sortedKeys(newDemand)); err != nil {
		return nil, err
	}

	// lock batches for every product the edit touches, old or new
	touched := make(map[string]bool, len(newDemand))
	for pid := range newDemand {
		touched[pid] = true
	}
	for _, l := range oldLines {
		touched[l.ProductID] = true
	}
	batches, avail, err := s.lockAvailability(ctx, tx, sortedKeys(touched))
	if err != nil {
		return nil, err
	}

	// validate against availability as if the old allocation never happened
	for _, l := range oldLines {
		avail[l.ProductID] += l.Quantity
	}
	if err := ValidateDemand(newDemand, avail); err != nil {
		return nil, err
	}

	// FIFO expansion for unpinned lines plans against post-restore quantities
	for _, l := range oldLines {
		restoreLocal(batches[l.ProductID], l.StockBatchID, l.Quantity)
	}
	svcLines, prodLines, err := expandLines(orderID, in.Services, batches)
	if err != nil {
		return nil, err
	}

	// the edit deducts per pinned batch; a batch-level overdraw fails here
	// even when the per-product aggregate passed
	for _, d := range PlanReconciliation(oldLines, prodLines) {
		if d.Delta > 0 {
			err = s.Ledger.Restore(ctx, tx, d.BatchID, d.Delta)
		} else {
			err = s.Ledger.DeductFromBatch(ctx, tx, d.BatchID, -d.Delta)
		}
		if err != nil {
			return nil, fmt.Errorf("reconcile batch %s: %w", d.BatchID, err)
		}
	}

	if err := s.Repo.DeleteComposition(ctx, tx, orderID); err != nil {
		return nil, err
	}
	if err := s.Repo.InsertServiceLines(ctx, tx, svcLines); err != nil {
		return nil, err
	}
	if err := s.Repo.InsertProductLines(ctx, tx, prodLines); err != nil {
		return nil, err
	}
	if err := s.Repo.InsertMechanics(ctx, tx, orderID, in.Mechanics); err != nil {
		return nil, err
	}

	o.CarMake = in.CarMake
	o.CarType = in.CarType
	o.CarYear = in.CarYear
	o.PlateNumber = in.PlateNumber
	o.Odometer = in.Odometer
	o.ReceiveDate = in.ReceiveDate
	o.WarrantyEnd = in.WarrantyEnd
	o.DiscountCents = in.DiscountCents
	o.Services = svcLines
	o.Products = prodLines
	o.Recalculate()
	if err := s.Repo.UpdateHeader(ctx, tx, o); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.invalidateView(ctx, orderID)
	s.publish(ctx, TopicOrderUpdated, EventOrderUpdated, orderID, OrderUpdatedPayload{
		OrderID:      orderID,
		CustomerID:   o.CustomerID,
		ServiceCount: len(svcLines),
		TotalCents:   o.TotalCents,
	})
	s.Log.Info("order updated", zap.String("order_id", orderID), zap.Int64("total_cents", o.TotalCents))
	return s.Repo.GetOrder(ctx, orderID)
}

// AddPayment records a payment. Settling the bill after completion is normal,
// so the completed gate does not apply here.
func (s *Service) AddPayment(ctx context.Context, orderID string, in PaymentInput) (*OrderPayment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := s.Repo.GetForUpdate(ctx, tx, orderID); err != nil {
		return nil, err
	}
	p := &OrderPayment{OrderID: orderID, Type: in.Type, AmountCents: in.AmountCents, Reference: in.Reference}
	if err := s.Repo.InsertPayment(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.invalidateView(ctx, orderID)
	s.publish(ctx, TopicPaymentAdded, EventPaymentAdded, orderID, PaymentAddedPayload{
		OrderID:     orderID,
		PaymentID:   p.ID,
		Type:        p.Type,
		AmountCents: p.AmountCents,
	})
	return p, nil
}

// CompleteOrder marks the order terminal. Completing twice is a no-op.
func (s *Service) CompleteOrder(ctx context.Context, orderID string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	o, err := s.Repo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if o.Completed {
		return nil
	}
	if err := s.Repo.SetCompleted(ctx, tx, orderID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.invalidateView(ctx, orderID)
	s.publish(ctx, TopicOrderCompleted, EventOrderCompleted, orderID, OrderCompletedPayload{
		OrderID:     orderID,
		CustomerID:  o.CustomerID,
		TotalCents:  o.TotalCents,
		WarrantyEnd: o.WarrantyEnd,
	})
	s.Log.Info("order completed", zap.String("order_id", orderID))
	return nil
}

// GetOrderView serves the nested edit-view projection, redis-cached.
func (s *Service) GetOrderView(ctx context.Context, orderID string) (*OrderView, error) {
	key := fmt.Sprintf(redisx.KeyOrderView, orderID)
	if s.Redis != nil {
		if b, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var v OrderView
			if err := json.Unmarshal(b, &v); err == nil {
				return &v, nil
			}
		}
	}

	o, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	svcIDs := make([]string, 0, len(o.Services))
	for _, l := range o.Services {
		svcIDs = append(svcIDs, l.ServiceID)
	}
	prodIDs := make([]string, 0, len(o.Products))
	for _, l := range o.Products {
		prodIDs = append(prodIDs, l.ProductID)
	}
	svcNames, err := s.Repo.ServiceNames(ctx, svcIDs)
	if err != nil {
		return nil, err
	}
	prodNames, err := s.Repo.ProductNames(ctx, prodIDs)
	if err != nil {
		return nil, err
	}
	v := BuildView(o, svcNames, prodNames)

	if s.Redis != nil {
		_ = s.Redis.Set(ctx, key, kafkax.MustMarshal(v), redisx.TTLOrderView).Err()
	}
	return v, nil
}

func (s *Service) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	return s.Repo.ListOrders(ctx, f)
}

// ---- helpers ----

func validateServices(services []ServiceInput) error {
	for _, svc := range services {
		if svc.ServiceID == "" {
			return &ValidationError{Field: "service_id", Reason: "required"}
		}
		if svc.PriceCents < 0 {
			return &ValidationError{Field: "price", Reason: "must not be negative"}
		}
		for _, p := range svc.Products {
			if p.ProductID == "" {
				return &ValidationError{Field: "product_id", Reason: "required"}
			}
			if p.Quantity <= 0 {
				return &ValidationError{Field: "quantity", Reason: "must be positive"}
			}
			if p.PriceCents < 0 {
				return &ValidationError{Field: "price", Reason: "must not be negative"}
			}
		}
	}
	return nil
}

func (p *PaymentInput) validate() error {
	if !p.Type.Valid() {
		return &ValidationError{Field: "payment.type", Reason: "unknown type"}
	}
	if p.AmountCents <= 0 {
		return &ValidationError{Field: "payment.amount", Reason: "must be positive"}
	}
	return nil
}

func (s *Service) checkReferences(ctx context.Context, q postgres.Querier, services []ServiceInput, productIDs []string) error {
	if missing, err := s.Repo.MissingProducts(ctx, q, productIDs); err != nil {
		return err
	} else if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, strings.Join(missing, ", "))
	}

	seen := make(map[string]bool, len(services))
	svcIDs := make([]string, 0, len(services))
	for _, svc := range services {
		if !seen[svc.ServiceID] {
			seen[svc.ServiceID] = true
			svcIDs = append(svcIDs, svc.ServiceID)
		}
	}
	if missing, err := s.Repo.MissingServices(ctx, q, svcIDs); err != nil {
		return err
	} else if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// lockAvailability locks every batch of the given products (sorted, so two
// transactions always lock in the same order) and sums what is on hand.
func (s *Service) lockAvailability(ctx context.Context, q postgres.Querier, productIDs []string) (map[string][]inventory.StockBatch, map[string]int, error) {
	batches := make(map[string][]inventory.StockBatch, len(productIDs))
	avail := make(map[string]int, len(productIDs))
	for _, pid := range productIDs {
		bs, err := s.Ledger.BatchesForUpdate(ctx, q, pid)
		if err != nil {
			return nil, nil, err
		}
		batches[pid] = bs
		for _, b := range bs {
			avail[pid] += b.QuantityOnHand
		}
	}
	return batches, avail, nil
}

// expandLines turns the submitted composition into persistable lines. Lines
// that pin a batch keep it; unpinned lines are split along the oldest-first
// plan so every persisted line carries a real batch id and the edit view
// round-trips cleanly. A pinned batch must be one of the product's own
// batches, otherwise the reconciliation deltas would mutate another
// product's stock.
func expandLines(orderID string, services []ServiceInput, batches map[string][]inventory.StockBatch) ([]OrderService, []OrderProduct, error) {
	remaining := make(map[string][]inventory.StockBatch, len(batches))
	for pid, bs := range batches {
		remaining[pid] = append([]inventory.StockBatch(nil), bs...)
	}

	var svcLines []OrderService
	var prodLines []OrderProduct
	for _, svc := range services {
		svcLines = append(svcLines, OrderService{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			ServiceID:  svc.ServiceID,
			PriceCents: svc.PriceCents,
		})
		for _, p := range svc.Products {
			if p.StockBatchID != "" {
				if !drawLocal(remaining[p.ProductID], p.StockBatchID, p.Quantity) {
					return nil, nil, fmt.Errorf("%w: batch %s does not hold product %s",
						inventory.ErrBatchNotFound, p.StockBatchID, p.ProductID)
				}
				prodLines = append(prodLines, OrderProduct{
					OrderID:      orderID,
					ServiceID:    svc.ServiceID,
					ProductID:    p.ProductID,
					StockBatchID: p.StockBatchID,
					PriceCents:   p.PriceCents,
					Quantity:     p.Quantity,
				})
				continue
			}
			// cannot trip after ValidateDemand ran over these same batches;
			// guards direct callers that skip the aggregate check
			draws, rem := inventory.PlanDeduction(remaining[p.ProductID], p.Quantity)
			if rem > 0 {
				onHand := 0
				for _, b := range remaining[p.ProductID] {
					onHand += b.QuantityOnHand
				}
				return nil, nil, &inventory.InsufficientStockError{Shortages: []inventory.Shortage{
					{ProductID: p.ProductID, Required: p.Quantity, Available: onHand},
				}}
			}
			for _, d := range draws {
				drawLocal(remaining[p.ProductID], d.BatchID, d.Qty)
				prodLines = append(prodLines, OrderProduct{
					OrderID:      orderID,
					ServiceID:    svc.ServiceID,
					ProductID:    p.ProductID,
					StockBatchID: d.BatchID,
					PriceCents:   p.PriceCents,
					Quantity:     d.Qty,
				})
			}
		}
	}
	return svcLines, prodLines, nil
}

// drawLocal reports whether the batch was found among the product's batches.
func drawLocal(bs []inventory.StockBatch, batchID string, qty int) bool {
	for i := range bs {
		if bs[i].ID == batchID {
			bs[i].QuantityOnHand -= qty
			if bs[i].QuantityOnHand < 0 {
				bs[i].QuantityOnHand = 0
			}
			return true
		}
	}
	return false
}

func restoreLocal(bs []inventory.StockBatch, batchID string, qty int) {
	for i := range bs {
		if bs[i].ID == batchID {
			bs[i].QuantityOnHand += qty
			return
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Service) invalidateView(ctx context.Context, orderID string) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderView, orderID)).Err()
}

func (s *Service) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	if s.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Producer.Publish(topic, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
