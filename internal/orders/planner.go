package orders

import (
	"sort"

	"github.com/ariefcatur/go-bengkel-orders/internal/inventory"
)

// ServiceInput is one requested service line with the parts it consumes.
type ServiceInput struct {
	ServiceID  string
	PriceCents int64
	Products   []ProductInput
}

// ProductInput is one requested part draw. StockBatchID may be empty, in
// which case the oldest batches with stock are chosen.
type ProductInput struct {
	ProductID    string
	StockBatchID string
	PriceCents   int64
	Quantity     int
}

// FlattenDemand sums every batch-quantity across every service line into a
// per-product total. Sufficiency is always judged per product, not per line.
func FlattenDemand(services []ServiceInput) map[string]int {
	demand := make(map[string]int)
	for _, s := range services {
		for _, p := range s.Products {
			demand[p.ProductID] += p.Quantity
		}
	}
	return demand
}

// ValidateDemand checks every product's total demand against availability and
// rejects the whole request when any product comes up short. Shortages are
// reported together, sorted by product, so the caller sees the complete
// picture in one round trip.
func ValidateDemand(demand, available map[string]int) error {
	var shortages []inventory.Shortage
	for productID, required := range demand {
		if avail := available[productID]; avail < required {
			shortages = append(shortages, inventory.Shortage{
				ProductID: productID, Required: required, Available: avail,
			})
		}
	}
	if len(shortages) == 0 {
		return nil
	}
	sort.Slice(shortages, func(i, j int) bool { return shortages[i].ProductID < shortages[j].ProductID })
	return &inventory.InsufficientStockError{Shortages: shortages}
}

// AllocationKey identifies one allocation entry the way the edit view round
// trips it.
type AllocationKey struct {
	ServiceID    string
	ProductID    string
	StockBatchID string
}

// BuildAllocation collapses product lines into quantity per key.
func BuildAllocation(lines []OrderProduct) map[AllocationKey]int {
	alloc := make(map[AllocationKey]int, len(lines))
	for _, l := range lines {
		alloc[AllocationKey{l.ServiceID, l.ProductID, l.StockBatchID}] += l.Quantity
	}
	return alloc
}

// BatchDelta is one net ledger mutation: positive restores quantity to the
// batch, negative deducts from it.
type BatchDelta struct {
	BatchID string
	Delta   int
}

// PlanReconciliation turns an edit (replace old lines with new ones) into the
// minimal per-batch mutations: restore everything the old allocation held,
// deduct everything the new one asks for, merged per batch. An unchanged
// composition therefore yields no mutations at all. Deltas come back sorted
// by batch id so concurrent edits touch rows in a stable order.
func PlanReconciliation(oldLines, newLines []OrderProduct) []BatchDelta {
	net := make(map[string]int)
	for k, qty := range BuildAllocation(oldLines) {
		net[k.StockBatchID] += qty
	}
	for k, qty := range BuildAllocation(newLines) {
		net[k.StockBatchID] -= qty
	}

	out := make([]BatchDelta, 0, len(net))
	for batchID, d := range net {
		if d == 0 {
			continue
		}
		out = append(out, BatchDelta{BatchID: batchID, Delta: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchID < out[j].BatchID })
	return out
}
