package inventory

// Draw is one planned deduction against a single batch.
type Draw struct {
	BatchID string
	Qty     int
}

// PlanDeduction walks batches in the order given (callers load them oldest
// first) and plans per-batch draws until qty is satisfied. It never plans a
// draw beyond a batch's quantity on hand. remaining > 0 means the batches
// cannot cover the demand; callers wanting all-or-nothing must check
// availability before applying the plan.
func PlanDeduction(batches []StockBatch, qty int) (draws []Draw, remaining int) {
	remaining = qty
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.QuantityOnHand <= 0 {
			continue
		}
		take := b.QuantityOnHand
		if remaining < take {
			take = remaining
		}
		draws = append(draws, Draw{BatchID: b.ID, Qty: take})
		remaining -= take
	}
	return draws, remaining
}
