package inventory

import "time"

// StockBatch is one inbound lot of a product. Several batches may exist per
// product (different supplier lots, different cost bases); they are depleted
// oldest-first unless a caller pins a specific batch.
type StockBatch struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	Supplier       string    `json:"supplier"`
	QuantityOnHand int       `json:"quantity_on_hand"`
	UnitCostCents  int64     `json:"unit_cost_cents"`
	SellingCents   int64     `json:"selling_cents"`
	CreatedAt      time.Time `json:"created_at"`
}
