package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildViewGroupsBatchesPerProduct(t *testing.T) {
	o := &Order{
		ID:            "ord-1",
		DiscountCents: 500,
		Services: []OrderService{
			{ID: "line-1", ServiceID: "svc-1", PriceCents: 10000},
		},
		Products: []OrderProduct{
			{ServiceID: "svc-1", ProductID: "oil", StockBatchID: "b1", PriceCents: 2000, Quantity: 2},
			{ServiceID: "svc-1", ProductID: "oil", StockBatchID: "b2", PriceCents: 2100, Quantity: 1},
			{ServiceID: "svc-1", ProductID: "filter", StockBatchID: "b3", PriceCents: 1500, Quantity: 1},
		},
	}
	o.Recalculate()

	v := BuildView(o, map[string]string{"svc-1": "Oil change"}, map[string]string{"oil": "Engine oil"})

	require.Len(t, v.Services, 1)
	sv := v.Services[0]
	assert.Equal(t, "Oil change", sv.Name)
	require.Len(t, sv.Products, 2)

	oil := sv.Products[0]
	assert.Equal(t, "oil", oil.ProductID)
	assert.Equal(t, "Engine oil", oil.Name)
	assert.Equal(t, 3, oil.TotalQuantity)
	require.Len(t, oil.AddedStocks, 2)
	assert.Equal(t, StockLine{StockBatchID: "b1", PriceCents: 2000, Quantity: 2}, oil.AddedStocks[0])
	assert.Equal(t, StockLine{StockBatchID: "b2", PriceCents: 2100, Quantity: 1}, oil.AddedStocks[1])

	assert.Equal(t, int64(10000), v.LaborTotalCents)
	assert.Equal(t, int64(7600), v.PartsTotalCents)
	assert.Equal(t, int64(17600), v.SubTotalCents)
	assert.Equal(t, int64(17100), v.TotalCents)
}

func TestBuildViewDuplicateServiceOccurrence(t *testing.T) {
	o := &Order{
		ID: "ord-1",
		Services: []OrderService{
			{ID: "line-1", ServiceID: "svc-1", PriceCents: 5000},
			{ID: "line-2", ServiceID: "svc-1", PriceCents: 4500},
		},
		Products: []OrderProduct{
			{ServiceID: "svc-1", ProductID: "oil", StockBatchID: "b1", PriceCents: 2000, Quantity: 1},
		},
	}
	o.Recalculate()

	v := BuildView(o, nil, nil)

	require.Len(t, v.Services, 2)
	// both occurrences keep their own price; products show once
	assert.Equal(t, int64(5000), v.Services[0].PriceCents)
	assert.Equal(t, int64(4500), v.Services[1].PriceCents)
	assert.Len(t, v.Services[0].Products, 1)
	assert.Empty(t, v.Services[1].Products)
	assert.Equal(t, int64(9500), v.LaborTotalCents)
}

func TestBuildViewCarriesPaymentsAndRemaining(t *testing.T) {
	o := &Order{
		ID:       "ord-1",
		Services: []OrderService{{ID: "line-1", ServiceID: "svc-1", PriceCents: 10000}},
		Payments: []OrderPayment{{Type: PaymentCash, AmountCents: 4000}},
	}
	o.Recalculate()

	v := BuildView(o, nil, nil)

	assert.Equal(t, int64(4000), v.PaymentTotals.CashCents)
	assert.Equal(t, int64(6000), v.RemainingCents)
}
