package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculateFromLines(t *testing.T) {
	// two services at 100.20 each, one product line 250.00 x2, discount 50.00
	o := &Order{
		DiscountCents: 5000,
		Services: []OrderService{
			{ServiceID: "svc-1", PriceCents: 10020},
			{ServiceID: "svc-2", PriceCents: 10020},
		},
		Products: []OrderProduct{
			{ServiceID: "svc-1", ProductID: "prod-1", StockBatchID: "b1", PriceCents: 25000, Quantity: 2},
		},
	}

	o.Recalculate()

	assert.Equal(t, int64(20040), o.LaborTotalCents())
	assert.Equal(t, int64(50000), o.PartsTotalCents())
	assert.Equal(t, int64(70040), o.SubTotalCents)
	assert.Equal(t, int64(65040), o.TotalCents)
}

func TestRecalculateIgnoresStaleTotals(t *testing.T) {
	// whatever the client claims, totals come from the lines
	o := &Order{
		SubTotalCents: 999999,
		TotalCents:    999999,
		Services:      []OrderService{{ServiceID: "svc-1", PriceCents: 1500}},
	}

	o.Recalculate()

	assert.Equal(t, int64(1500), o.SubTotalCents)
	assert.Equal(t, int64(1500), o.TotalCents)
}

func TestPaymentTotalsPartition(t *testing.T) {
	o := &Order{
		TotalCents: 10000,
		Payments: []OrderPayment{
			{Type: PaymentCash, AmountCents: 3000},
			{Type: PaymentCash, AmountCents: 1000},
			{Type: PaymentOnline, AmountCents: 2500},
			{Type: PaymentCheque, AmountCents: 1500},
			{Type: PaymentAccountsReceivable, AmountCents: 500},
		},
	}

	pt := o.PaymentTotals()

	assert.Equal(t, int64(4000), pt.CashCents)
	assert.Equal(t, int64(2500), pt.OnlineCents)
	assert.Equal(t, int64(1500), pt.ChequeCents)
	assert.Equal(t, int64(500), pt.AccountsReceivableCents)
	assert.Equal(t, int64(8500), pt.TotalCents)
	assert.Equal(t, int64(1500), o.RemainingCents())
}

func TestEnsureMutable(t *testing.T) {
	o := &Order{}
	require.NoError(t, o.EnsureMutable())

	o.Completed = true
	assert.ErrorIs(t, o.EnsureMutable(), ErrOrderCompleted)
}

func TestPaymentTypeValid(t *testing.T) {
	assert.True(t, PaymentCash.Valid())
	assert.True(t, PaymentOnline.Valid())
	assert.True(t, PaymentCheque.Valid())
	assert.True(t, PaymentAccountsReceivable.Valid())
	assert.False(t, PaymentType("BARTER").Valid())
}
