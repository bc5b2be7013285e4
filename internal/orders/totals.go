package orders

// LaborTotalCents sums the price of every service line.
func (o *Order) LaborTotalCents() int64 {
	var sum int64
	for _, s := range o.Services {
		sum += s.PriceCents
	}
	return sum
}

// PartsTotalCents sums quantity * price over every product line.
func (o *Order) PartsTotalCents() int64 {
	var sum int64
	for _, p := range o.Products {
		sum += int64(p.Quantity) * p.PriceCents
	}
	return sum
}

// PaymentTotals partitions payment amounts by type.
type PaymentTotals struct {
	CashCents               int64 `json:"cash_cents"`
	OnlineCents             int64 `json:"online_cents"`
	ChequeCents             int64 `json:"cheque_cents"`
	AccountsReceivableCents int64 `json:"accounts_receivable_cents"`
	TotalCents              int64 `json:"total_cents"`
}

func (o *Order) PaymentTotals() PaymentTotals {
	var t PaymentTotals
	for _, p := range o.Payments {
		switch p.Type {
		case PaymentCash:
			t.CashCents += p.AmountCents
		case PaymentOnline:
			t.OnlineCents += p.AmountCents
		case PaymentCheque:
			t.ChequeCents += p.AmountCents
		case PaymentAccountsReceivable:
			t.AccountsReceivableCents += p.AmountCents
		}
		t.TotalCents += p.AmountCents
	}
	return t
}

// RemainingCents is what the customer still owes.
func (o *Order) RemainingCents() int64 {
	return o.TotalCents - o.PaymentTotals().TotalCents
}

// Recalculate derives sub_total and total from the current lines. Totals are
// never taken from client input.
func (o *Order) Recalculate() {
	o.SubTotalCents = o.LaborTotalCents() + o.PartsTotalCents()
	o.TotalCents = o.SubTotalCents - o.DiscountCents
}

// EnsureMutable is the single gate for the completed flag: a completed order
// accepts no further composition changes. Payments stay allowed.
func (o *Order) EnsureMutable() error {
	if o.Completed {
		return ErrOrderCompleted
	}
	return nil
}
