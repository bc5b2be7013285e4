package orders

import "time"

// OrderView is the nested projection served to the edit screen and accepted
// back when the edit is submitted: services, each with its products, each
// product with the batch sub-lines that satisfy it.
type OrderView struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	CarMake     string    `json:"car_make"`
	CarType     string    `json:"car_type"`
	CarYear     int       `json:"car_year"`
	PlateNumber string    `json:"plate_number"`
	Odometer    int       `json:"odometer"`
	ReceiveDate time.Time `json:"receive_date"`
	WarrantyEnd time.Time `json:"warranty_end"`
	Completed   bool      `json:"completed"`

	Services  []ServiceView   `json:"services"`
	Payments  []OrderPayment  `json:"payments"`
	Mechanics []OrderMechanic `json:"mechanics"`

	LaborTotalCents int64         `json:"labor_total_cents"`
	PartsTotalCents int64         `json:"parts_total_cents"`
	DiscountCents   int64         `json:"discount_cents"`
	SubTotalCents   int64         `json:"sub_total_cents"`
	TotalCents      int64         `json:"total_cents"`
	PaymentTotals   PaymentTotals `json:"payment_totals"`
	RemainingCents  int64         `json:"remaining_cents"`
}

type ServiceView struct {
	LineID     string        `json:"line_id"`
	ServiceID  string        `json:"service_id"`
	Name       string        `json:"name,omitempty"`
	PriceCents int64         `json:"price_cents"`
	Products   []ProductView `json:"products"`
}

// ProductView groups the batch draws for one product within one service, so
// two batches feeding the same part show as one entry with two stock
// sub-lines.
type ProductView struct {
	ProductID     string      `json:"product_id"`
	Name          string      `json:"name,omitempty"`
	TotalQuantity int         `json:"total_quantity"`
	AddedStocks   []StockLine `json:"added_stocks"`
}

type StockLine struct {
	StockBatchID string `json:"stock_batch_id"`
	PriceCents   int64  `json:"price_cents"`
	Quantity     int    `json:"quantity"`
}

// BuildView assembles the projection from persisted lines. Product lines
// belong to a service id, not a service occurrence; when a service appears
// twice its products are shown under the first occurrence.
func BuildView(o *Order, serviceNames, productNames map[string]string) *OrderView {
	v := &OrderView{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		CarMake:     o.CarMake,
		CarType:     o.CarType,
		CarYear:     o.CarYear,
		PlateNumber: o.PlateNumber,
		Odometer:    o.Odometer,
		ReceiveDate: o.ReceiveDate,
		WarrantyEnd: o.WarrantyEnd,
		Completed:   o.Completed,
		Payments:    o.Payments,
		Mechanics:   o.Mechanics,
	}

	seen := make(map[string]bool)
	for _, s := range o.Services {
		sv := ServiceView{
			LineID:     s.ID,
			ServiceID:  s.ServiceID,
			Name:       serviceNames[s.ServiceID],
			PriceCents: s.PriceCents,
			Products:   []ProductView{},
		}
		if !seen[s.ServiceID] {
			seen[s.ServiceID] = true
			sv.Products = groupProducts(o.Products, s.ServiceID, productNames)
		}
		v.Services = append(v.Services, sv)
	}

	v.LaborTotalCents = o.LaborTotalCents()
	v.PartsTotalCents = o.PartsTotalCents()
	v.DiscountCents = o.DiscountCents
	v.SubTotalCents = o.SubTotalCents
	v.TotalCents = o.TotalCents
	v.PaymentTotals = o.PaymentTotals()
	v.RemainingCents = o.RemainingCents()
	return v
}

func groupProducts(lines []OrderProduct, serviceID string, productNames map[string]string) []ProductView {
	var out []ProductView
	index := make(map[string]int)
	for _, l := range lines {
		if l.ServiceID != serviceID {
			continue
		}
		i, ok := index[l.ProductID]
		if !ok {
			i = len(out)
			index[l.ProductID] = i
			out = append(out, ProductView{
				ProductID: l.ProductID,
				Name:      productNames[l.ProductID],
			})
		}
		out[i].TotalQuantity += l.Quantity
		out[i].AddedStocks = append(out[i].AddedStocks, StockLine{
			StockBatchID: l.StockBatchID,
			PriceCents:   l.PriceCents,
			Quantity:     l.Quantity,
		})
	}
	return out
}
