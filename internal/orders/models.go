package orders

import "time"

type PaymentType string

const (
	PaymentCash               PaymentType = "CASH"
	PaymentOnline             PaymentType = "ONLINE"
	PaymentCheque             PaymentType = "CHEQUE"
	PaymentAccountsReceivable PaymentType = "ACCOUNTS_RECEIVABLE"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentCash, PaymentOnline, PaymentCheque, PaymentAccountsReceivable:
		return true
	}
	return false
}

// Order is the aggregate root: one repair job for one car.
type Order struct {
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

	DiscountCents int64 `json:"discount_cents"`
	SubTotalCents int64 `json:"sub_total_cents"`
	TotalCents    int64 `json:"total_cents"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Services  []OrderService  `json:"services,omitempty"`
	Products  []OrderProduct  `json:"products,omitempty"`
	Payments  []OrderPayment  `json:"payments,omitempty"`
	Mechanics []OrderMechanic `json:"mechanics,omitempty"`
}

// OrderService is one occurrence of a service on the order. The same service
// may be attached more than once, each line with its own price.
type OrderService struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	ServiceID  string `json:"service_id"`
	PriceCents int64  `json:"price_cents"`
}

// OrderProduct records a quantity of one stock batch consumed for one service
// line. The row's existence IS the inventory deduction: inserting it implies a
// deduction already applied against StockBatchID, removing it implies a
// restore.
type OrderProduct struct {
	OrderID      string `json:"order_id"`
	ServiceID    string `json:"service_id"`
	ProductID    string `json:"product_id"`
	StockBatchID string `json:"stock_batch_id"`
	PriceCents   int64  `json:"price_cents"`
	Quantity     int    `json:"quantity"`
}

type OrderPayment struct {
	ID          string      `json:"id"`
	OrderID     string      `json:"order_id"`
	Type        PaymentType `json:"type"`
	AmountCents int64       `json:"amount_cents"`
	// Reference holds the type-specific detail: cheque number, online
	// transaction ref, or the receivable's due note.
	Reference string    `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
}

type OrderMechanic struct {
	OrderID    string `json:"order_id"`
	MechanicID string `json:"mechanic_id"`
}
