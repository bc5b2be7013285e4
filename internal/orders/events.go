package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderUpdated   = "OrderUpdated"
	EventPaymentAdded   = "PaymentAdded"
	EventOrderCompleted = "OrderCompleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload per event ----

type OrderCreatedPayload struct {
	OrderID       string `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	PlateNumber   string `json:"plate_number"`
	ServiceCount  int    `json:"service_count"`
	SubTotalCents int64  `json:"sub_total_cents"`
	TotalCents    int64  `json:"total_cents"`
}

type OrderUpdatedPayload struct {
	OrderID      string `json:"order_id"`
	CustomerID   string `json:"customer_id"`
	ServiceCount int    `json:"service_count"`
	TotalCents   int64  `json:"total_cents"`
}

type PaymentAddedPayload struct {
	OrderID     string      `json:"order_id"`
	PaymentID   string      `json:"payment_id"`
	Type        PaymentType `json:"type"`
	AmountCents int64       `json:"amount_cents"`
}

type OrderCompletedPayload struct {
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	TotalCents  int64     `json:"total_cents"`
	WarrantyEnd time.Time `json:"warranty_end"`
}
