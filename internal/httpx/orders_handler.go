package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bengkel-orders/internal/orders"
)

// OrderService is the slice of the orchestrator the handlers need.
type OrderService interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (*orders.Order, error)
	AddServices(ctx context.Context, orderID string, services []orders.ServiceInput) error
	UpdateOrder(ctx context.Context, orderID string, in orders.UpdateOrderInput) (*orders.Order, error)
	AddPayment(ctx context.Context, orderID string, in orders.PaymentInput) (*orders.OrderPayment, error)
	CompleteOrder(ctx context.Context, orderID string) error
	GetOrderView(ctx context.Context, orderID string) (*orders.OrderView, error)
	ListOrders(ctx context.Context, f orders.OrderFilter) ([]orders.Order, error)
}

type OrdersHandler struct {
	Svc OrderService
	Log *zap.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Post("/orders/{id}/services", h.addServices)
	r.Post("/orders/{id}/payments", h.addPayment)
	r.Post("/orders/{id}/complete", h.completeOrder)
}

type ProductReq struct {
	ProductID    string `json:"product_id" validate:"required"`
	StockBatchID string `json:"stock_batch_id"`
	PriceCents   int64  `json:"price_cents" validate:"gte=0"`
	Quantity     int    `json:"quantity" validate:"gt=0"`
}

type ServiceReq struct {
	ServiceID  string       `json:"service_id" validate:"required"`
	PriceCents int64        `json:"price_cents" validate:"gte=0"`
	Products   []ProductReq `json:"products" validate:"dive"`
}

type PaymentReq struct {
	Type        string `json:"type" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Reference   string `json:"reference"`
}

type CreateOrderReq struct {
	CustomerID    string       `json:"customer_id" validate:"required"`
	CarMake       string       `json:"car_make" validate:"required"`
	CarType       string       `json:"car_type"`
	CarYear       int          `json:"car_year" validate:"gte=0"`
	PlateNumber   string       `json:"plate_number" validate:"required"`
	Odometer      int          `json:"odometer" validate:"gte=0"`
	ReceiveDate   time.Time    `json:"receive_date"`
	WarrantyEnd   time.Time    `json:"warranty_end"`
	DiscountCents int64        `json:"discount_cents" validate:"gte=0"`
	Services      []ServiceReq `json:"services" validate:"dive"`
	Mechanics     []string     `json:"mechanics"`
	Payment       *PaymentReq  `json:"payment"`
}

type UpdateOrderReq struct {
	CarMake       string       `json:"car_make" validate:"required"`
	CarType       string       `json:"car_type"`
	CarYear       int          `json:"car_year" validate:"gte=0"`
	PlateNumber   string       `json:"plate_number" validate:"required"`
	Odometer      int          `json:"odometer" validate:"gte=0"`
	ReceiveDate   time.Time    `json:"receive_date"`
	WarrantyEnd   time.Time    `json:"warranty_end"`
	DiscountCents int64        `json:"discount_cents" validate:"gte=0"`
	Services      []ServiceReq `json:"services" validate:"dive"`
	Mechanics     []string     `json:"mechanics"`
}

type AddServicesReq struct {
	Services []ServiceReq `json:"services" validate:"min=1,dive"`
}

func toServiceInputs(reqs []ServiceReq) []orders.ServiceInput {
	out := make([]orders.ServiceInput, 0, len(reqs))
	for _, s := range reqs {
		in := orders.ServiceInput{ServiceID: s.ServiceID, PriceCents: s.PriceCents}
		for _, p := range s.Products {
			in.Products = append(in.Products, orders.ProductInput{
				ProductID:    p.ProductID,
				StockBatchID: p.StockBatchID,
				PriceCents:   p.PriceCents,
				Quantity:     p.Quantity,
			})
		}
		out = append(out, in)
	}
	return out
}

func decodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &orders.ValidationError{Field: "body", Reason: "invalid json"}
	}
	return validate.Struct(v)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	in := orders.CreateOrderInput{
		CustomerID:    req.CustomerID,
		CarMake:       req.CarMake,
		CarType:       req.CarType,
		CarYear:       req.CarYear,
		PlateNumber:   req.PlateNumber,
		Odometer:      req.Odometer,
		ReceiveDate:   req.ReceiveDate,
		WarrantyEnd:   req.WarrantyEnd,
		DiscountCents: req.DiscountCents,
		Services:      toServiceInputs(req.Services),
		Mechanics:     req.Mechanics,
	}
	if req.Payment != nil {
		in.Payment = &orders.PaymentInput{
			Type:        orders.PaymentType(req.Payment.Type),
			AmountCents: req.Payment.AmountCents,
			Reference:   req.Payment.Reference,
		}
	}

	o, err := h.Svc.CreateOrder(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req UpdateOrderReq
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.UpdateOrder(ctx, orderID, orders.UpdateOrderInput{
		CarMake:       req.CarMake,
		CarType:       req.CarType,
		CarYear:       req.CarYear,
		PlateNumber:   req.PlateNumber,
		Odometer:      req.Odometer,
		ReceiveDate:   req.ReceiveDate,
		WarrantyEnd:   req.WarrantyEnd,
		DiscountCents: req.DiscountCents,
		Services:      toServiceInputs(req.Services),
		Mechanics:     req.Mechanics,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) addServices(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req AddServicesReq
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.AddServices(ctx, orderID, toServiceInputs(req.Services)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) addPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req PaymentReq
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Svc.AddPayment(ctx, orderID, orders.PaymentInput{
		Type:        orders.PaymentType(req.Type),
		AmountCents: req.AmountCents,
		Reference:   req.Reference,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *OrdersHandler) completeOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.CompleteOrder(ctx, orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Svc.GetOrderView(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var f orders.OrderFilter
	if v := r.URL.Query().Get("customer_id"); v != "" {
		f.CustomerID = &v
	}
	if v := r.URL.Query().Get("completed"); v == "true" || v == "false" {
		b := v == "true"
		f.Completed = &b
	}

	out, err := h.Svc.ListOrders(ctx, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
