package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bengkel-orders/internal/inventory"
	"github.com/ariefcatur/go-bengkel-orders/internal/orders"
)

type stubService struct {
	createErr   error
	created     *orders.Order
	completeErr error
	view        *orders.OrderView
	viewErr     error

	gotCreate *orders.CreateOrderInput
}

func (s *stubService) CreateOrder(_ context.Context, in orders.CreateOrderInput) (*orders.Order, error) {
	s.gotCreate = &in
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.created, nil
}

func (s *stubService) AddServices(context.Context, string, []orders.ServiceInput) error { return nil }

func (s *stubService) UpdateOrder(context.Context, string, orders.UpdateOrderInput) (*orders.Order, error) {
	return s.created, nil
}

func (s *stubService) AddPayment(_ context.Context, orderID string, in orders.PaymentInput) (*orders.OrderPayment, error) {
	return &orders.OrderPayment{ID: "pay-1", OrderID: orderID, Type: in.Type, AmountCents: in.AmountCents}, nil
}

func (s *stubService) CompleteOrder(context.Context, string) error { return s.completeErr }

func (s *stubService) GetOrderView(context.Context, string) (*orders.OrderView, error) {
	if s.viewErr != nil {
		return nil, s.viewErr
	}
	return s.view, nil
}

func (s *stubService) ListOrders(context.Context, orders.OrderFilter) ([]orders.Order, error) {
	return nil, nil
}

func setup(svc *stubService) http.Handler {
	r := NewRouter()
	h := &OrdersHandler{Svc: svc, Log: zap.NewNop()}
	h.Register(r)
	return r
}

const createBody = `{
	"customer_id": "cust-1",
	"car_make": "Toyota",
	"car_type": "Avanza",
	"plate_number": "B 1234 XY",
	"services": [
		{"service_id": "svc-1", "price_cents": 10020, "products": [
			{"product_id": "oil", "stock_batch_id": "b1", "price_cents": 25000, "quantity": 2}
		]}
	]
}`

func TestCreateOrderOK(t *testing.T) {
	svc := &stubService{created: &orders.Order{ID: "ord-1", TotalCents: 70040}}
	srv := setup(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ord-1", got.ID)

	require.NotNil(t, svc.gotCreate)
	assert.Equal(t, "cust-1", svc.gotCreate.CustomerID)
	require.Len(t, svc.gotCreate.Services, 1)
	assert.Equal(t, 2, svc.gotCreate.Services[0].Products[0].Quantity)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	svc := &stubService{createErr: &inventory.InsufficientStockError{Shortages: []inventory.Shortage{
		{ProductID: "oil", Required: 105, Available: 100},
	}}}
	srv := setup(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
	assert.Contains(t, rec.Body.String(), "oil")
}

func TestCreateOrderInvalidJSON(t *testing.T) {
	srv := setup(&stubService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{not json"))
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderMissingFields(t *testing.T) {
	svc := &stubService{created: &orders.Order{}}
	srv := setup(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"car_make":"Toyota"}`))
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.gotCreate, "validation must reject before the orchestrator runs")
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	svc := &stubService{created: &orders.Order{}}
	srv := setup(svc)

	body := strings.Replace(createBody, `"quantity": 2`, `"quantity": 0`, 1)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.gotCreate)
}

func TestGetOrderNotFound(t *testing.T) {
	srv := setup(&stubService{viewErr: orders.ErrOrderNotFound})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders/nope", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderView(t *testing.T) {
	srv := setup(&stubService{view: &orders.OrderView{ID: "ord-1", TotalCents: 65040}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders/ord-1", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var v orders.OrderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, int64(65040), v.TotalCents)
}

func TestCompleteOrderConflict(t *testing.T) {
	srv := setup(&stubService{completeErr: orders.ErrOrderCompleted})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders/ord-1/complete", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCompleteOrderOK(t *testing.T) {
	srv := setup(&stubService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders/ord-1/complete", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAddPaymentOK(t *testing.T) {
	srv := setup(&stubService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders/ord-1/payments",
		strings.NewReader(`{"type":"CASH","amount_cents":5000}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "pay-1")
}
