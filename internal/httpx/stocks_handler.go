package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-bengkel-orders/internal/inventory"
)

type StocksHandler struct {
	Ledger *inventory.Ledger
	Log    *zap.Logger
}

func (h *StocksHandler) Register(r *chi.Mux) {
	r.Post("/stocks", h.createBatch)
	r.Get("/stocks/{id}", h.getBatch)
	r.Get("/products/{id}/stocks", h.listBatches)
	r.Get("/products/{id}/availability", h.availability)
}

type CreateBatchReq struct {
	ProductID      string `json:"product_id" validate:"required"`
	Supplier       string `json:"supplier" validate:"required"`
	QuantityOnHand int    `json:"quantity_on_hand" validate:"gte=0"`
	UnitCostCents  int64  `json:"unit_cost_cents" validate:"gte=0"`
	SellingCents   int64  `json:"selling_cents" validate:"gte=0"`
}

func (h *StocksHandler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchReq
	if err := decodeValid(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b := &inventory.StockBatch{
		ProductID:      req.ProductID,
		Supplier:       req.Supplier,
		QuantityOnHand: req.QuantityOnHand,
		UnitCostCents:  req.UnitCostCents,
		SellingCents:   req.SellingCents,
	}
	if err := h.Ledger.CreateBatch(ctx, b); err != nil {
		h.Log.Warn("create batch", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *StocksHandler) getBatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b, err := h.Ledger.FindBatchByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *StocksHandler) listBatches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	bs, err := h.Ledger.FindBatchesByProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

func (h *StocksHandler) availability(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	productID := chi.URLParam(r, "id")
	n, err := h.Ledger.AvailableQuantity(ctx, productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": productID, "available": n})
}
