package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ariefcatur/go-bengkel-orders/internal/inventory"
	"github.com/ariefcatur/go-bengkel-orders/internal/orders"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain taxonomy onto status codes: shortage and
// completed-order conflicts are 409, unknown references 404, malformed input
// 400, anything else a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var short *inventory.InsufficientStockError
	var vErr *orders.ValidationError
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.As(err, &short):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "insufficient stock",
			"details": short.Shortages,
		})
	case errors.Is(err, orders.ErrOrderCompleted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrProductNotFound),
		errors.Is(err, orders.ErrServiceNotFound),
		errors.Is(err, inventory.ErrBatchNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &vErr), errors.As(err, &fieldErrs):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
