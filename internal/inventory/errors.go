package inventory

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBatchNotFound = errors.New("stock batch not found")

// Shortage records one product whose demand exceeded availability.
type Shortage struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// InsufficientStockError rejects an operation as a whole: no partial
// allocation is ever applied when any product comes up short.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("product %s: required %d, available %d", s.ProductID, s.Required, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}
