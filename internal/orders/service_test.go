package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bengkel-orders/internal/inventory"
)

func TestExpandLinesRejectsBatchFromAnotherProduct(t *testing.T) {
	batches := map[string][]inventory.StockBatch{
		"brake-pads": {{ID: "bp-1", ProductID: "brake-pads", QuantityOnHand: 5}},
		"oil":        {{ID: "oil-1", ProductID: "oil", QuantityOnHand: 100}},
	}
	services := []ServiceInput{
		{ServiceID: "svc-1", Products: []ProductInput{
			{ProductID: "brake-pads", StockBatchID: "oil-1", Quantity: 3},
		}},
	}

	// the aggregate check alone is blind to the mismatch
	avail := map[string]int{"brake-pads": 5, "oil": 100}
	require.NoError(t, ValidateDemand(FlattenDemand(services), avail))

	_, _, err := expandLines("ord-1", services, batches)

	require.ErrorIs(t, err, inventory.ErrBatchNotFound)
	assert.Contains(t, err.Error(), "oil-1")
	assert.Contains(t, err.Error(), "brake-pads")
}

func TestExpandLinesKeepsOwnPinnedBatch(t *testing.T) {
	batches := map[string][]inventory.StockBatch{
		"oil": {{ID: "oil-1", ProductID: "oil", QuantityOnHand: 100}},
	}
	services := []ServiceInput{
		{ServiceID: "svc-1", PriceCents: 10000, Products: []ProductInput{
			{ProductID: "oil", StockBatchID: "oil-1", PriceCents: 2000, Quantity: 3},
		}},
	}

	svcLines, prodLines, err := expandLines("ord-1", services, batches)

	require.NoError(t, err)
	require.Len(t, svcLines, 1)
	require.Len(t, prodLines, 1)
	assert.Equal(t, "oil-1", prodLines[0].StockBatchID)
	assert.Equal(t, 3, prodLines[0].Quantity)
}

func TestExpandLinesSplitsUnpinnedAcrossOldestBatches(t *testing.T) {
	batches := map[string][]inventory.StockBatch{
		"oil": {
			{ID: "oil-1", ProductID: "oil", QuantityOnHand: 2},
			{ID: "oil-2", ProductID: "oil", QuantityOnHand: 10},
		},
	}
	services := []ServiceInput{
		{ServiceID: "svc-1", Products: []ProductInput{
			{ProductID: "oil", PriceCents: 2000, Quantity: 5},
		}},
	}

	_, prodLines, err := expandLines("ord-1", services, batches)

	require.NoError(t, err)
	require.Len(t, prodLines, 2)
	assert.Equal(t, "oil-1", prodLines[0].StockBatchID)
	assert.Equal(t, 2, prodLines[0].Quantity)
	assert.Equal(t, "oil-2", prodLines[1].StockBatchID)
	assert.Equal(t, 3, prodLines[1].Quantity)
}

func TestExpandLinesShortageReportsOnHand(t *testing.T) {
	batches := map[string][]inventory.StockBatch{
		"oil": {
			{ID: "oil-1", ProductID: "oil", QuantityOnHand: 2},
			{ID: "oil-2", ProductID: "oil", QuantityOnHand: 1},
		},
	}
	services := []ServiceInput{
		{ServiceID: "svc-1", Products: []ProductInput{
			{ProductID: "oil", Quantity: 5},
		}},
	}

	_, _, err := expandLines("ord-1", services, batches)

	var short *inventory.InsufficientStockError
	require.ErrorAs(t, err, &short)
	require.Len(t, short.Shortages, 1)
	assert.Equal(t, inventory.Shortage{ProductID: "oil", Required: 5, Available: 3}, short.Shortages[0])
}
