package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch(id string, qty int, age time.Duration) StockBatch {
	return StockBatch{
		ID:             id,
		ProductID:      "prod-1",
		QuantityOnHand: qty,
		CreatedAt:      time.Now().Add(-age),
	}
}

func TestPlanDeductionSingleBatch(t *testing.T) {
	draws, rem := PlanDeduction([]StockBatch{batch("x", 100, time.Hour)}, 30)

	require.Equal(t, 0, rem)
	require.Len(t, draws, 1)
	assert.Equal(t, Draw{BatchID: "x", Qty: 30}, draws[0])
}

func TestPlanDeductionSplitsOldestFirst(t *testing.T) {
	batches := []StockBatch{
		batch("old", 5, 48*time.Hour),
		batch("new", 10, time.Hour),
	}

	draws, rem := PlanDeduction(batches, 8)

	require.Equal(t, 0, rem)
	require.Len(t, draws, 2)
	assert.Equal(t, Draw{BatchID: "old", Qty: 5}, draws[0])
	assert.Equal(t, Draw{BatchID: "new", Qty: 3}, draws[1])
}

func TestPlanDeductionSkipsEmptyBatches(t *testing.T) {
	batches := []StockBatch{
		batch("empty", 0, 72*time.Hour),
		batch("x", 4, time.Hour),
	}

	draws, rem := PlanDeduction(batches, 4)

	require.Equal(t, 0, rem)
	require.Len(t, draws, 1)
	assert.Equal(t, "x", draws[0].BatchID)
}

func TestPlanDeductionStopsWhenExhausted(t *testing.T) {
	batches := []StockBatch{
		batch("x", 100, 48*time.Hour),
		batch("y", 10, time.Hour),
	}

	draws, rem := PlanDeduction(batches, 120)

	assert.Equal(t, 10, rem)
	require.Len(t, draws, 2)
	assert.Equal(t, 100, draws[0].Qty)
	assert.Equal(t, 10, draws[1].Qty)

	// a plan never overdraws a batch
	for i, d := range draws {
		assert.LessOrEqual(t, d.Qty, batches[i].QuantityOnHand)
	}
}

func TestPlanDeductionZeroDemand(t *testing.T) {
	draws, rem := PlanDeduction([]StockBatch{batch("x", 10, time.Hour)}, 0)
	assert.Empty(t, draws)
	assert.Equal(t, 0, rem)
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{Shortages: []Shortage{
		{ProductID: "brake-pad", Required: 105, Available: 100},
	}}
	assert.Contains(t, err.Error(), "brake-pad")
	assert.Contains(t, err.Error(), "required 105")
	assert.Contains(t, err.Error(), "available 100")
}
