package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCTRACO/filaops-sub000/models"
)

func TestBlockingPredecessor(t *testing.T) {
	ops := []models.Operation{
		{Sequence: 10, Status: models.OpComplete},
		{Sequence: 20, Status: models.OpSkipped},
		{Sequence: 30, Status: models.OpPending},
	}

	// op 30: nearest non-skipped predecessor is 10, which is complete
	assert.Nil(t, blockingPredecessor(ops, 30))

	ops[0].Status = models.OpRunning
	blocking := blockingPredecessor(ops, 30)
	require.NotNil(t, blocking)
	assert.Equal(t, 10, blocking.Sequence)

	// first operation never has a blocker
	assert.Nil(t, blockingPredecessor(ops, 10))
}

func TestMaxAllowedInput(t *testing.T) {
	order := &models.ProductionOrder{QuantityOrdered: decimal.RequireFromString("10")}
	ops := []models.Operation{
		{Sequence: 10, Status: models.OpComplete, QuantityCompleted: decimal.RequireFromString("8")},
		{Sequence: 20, Status: models.OpSkipped},
		{Sequence: 30, Status: models.OpPending},
	}

	requireDecimalEqual(t, "10", maxAllowedInput(order, ops, 10))
	// op 30 is fed by op 10's yield; the skipped op passes material through
	requireDecimalEqual(t, "8", maxAllowedInput(order, ops, 30))

	// every predecessor skipped: fall back to the order quantity
	ops[0].Status = models.OpSkipped
	requireDecimalEqual(t, "10", maxAllowedInput(order, ops, 30))
}

func TestStartOperationOutOfSequence(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	_, err := f.svc.StartOperation(ctx, order.ID, order.Operations[1].ID, StartInput{})
	var seqErr *SequenceViolationError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, 10, seqErr.BlockingSequence)

	// nothing mutated by the failed start
	op, err := f.svc.reloadOperation(ctx, order.Operations[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.OpPending, op.Status)
}

func TestStartOperationAlreadyRunning(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	_, err := f.svc.StartOperation(ctx, order.ID, order.Operations[0].ID, StartInput{})
	require.NoError(t, err)

	_, err = f.svc.StartOperation(ctx, order.ID, order.Operations[0].ID, StartInput{})
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "start", stateErr.Action)
	assert.Equal(t, "RUNNING", stateErr.Status)
}

func TestStartOperationMachineBusy(t *testing.T) {
	f := newFixture(t)
	orderA := f.releasedOrder(t, "5")
	orderB := f.releasedOrder(t, "5")
	ctx := context.Background()

	_, err := f.svc.StartOperation(ctx, orderA.ID, orderA.Operations[0].ID, StartInput{MachineID: &f.machine.ID})
	require.NoError(t, err)

	_, err = f.svc.StartOperation(ctx, orderB.ID, orderB.Operations[0].ID, StartInput{MachineID: &f.machine.ID})
	var busy *ResourceBusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, f.machine.ID, busy.MachineID)
	require.NotNil(t, busy.Blocking)
	assert.Equal(t, orderA.Operations[0].ID, busy.Blocking.ID)

	// the rejected operation stays pending with no machine binding
	op, err := f.svc.reloadOperation(ctx, orderB.Operations[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.OpPending, op.Status)
	assert.Nil(t, op.MachineID)
}

func TestCompleteOperationQuantityCap(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	f.runThrough(t, order, 0, "8", "2", "warping")

	_, err := f.svc.StartOperation(ctx, order.ID, order.Operations[1].ID, StartInput{})
	require.NoError(t, err)

	// op 1 yielded 8, so op 2 cannot report 9 units processed
	_, err = f.svc.CompleteOperation(ctx, order.ID, order.Operations[1].ID, CompleteInput{
		QuantityCompleted: decimal.RequireFromString("9"),
	})
	var qtyErr *QuantityExceededError
	require.ErrorAs(t, err, &qtyErr)
	requireDecimalEqual(t, "8", qtyErr.MaxAllowed)

	// the operation is still running and retryable with a legal quantity
	op, err := f.svc.reloadOperation(ctx, order.Operations[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.OpRunning, op.Status)
}

func TestCompleteOperationScrapNeedsReason(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	_, err := f.svc.StartOperation(ctx, order.ID, order.Operations[0].ID, StartInput{})
	require.NoError(t, err)

	_, err = f.svc.CompleteOperation(ctx, order.ID, order.Operations[0].ID, CompleteInput{
		QuantityCompleted: decimal.RequireFromString("8"),
		QuantityScrapped:  decimal.RequireFromString("2"),
	})
	require.ErrorIs(t, err, ErrMissingScrapReason)
}

func TestCompleteOperationExplicitRunMinutes(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	_, err := f.svc.StartOperation(ctx, order.ID, order.Operations[0].ID, StartInput{})
	require.NoError(t, err)

	minutes := decimal.RequireFromString("87.5")
	result, err := f.svc.CompleteOperation(ctx, order.ID, order.Operations[0].ID, CompleteInput{
		QuantityCompleted: decimal.RequireFromString("10"),
		ActualRunMinutes:  &minutes,
	})
	require.NoError(t, err)
	requireDecimalEqual(t, "87.5", result.Operation.ActualRunMinutes)
}

func TestZeroYieldAutoSkipsTail(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	_, err := f.svc.StartOperation(ctx, order.ID, order.Operations[0].ID, StartInput{})
	require.NoError(t, err)

	result, err := f.svc.CompleteOperation(ctx, order.ID, order.Operations[0].ID, CompleteInput{
		QuantityCompleted: decimal.Zero,
		QuantityScrapped:  decimal.RequireFromString("10"),
		ScrapReason:       "layer_shift",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Skipped)

	reloaded := f.reloadOrder(t, order.ID)
	assert.Equal(t, models.OpSkipped, reloaded.Operations[1].Status)
	assert.Equal(t, models.OpSkipped, reloaded.Operations[2].Status)
	assert.Contains(t, reloaded.Operations[1].SkipReason, "no yield")

	// all operations terminal with zero completed: the order is short
	assert.Equal(t, models.OrderShort, reloaded.Status)
	requireDecimalEqual(t, "0", reloaded.QuantityCompleted)
	requireDecimalEqual(t, "10", reloaded.QuantityScrapped)
}

func TestManualSkipThenStartNext(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	f.runThrough(t, order, 0, "10", "0", "")

	_, err := f.svc.SkipOperation(ctx, order.ID, order.Operations[1].ID, "no cleanup needed")
	require.NoError(t, err)

	// the skipped step passes material through; op 3 starts against op 1's yield
	op, err := f.svc.StartOperation(ctx, order.ID, order.Operations[2].ID, StartInput{})
	require.NoError(t, err)
	assert.Equal(t, models.OpRunning, op.Status)
}

func TestSkipCompleteOperationRejected(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	f.runThrough(t, order, 0, "10", "0", "")

	_, err := f.svc.SkipOperation(ctx, order.ID, order.Operations[0].ID, "oops")
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "COMPLETE", stateErr.Status)
}

// Full run of a ten-unit order losing four units mid-route: op 1 yields all
// ten, op 2 scraps four, op 3 finishes the surviving six. The order ends
// short of its ordered quantity.
func TestThreeStepRunWithMidRouteScrap(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")

	f.runThrough(t, order, 0, "10", "0", "")
	result := f.runThrough(t, order, 1, "6", "4", "warping")

	require.NotNil(t, result.Scrap)
	// op 2 has no materials of its own; the cascade reaches back to op 1's
	// filament draw for the four scrapped units
	assert.Equal(t, 1, result.Scrap.RecordsCreated)
	// 4 units x 25 g x 0.05 = 5.00
	requireDecimalEqual(t, "5", result.Scrap.TotalScrapCost)

	mid := f.reloadOrder(t, order.ID)
	assert.Equal(t, models.OrderInProgress, mid.Status)
	requireDecimalEqual(t, "6", mid.QuantityCompleted)
	requireDecimalEqual(t, "4", mid.QuantityScrapped)

	f.runThrough(t, order, 2, "6", "0", "")

	final := f.reloadOrder(t, order.ID)
	// six completed of ten ordered: terminal but short, not complete
	assert.Equal(t, models.OrderShort, final.Status)
	requireDecimalEqual(t, "6", final.QuantityCompleted)
	requireDecimalEqual(t, "4", final.QuantityScrapped)
	require.NotNil(t, final.ActualEnd)
	assert.Nil(t, final.CompletedAt)
}

func TestFullYieldRunCompletesOrder(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")

	f.runThrough(t, order, 0, "10", "0", "")
	f.runThrough(t, order, 1, "10", "0", "")
	f.runThrough(t, order, 2, "10", "0", "")

	final := f.reloadOrder(t, order.ID)
	assert.Equal(t, models.OrderComplete, final.Status)
	requireDecimalEqual(t, "10", final.QuantityCompleted)
	require.NotNil(t, final.CompletedAt)

	// finished goods were received through the outbox drain
	var stock models.StockItem
	require.NoError(t, f.db.Where("product_id = ?", f.bracket.ID).First(&stock).Error)
	requireDecimalEqual(t, "10", stock.OnHand)
}

func TestScrapWithReplacementOrder(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	f.runThrough(t, order, 0, "10", "0", "")

	_, err := f.svc.StartOperation(ctx, order.ID, order.Operations[1].ID, StartInput{})
	require.NoError(t, err)

	result, err := f.svc.CompleteOperation(ctx, order.ID, order.Operations[1].ID, CompleteInput{
		QuantityCompleted: decimal.Zero,
		QuantityScrapped:  decimal.RequireFromString("10"),
		ScrapReason:       "nozzle_clog",
		CreateReplacement: true,
		User:              "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)

	require.NotNil(t, result.Scrap)
	require.NotNil(t, result.Scrap.ReplacementOrderID)

	remake := f.reloadOrder(t, *result.Scrap.ReplacementOrderID)
	assert.Equal(t, models.OrderReleased, remake.Status)
	requireDecimalEqual(t, "10", remake.QuantityOrdered)
	require.NotNil(t, remake.RemakeOfID)
	assert.Equal(t, order.ID, *remake.RemakeOfID)
	assert.Len(t, remake.Operations, 3)

	original := f.reloadOrder(t, order.ID)
	assert.Equal(t, models.OrderShort, original.Status)
}
