package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCTRACO/filaops-sub000/models"
)

func TestCreateOrderDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		ProductID: f.bracket.ID,
		Quantity:  decimal.RequireFromString("10"),
		CreatedBy: "tester",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderDraft, order.Status)
	assert.Equal(t, models.ModeMakeToStock, order.Mode)
	assert.Equal(t, 3, order.Priority)
	assert.Regexp(t, `^PO-\d{4}-\d{6}$`, order.Code)
	// routing is copied at release, not at creation
	assert.Empty(t, order.Operations)
}

func TestCreateOrderValidations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		ProductID: f.bracket.ID,
		Quantity:  decimal.Zero,
	})
	require.Error(t, err)

	// purchased components cannot be manufactured
	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{
		ProductID: f.filament.ID,
		Quantity:  decimal.RequireFromString("1"),
	})
	require.Error(t, err)
}

func TestReleaseCopiesTemplatesAndAllocates(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")

	assert.Equal(t, models.OrderReleased, order.Status)
	require.Len(t, order.Operations, 3)

	printOp := order.Operations[0]
	assert.Equal(t, 10, printOp.Sequence)
	assert.Equal(t, "print", printOp.Name)
	assert.Equal(t, models.OpPending, printOp.Status)
	assert.Equal(t, 90, printOp.PlannedRunMinutes)
	require.Len(t, printOp.Materials, 1)

	filamentMat := printOp.Materials[0]
	assert.Equal(t, f.filament.ID, filamentMat.ComponentID)
	requireDecimalEqual(t, "250", filamentMat.QuantityRequired)
	requireDecimalEqual(t, "250", filamentMat.QuantityAllocated)
	assert.Equal(t, models.MatAllocated, filamentMat.Status)

	// the cleanup step has no bill of materials
	assert.Empty(t, order.Operations[1].Materials)

	assembleMat := order.Operations[2].Materials[0]
	requireDecimalEqual(t, "40", assembleMat.QuantityRequired)

	var stock models.StockItem
	require.NoError(t, f.db.Where("product_id = ?", f.filament.ID).First(&stock).Error)
	requireDecimalEqual(t, "250", stock.Allocated)
}

func TestReleasePartialAllocation(t *testing.T) {
	f := newFixture(t)

	// inserts: 400 pcs needed, 500 on hand, so two releases exhaust them
	first := f.releasedOrder(t, "100")
	requireDecimalEqual(t, "400", first.Operations[2].Materials[0].QuantityAllocated)

	second := f.releasedOrder(t, "100")
	mat := second.Operations[2].Materials[0]
	requireDecimalEqual(t, "400", mat.QuantityRequired)
	// only the leftover 100 pcs could be reserved
	requireDecimalEqual(t, "100", mat.QuantityAllocated)
	assert.Equal(t, models.MatPending, mat.Status)
}

func TestReleaseRequiresDraft(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")

	_, err := f.svc.ReleaseOrder(context.Background(), order.ID)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "release", stateErr.Action)
}

func TestCancelReturnsAllocations(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	cancelled, err := f.svc.CancelOrder(ctx, order.ID, "duplicate entry")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Contains(t, cancelled.Notes, "duplicate entry")

	var stock models.StockItem
	require.NoError(t, f.db.Where("product_id = ?", f.filament.ID).First(&stock).Error)
	requireDecimalEqual(t, "0", stock.Allocated)
	requireDecimalEqual(t, "10000", stock.OnHand)

	for _, op := range cancelled.Operations {
		for _, mat := range op.Materials {
			requireDecimalEqual(t, "0", mat.QuantityAllocated)
		}
	}

	// cancelling twice is a no-op, not an error
	again, err := f.svc.CancelOrder(ctx, order.ID, "again")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, again.Status)
}

func TestCancelRejectedOnceWorkStarted(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "10")
	ctx := context.Background()

	_, err := f.svc.StartOperation(ctx, order.ID, order.Operations[0].ID, StartInput{})
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, order.ID, "too late")
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestConvertFulfilledSalesLineRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	so := models.SalesOrder{Code: "SO-TEST-2", CustomerName: "Acme Props"}
	require.NoError(t, f.db.Create(&so).Error)
	line := models.SalesOrderLine{
		SalesOrderID:      so.ID,
		ProductID:         f.bracket.ID,
		Quantity:          decimal.RequireFromString("5"),
		QuantityFulfilled: decimal.RequireFromString("5"),
	}
	require.NoError(t, f.db.Create(&line).Error)

	_, err := f.svc.CreateOrderFromSalesLine(ctx, so.ID, line.ID, "tester")
	require.Error(t, err)
}

func TestListOrdersFilters(t *testing.T) {
	f := newFixture(t)
	released := f.releasedOrder(t, "10")
	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		ProductID: f.bracket.ID,
		Quantity:  decimal.RequireFromString("3"),
		CreatedBy: "tester",
	})
	require.NoError(t, err)

	orders, total, err := f.svc.ListOrders(context.Background(), OrderFilter{
		Status: string(models.OrderReleased),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, released.ID, orders[0].ID)
}
