package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCTRACO/filaops-sub000/models"
)

func at(t *testing.T, hhmm string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-09-01T"+hhmm+":00Z")
	require.NoError(t, err)
	return ts
}

func TestFindSlot(t *testing.T) {
	after := at(t, "08:00")

	// an idle machine has no queue to pack around
	slot := findSlot(nil, 30*time.Minute, after)
	assert.Equal(t, at(t, "09:00"), slot)

	windows := []timeWindow{
		{start: at(t, "10:00"), end: at(t, "11:00")},
		{start: at(t, "11:00"), end: at(t, "12:00")},
		{start: at(t, "14:00"), end: at(t, "15:00")},
	}

	// 90 minutes fits before the first window
	assert.Equal(t, after, findSlot(windows, 90*time.Minute, after))

	// 3 hours does not fit before 10:00 or in the 12:00-14:00 gap,
	// so it lands after the last window
	assert.Equal(t, at(t, "15:00"), findSlot(windows, 3*time.Hour, after))

	// from inside the first window, the 12:00-14:00 gap is the first fit
	assert.Equal(t, at(t, "12:00"), findSlot(windows, 2*time.Hour, at(t, "10:30")))
}

func TestScheduleOperationConflict(t *testing.T) {
	f := newFixture(t)
	orderA := f.releasedOrder(t, "5")
	orderB := f.releasedOrder(t, "5")
	ctx := context.Background()

	_, _, err := f.svc.ScheduleOperation(ctx, orderA.ID, orderA.Operations[0].ID, f.machine.ID,
		at(t, "10:00"), at(t, "11:00"))
	require.NoError(t, err)

	// [10:30, 11:30) overlaps [10:00, 11:00)
	_, conflicts, err := f.svc.ScheduleOperation(ctx, orderB.ID, orderB.Operations[0].ID, f.machine.ID,
		at(t, "10:30"), at(t, "11:30"))
	var busy *ResourceBusyError
	require.ErrorAs(t, err, &busy)
	require.Len(t, conflicts, 1)
	assert.Equal(t, orderA.Operations[0].ID, conflicts[0].ID)

	// rejection leaves the operation untouched
	op, err := f.svc.reloadOperation(ctx, orderB.Operations[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.OpPending, op.Status)
	assert.Nil(t, op.ScheduledStart)

	// [11:00, 12:00) abuts the existing window; half-open intervals do
	// not conflict on a shared boundary
	op, conflicts, err = f.svc.ScheduleOperation(ctx, orderB.ID, orderB.Operations[0].ID, f.machine.ID,
		at(t, "11:00"), at(t, "12:00"))
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, models.OpQueued, op.Status)
	require.NotNil(t, op.MachineID)
	assert.Equal(t, f.machine.ID, *op.MachineID)
}

func TestFindConflictsIgnoresTerminalOperations(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "5")
	ctx := context.Background()

	_, _, err := f.svc.ScheduleOperation(ctx, order.ID, order.Operations[0].ID, f.machine.ID,
		at(t, "10:00"), at(t, "11:00"))
	require.NoError(t, err)

	conflicts, err := f.svc.FindConflicts(ctx, f.machine.ID, at(t, "10:00"), at(t, "11:00"), 0)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)

	f.runThrough(t, order, 0, "5", "0", "")

	// a completed operation no longer holds its window
	conflicts, err = f.svc.FindConflicts(ctx, f.machine.ID, at(t, "10:00"), at(t, "11:00"), 0)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestFindConflictsIgnoresCancelledOrders(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "5")
	ctx := context.Background()

	_, _, err := f.svc.ScheduleOperation(ctx, order.ID, order.Operations[0].ID, f.machine.ID,
		at(t, "10:00"), at(t, "11:00"))
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, order.ID, "customer pulled out")
	require.NoError(t, err)

	conflicts, err := f.svc.FindConflicts(ctx, f.machine.ID, at(t, "10:00"), at(t, "11:00"), 0)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckAvailableNow(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "5")
	ctx := context.Background()

	free, blocking, err := f.svc.CheckAvailableNow(ctx, f.machine.ID)
	require.NoError(t, err)
	assert.True(t, free)
	assert.Nil(t, blocking)

	_, err = f.svc.StartOperation(ctx, order.ID, order.Operations[0].ID, StartInput{MachineID: &f.machine.ID})
	require.NoError(t, err)

	free, blocking, err = f.svc.CheckAvailableNow(ctx, f.machine.ID)
	require.NoError(t, err)
	assert.False(t, free)
	require.NotNil(t, blocking)
	assert.Equal(t, order.Operations[0].ID, blocking.ID)
}

func TestFindNextAvailableSlot(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "5")
	ctx := context.Background()

	_, _, err := f.svc.ScheduleOperation(ctx, order.ID, order.Operations[0].ID, f.machine.ID,
		at(t, "10:00"), at(t, "12:00"))
	require.NoError(t, err)

	slot, err := f.svc.FindNextAvailableSlot(ctx, f.machine.ID, time.Hour, at(t, "09:30"))
	require.NoError(t, err)
	assert.True(t, slot.Equal(at(t, "12:00")), "got %s", slot)
}

func TestScheduleRejectsInvertedWindow(t *testing.T) {
	f := newFixture(t)
	order := f.releasedOrder(t, "5")

	_, _, err := f.svc.ScheduleOperation(context.Background(), order.ID, order.Operations[0].ID, f.machine.ID,
		at(t, "11:00"), at(t, "10:00"))
	require.Error(t, err)
}
