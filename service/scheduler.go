package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/models"
)

// Resource scheduling: keep two open operations from holding the same machine
// for overlapping time and find free capacity.

// FindConflicts returns every open operation on the machine whose scheduled
// window overlaps [start, end). Terminal operations and operations of
// cancelled orders never conflict.
func (s *Service) FindConflicts(ctx context.Context, machineID uint, start, end time.Time, excludeOperationID uint) ([]models.Operation, error) {
	return findConflicts(s.db.WithContext(ctx), machineID, start, end, excludeOperationID)
}

func findConflicts(tx *gorm.DB, machineID uint, start, end time.Time, excludeOperationID uint) ([]models.Operation, error) {
	var ops []models.Operation
	q := tx.Model(&models.Operation{}).
		Joins("JOIN production_orders ON production_orders.id = operations.production_order_id").
		Where("operations.machine_id = ?", machineID).
		Where("operations.status NOT IN ?", []models.OperationStatus{models.OpComplete, models.OpSkipped}).
		Where("production_orders.status <> ?", models.OrderCancelled).
		// standard interval test: start1 < end2 AND start2 < end1
		Where("operations.scheduled_start < ? AND operations.scheduled_end > ?", end, start).
		Order("operations.scheduled_start ASC")
	if excludeOperationID != 0 {
		q = q.Where("operations.id <> ?", excludeOperationID)
	}
	if err := q.Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

// CheckAvailableNow is the hard gate used by start: one running job per
// machine at any moment.
func (s *Service) CheckAvailableNow(ctx context.Context, machineID uint) (bool, *models.Operation, error) {
	blocking, err := runningOnMachine(s.db.WithContext(ctx), machineID, 0)
	if err != nil {
		return false, nil, err
	}
	return blocking == nil, blocking, nil
}

func runningOnMachine(tx *gorm.DB, machineID uint, excludeOperationID uint) (*models.Operation, error) {
	var op models.Operation
	q := tx.Where("machine_id = ? AND status = ?", machineID, models.OpRunning)
	if excludeOperationID != 0 {
		q = q.Where("id <> ?", excludeOperationID)
	}
	err := q.First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// FindNextAvailableSlot scans the machine's scheduled windows for the
// earliest gap that fits the duration. With nothing scheduled the machine has
// no queue to pack around, so the caller gets a conservative hour from now.
func (s *Service) FindNextAvailableSlot(ctx context.Context, machineID uint, duration time.Duration, after time.Time) (time.Time, error) {
	var ops []models.Operation
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Where("status NOT IN ?", []models.OperationStatus{models.OpComplete, models.OpSkipped}).
		Where("scheduled_start IS NOT NULL AND scheduled_end IS NOT NULL").
		Order("scheduled_start ASC").
		Find(&ops).Error
	if err != nil {
		return time.Time{}, err
	}

	windows := make([]timeWindow, 0, len(ops))
	for _, op := range ops {
		windows = append(windows, timeWindow{start: *op.ScheduledStart, end: *op.ScheduledEnd})
	}
	return findSlot(windows, duration, after), nil
}

type timeWindow struct {
	start time.Time
	end   time.Time
}

// findSlot is the pure gap scan: before the first window, between
// consecutive windows, then after the last. Windows must be sorted by start.
func findSlot(windows []timeWindow, duration time.Duration, after time.Time) time.Time {
	if len(windows) == 0 {
		return after.Add(time.Hour)
	}
	cursor := after
	for _, w := range windows {
		if !w.end.After(cursor) {
			continue
		}
		if w.start.Sub(cursor) >= duration {
			return cursor
		}
		if w.end.After(cursor) {
			cursor = w.end
		}
	}
	return cursor
}

// ScheduleOperation atomically binds the operation to the machine for
// [start, end) and advances pending -> queued. On conflict nothing is
// mutated and the conflicting operations come back for caller resolution.
func (s *Service) ScheduleOperation(ctx context.Context, orderID, operationID, machineID uint, start, end time.Time) (*models.Operation, []models.Operation, error) {
	if !end.After(start) {
		return nil, nil, errors.New("schedule window must end after it starts")
	}

	order, err := s.loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, nil, err
	}
	op, err := findOperation(order, operationID)
	if err != nil {
		return nil, nil, err
	}
	if op.Status != models.OpPending && op.Status != models.OpQueued {
		return nil, nil, &InvalidStateError{Action: "schedule", Status: string(op.Status)}
	}

	var machine models.Machine
	if err := s.db.WithContext(ctx).First(&machine, machineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var conflicts []models.Operation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := findConflicts(tx, machineID, start, end, op.ID)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			conflicts = found
			return &ResourceBusyError{MachineID: machineID, Blocking: &found[0]}
		}

		updates := map[string]interface{}{
			"machine_id":      machineID,
			"scheduled_start": start,
			"scheduled_end":   end,
		}
		if op.Status == models.OpPending {
			updates["status"] = models.OpQueued
		}
		return optimisticUpdate(tx, &models.Operation{}, op.ID, op.Version, updates)
	})
	if err != nil {
		return nil, conflicts, err
	}

	reloaded, err := s.reloadOperation(ctx, op.ID)
	return reloaded, nil, err
}
