package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/models"
)

// StartInput carries the optional fields of a start request.
type StartInput struct {
	MachineID *uint
	Operator  string
	Notes     string
}

// CompleteInput carries a completion report for a running operation.
type CompleteInput struct {
	QuantityCompleted decimal.Decimal
	QuantityScrapped  decimal.Decimal
	ScrapReason       string
	ScrapNotes        string
	ActualRunMinutes  *decimal.Decimal
	Notes             string
	CreateReplacement bool
	User              string
}

// CompleteResult is the outcome of a completion: the operation in its final
// state plus the scrap cascade outcome, when one ran.
type CompleteResult struct {
	Operation *models.Operation `json:"operation"`
	Scrap     *ScrapResult      `json:"scrap,omitempty"`
	Skipped   int               `json:"auto_skipped"`
}

// --- pure helpers over the sequence-sorted operation list ---

func sortBySequence(ops []models.Operation) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].Sequence < ops[j].Sequence })
}

// blockingPredecessor walks backward from the given sequence, ignoring
// skipped operations. It returns the first non-skipped predecessor that is
// not complete, or nil when the operation is clear to start.
func blockingPredecessor(ops []models.Operation, sequence int) *models.Operation {
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Sequence >= sequence {
			continue
		}
		if ops[i].Status == models.OpSkipped {
			continue
		}
		if ops[i].Status != models.OpComplete {
			return &ops[i]
		}
		return nil
	}
	return nil
}

// maxAllowedInput is what the previous step fed into this one: the order
// quantity for the first operation, otherwise the completed quantity of the
// last non-skipped completed predecessor. Falls back to the order quantity
// when every predecessor was skipped.
func maxAllowedInput(order *models.ProductionOrder, ops []models.Operation, sequence int) decimal.Decimal {
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Sequence >= sequence {
			continue
		}
		if ops[i].Status == models.OpSkipped {
			continue
		}
		if ops[i].Status == models.OpComplete {
			return ops[i].QuantityCompleted
		}
		break
	}
	return order.QuantityOrdered
}

// --- loading ---

func (s *Service) loadOrder(tx *gorm.DB, orderID uint) (*models.ProductionOrder, error) {
	var order models.ProductionOrder
	err := tx.
		Preload("Product").
		Preload("Operations", func(db *gorm.DB) *gorm.DB {
			return db.Order("operations.sequence ASC")
		}).
		Preload("Operations.Materials").
		Preload("Operations.Materials.Component").
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sortBySequence(order.Operations)
	return &order, nil
}

func findOperation(order *models.ProductionOrder, operationID uint) (*models.Operation, error) {
	for i := range order.Operations {
		if order.Operations[i].ID == operationID {
			return &order.Operations[i], nil
		}
	}
	return nil, ErrNotFound
}

// --- state machine ---

// StartOperation transitions pending/queued -> running after the sequence,
// material and resource gates all pass. No partial state survives a failed
// gate.
func (s *Service) StartOperation(ctx context.Context, orderID, operationID uint, in StartInput) (*models.Operation, error) {
	order, err := s.loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	op, err := findOperation(order, operationID)
	if err != nil {
		return nil, err
	}

	if op.Status != models.OpPending && op.Status != models.OpQueued {
		return nil, &InvalidStateError{Action: "start", Status: string(op.Status)}
	}
	if blocking := blockingPredecessor(order.Operations, op.Sequence); blocking != nil {
		return nil, &SequenceViolationError{
			BlockingSequence: blocking.Sequence,
			BlockingName:     blocking.Name,
			BlockingStatus:   blocking.Status,
		}
	}

	report, err := s.materials.CheckBlocking(ctx, op)
	if err != nil {
		return nil, err
	}
	if !report.CanStart {
		return nil, &MaterialShortageError{Shortages: report.Shortages}
	}

	machineID := in.MachineID
	if machineID == nil {
		machineID = op.MachineID
	}

	var machine *models.Machine
	if machineID != nil {
		machine = &models.Machine{}
		if err := s.db.WithContext(ctx).First(machine, *machineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if machine != nil {
			// re-read inside the transaction so two concurrent starts
			// cannot both pass the gate
			blocking, err := runningOnMachine(tx, machine.ID, op.ID)
			if err != nil {
				return err
			}
			if blocking != nil {
				return &ResourceBusyError{MachineID: machine.ID, Blocking: blocking}
			}
			if err := optimisticUpdate(tx, &models.Machine{}, machine.ID, machine.Version, map[string]interface{}{
				"updated_at": now,
			}); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":       models.OpRunning,
			"actual_start": now,
		}
		if machine != nil {
			updates["machine_id"] = machine.ID
		}
		if in.Operator != "" {
			updates["operator"] = in.Operator
		}
		if in.Notes != "" {
			updates["notes"] = in.Notes
		}
		if err := optimisticUpdate(tx, &models.Operation{}, op.ID, op.Version, updates); err != nil {
			return err
		}

		return s.syncOrderStatus(tx, order.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.reloadOperation(ctx, op.ID)
}

// CompleteOperation closes a running operation, consumes its materials,
// cascades scrap cost, auto-skips a dead tail and rolls the order state
// forward. Scrap accounting is best-effort: a cascade failure is logged and
// the operation stays complete.
func (s *Service) CompleteOperation(ctx context.Context, orderID, operationID uint, in CompleteInput) (*CompleteResult, error) {
	order, err := s.loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	op, err := findOperation(order, operationID)
	if err != nil {
		return nil, err
	}

	if op.Status != models.OpRunning {
		return nil, &InvalidStateError{Action: "complete", Status: string(op.Status)}
	}
	if in.QuantityCompleted.IsNegative() || in.QuantityScrapped.IsNegative() {
		return nil, &QuantityExceededError{
			Requested:  in.QuantityCompleted.Add(in.QuantityScrapped),
			MaxAllowed: decimal.Zero,
		}
	}

	maxAllowed := maxAllowedInput(order, order.Operations, op.Sequence)
	reported := in.QuantityCompleted.Add(in.QuantityScrapped)
	if reported.GreaterThan(maxAllowed) {
		return nil, &QuantityExceededError{Requested: reported, MaxAllowed: maxAllowed}
	}
	if in.QuantityScrapped.IsPositive() && in.ScrapReason == "" {
		return nil, ErrMissingScrapReason
	}

	now := time.Now().UTC()
	runMinutes := decimal.Zero
	if in.ActualRunMinutes != nil {
		runMinutes = *in.ActualRunMinutes
	} else if op.ActualStart != nil {
		runMinutes = decimal.NewFromFloat(now.Sub(*op.ActualStart).Minutes()).Round(2)
	}

	skipped := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":             models.OpComplete,
			"actual_end":         now,
			"actual_run_minutes": runMinutes,
			"quantity_completed": in.QuantityCompleted,
			"quantity_scrapped":  in.QuantityScrapped,
			"scrap_reason":       in.ScrapReason,
		}
		if in.Notes != "" {
			updates["notes"] = in.Notes
		}
		if err := optimisticUpdate(tx, &models.Operation{}, op.ID, op.Version, updates); err != nil {
			return err
		}

		// nothing flows forward from a zero-yield step
		if in.QuantityCompleted.IsZero() {
			n, err := autoSkipDownstream(tx, order.Operations, op)
			if err != nil {
				return err
			}
			skipped = n
		}

		// the order's completed quantity is the yield of the furthest
		// completed step, not a sum across steps; scrap accumulates
		totals := map[string]interface{}{
			"quantity_completed": in.QuantityCompleted,
			"quantity_scrapped":  order.QuantityScrapped.Add(in.QuantityScrapped),
		}
		if err := optimisticUpdate(tx, &models.ProductionOrder{}, order.ID, order.Version, totals); err != nil {
			return err
		}

		return s.syncOrderStatus(tx, order.ID)
	})
	if err != nil {
		return nil, err
	}

	// the operation is complete from here on; collaborator calls below are
	// at-least-once and must not undo it
	s.consumeOperationMaterials(ctx, order, op, reported, in.User)

	var scrapResult *ScrapResult
	if in.QuantityScrapped.IsPositive() && in.ScrapReason != "" {
		scrapResult, err = s.ProcessOperationScrap(ctx, order.ID, op.ID, ScrapInput{
			Quantity:          in.QuantityScrapped,
			ReasonCode:        in.ScrapReason,
			Notes:             in.ScrapNotes,
			CreateReplacement: in.CreateReplacement,
			User:              in.User,
		})
		if err != nil {
			log.Printf("scrap accounting failed for order %d operation %d: %v", order.ID, op.ID, err)
			scrapResult = nil
		}
	}

	if _, err := s.ProcessPendingEffects(ctx); err != nil {
		log.Printf("side effect processing failed for order %d: %v", order.ID, err)
	}

	reloaded, err := s.reloadOperation(ctx, op.ID)
	if err != nil {
		return nil, err
	}
	return &CompleteResult{Operation: reloaded, Scrap: scrapResult, Skipped: skipped}, nil
}

// SkipOperation marks a pending/queued operation skipped. Used for manual
// skips; auto-skip of a dead tail goes through autoSkipDownstream.
func (s *Service) SkipOperation(ctx context.Context, orderID, operationID uint, reason string) (*models.Operation, error) {
	order, err := s.loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	op, err := findOperation(order, operationID)
	if err != nil {
		return nil, err
	}

	if op.Status != models.OpPending && op.Status != models.OpQueued {
		return nil, &InvalidStateError{Action: "skip", Status: string(op.Status)}
	}
	if blocking := blockingPredecessor(order.Operations, op.Sequence); blocking != nil {
		return nil, &SequenceViolationError{
			BlockingSequence: blocking.Sequence,
			BlockingName:     blocking.Name,
			BlockingStatus:   blocking.Status,
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := optimisticUpdate(tx, &models.Operation{}, op.ID, op.Version, map[string]interface{}{
			"status":      models.OpSkipped,
			"skip_reason": reason,
		}); err != nil {
			return err
		}
		return s.syncOrderStatus(tx, order.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.reloadOperation(ctx, op.ID)
}

// autoSkipDownstream walks the full tail after the zero-yield operation and
// skips everything still open. It never stops early: a step further
// downstream is just as dead as the next one.
func autoSkipDownstream(tx *gorm.DB, ops []models.Operation, completed *models.Operation) (int, error) {
	reason := fmt.Sprintf("no yield from operation %d (%s)", completed.Sequence, completed.Name)
	count := 0
	for i := range ops {
		o := &ops[i]
		if o.Sequence <= completed.Sequence {
			continue
		}
		if o.Status != models.OpPending && o.Status != models.OpQueued {
			continue
		}
		if err := optimisticUpdate(tx, &models.Operation{}, o.ID, o.Version, map[string]interface{}{
			"status":      models.OpSkipped,
			"skip_reason": reason,
		}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// consumeOperationMaterials draws down the full planned requirement for every
// processed unit, good or scrapped. Filament is spent whether or not the
// print succeeds. Failures are logged; reconciliation finds the gap by
// auditing consumption coverage.
func (s *Service) consumeOperationMaterials(ctx context.Context, order *models.ProductionOrder, op *models.Operation, processed decimal.Decimal, actor string) {
	if processed.IsZero() || order.QuantityOrdered.IsZero() {
		return
	}
	for i := range op.Materials {
		mat := &op.Materials[i]
		perUnit := mat.QuantityRequired.Div(order.QuantityOrdered)
		qty := perUnit.Mul(processed)
		if qty.IsZero() {
			continue
		}
		if _, err := s.materials.Consume(ctx, mat, order, qty, actor); err != nil {
			log.Printf("material consumption failed for operation %d material %d: %v", op.ID, mat.ID, err)
		}
	}
}

func (s *Service) reloadOperation(ctx context.Context, operationID uint) (*models.Operation, error) {
	var op models.Operation
	err := s.db.WithContext(ctx).
		Preload("Machine").
		Preload("Materials").
		Preload("Materials.Component").
		First(&op, operationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}
