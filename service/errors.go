package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MCTRACO/filaops-sub000/models"
)

var (
	// ErrNotFound covers a missing order/operation, or an operation that is
	// not owned by the order named in the request.
	ErrNotFound = errors.New("record not found")

	// ErrStaleRow is returned when an optimistic version check fails because
	// a concurrent request changed the row first.
	ErrStaleRow = errors.New("row was modified concurrently, retry")

	// ErrMissingScrapReason rejects a completion reporting scrap without a
	// reason code.
	ErrMissingScrapReason = errors.New("scrap quantity requires a scrap reason")

	// ErrUnbalancedEntry rejects a ledger posting whose debits and credits
	// do not match.
	ErrUnbalancedEntry = errors.New("ledger entry debits and credits do not balance")

	// ErrInsufficientStock rejects a consumption that would push a stock
	// row's on-hand quantity negative.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InvalidStateError reports an action attempted against an operation or
// order whose status does not permit it.
type InvalidStateError struct {
	Action string
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s in status %s", e.Action, e.Status)
}

// SequenceViolationError reports a start/skip attempted while the preceding
// operation is still open.
type SequenceViolationError struct {
	BlockingSequence int
	BlockingName     string
	BlockingStatus   models.OperationStatus
}

func (e *SequenceViolationError) Error() string {
	return fmt.Sprintf("operation %d (%s) must be completed or skipped first (status %s)",
		e.BlockingSequence, e.BlockingName, e.BlockingStatus)
}

// Shortage names one component the stock cannot cover.
type Shortage struct {
	SKU       string          `json:"sku"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Short     decimal.Decimal `json:"short"`
}

// MaterialShortageError reports the blocking components found at start.
type MaterialShortageError struct {
	Shortages []Shortage
}

func (e *MaterialShortageError) Error() string {
	skus := ""
	for i, s := range e.Shortages {
		if i > 0 {
			skus += ", "
		}
		skus += s.SKU
	}
	return fmt.Sprintf("material shortage on: %s", skus)
}

// ResourceBusyError reports the operation already holding the machine.
type ResourceBusyError struct {
	MachineID uint
	Blocking  *models.Operation
}

func (e *ResourceBusyError) Error() string {
	if e.Blocking != nil {
		return fmt.Sprintf("machine %d is busy with operation %d (%s)",
			e.MachineID, e.Blocking.ID, e.Blocking.Name)
	}
	return fmt.Sprintf("machine %d is busy", e.MachineID)
}

// QuantityExceededError rejects a completion reporting more good + scrapped
// units than the previous step produced.
type QuantityExceededError struct {
	Requested  decimal.Decimal
	MaxAllowed decimal.Decimal
}

func (e *QuantityExceededError) Error() string {
	return fmt.Sprintf("completed + scrapped (%s) exceeds input from the previous step (%s)",
		e.Requested.String(), e.MaxAllowed.String())
}

// ScrapError is a validation failure inside the scrap cascade. The engine
// logs it and keeps the completed operation.
type ScrapError struct {
	Msg string
}

func (e *ScrapError) Error() string { return "scrap cascade: " + e.Msg }
