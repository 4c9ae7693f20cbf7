package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/models"
	"github.com/shopspring/decimal"
)

// Collaborator contracts consumed by the execution engine. The engine treats
// them as at-least-once: calls carry idempotency keys and failures after the
// primary state change are logged, not rolled back.

type MaterialLedger interface {
	// CheckBlocking reports whether stock can cover the operation's
	// outstanding requirements, listing every short component.
	CheckBlocking(ctx context.Context, op *models.Operation) (*BlockingReport, error)

	// Consume decrements stock and records a costed transaction against the
	// material. Idempotent by correlation id.
	Consume(ctx context.Context, mat *models.OperationMaterial, order *models.ProductionOrder, quantity decimal.Decimal, actor string) (*models.ConsumptionTransaction, error)

	// Return releases an allocation back to stock (order cancellation).
	Return(ctx context.Context, mat *models.OperationMaterial) error
}

type BlockingReport struct {
	CanStart  bool       `json:"can_start"`
	Shortages []Shortage `json:"shortages,omitempty"`
}

type CostLedger interface {
	// Post writes a balanced entry. Rejects the whole entry with
	// ErrUnbalancedEntry when debits != credits.
	Post(ctx context.Context, memo string, lines []EntryLine) (*models.LedgerEntry, error)
}

type EntryLine struct {
	Account string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

type FinishedGoodsReceiver interface {
	Receive(ctx context.Context, order *models.ProductionOrder, quantity decimal.Decimal, actor string) error
}

type SalesOrderSync interface {
	OnProductionComplete(ctx context.Context, order *models.ProductionOrder) error
}

// Service is the production-order execution engine plus its GORM-backed
// collaborators.
type Service struct {
	db        *gorm.DB
	materials MaterialLedger
	costs     CostLedger
	receiver  FinishedGoodsReceiver
	salesSync SalesOrderSync
}

func New(db *gorm.DB) *Service {
	s := &Service{db: db}
	s.materials = &gormMaterialLedger{db: db}
	s.costs = &gormCostLedger{db: db}
	s.receiver = &gormFinishedGoodsReceiver{db: db, costs: s.costs}
	s.salesSync = &gormSalesOrderSync{db: db}
	return s
}

// optimisticUpdate applies updates iff the row still carries the expected
// version, bumping it. Zero rows affected means a concurrent writer won.
func optimisticUpdate(tx *gorm.DB, model interface{}, id uint, version int, updates map[string]interface{}) error {
	updates["version"] = version + 1
	res := tx.Model(model).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRow
	}
	return nil
}
