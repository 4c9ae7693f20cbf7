package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem is the per-product on-hand position backing the material ledger.
// UnitCost is a moving average maintained on receipt.
type StockItem struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	ProductID uint     `gorm:"uniqueIndex;not null" json:"product_id"`
	Product   *Product `json:"product,omitempty"`

	OnHand    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"on_hand"`
	Allocated decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"allocated"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`

	Version int `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available is on-hand minus allocations.
func (s *StockItem) Available() decimal.Decimal {
	return s.OnHand.Sub(s.Allocated)
}

// ConsumptionTransaction is an append-only costed material movement. The
// correlation id makes consume calls idempotent under at-least-once delivery.
type ConsumptionTransaction struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	CorrelationID       string `gorm:"size:64;uniqueIndex;not null" json:"correlation_id"`
	ProductionOrderID   uint   `gorm:"index;not null" json:"production_order_id"`
	OperationID         uint   `gorm:"index;not null" json:"operation_id"`
	OperationMaterialID uint   `gorm:"index;not null" json:"operation_material_id"`
	ComponentID         uint   `gorm:"not null" json:"component_id"`

	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	CostPerUnit decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"cost_per_unit"`
	TotalCost   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_cost"`

	ConsumedBy string    `json:"consumed_by"`
	CreatedAt  time.Time `json:"created_at"`
}
