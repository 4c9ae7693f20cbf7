package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScrapRecord is an immutable audit entry, one per (operation, material) pair
// touched by a scrap cascade. Never updated after creation.
type ScrapRecord struct {
	ID                uint `gorm:"primaryKey" json:"id"`
	ProductionOrderID uint `gorm:"index;not null" json:"production_order_id"`
	OperationID       uint `gorm:"index;not null" json:"operation_id"`
	OperationSequence int  `gorm:"not null" json:"operation_sequence"`

	ProductID   uint `gorm:"not null" json:"product_id"`   // the product being scrapped
	ComponentID uint `gorm:"not null" json:"component_id"` // the material written off

	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	TotalCost decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_cost"`

	ReasonCode string `gorm:"size:50;not null" json:"reason_code"`
	Notes      string `gorm:"type:text" json:"notes"`
	CreatedBy  string `json:"created_by"`

	ConsumptionID *uint `json:"consumption_id"`
	LedgerEntryID *uint `json:"ledger_entry_id"`

	CreatedAt time.Time `json:"created_at"`
}

// ScrapReason is seeded reference data; completing with an unknown reason code
// fails the cascade.
type ScrapReason struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Code     string `gorm:"uniqueIndex;not null" json:"code"`
	Label    string `gorm:"not null" json:"label"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}
