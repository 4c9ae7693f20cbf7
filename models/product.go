package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SKU            string          `gorm:"uniqueIndex;not null" json:"sku"`
	Name           string          `gorm:"not null" json:"name"`
	Unit           string          `gorm:"default:pcs" json:"unit"`
	StandardCost   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"standard_cost"`
	SellPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sell_price"`
	IsManufactured bool            `gorm:"default:false" json:"is_manufactured"`

	RoutingSteps []RoutingStep `json:"routing_steps,omitempty"`
	BOMItems     []BOMItem     `json:"bom_items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoutingStep is the template an Operation is copied from at order release.
type RoutingStep struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	ProductID           uint   `gorm:"index;not null" json:"product_id"`
	Sequence            int    `gorm:"not null" json:"sequence"`
	Name                string `gorm:"not null" json:"name"`
	WorkCenter          string `json:"work_center"`
	PlannedSetupMinutes int    `gorm:"default:0" json:"planned_setup_minutes"`
	PlannedRunMinutes   int    `gorm:"default:0" json:"planned_run_minutes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BOMItem is the template an OperationMaterial is copied from. StepSequence
// names the routing step that consumes the component.
type BOMItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ProductID    uint            `gorm:"index;not null" json:"product_id"`
	StepSequence int             `gorm:"not null" json:"step_sequence"`
	ComponentID  uint            `gorm:"not null" json:"component_id"`
	Component    *Product        `json:"component,omitempty"`
	QuantityPer  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_per"`
	Unit         string          `gorm:"default:pcs" json:"unit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
