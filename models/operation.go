package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationStatus string

const (
	OpPending  OperationStatus = "PENDING"
	OpQueued   OperationStatus = "QUEUED"
	OpRunning  OperationStatus = "RUNNING"
	OpComplete OperationStatus = "COMPLETE"
	OpSkipped  OperationStatus = "SKIPPED"
)

// IsTerminal reports whether the status can never change again.
func (s OperationStatus) IsTerminal() bool {
	return s == OpComplete || s == OpSkipped
}

// Operation is one ordered step of a ProductionOrder. Sequence is a total
// order; gaps are allowed so steps can be inserted later.
type Operation struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	ProductionOrderID uint            `gorm:"index;not null" json:"production_order_id"`
	Sequence          int             `gorm:"not null" json:"sequence"`
	Name              string          `gorm:"not null" json:"name"`
	Status            OperationStatus `gorm:"size:20;not null;default:PENDING" json:"status"`

	MachineID *uint    `gorm:"index" json:"machine_id"`
	Machine   *Machine `json:"machine,omitempty"`

	PlannedSetupMinutes int `gorm:"default:0" json:"planned_setup_minutes"`
	PlannedRunMinutes   int `gorm:"default:0" json:"planned_run_minutes"`

	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
	ActualStart    *time.Time `json:"actual_start"`
	ActualEnd      *time.Time `json:"actual_end"`

	ActualRunMinutes  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"actual_run_minutes"`
	QuantityCompleted decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_completed"`
	QuantityScrapped  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_scrapped"`
	ScrapReason       string          `json:"scrap_reason"`
	SkipReason        string          `json:"skip_reason"`

	Operator string `json:"operator"`
	Notes    string `gorm:"type:text" json:"notes"`

	Version int `gorm:"not null;default:0" json:"version"`

	Materials []OperationMaterial `json:"materials,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MaterialStatus string

const (
	MatPending   MaterialStatus = "PENDING"
	MatAllocated MaterialStatus = "ALLOCATED"
	MatConsumed  MaterialStatus = "CONSUMED"
	MatReturned  MaterialStatus = "RETURNED"
)

// OperationMaterial is a per-operation consumption requirement copied from the
// product's BOM at order release.
type OperationMaterial struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	OperationID uint     `gorm:"index;not null" json:"operation_id"`
	ComponentID uint     `gorm:"not null" json:"component_id"`
	Component   *Product `json:"component,omitempty"`

	QuantityRequired  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_required"`
	QuantityAllocated decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_allocated"`
	QuantityConsumed  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_consumed"`

	LotNumber string         `json:"lot_number"`
	Status    MaterialStatus `gorm:"size:20;not null;default:PENDING" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
