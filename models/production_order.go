package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderMode string

const (
	ModeMakeToOrder OrderMode = "MAKE_TO_ORDER"
	ModeMakeToStock OrderMode = "MAKE_TO_STOCK"
)

type OrderStatus string

const (
	OrderDraft      OrderStatus = "DRAFT"
	OrderReleased   OrderStatus = "RELEASED"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderComplete   OrderStatus = "COMPLETE"
	OrderShort      OrderStatus = "SHORT"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// ProductionOrder is one manufacturing run. Orders are never hard-deleted;
// cancellation is a status.
type ProductionOrder struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	Code      string   `gorm:"uniqueIndex;not null" json:"code"`
	ProductID uint     `gorm:"index;not null" json:"product_id"`
	Product   *Product `json:"product,omitempty"`

	QuantityOrdered   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_ordered"`
	QuantityCompleted decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_completed"`
	QuantityScrapped  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_scrapped"`

	Mode     OrderMode   `gorm:"size:20;not null;default:MAKE_TO_STOCK" json:"mode"`
	Status   OrderStatus `gorm:"size:20;not null;default:DRAFT" json:"status"`
	Priority int         `gorm:"default:3" json:"priority"` // 1 = highest, 5 = lowest
	DueDate  *time.Time  `json:"due_date"`

	SalesOrderID     *uint `json:"sales_order_id"`
	SalesOrderLineID *uint `json:"sales_order_line_id"`

	// id back-references only; a remake never owns its original
	ParentOrderID *uint `json:"parent_order_id"`
	RemakeOfID    *uint `json:"remake_of_id"`

	ActualStart *time.Time `json:"actual_start"`
	ActualEnd   *time.Time `json:"actual_end"`
	CompletedAt *time.Time `json:"completed_at"`

	// set when this order's completion has been folded into its sales
	// line, so outbox retries cannot double-count the fulfillment
	SalesSyncedAt *time.Time `json:"sales_synced_at"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedBy   string     `json:"created_by"`

	Version int `gorm:"not null;default:0" json:"version"`

	Operations []Operation `json:"operations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
