package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SalesOrderStatus string

const (
	SOPending      SalesOrderStatus = "PENDING"
	SOInProduction SalesOrderStatus = "IN_PRODUCTION"
	SOReady        SalesOrderStatus = "READY"
	SOShipped      SalesOrderStatus = "SHIPPED"
)

type SalesOrder struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	Code         string           `gorm:"uniqueIndex;not null" json:"code"`
	CustomerName string           `gorm:"not null" json:"customer_name"`
	Status       SalesOrderStatus `gorm:"size:20;not null;default:PENDING" json:"status"`

	Lines []SalesOrderLine `json:"lines,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SalesOrderLine struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	SalesOrderID uint     `gorm:"index;not null" json:"sales_order_id"`
	ProductID    uint     `gorm:"not null" json:"product_id"`
	Product      *Product `json:"product,omitempty"`

	Quantity          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	QuantityFulfilled decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_fulfilled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
