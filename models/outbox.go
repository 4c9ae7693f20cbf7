package models

import "time"

type EffectKind string

const (
	EffectFinishedGoodsReceipt EffectKind = "FINISHED_GOODS_RECEIPT"
	EffectSalesOrderSync       EffectKind = "SALES_ORDER_SYNC"
)

type EffectStatus string

const (
	EffectPending EffectStatus = "PENDING"
	EffectDone    EffectStatus = "DONE"
	EffectFailed  EffectStatus = "FAILED"
)

// OutboxEffect is a durable pending side effect, written in the same
// transaction as the state change that caused it and drained by the
// reconciler. Failed rows keep their error and stay retryable.
type OutboxEffect struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	Kind              EffectKind   `gorm:"size:40;not null" json:"kind"`
	ProductionOrderID uint         `gorm:"index;not null" json:"production_order_id"`
	Status            EffectStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	Attempts          int          `gorm:"default:0" json:"attempts"`
	LastError         string       `gorm:"type:text" json:"last_error"`
	ProcessedAt       *time.Time   `json:"processed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
