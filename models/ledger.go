package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Seeded account codes used by the execution engine.
const (
	AccountWIP          = "WIP"
	AccountScrapExpense = "SCRAP_EXPENSE"
	AccountRawMaterials = "RAW_MATERIALS"
	AccountFinishedGood = "FINISHED_GOODS"
)

type LedgerAccount struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"uniqueIndex;not null" json:"code"`
	Name string `gorm:"not null" json:"name"`
}

// LedgerEntry is a balanced posting: the sum of line debits equals the sum of
// line credits, verified at posting time.
type LedgerEntry struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Reference string       `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	Memo      string       `json:"memo"`
	PostedAt  time.Time    `gorm:"not null" json:"posted_at"`
	Lines     []LedgerLine `json:"lines,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type LedgerLine struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	LedgerEntryID uint            `gorm:"index;not null" json:"ledger_entry_id"`
	AccountCode   string          `gorm:"size:50;not null" json:"account_code"`
	Debit         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
}
