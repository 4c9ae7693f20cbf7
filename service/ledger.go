package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/models"
)

// gormCostLedger posts balanced entries. The balance invariant is enforced
// here at posting time, not assumed from the caller.
type gormCostLedger struct {
	db *gorm.DB
}

func (l *gormCostLedger) Post(ctx context.Context, memo string, lines []EntryLine) (*models.LedgerEntry, error) {
	if len(lines) < 2 {
		return nil, errors.New("ledger entry needs at least two lines")
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return nil, fmt.Errorf("negative amount on account %s", line.Account)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return nil, fmt.Errorf("line on account %s has both debit and credit", line.Account)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return nil, fmt.Errorf("%w: debit %s, credit %s", ErrUnbalancedEntry, totalDebit, totalCredit)
	}

	var entry models.LedgerEntry
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			var cnt int64
			if err := tx.Model(&models.LedgerAccount{}).Where("code = ?", line.Account).Count(&cnt).Error; err != nil {
				return err
			}
			if cnt == 0 {
				return fmt.Errorf("unknown ledger account %q", line.Account)
			}
		}

		entry = models.LedgerEntry{
			Reference: uuid.NewString(),
			Memo:      memo,
			PostedAt:  time.Now().UTC(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		for _, line := range lines {
			ll := models.LedgerLine{
				LedgerEntryID: entry.ID,
				AccountCode:   line.Account,
				Debit:         line.Debit,
				Credit:        line.Credit,
			}
			if err := tx.Create(&ll).Error; err != nil {
				return err
			}
			entry.Lines = append(entry.Lines, ll)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
