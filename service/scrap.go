package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/models"
)

// ScrapInput parameterizes a scrap cascade run.
type ScrapInput struct {
	Quantity          decimal.Decimal
	ReasonCode        string
	Notes             string
	CreateReplacement bool
	User              string
}

// ScrapResult is what a cascade produced.
type ScrapResult struct {
	RecordsCreated     int             `json:"records_created"`
	TotalScrapCost     decimal.Decimal `json:"total_scrap_cost"`
	LedgerEntryID      *uint           `json:"ledger_entry_id,omitempty"`
	ReplacementOrderID *uint           `json:"replacement_order_id,omitempty"`
}

// ProcessOperationScrap writes off every material consumed by operations up
// to and including the scrapping one, for the scrapped share of the run. A
// part scrapped late carries the sunk cost of every prior step, so the walk
// is over the whole prior chain. Emits one immutable ScrapRecord per
// (operation, material) pair and a balanced scrap-expense/WIP posting.
func (s *Service) ProcessOperationScrap(ctx context.Context, orderID, operationID uint, in ScrapInput) (*ScrapResult, error) {
	if !in.Quantity.IsPositive() {
		return nil, &ScrapError{Msg: "scrap quantity must be positive"}
	}

	var reason models.ScrapReason
	err := s.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", in.ReasonCode, true).
		First(&reason).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ScrapError{Msg: fmt.Sprintf("unknown scrap reason %q", in.ReasonCode)}
	}
	if err != nil {
		return nil, err
	}

	order, err := s.loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	op, err := findOperation(order, operationID)
	if err != nil {
		return nil, err
	}
	if order.QuantityOrdered.IsZero() {
		return nil, &ScrapError{Msg: "order has zero quantity"}
	}

	result := &ScrapResult{TotalScrapCost: decimal.Zero}

	var records []models.ScrapRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// prior operations inclusive: every step that fed the scrapped units
		for i := range order.Operations {
			prior := &order.Operations[i]
			if prior.Sequence > op.Sequence {
				continue
			}
			for j := range prior.Materials {
				mat := &prior.Materials[j]
				perUnit := mat.QuantityRequired.Div(order.QuantityOrdered)
				qty := perUnit.Mul(in.Quantity)

				unitCost, consumptionID := materialUnitCost(tx, mat)
				record := models.ScrapRecord{
					ProductionOrderID: order.ID,
					OperationID:       op.ID,
					OperationSequence: prior.Sequence,
					ProductID:         order.ProductID,
					ComponentID:       mat.ComponentID,
					Quantity:          qty,
					UnitCost:          unitCost,
					TotalCost:         qty.Mul(unitCost),
					ReasonCode:        in.ReasonCode,
					Notes:             in.Notes,
					CreatedBy:         in.User,
					ConsumptionID:     consumptionID,
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
				records = append(records, record)
				result.TotalScrapCost = result.TotalScrapCost.Add(record.TotalCost)
			}
		}
		result.RecordsCreated = len(records)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// cost posting happens after the records commit; a posting failure
	// leaves records without a ledger link, which reconciliation detects
	if result.TotalScrapCost.IsPositive() {
		memo := fmt.Sprintf("scrap write-off: order %s, operation %d, reason %s",
			order.Code, op.Sequence, in.ReasonCode)
		entry, err := s.costs.Post(ctx, memo, []EntryLine{
			{Account: models.AccountScrapExpense, Debit: result.TotalScrapCost},
			{Account: models.AccountWIP, Credit: result.TotalScrapCost},
		})
		if err != nil {
			return nil, &ScrapError{Msg: fmt.Sprintf("cost posting failed: %v", err)}
		}
		result.LedgerEntryID = &entry.ID
		ids := make([]uint, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		if err := s.db.WithContext(ctx).Model(&models.ScrapRecord{}).
			Where("id IN ?", ids).
			Update("ledger_entry_id", entry.ID).Error; err != nil {
			log.Printf("failed to link ledger entry %d to scrap records: %v", entry.ID, err)
		}
	}

	if in.CreateReplacement {
		remake, err := s.createRemakeOrder(ctx, order, in.Quantity, in.User)
		if err != nil {
			return nil, &ScrapError{Msg: fmt.Sprintf("replacement order failed: %v", err)}
		}
		result.ReplacementOrderID = &remake.ID
	}

	return result, nil
}

// materialUnitCost prefers the cost captured at consumption, then the moving
// average on the stock row, then the component's standard cost.
func materialUnitCost(tx *gorm.DB, mat *models.OperationMaterial) (decimal.Decimal, *uint) {
	var txn models.ConsumptionTransaction
	err := tx.Where("correlation_id = ?", consumptionCorrelationID(mat.OperationID, mat.ID)).
		First(&txn).Error
	if err == nil {
		return txn.CostPerUnit, &txn.ID
	}

	var stock models.StockItem
	if err := tx.Where("product_id = ?", mat.ComponentID).First(&stock).Error; err == nil {
		if stock.UnitCost.IsPositive() {
			return stock.UnitCost, nil
		}
	}

	var component models.Product
	if err := tx.First(&component, mat.ComponentID).Error; err == nil {
		return component.StandardCost, nil
	}
	return decimal.Zero, nil
}

// createRemakeOrder re-runs the scrapped quantity: a fresh released order
// carrying a remake_of back-reference, routing and BOM copied from the
// product templates.
func (s *Service) createRemakeOrder(ctx context.Context, original *models.ProductionOrder, quantity decimal.Decimal, user string) (*models.ProductionOrder, error) {
	var remake *models.ProductionOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := createOrderTx(tx, CreateOrderInput{
			ProductID: original.ProductID,
			Quantity:  quantity,
			Mode:      original.Mode,
			Priority:  original.Priority,
			DueDate:   original.DueDate,
			Notes:     fmt.Sprintf("remake for scrapped units of %s", original.Code),
			CreatedBy: user,
		})
		if err != nil {
			return err
		}
		if err := tx.Model(&models.ProductionOrder{}).
			Where("id = ?", created.ID).
			Update("remake_of_id", original.ID).Error; err != nil {
			return err
		}
		if err := releaseOrderTx(tx, created); err != nil {
			return err
		}
		remake = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, remake.ID)
}
