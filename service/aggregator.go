package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/models"
)

// The aggregator keeps a parent order's status consistent with its
// operations and fires cross-aggregate side effects exactly once per
// transition, through the durable outbox.

// deriveOrderStatus is a pure function of the operation list and the order's
// running totals.
func deriveOrderStatus(order *models.ProductionOrder, ops []models.Operation) models.OrderStatus {
	if len(ops) == 0 {
		return order.Status
	}

	allPending := true
	allTerminal := true
	for _, o := range ops {
		if o.Status != models.OpPending {
			allPending = false
		}
		if !o.Status.IsTerminal() {
			allTerminal = false
		}
	}

	switch {
	case allPending:
		return models.OrderReleased
	case allTerminal && order.QuantityCompleted.GreaterThanOrEqual(order.QuantityOrdered):
		return models.OrderComplete
	case allTerminal:
		return models.OrderShort
	default:
		return models.OrderInProgress
	}
}

// syncOrderStatus recomputes the order's status from its operations inside
// the caller's transaction. On entry into COMPLETE it stamps the completion
// times and enqueues the finished-goods receipt and sales-order sync as
// outbox rows, committed atomically with the status change.
func (s *Service) syncOrderStatus(tx *gorm.DB, orderID uint) error {
	var order models.ProductionOrder
	if err := tx.Preload("Operations").First(&order, orderID).Error; err != nil {
		return err
	}
	if order.Status == models.OrderDraft || order.Status == models.OrderCancelled {
		return nil
	}

	newStatus := deriveOrderStatus(&order, order.Operations)
	if newStatus == order.Status {
		return nil
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": newStatus}
	if newStatus == models.OrderInProgress && order.ActualStart == nil {
		updates["actual_start"] = now
	}
	if newStatus == models.OrderComplete || newStatus == models.OrderShort {
		if order.ActualEnd == nil {
			updates["actual_end"] = now
		}
	}
	if newStatus == models.OrderComplete {
		updates["completed_at"] = now
	}

	if err := optimisticUpdate(tx, &models.ProductionOrder{}, order.ID, order.Version, updates); err != nil {
		return err
	}

	if newStatus == models.OrderComplete {
		effects := []models.OutboxEffect{
			{Kind: models.EffectFinishedGoodsReceipt, ProductionOrderID: order.ID},
		}
		if order.SalesOrderID != nil {
			effects = append(effects, models.OutboxEffect{
				Kind:              models.EffectSalesOrderSync,
				ProductionOrderID: order.ID,
			})
		}
		for i := range effects {
			if err := tx.Create(&effects[i]).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

const maxEffectAttempts = 5

// ProcessPendingEffects drains the outbox. Each effect is individually
// best-effort: a failure is recorded on the row and retried on the next
// drain, until the attempt budget is spent.
func (s *Service) ProcessPendingEffects(ctx context.Context) (int, error) {
	var effects []models.OutboxEffect
	err := s.db.WithContext(ctx).
		Where("status = ?", models.EffectPending).
		Order("id ASC").
		Find(&effects).Error
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range effects {
		effect := &effects[i]
		if err := s.runEffect(ctx, effect); err != nil {
			log.Printf("outbox effect %d (%s) failed: %v", effect.ID, effect.Kind, err)
			updates := map[string]interface{}{
				"attempts":   effect.Attempts + 1,
				"last_error": err.Error(),
			}
			if effect.Attempts+1 >= maxEffectAttempts {
				updates["status"] = models.EffectFailed
			}
			if err := s.db.WithContext(ctx).Model(effect).Updates(updates).Error; err != nil {
				log.Printf("failed to record outbox failure on effect %d: %v", effect.ID, err)
			}
			continue
		}
		now := time.Now().UTC()
		if err := s.db.WithContext(ctx).Model(effect).Updates(map[string]interface{}{
			"status":       models.EffectDone,
			"attempts":     effect.Attempts + 1,
			"processed_at": now,
		}).Error; err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (s *Service) runEffect(ctx context.Context, effect *models.OutboxEffect) error {
	var order models.ProductionOrder
	err := s.db.WithContext(ctx).Preload("Product").First(&order, effect.ProductionOrderID).Error
	if err != nil {
		return err
	}

	switch effect.Kind {
	case models.EffectFinishedGoodsReceipt:
		return s.receiver.Receive(ctx, &order, order.QuantityCompleted, "system")
	case models.EffectSalesOrderSync:
		return s.salesSync.OnProductionComplete(ctx, &order)
	default:
		return fmt.Errorf("unknown effect kind %q", effect.Kind)
	}
}

// gormFinishedGoodsReceiver books completed units into finished-goods stock
// and moves their standard cost out of WIP.
type gormFinishedGoodsReceiver struct {
	db    *gorm.DB
	costs CostLedger
}

func (r *gormFinishedGoodsReceiver) Receive(ctx context.Context, order *models.ProductionOrder, quantity decimal.Decimal, actor string) error {
	if !quantity.IsPositive() {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stock models.StockItem
		err := tx.Where("product_id = ?", order.ProductID).First(&stock).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stock = models.StockItem{ProductID: order.ProductID}
			if err := tx.Create(&stock).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		receiptCost := decimal.Zero
		if order.Product != nil {
			receiptCost = order.Product.StandardCost
		}
		newOnHand := stock.OnHand.Add(quantity)
		newUnitCost := stock.UnitCost
		if newOnHand.IsPositive() {
			newUnitCost = stock.OnHand.Mul(stock.UnitCost).
				Add(quantity.Mul(receiptCost)).
				Div(newOnHand)
		}

		return optimisticUpdate(tx, &models.StockItem{}, stock.ID, stock.Version, map[string]interface{}{
			"on_hand":   newOnHand,
			"unit_cost": newUnitCost,
		})
	})
	if err != nil {
		return err
	}

	if order.Product != nil && order.Product.StandardCost.IsPositive() {
		value := quantity.Mul(order.Product.StandardCost)
		memo := fmt.Sprintf("finished goods receipt: order %s", order.Code)
		if _, err := r.costs.Post(ctx, memo, []EntryLine{
			{Account: models.AccountFinishedGood, Debit: value},
			{Account: models.AccountWIP, Credit: value},
		}); err != nil {
			return err
		}
	}
	return nil
}

// gormSalesOrderSync advances the linked sales order's fulfillment once a
// make-to-order run completes.
type gormSalesOrderSync struct {
	db *gorm.DB
}

func (y *gormSalesOrderSync) OnProductionComplete(ctx context.Context, order *models.ProductionOrder) error {
	if order.SalesOrderID == nil || order.SalesOrderLineID == nil {
		return nil
	}

	return y.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// at-least-once caller: a retry after an earlier attempt already
		// folded this order in must not double-count the fulfillment
		var current models.ProductionOrder
		if err := tx.First(&current, order.ID).Error; err != nil {
			return err
		}
		if current.SalesSyncedAt != nil {
			return nil
		}

		var line models.SalesOrderLine
		if err := tx.First(&line, *order.SalesOrderLineID).Error; err != nil {
			return err
		}
		if err := tx.Model(&line).
			Update("quantity_fulfilled", line.QuantityFulfilled.Add(current.QuantityCompleted)).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ProductionOrder{}).
			Where("id = ?", current.ID).
			Update("sales_synced_at", time.Now().UTC()).Error; err != nil {
			return err
		}

		var lines []models.SalesOrderLine
		if err := tx.Where("sales_order_id = ?", *order.SalesOrderID).Find(&lines).Error; err != nil {
			return err
		}
		allFulfilled := true
		for _, l := range lines {
			if l.QuantityFulfilled.LessThan(l.Quantity) {
				allFulfilled = false
				break
			}
		}
		status := models.SOInProduction
		if allFulfilled {
			status = models.SOReady
		}
		return tx.Model(&models.SalesOrder{}).
			Where("id = ? AND status NOT IN ?", *order.SalesOrderID,
				[]models.SalesOrderStatus{models.SOShipped}).
			Update("status", status).Error
	})
}
