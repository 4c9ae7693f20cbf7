package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/models"
)

// gormMaterialLedger is the stock-backed MaterialLedger. Consumption is an
// append-only movement log over per-product stock rows with a moving-average
// unit cost.
type gormMaterialLedger struct {
	db *gorm.DB
}

func (m *gormMaterialLedger) CheckBlocking(ctx context.Context, op *models.Operation) (*BlockingReport, error) {
	report := &BlockingReport{CanStart: true}

	for i := range op.Materials {
		mat := &op.Materials[i]
		outstanding := mat.QuantityRequired.Sub(mat.QuantityConsumed)
		if !outstanding.IsPositive() {
			continue
		}

		var stock models.StockItem
		err := m.db.WithContext(ctx).
			Preload("Product").
			Where("product_id = ?", mat.ComponentID).
			First(&stock).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stock = models.StockItem{ProductID: mat.ComponentID}
		} else if err != nil {
			return nil, err
		}

		// the operation's own allocation is usable stock for this check
		available := stock.Available().Add(mat.QuantityAllocated)
		if available.GreaterThanOrEqual(outstanding) {
			continue
		}

		sku := fmt.Sprintf("product-%d", mat.ComponentID)
		if mat.Component != nil {
			sku = mat.Component.SKU
		} else if stock.Product != nil {
			sku = stock.Product.SKU
		}
		report.CanStart = false
		report.Shortages = append(report.Shortages, Shortage{
			SKU:       sku,
			Required:  outstanding,
			Available: available,
			Short:     outstanding.Sub(available),
		})
	}

	return report, nil
}

func consumptionCorrelationID(operationID, materialID uint) string {
	return fmt.Sprintf("consume-%d-%d", operationID, materialID)
}

func (m *gormMaterialLedger) Consume(ctx context.Context, mat *models.OperationMaterial, order *models.ProductionOrder, quantity decimal.Decimal, actor string) (*models.ConsumptionTransaction, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("consumption quantity must be positive, got %s", quantity)
	}

	correlationID := consumptionCorrelationID(mat.OperationID, mat.ID)

	var result *models.ConsumptionTransaction
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// at-least-once callers: a repeat with the same key is a no-op
		var existing models.ConsumptionTransaction
		err := tx.Where("correlation_id = ?", correlationID).First(&existing).Error
		if err == nil {
			result = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var stock models.StockItem
		err = tx.Where("product_id = ?", mat.ComponentID).First(&stock).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no stock record for component %d", mat.ComponentID)
		}
		if err != nil {
			return err
		}

		// never let a draw push on-hand negative
		if quantity.GreaterThan(stock.OnHand) {
			return fmt.Errorf("%w: component %d has %s on hand, need %s",
				ErrInsufficientStock, mat.ComponentID, stock.OnHand, quantity)
		}

		costPerUnit := stock.UnitCost
		if costPerUnit.IsZero() {
			var component models.Product
			if err := tx.First(&component, mat.ComponentID).Error; err == nil {
				costPerUnit = component.StandardCost
			}
		}

		release := decimal.Min(quantity, mat.QuantityAllocated)
		if err := optimisticUpdate(tx, &models.StockItem{}, stock.ID, stock.Version, map[string]interface{}{
			"on_hand":   stock.OnHand.Sub(quantity),
			"allocated": stock.Allocated.Sub(release),
		}); err != nil {
			return err
		}

		txn := models.ConsumptionTransaction{
			CorrelationID:       correlationID,
			ProductionOrderID:   order.ID,
			OperationID:         mat.OperationID,
			OperationMaterialID: mat.ID,
			ComponentID:         mat.ComponentID,
			Quantity:            quantity,
			CostPerUnit:         costPerUnit,
			TotalCost:           quantity.Mul(costPerUnit),
			ConsumedBy:          actor,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.OperationMaterial{}).
			Where("id = ?", mat.ID).
			Updates(map[string]interface{}{
				"quantity_consumed":  mat.QuantityConsumed.Add(quantity),
				"quantity_allocated": mat.QuantityAllocated.Sub(release),
				"status":             models.MatConsumed,
			}).Error; err != nil {
			return err
		}

		result = &txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReceiveStock books purchased or found quantity into stock, folding the
// receipt cost into the moving average.
func (s *Service) ReceiveStock(ctx context.Context, productID uint, quantity, unitCost decimal.Decimal) (*models.StockItem, error) {
	if !quantity.IsPositive() {
		return nil, errors.New("receipt quantity must be positive")
	}

	var stock models.StockItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		err := tx.Where("product_id = ?", productID).First(&stock).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stock = models.StockItem{ProductID: productID}
			if err := tx.Create(&stock).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		newOnHand := stock.OnHand.Add(quantity)
		newUnitCost := stock.UnitCost
		if newOnHand.IsPositive() {
			newUnitCost = stock.OnHand.Mul(stock.UnitCost).
				Add(quantity.Mul(unitCost)).
				Div(newOnHand)
		}
		return optimisticUpdate(tx, &models.StockItem{}, stock.ID, stock.Version, map[string]interface{}{
			"on_hand":   newOnHand,
			"unit_cost": newUnitCost,
		})
	})
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Preload("Product").Where("product_id = ?", productID).First(&stock).Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func (m *gormMaterialLedger) Return(ctx context.Context, mat *models.OperationMaterial) error {
	if !mat.QuantityAllocated.IsPositive() {
		return nil
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stock models.StockItem
		err := tx.Where("product_id = ?", mat.ComponentID).First(&stock).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := optimisticUpdate(tx, &models.StockItem{}, stock.ID, stock.Version, map[string]interface{}{
			"allocated": stock.Allocated.Sub(mat.QuantityAllocated),
		}); err != nil {
			return err
		}
		return tx.Model(&models.OperationMaterial{}).
			Where("id = ?", mat.ID).
			Updates(map[string]interface{}{
				"quantity_allocated": decimal.Zero,
				"status":             models.MatReturned,
			}).Error
	})
}
