package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/models"
	"github.com/MCTRACO/filaops-sub000/utils"
)

// CreateOrderInput is a new manufacturing run: manual entry, sales-demand
// conversion or a remake.
type CreateOrderInput struct {
	ProductID        uint
	Quantity         decimal.Decimal
	Mode             models.OrderMode
	Priority         int
	DueDate          *time.Time
	SalesOrderID     *uint
	SalesOrderLineID *uint
	Notes            string
	CreatedBy        string
}

// CreateOrder creates a draft order. Routing and BOM are copied later, at
// release, so template edits before release still land.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.ProductionOrder, error) {
	var order *models.ProductionOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := createOrderTx(tx, in)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, order.ID)
}

func createOrderTx(tx *gorm.DB, in CreateOrderInput) (*models.ProductionOrder, error) {
	if !in.Quantity.IsPositive() {
		return nil, errors.New("order quantity must be positive")
	}
	if in.Priority == 0 {
		in.Priority = 3
	}
	if in.Priority < 1 || in.Priority > 5 {
		return nil, fmt.Errorf("priority must be between 1 and 5, got %d", in.Priority)
	}
	if in.Mode == "" {
		in.Mode = models.ModeMakeToStock
	}

	var product models.Product
	err := tx.First(&product, in.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !product.IsManufactured {
		return nil, fmt.Errorf("product %s is not manufactured", product.SKU)
	}

	now := time.Now().UTC()
	order := models.ProductionOrder{
		Code:             fmt.Sprintf("tmp-%d", now.UnixNano()),
		ProductID:        product.ID,
		QuantityOrdered:  in.Quantity,
		Mode:             in.Mode,
		Status:           models.OrderDraft,
		Priority:         in.Priority,
		DueDate:          in.DueDate,
		SalesOrderID:     in.SalesOrderID,
		SalesOrderLineID: in.SalesOrderLineID,
		Notes:            in.Notes,
		CreatedBy:        in.CreatedBy,
	}
	if err := tx.Create(&order).Error; err != nil {
		return nil, err
	}

	// backfill the real code from the row id so codes stay monotonic
	code := utils.GenOrderCode(int64(order.ID), now)
	if err := tx.Model(&models.ProductionOrder{}).
		Where("id = ?", order.ID).
		Update("code", code).Error; err != nil {
		return nil, err
	}
	order.Code = code
	return &order, nil
}

// ReleaseOrder copies the product's routing and BOM templates onto the order
// and allocates stock against the copied requirements.
func (s *Service) ReleaseOrder(ctx context.Context, orderID uint) (*models.ProductionOrder, error) {
	var order models.ProductionOrder
	err := s.db.WithContext(ctx).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderDraft {
		return nil, &InvalidStateError{Action: "release", Status: string(order.Status)}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return releaseOrderTx(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, order.ID)
}

func releaseOrderTx(tx *gorm.DB, order *models.ProductionOrder) error {
	var steps []models.RoutingStep
	if err := tx.Where("product_id = ?", order.ProductID).
		Order("sequence ASC").
		Find(&steps).Error; err != nil {
		return err
	}
	if len(steps) == 0 {
		return fmt.Errorf("product %d has no routing", order.ProductID)
	}

	var bom []models.BOMItem
	if err := tx.Where("product_id = ?", order.ProductID).Find(&bom).Error; err != nil {
		return err
	}

	for _, step := range steps {
		op := models.Operation{
			ProductionOrderID:   order.ID,
			Sequence:            step.Sequence,
			Name:                step.Name,
			Status:              models.OpPending,
			PlannedSetupMinutes: step.PlannedSetupMinutes,
			PlannedRunMinutes:   step.PlannedRunMinutes,
		}
		if err := tx.Create(&op).Error; err != nil {
			return err
		}

		for _, item := range bom {
			if item.StepSequence != step.Sequence {
				continue
			}
			required := item.QuantityPer.Mul(order.QuantityOrdered)
			mat := models.OperationMaterial{
				OperationID:      op.ID,
				ComponentID:      item.ComponentID,
				QuantityRequired: required,
				Status:           models.MatPending,
			}

			// allocate what stock can cover right now
			var stock models.StockItem
			err := tx.Where("product_id = ?", item.ComponentID).First(&stock).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil {
				alloc := decimal.Min(required, stock.Available())
				if alloc.IsPositive() {
					if err := optimisticUpdate(tx, &models.StockItem{}, stock.ID, stock.Version, map[string]interface{}{
						"allocated": stock.Allocated.Add(alloc),
					}); err != nil {
						return err
					}
					mat.QuantityAllocated = alloc
					if alloc.Equal(required) {
						mat.Status = models.MatAllocated
					}
				}
			}

			if err := tx.Create(&mat).Error; err != nil {
				return err
			}
		}
	}

	return optimisticUpdate(tx, &models.ProductionOrder{}, order.ID, order.Version, map[string]interface{}{
		"status": models.OrderReleased,
	})
}

// CancelOrder soft-cancels an order that has not started: allocations go
// back to stock, the order keeps its rows under a CANCELLED status.
func (s *Service) CancelOrder(ctx context.Context, orderID uint, reason string) (*models.ProductionOrder, error) {
	order, err := s.loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderCancelled {
		return order, nil
	}
	if order.Status != models.OrderDraft && order.Status != models.OrderReleased {
		return nil, &InvalidStateError{Action: "cancel", Status: string(order.Status)}
	}
	for _, op := range order.Operations {
		if op.Status == models.OpRunning || op.Status == models.OpComplete {
			return nil, &InvalidStateError{Action: "cancel", Status: string(op.Status)}
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range order.Operations {
			for j := range order.Operations[i].Materials {
				mat := &order.Operations[i].Materials[j]
				if !mat.QuantityAllocated.IsPositive() {
					continue
				}
				var stock models.StockItem
				err := tx.Where("product_id = ?", mat.ComponentID).First(&stock).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if err := optimisticUpdate(tx, &models.StockItem{}, stock.ID, stock.Version, map[string]interface{}{
					"allocated": stock.Allocated.Sub(mat.QuantityAllocated),
				}); err != nil {
					return err
				}
				if err := tx.Model(&models.OperationMaterial{}).
					Where("id = ?", mat.ID).
					Updates(map[string]interface{}{
						"quantity_allocated": decimal.Zero,
						"status":             models.MatReturned,
					}).Error; err != nil {
					return err
				}
			}
		}

		notes := order.Notes
		if reason != "" {
			if notes != "" {
				notes += "\n"
			}
			notes += "cancelled: " + reason
		}
		return optimisticUpdate(tx, &models.ProductionOrder{}, order.ID, order.Version, map[string]interface{}{
			"status": models.OrderCancelled,
			"notes":  notes,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, order.ID)
}

// CreateOrderFromSalesLine converts demand into a make-to-order run linked
// back to its sales line.
func (s *Service) CreateOrderFromSalesLine(ctx context.Context, salesOrderID, lineID uint, createdBy string) (*models.ProductionOrder, error) {
	var line models.SalesOrderLine
	err := s.db.WithContext(ctx).
		Where("id = ? AND sales_order_id = ?", lineID, salesOrderID).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	outstanding := line.Quantity.Sub(line.QuantityFulfilled)
	if !outstanding.IsPositive() {
		return nil, errors.New("sales line is already fulfilled")
	}

	return s.CreateOrder(ctx, CreateOrderInput{
		ProductID:        line.ProductID,
		Quantity:         outstanding,
		Mode:             models.ModeMakeToOrder,
		SalesOrderID:     &salesOrderID,
		SalesOrderLineID: &lineID,
		CreatedBy:        createdBy,
	})
}

// GetOrder loads an order with its full operation tree.
func (s *Service) GetOrder(ctx context.Context, orderID uint) (*models.ProductionOrder, error) {
	return s.loadOrder(s.db.WithContext(ctx), orderID)
}
