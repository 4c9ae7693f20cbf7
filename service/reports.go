package service

import (
	"context"
	"time"

	"github.com/MCTRACO/filaops-sub000/models"
)

type OrderFilter struct {
	Status   string
	Mode     string
	Page     int
	PageSize int
}

// ListOrders returns orders newest-first with optional status/mode filters.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) ([]models.ProductionOrder, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 200 {
		f.PageSize = 50
	}

	q := s.db.WithContext(ctx).Model(&models.ProductionOrder{}).Preload("Product")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Mode != "" {
		q = q.Where("mode = ?", f.Mode)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.ProductionOrder
	offset := (f.Page - 1) * f.PageSize
	if err := q.Order("id DESC").Offset(offset).Limit(f.PageSize).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// MachineSchedule lists the open operations holding or queued on a machine
// within the window, soonest first.
func (s *Service) MachineSchedule(ctx context.Context, machineID uint, from, to time.Time) ([]models.Operation, error) {
	var ops []models.Operation
	err := s.db.WithContext(ctx).
		Joins("JOIN production_orders ON production_orders.id = operations.production_order_id").
		Where("operations.machine_id = ?", machineID).
		Where("operations.status NOT IN ?", []models.OperationStatus{models.OpComplete, models.OpSkipped}).
		Where("production_orders.status <> ?", models.OrderCancelled).
		Where("operations.scheduled_start < ? AND operations.scheduled_end > ?", to, from).
		Order("operations.scheduled_start ASC").
		Find(&ops).Error
	return ops, err
}

type ScrapSummaryRow struct {
	ReasonCode    string  `json:"reason_code"`
	Records       int64   `json:"records"`
	TotalQuantity float64 `json:"total_quantity"`
	TotalCost     float64 `json:"total_cost"`
}

// ScrapSummary aggregates scrap records by reason code.
func (s *Service) ScrapSummary(ctx context.Context) ([]ScrapSummaryRow, error) {
	var rows []ScrapSummaryRow
	err := s.db.WithContext(ctx).
		Model(&models.ScrapRecord{}).
		Select(`
			reason_code,
			COUNT(id)       AS records,
			SUM(quantity)   AS total_quantity,
			SUM(total_cost) AS total_cost
		`).
		Group("reason_code").
		Order("total_cost DESC").
		Scan(&rows).Error
	return rows, err
}

// ListScrapRecords returns the scrap audit trail for one order.
func (s *Service) ListScrapRecords(ctx context.Context, orderID uint) ([]models.ScrapRecord, error) {
	var records []models.ScrapRecord
	err := s.db.WithContext(ctx).
		Where("production_order_id = ?", orderID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}
