package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MCTRACO/filaops-sub000/config"
	"github.com/MCTRACO/filaops-sub000/models"
)

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.RoutingStep{},
		&models.BOMItem{},
		&models.Machine{},
		&models.ProductionOrder{},
		&models.Operation{},
		&models.OperationMaterial{},
		&models.StockItem{},
		&models.ConsumptionTransaction{},
		&models.ScrapReason{},
		&models.ScrapRecord{},
		&models.LedgerAccount{},
		&models.LedgerEntry{},
		&models.LedgerLine{},
		&models.SalesOrder{},
		&models.SalesOrderLine{},
		&models.OutboxEffect{},
	))

	config.SeedReferenceData(db)
	return db
}

// fixture is a three-step bracket print: print consumes filament, assemble
// consumes heat-set inserts, the cleanup step in between has no materials.
type fixture struct {
	db  *gorm.DB
	svc *Service

	bracket  *models.Product
	filament *models.Product
	insert   *models.Product
	machine  *models.Machine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()

	filament := &models.Product{
		SKU: "PLA-BLK", Name: "PLA filament, black", Unit: "g",
		StandardCost: decimal.RequireFromString("0.05"),
	}
	insert := &models.Product{
		SKU: "INSERT-M3", Name: "M3 heat-set insert", Unit: "pcs",
		StandardCost: decimal.RequireFromString("0.20"),
	}
	bracket := &models.Product{
		SKU: "BRACKET-V2", Name: "Camera mount bracket", Unit: "pcs",
		StandardCost:   decimal.RequireFromString("12"),
		IsManufactured: true,
	}
	require.NoError(t, db.Create(filament).Error)
	require.NoError(t, db.Create(insert).Error)
	require.NoError(t, db.Create(bracket).Error)

	steps := []models.RoutingStep{
		{ProductID: bracket.ID, Sequence: 10, Name: "print", PlannedRunMinutes: 90},
		{ProductID: bracket.ID, Sequence: 20, Name: "cleanup", PlannedRunMinutes: 10},
		{ProductID: bracket.ID, Sequence: 30, Name: "assemble", PlannedRunMinutes: 15},
	}
	for i := range steps {
		require.NoError(t, db.Create(&steps[i]).Error)
	}

	bom := []models.BOMItem{
		{ProductID: bracket.ID, StepSequence: 10, ComponentID: filament.ID, QuantityPer: decimal.RequireFromString("25"), Unit: "g"},
		{ProductID: bracket.ID, StepSequence: 30, ComponentID: insert.ID, QuantityPer: decimal.RequireFromString("4"), Unit: "pcs"},
	}
	for i := range bom {
		require.NoError(t, db.Create(&bom[i]).Error)
	}

	_, err := svc.ReceiveStock(ctx, filament.ID, decimal.RequireFromString("10000"), decimal.RequireFromString("0.05"))
	require.NoError(t, err)
	_, err = svc.ReceiveStock(ctx, insert.ID, decimal.RequireFromString("500"), decimal.RequireFromString("0.20"))
	require.NoError(t, err)

	machine := &models.Machine{Code: "P1-MK4", Name: "Prusa MK4 #1", IsActive: true}
	require.NoError(t, db.Create(machine).Error)

	return &fixture{
		db:       db,
		svc:      svc,
		bracket:  bracket,
		filament: filament,
		insert:   insert,
		machine:  machine,
	}
}

// releasedOrder creates and releases a bracket order of the given quantity.
func (f *fixture) releasedOrder(t *testing.T, quantity string) *models.ProductionOrder {
	t.Helper()
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		ProductID: f.bracket.ID,
		Quantity:  decimal.RequireFromString(quantity),
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	order, err = f.svc.ReleaseOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, order.Operations, 3)
	return order
}

// runThrough starts and completes one operation with the given quantities.
func (f *fixture) runThrough(t *testing.T, order *models.ProductionOrder, opIndex int, completed, scrapped, reason string) *CompleteResult {
	t.Helper()
	ctx := context.Background()
	op := order.Operations[opIndex]

	_, err := f.svc.StartOperation(ctx, order.ID, op.ID, StartInput{Operator: "tester"})
	require.NoError(t, err)

	result, err := f.svc.CompleteOperation(ctx, order.ID, op.ID, CompleteInput{
		QuantityCompleted: decimal.RequireFromString(completed),
		QuantityScrapped:  decimal.RequireFromString(scrapped),
		ScrapReason:       reason,
		User:              "tester",
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) reloadOrder(t *testing.T, id uint) *models.ProductionOrder {
	t.Helper()
	order, err := f.svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return order
}

func requireDecimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got),
		"want %s, got %s", want, got.String())
}
