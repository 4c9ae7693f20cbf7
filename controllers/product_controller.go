package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/config"
	"github.com/MCTRACO/filaops-sub000/models"
	"github.com/MCTRACO/filaops-sub000/utils"
)

type RoutingStepInput struct {
	Sequence            int    `json:"sequence" binding:"required"`
	Name                string `json:"name" binding:"required"`
	WorkCenter          string `json:"work_center"`
	PlannedSetupMinutes int    `json:"planned_setup_minutes"`
	PlannedRunMinutes   int    `json:"planned_run_minutes"`
}

type BOMItemInput struct {
	StepSequence int             `json:"step_sequence" binding:"required"`
	ComponentID  uint            `json:"component_id" binding:"required"`
	QuantityPer  decimal.Decimal `json:"quantity_per" binding:"required"`
	Unit         string          `json:"unit"`
}

type ProductInput struct {
	SKU            string             `json:"sku" binding:"required"`
	Name           string             `json:"name" binding:"required"`
	Unit           string             `json:"unit"`
	StandardCost   decimal.Decimal    `json:"standard_cost"`
	SellPrice      decimal.Decimal    `json:"sell_price"`
	IsManufactured bool               `json:"is_manufactured"`
	RoutingSteps   []RoutingStepInput `json:"routing_steps"`
	BOMItems       []BOMItemInput     `json:"bom_items"`
}

func CreateProduct(c *gin.Context) {
	var in ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	product := models.Product{
		SKU:            in.SKU,
		Name:           in.Name,
		Unit:           in.Unit,
		StandardCost:   in.StandardCost,
		SellPrice:      in.SellPrice,
		IsManufactured: in.IsManufactured,
	}
	for _, s := range in.RoutingSteps {
		product.RoutingSteps = append(product.RoutingSteps, models.RoutingStep{
			Sequence:            s.Sequence,
			Name:                s.Name,
			WorkCenter:          s.WorkCenter,
			PlannedSetupMinutes: s.PlannedSetupMinutes,
			PlannedRunMinutes:   s.PlannedRunMinutes,
		})
	}
	for _, b := range in.BOMItems {
		product.BOMItems = append(product.BOMItems, models.BOMItem{
			StepSequence: b.StepSequence,
			ComponentID:  b.ComponentID,
			QuantityPer:  b.QuantityPer,
			Unit:         b.Unit,
		})
	}

	if err := config.DB.Create(&product).Error; err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "product created", "data": product})
}

func ListProducts(c *gin.Context) {
	var products []models.Product
	q := config.DB.Order("sku ASC")
	if c.Query("manufactured") == "true" {
		q = q.Where("is_manufactured = ?", true)
	}
	if err := q.Find(&products).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to list products", err)
		return
	}
	utils.Success(c, "ok", products)
}

func GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var product models.Product
	if err := config.DB.
		Preload("RoutingSteps", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Preload("BOMItems.Component").
		First(&product, id).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "product not found", err)
		return
	}
	utils.Success(c, "ok", product)
}
