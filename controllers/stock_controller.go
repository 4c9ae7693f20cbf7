package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MCTRACO/filaops-sub000/config"
	"github.com/MCTRACO/filaops-sub000/models"
	"github.com/MCTRACO/filaops-sub000/utils"
)

type StockReceiptInput struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

func ReceiveStock(c *gin.Context) {
	var in StockReceiptInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	stock, err := Engine().ReceiveStock(c.Request.Context(), in.ProductID, in.Quantity, in.UnitCost)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "stock received", stock)
}

func ListStock(c *gin.Context) {
	var items []models.StockItem
	if err := config.DB.Preload("Product").Order("product_id ASC").Find(&items).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to list stock", err)
		return
	}
	utils.Success(c, "ok", items)
}
