package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MCTRACO/filaops-sub000/config"
	"github.com/MCTRACO/filaops-sub000/models"
	"github.com/MCTRACO/filaops-sub000/utils"
)

type SalesLineInput struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

type SalesOrderInput struct {
	CustomerName string           `json:"customer_name" binding:"required"`
	Lines        []SalesLineInput `json:"lines" binding:"required,min=1"`
}

func CreateSalesOrder(c *gin.Context) {
	var in SalesOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	var so models.SalesOrder
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		so = models.SalesOrder{
			Code:         fmt.Sprintf("tmp-%d", now.UnixNano()),
			CustomerName: in.CustomerName,
			Status:       models.SOPending,
		}
		for _, l := range in.Lines {
			so.Lines = append(so.Lines, models.SalesOrderLine{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
			})
		}
		if err := tx.Create(&so).Error; err != nil {
			return err
		}
		code := utils.GenSalesCode(int64(so.ID), now)
		if err := tx.Model(&models.SalesOrder{}).
			Where("id = ?", so.ID).
			Update("code", code).Error; err != nil {
			return err
		}
		so.Code = code
		return nil
	})
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to create sales order", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "sales order created", "data": so})
}

func GetSalesOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var so models.SalesOrder
	if err := config.DB.Preload("Lines.Product").First(&so, id).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "sales order not found", err)
		return
	}
	utils.Success(c, "ok", so)
}

// ConvertSalesLine turns an open sales line into a make-to-order production
// order linked back to it.
func ConvertSalesLine(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	lineID, ok := paramID(c, "lineID")
	if !ok {
		return
	}

	order, err := Engine().CreateOrderFromSalesLine(c.Request.Context(), id, lineID, actorName(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "production order created", "data": order})
}
