package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MCTRACO/filaops-sub000/models"
	"github.com/MCTRACO/filaops-sub000/service"
	"github.com/MCTRACO/filaops-sub000/utils"
)

func paramID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid "+name, err)
		return 0, false
	}
	return uint(n), true
}

type OrderCreateInput struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Mode      string          `json:"mode"`
	Priority  int             `json:"priority"`
	DueDate   *time.Time      `json:"due_date"`
	Notes     string          `json:"notes"`
}

func CreateOrder(c *gin.Context) {
	var in OrderCreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	order, err := Engine().CreateOrder(c.Request.Context(), service.CreateOrderInput{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Mode:      models.OrderMode(in.Mode),
		Priority:  in.Priority,
		DueDate:   in.DueDate,
		Notes:     in.Notes,
		CreatedBy: actorName(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "order created", "data": order})
}

func ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	orders, total, err := Engine().ListOrders(c.Request.Context(), service.OrderFilter{
		Status:   c.Query("status"),
		Mode:     c.Query("mode"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders, "total": total})
}

func GetOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := Engine().GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "ok", order)
}

func ReleaseOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := Engine().ReleaseOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "order released", order)
}

type CancelInput struct {
	Reason string `json:"reason"`
}

func CancelOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in CancelInput
	_ = c.ShouldBindJSON(&in)

	order, err := Engine().CancelOrder(c.Request.Context(), id, in.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "order cancelled", order)
}

func OrderScrapRecords(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	records, err := Engine().ListScrapRecords(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "ok", records)
}

func ScrapSummary(c *gin.Context) {
	rows, err := Engine().ScrapSummary(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "ok", rows)
}
