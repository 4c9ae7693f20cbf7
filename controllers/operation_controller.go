package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MCTRACO/filaops-sub000/service"
	"github.com/MCTRACO/filaops-sub000/utils"
)

type StartOperationInput struct {
	MachineID *uint  `json:"machine_id"`
	Notes     string `json:"notes"`
}

func StartOperation(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	opID, ok := paramID(c, "opID")
	if !ok {
		return
	}

	var in StartOperationInput
	_ = c.ShouldBindJSON(&in)

	op, err := Engine().StartOperation(c.Request.Context(), orderID, opID, service.StartInput{
		MachineID: in.MachineID,
		Operator:  actorName(c),
		Notes:     in.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "operation started", op)
}

type CompleteOperationInput struct {
	QuantityCompleted decimal.Decimal  `json:"quantity_completed"`
	QuantityScrapped  decimal.Decimal  `json:"quantity_scrapped"`
	ScrapReason       string           `json:"scrap_reason"`
	ScrapNotes        string           `json:"scrap_notes"`
	ActualRunMinutes  *decimal.Decimal `json:"actual_run_minutes"`
	Notes             string           `json:"notes"`
	CreateReplacement bool             `json:"create_replacement"`
}

func CompleteOperation(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	opID, ok := paramID(c, "opID")
	if !ok {
		return
	}

	var in CompleteOperationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	result, err := Engine().CompleteOperation(c.Request.Context(), orderID, opID, service.CompleteInput{
		QuantityCompleted: in.QuantityCompleted,
		QuantityScrapped:  in.QuantityScrapped,
		ScrapReason:       in.ScrapReason,
		ScrapNotes:        in.ScrapNotes,
		ActualRunMinutes:  in.ActualRunMinutes,
		Notes:             in.Notes,
		CreateReplacement: in.CreateReplacement,
		User:              actorName(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "operation completed", result)
}

type SkipOperationInput struct {
	Reason string `json:"reason" binding:"required"`
}

func SkipOperation(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	opID, ok := paramID(c, "opID")
	if !ok {
		return
	}

	var in SkipOperationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	op, err := Engine().SkipOperation(c.Request.Context(), orderID, opID, in.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "operation skipped", op)
}

type ScheduleOperationInput struct {
	MachineID uint      `json:"machine_id" binding:"required"`
	Start     time.Time `json:"start" binding:"required"`
	End       time.Time `json:"end" binding:"required"`
}

func ScheduleOperation(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	opID, ok := paramID(c, "opID")
	if !ok {
		return
	}

	var in ScheduleOperationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	op, conflicts, err := Engine().ScheduleOperation(c.Request.Context(), orderID, opID, in.MachineID, in.Start, in.End)
	if err != nil {
		if len(conflicts) > 0 {
			c.JSON(http.StatusConflict, gin.H{
				"message":   "schedule conflict",
				"error":     err.Error(),
				"conflicts": conflicts,
			})
			return
		}
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "operation scheduled", op)
}

func ProcessEffects(c *gin.Context) {
	processed, err := Engine().ProcessPendingEffects(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "effects processed", gin.H{"processed": processed})
}
