package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MCTRACO/filaops-sub000/config"
	"github.com/MCTRACO/filaops-sub000/models"
	"github.com/MCTRACO/filaops-sub000/utils"
)

type MachineInput struct {
	Code       string `json:"code" binding:"required"`
	Name       string `json:"name" binding:"required"`
	WorkCenter string `json:"work_center"`
}

func CreateMachine(c *gin.Context) {
	var in MachineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	machine := models.Machine{
		Code:       in.Code,
		Name:       in.Name,
		WorkCenter: in.WorkCenter,
		IsActive:   true,
	}
	if err := config.DB.Create(&machine).Error; err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to create machine", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "machine created", "data": machine})
}

func ListMachines(c *gin.Context) {
	var machines []models.Machine
	if err := config.DB.Order("code ASC").Find(&machines).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to list machines", err)
		return
	}
	utils.Success(c, "ok", machines)
}

func MachineAvailability(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	available, blocking, err := Engine().CheckAvailableNow(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "ok", gin.H{"available": available, "blocking": blocking})
}

func MachineSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	from := time.Now().UTC()
	to := from.Add(7 * 24 * time.Hour)
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}

	ops, err := Engine().MachineSchedule(c.Request.Context(), id, from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "ok", ops)
}

func MachineNextSlot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	minutes, err := strconv.Atoi(c.DefaultQuery("minutes", "60"))
	if err != nil || minutes <= 0 {
		utils.Error(c, http.StatusBadRequest, "invalid minutes", err)
		return
	}

	slot, err := Engine().FindNextAvailableSlot(c.Request.Context(), id,
		time.Duration(minutes)*time.Minute, time.Now().UTC())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.Success(c, "ok", gin.H{"start": slot})
}
