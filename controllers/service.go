package controllers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/MCTRACO/filaops-sub000/config"
	"github.com/MCTRACO/filaops-sub000/service"
	"github.com/MCTRACO/filaops-sub000/utils"
)

var (
	engine     *service.Service
	engineOnce sync.Once
)

// Engine wires the execution engine over the shared DB handle, once.
// Handlers run concurrently, so the initialization must not race.
func Engine() *service.Service {
	engineOnce.Do(func() {
		engine = service.New(config.DB)
	})
	return engine
}

// actorName pulls the authenticated user's name out of the Gin context.
func actorName(c *gin.Context) string {
	if v, ok := c.Get("name"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// respondServiceError maps the engine's typed errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	var (
		invalidState *service.InvalidStateError
		seqViolation *service.SequenceViolationError
		shortage     *service.MaterialShortageError
		busy         *service.ResourceBusyError
		qtyExceeded  *service.QuantityExceededError
		scrapError   *service.ScrapError
	)

	switch {
	case errors.Is(err, service.ErrNotFound):
		utils.Error(c, http.StatusNotFound, "not found", err)
	case errors.Is(err, service.ErrStaleRow):
		utils.Error(c, http.StatusConflict, "concurrent modification, retry", err)
	case errors.Is(err, service.ErrMissingScrapReason):
		utils.Error(c, http.StatusBadRequest, "scrap reason required", err)
	case errors.As(err, &invalidState):
		utils.Error(c, http.StatusConflict, "invalid state for this action", err)
	case errors.As(err, &seqViolation):
		utils.Error(c, http.StatusConflict, "previous operation still open", err)
	case errors.As(err, &shortage):
		c.JSON(http.StatusConflict, gin.H{
			"message":   "material shortage",
			"error":     err.Error(),
			"shortages": shortage.Shortages,
		})
	case errors.As(err, &busy):
		c.JSON(http.StatusConflict, gin.H{
			"message":  "resource busy",
			"error":    err.Error(),
			"blocking": busy.Blocking,
		})
	case errors.As(err, &qtyExceeded):
		utils.Error(c, http.StatusBadRequest, "quantity exceeds previous step output", err)
	case errors.As(err, &scrapError):
		utils.Error(c, http.StatusBadRequest, "scrap cascade rejected", err)
	default:
		utils.Error(c, http.StatusInternalServerError, "internal error", err)
	}
}
