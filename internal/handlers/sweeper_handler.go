package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lawrencejr5/igle-rewards-backend/internal/services"
)

// SweeperHandler exposes the sweeper to administrators
type SweeperHandler struct {
	sweeperService services.SweeperService
}

// NewSweeperHandler creates a new SweeperHandler
func NewSweeperHandler(sweeperService services.SweeperService) *SweeperHandler {
	return &SweeperHandler{sweeperService: sweeperService}
}

// RunSweep handles POST /admin/sweeps/run
func (h *SweeperHandler) RunSweep(c *gin.Context) {
	expired, err := h.sweeperService.Sweep(c, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": expired})
}
