package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/services"
)

// EventHandler handles the producer-facing event ingress endpoint
type EventHandler struct {
	eventService services.EventService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Ingest handles POST /rewards/events. Duplicates answer 200 with the
// duplicate flag set so at-least-once producers do not retry.
func (h *EventHandler) Ingest(c *gin.Context) {
	var event models.RewardEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.eventService.Ingest(c, event)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
