package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/services"
)

// respondError maps engine errors to HTTP statuses. Callers always get
// the specific reason, so a failed claim can render "already claimed"
// rather than a generic failure.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidDefinition),
		errors.Is(err, models.ErrInvalidEvent):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrTaskNotEligible),
		errors.Is(err, models.ErrTaskInactive),
		errors.Is(err, models.ErrNotEligible),
		errors.Is(err, models.ErrWrongState):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrAlreadyClaimed),
		errors.Is(err, models.ErrHasActiveProgress):
		status = http.StatusConflict
	case errors.Is(err, models.ErrBudgetExhausted):
		status = http.StatusPaymentRequired
	case errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
