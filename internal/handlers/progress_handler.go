package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
	"github.com/lawrencejr5/igle-rewards-backend/internal/services"
)

// ProgressHandler handles progress ledger HTTP requests
type ProgressHandler struct {
	progressService services.ProgressService
}

// NewProgressHandler creates a new ProgressHandler
func NewProgressHandler(progressService services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// GetMyProgress handles GET /rewards/progress — the acting user's own
// records, identity taken from the token.
func (h *ProgressHandler) GetMyProgress(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	records, err := h.progressService.GetProgressByUser(c, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Enroll handles POST /rewards/tasks/:id/enroll — explicit enrollment
// ahead of the first qualifying event.
func (h *ProgressHandler) Enroll(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}
	taskID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	progress, err := h.progressService.GetOrCreate(c, userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// GetProgress handles GET /admin/progress with filters
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := repositories.ProgressFilter{UserID: c.Query("user")}
	if t := c.Query("task"); t != "" {
		taskID, err := primitive.ObjectIDFromHex(t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
			return
		}
		filter.TaskID = &taskID
	}
	if s := c.Query("status"); s != "" {
		status := models.ProgressStatus(s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + s})
			return
		}
		filter.Status = &status
	}

	records, err := h.progressService.GetProgress(c, filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetProgressByID handles GET /admin/progress/:id
func (h *ProgressHandler) GetProgressByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	progress, err := h.progressService.GetProgressByID(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// RestartProgress handles POST /admin/progress/:id/restart
func (h *ProgressHandler) RestartProgress(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	progress, err := h.progressService.Restart(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// ForceEndProgress handles POST /admin/progress/:id/force-end
func (h *ProgressHandler) ForceEndProgress(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req struct {
		Outcome models.ProgressStatus `json:"outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	progress, err := h.progressService.ForceEnd(c, id, req.Outcome)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// DeleteProgress handles DELETE /admin/progress/:id
func (h *ProgressHandler) DeleteProgress(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := h.progressService.DeleteProgress(c, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
