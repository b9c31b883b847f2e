package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
	"github.com/lawrencejr5/igle-rewards-backend/internal/services"
)

// TaskHandler handles task catalog HTTP requests
type TaskHandler struct {
	taskService services.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// taskRequest is the create/update payload for a task definition
type taskRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Type         models.TaskType `json:"type"`
	GoalCount    int             `json:"goalCount"`
	RewardAmount float64         `json:"rewardAmount"`
	Active       bool            `json:"active"`
	StartAt      *time.Time      `json:"startAt"`
	EndAt        *time.Time      `json:"endAt"`
	MaxPerUser   *int            `json:"maxPerUser"`
	TotalBudget  *float64        `json:"totalBudget"`
	Terms        string          `json:"terms"`
}

func (r *taskRequest) toModel() *models.Task {
	return &models.Task{
		Title:        r.Title,
		Description:  r.Description,
		Type:         r.Type,
		GoalCount:    r.GoalCount,
		RewardAmount: r.RewardAmount,
		Active:       r.Active,
		StartAt:      r.StartAt,
		EndAt:        r.EndAt,
		MaxPerUser:   r.MaxPerUser,
		TotalBudget:  r.TotalBudget,
		Terms:        r.Terms,
	}
}

// CreateTask handles POST /admin/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	task, err := h.taskService.CreateTask(c, req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTask handles PUT /admin/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	task, err := h.taskService.UpdateTask(c, id, req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// GetTaskByID handles GET /admin/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	task, err := h.taskService.GetTaskByID(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// GetTasks handles GET /admin/tasks
func (h *TaskHandler) GetTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := repositories.TaskFilter{}
	if t := c.Query("type"); t != "" {
		taskType := models.TaskType(t)
		if !taskType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown task type: " + t})
			return
		}
		filter.Type = &taskType
	}
	if a := c.Query("active"); a != "" {
		active, err := strconv.ParseBool(a)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid active flag"})
			return
		}
		filter.Active = &active
	}

	tasks, err := h.taskService.GetTasks(c, filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetActiveTasks handles GET /rewards/tasks (the rider/driver view of
// the catalog)
func (h *TaskHandler) GetActiveTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	active := true
	tasks, err := h.taskService.GetTasks(c, repositories.TaskFilter{Active: &active}, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// SetTaskActive handles PATCH /admin/tasks/:id/active
func (h *TaskHandler) SetTaskActive(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	task, err := h.taskService.SetTaskActive(c, id, req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /admin/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	if err := h.taskService.DeleteTask(c, id, force); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
