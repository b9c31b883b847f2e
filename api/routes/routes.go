package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lawrencejr5/igle-rewards-backend/internal/config"
	"github.com/lawrencejr5/igle-rewards-backend/internal/handlers"
	"github.com/lawrencejr5/igle-rewards-backend/internal/middleware"
)

// HandlerDependencies groups the handlers the router wires up
type HandlerDependencies struct {
	AuthHandler     *handlers.AuthHandler
	TaskHandler     *handlers.TaskHandler
	ProgressHandler *handlers.ProgressHandler
	EventHandler    *handlers.EventHandler
	ClaimHandler    *handlers.ClaimHandler
	SweeperHandler  *handlers.SweeperHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})
		public.POST("/auth/login", deps.AuthHandler.Login)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Authenticated routes: riders/drivers and event producers
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		rewards := protected.Group("/rewards")
		{
			rewards.GET("/tasks", deps.TaskHandler.GetActiveTasks)
			rewards.GET("/progress", deps.ProgressHandler.GetMyProgress)
			rewards.POST("/tasks/:id/enroll", deps.ProgressHandler.Enroll)
			rewards.POST("/tasks/:id/claim", deps.ClaimHandler.Claim)
			rewards.POST("/events", deps.EventHandler.Ingest)
		}
	}

	// Administration surface
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(cfg), middleware.AdminOnlyMiddleware())
	{
		tasks := admin.Group("/tasks")
		{
			tasks.GET("", deps.TaskHandler.GetTasks)
			tasks.GET("/:id", deps.TaskHandler.GetTaskByID)
			tasks.POST("", deps.TaskHandler.CreateTask)
			tasks.PUT("/:id", deps.TaskHandler.UpdateTask)
			tasks.PATCH("/:id/active", deps.TaskHandler.SetTaskActive)
			tasks.DELETE("/:id", deps.TaskHandler.DeleteTask)
		}

		progress := admin.Group("/progress")
		{
			progress.GET("", deps.ProgressHandler.GetProgress)
			progress.GET("/:id", deps.ProgressHandler.GetProgressByID)
			progress.POST("/:id/restart", deps.ProgressHandler.RestartProgress)
			progress.POST("/:id/force-end", deps.ProgressHandler.ForceEndProgress)
			progress.DELETE("/:id", deps.ProgressHandler.DeleteProgress)
		}

		admin.POST("/sweeps/run", deps.SweeperHandler.RunSweep)
	}

	return router
}
