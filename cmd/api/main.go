package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/lawrencejr5/igle-rewards-backend/api/routes"
	"github.com/lawrencejr5/igle-rewards-backend/internal/config"
	"github.com/lawrencejr5/igle-rewards-backend/internal/handlers"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
	mongorepo "github.com/lawrencejr5/igle-rewards-backend/internal/repositories/mongodb"
	"github.com/lawrencejr5/igle-rewards-backend/internal/services"
	mongodb "github.com/lawrencejr5/igle-rewards-backend/pkg/mongodb"
	"github.com/lawrencejr5/igle-rewards-backend/pkg/wallet"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogger(cfg.LogLevel)

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT.Secret is not configured")
	}

	// Connect to MongoDB
	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()
	db := mongoClient.Database(cfg.MongoDB.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongorepo.EnsureIndexes(ctx, db, cfg.Events.DedupWindow); err != nil {
		cancel()
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	cancel()

	// Repositories
	var taskRepo repositories.TaskRepository = mongorepo.NewTaskRepository(db)
	var progressRepo repositories.ProgressRepository = mongorepo.NewProgressRepository(db)
	var claimRepo repositories.ClaimRepository = mongorepo.NewClaimRepository(mongoClient.Raw(), db)
	var eventRepo repositories.EventRepository = mongorepo.NewEventRepository(db)
	var adminRepo repositories.AdminUserRepository = mongorepo.NewAdminUserRepository(db)

	// External collaborators
	walletClient := wallet.NewClient(cfg.Wallet.BaseURL, cfg.Wallet.APIKey, cfg.Wallet.MockWallet)

	// Services
	authService := services.NewAuthService(adminRepo, cfg)
	taskService := services.NewTaskService(taskRepo, progressRepo)
	progressService := services.NewProgressService(taskRepo, progressRepo)
	eventService := services.NewEventService(eventRepo, progressService)
	claimService := services.NewClaimService(taskRepo, progressRepo, claimRepo, walletClient, cfg.Rewards.Currency)
	sweeperService := services.NewSweeperService(taskRepo, progressRepo, cfg.Sweeper.ExpireUnclaimed)

	// Bootstrap operator account
	if err := authService.EnsureAdmin(context.Background(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatalf("Failed to ensure admin account: %v", err)
	}

	// Handlers
	deps := routes.HandlerDependencies{
		AuthHandler:     handlers.NewAuthHandler(authService),
		TaskHandler:     handlers.NewTaskHandler(taskService),
		ProgressHandler: handlers.NewProgressHandler(progressService),
		EventHandler:    handlers.NewEventHandler(eventService),
		ClaimHandler:    handlers.NewClaimHandler(claimService),
		SweeperHandler:  handlers.NewSweeperHandler(sweeperService),
	}
	router := routes.SetupRouter(cfg, deps)

	// Background sweeper
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeperService.Run(sweepCtx, cfg.Sweeper.Interval)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	stopSweeper()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}
	slog.Info("Server exiting")
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
