package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/fitness-planner/internal/api"
	"alcyxob/fitness-planner/internal/app"
	"alcyxob/fitness-planner/internal/config"
	"alcyxob/fitness-planner/internal/logger"

	"github.com/gin-gonic/gin"
)

// @title Fitness Planner API
// @version 1.0
// @description Periodization engine: split assignment, mesocycles, frequency changes and workout caching.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	appLogger, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("FATAL: Could not init logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Starting Fitness Planner Server...", "database_driver", cfg.Database.Driver, "catalog_source", cfg.Catalog.Source)

	// --- Backends and services ---
	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	application, err := app.New(startCtx, cfg, appLogger)
	cancelStart()
	if err != nil {
		appLogger.Fatal("Could not initialize application", "error", err)
	}
	defer application.Close()

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(appLogger))

	api.SetupRoutes(router, cfg.JWT.Secret, api.Services{
		Auth:        application.Auth,
		Users:       application.Users,
		Exercises:   application.Exercises,
		Recovery:    application.Recovery,
		Splits:      application.Splits,
		Mesocycles:  application.Mesocycles,
		Frequencies: application.Frequencies,
		Cache:       application.Cache,
	})

	// --- Start HTTP Server ---
	// WriteTimeout leaves room for one generator call on a cache miss.
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Generator.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLogger.Info("Server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("ListenAndServe error", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exiting.")
}
