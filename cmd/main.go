package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/risk-service/risk_service/internal/api/routes"
	"github.com/risk-service/risk_service/internal/infrastructure/config"
	"github.com/risk-service/risk_service/internal/infrastructure/database"
	"github.com/risk-service/risk_service/internal/infrastructure/di"
	"github.com/risk-service/risk_service/pkg/logger"
)

// @title Portfolio Risk Service API
// @version 1.0
// @description Value at Risk and Expected Shortfall calculation service for equity portfolios

// @contact.name API Support
// @contact.email support@riskservice.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)

	// Initialize database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(db, "migrations"); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Build dependency injection container
	container, err := di.NewContainer(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}
	defer container.Close()

	// Initialize router
	router := routes.Setup(cfg, log, container.Handlers)

	// Fail any runs left in PENDING or RUNNING by a previous process before
	// the reaper's first scheduled sweep.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if swept, err := container.Reaper.Sweep(startupCtx); err != nil {
		log.Warn("Startup stale run sweep failed", "error", err)
	} else if swept > 0 {
		log.Info("Failed stale runs from previous process", "count", swept)
	}
	startupCancel()

	// Start the stale run reaper
	if err := container.Reaper.Start(); err != nil {
		log.Fatal("Failed to start stale run reaper", "error", err)
	}
	log.Info("Stale run reaper started", "schedule", cfg.Risk.ReaperSchedule)

	// Create server
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Stop the reaper before the server so a final sweep cannot race
	// in-flight run updates during drain.
	container.Reaper.Stop()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
