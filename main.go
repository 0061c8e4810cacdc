package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sbcesar/contractguardian/config"
	"github.com/sbcesar/contractguardian/handler"
	"github.com/sbcesar/contractguardian/middleware"
	"github.com/sbcesar/contractguardian/pkg/logger"
	"github.com/sbcesar/contractguardian/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MinIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MinIO bucket", "error", err)
		os.Exit(1)
	}

	// Legal reference collection, loaded once and read-only afterwards
	lawStore, err := service.NewLawStore(cfg.Laws.Dir)
	if err != nil {
		slog.Error("failed to load law store", "error", err)
		os.Exit(1)
	}

	classifier := service.NewClauseClassifier()
	store := service.NewContractStore(&cfg.Store)

	extractorSvc := service.NewExtractorService(&cfg.Extractor)
	llmClient := service.NewLLMClient(&cfg.LLM)
	toolManager := service.NewToolManager(&cfg.Tools)
	orchestrator := service.NewOrchestrator(extractorSvc, llmClient, toolManager, &cfg.Agent)

	// Initialize handlers
	contractHandler := handler.NewContractHandler(minioSvc, store)
	analyzeHandler := handler.NewAnalyzeHandler(orchestrator, store)
	toolsHandler := handler.NewToolsHandler(lawStore, classifier)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())            // Request ID for tracing
	router.Use(middleware.Recovery())             // Panic recovery
	router.Use(middleware.RequestLogger())        // Access logging
	router.Use(corsMiddleware())                  // CORS
	router.Use(middleware.RateLimit(&cfg.Server)) // Rate limiting per client IP

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"laws_loaded": lawStore.Count(),
			"timestamp":   time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/contracts/upload", contractHandler.Upload)
		api.GET("/contracts", contractHandler.List)
		api.GET("/contracts/:id", contractHandler.Get)
		api.GET("/contracts/:id/status", contractHandler.GetStatus)
		api.DELETE("/contracts/:id", contractHandler.Delete)
		api.POST("/contracts/:id/analyze", analyzeHandler.Analyze)

		// Tool endpoints the agent loop calls back into
		api.POST("/tools/law_lookup", toolsHandler.LawLookup)
		api.POST("/tools/classify_clauses", toolsHandler.ClassifyClauses)
		api.GET("/laws", toolsHandler.ListLaws)
		api.GET("/laws/stats", toolsHandler.LawStats)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute, // Analysis sessions stream for a while
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
