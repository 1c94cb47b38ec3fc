package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/transfer-service/internal/application"
	"github.com/wms-platform/transfer-service/internal/config"
	mongoRepo "github.com/wms-platform/transfer-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/errors"
	"github.com/wms-platform/transfer-service/pkg/kafka"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
	"github.com/wms-platform/transfer-service/pkg/middleware"
	"github.com/wms-platform/transfer-service/pkg/mongodb"
	"github.com/wms-platform/transfer-service/pkg/outbox"
	"github.com/wms-platform/transfer-service/pkg/tracing"
)

const serviceName = "transfer-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(cfg.Log.Level)
	logConfig.Format = cfg.Log.Format
	logConfig.Environment = cfg.Service.Environment
	logConfig.Version = cfg.Service.Version
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting transfer-service API")

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracerProvider, err := tracing.Initialize(ctx, cfg.TracingInitConfig())
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// Initialize MongoDB behind a circuit breaker
	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoClientConfig())
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	protectedMongo := mongodb.NewCircuitBreakerClient(mongoClient, logger)
	defer protectedMongo.Close(ctx)
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	// Initialize Kafka producer with circuit breaker and instrumentation
	kafkaProducer := kafka.NewProductionProducer(cfg.KafkaClientConfig(), m, logger)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceTransfers)

	// Initialize repositories
	pickingRepo := mongoRepo.NewPickingRepository(protectedMongo.Database(), eventFactory)
	warehouseRepo := mongoRepo.NewWarehouseRepository(protectedMongo.Database())

	// Initialize and start outbox publisher
	outboxPublisher := outbox.NewPublisher(
		pickingRepo.GetOutboxRepository(),
		kafkaProducer,
		logger,
		m,
		cfg.OutboxPublisherConfig(),
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize application services
	transferService := application.NewTransferApplicationService(pickingRepo, warehouseRepo, logger)
	changeService := application.NewWarehouseChangeService(pickingRepo, warehouseRepo, logger)

	// Setup Gin router with middleware
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()

	// Apply standard middleware (includes recovery, request ID, correlation, logging, error handling)
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	if len(cfg.Server.AllowedOrigins) > 0 {
		// An explicit origin allowlist replaces the permissive default
		middlewareConfig.EnableCORS = false
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Correlation-ID", "X-WMS-Tenant-ID", "X-WMS-Warehouse-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Correlation-ID"},
			AllowCredentials: true,
		}))
	}
	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return protectedMongo.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// Business metrics recorded by the mutating handlers
	businessMetrics := middleware.NewBusinessMetrics(m)

	// capability enforces a JWT capability, or passes through when auth
	// is disabled (local development)
	capability := func(name string) gin.HandlerFunc {
		if !cfg.Auth.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RequireCapability(name)
	}

	// API v1 routes
	api := router.Group("/api/v1")
	if cfg.Auth.Enabled {
		api.Use(middleware.JWTAuth(cfg.Auth.JWTSecret))
	}
	api.Use(middleware.TenantAuth(middleware.DefaultTenantAuthConfig()))

	pickings := api.Group("/pickings")
	{
		// List endpoint first (before :pickingId wildcard)
		pickings.GET("", listPickingsHandler(transferService, logger))
		// Static routes before wildcard
		pickings.POST("/cancel-to-draft",
			capability(middleware.CapabilityCancelToDraft),
			cancelToDraftHandler(transferService, businessMetrics, logger))
		// Wildcard routes after static routes
		pickings.GET("/:pickingId", getPickingHandler(transferService, logger))
		pickings.GET("/:pickingId/change-warehouse/preview",
			capability(middleware.CapabilityChangeWarehouse),
			previewChangeWarehouseHandler(changeService, logger))
		pickings.POST("/:pickingId/cancel",
			capability(middleware.CapabilityCancelToDraft),
			cancelPickingHandler(transferService, businessMetrics, logger))
		pickings.POST("/:pickingId/back-to-draft",
			capability(middleware.CapabilityCancelToDraft),
			backToDraftHandler(transferService, businessMetrics, logger))
		pickings.POST("/:pickingId/confirm",
			capability(middleware.CapabilityCancelToDraft),
			confirmPickingHandler(transferService, businessMetrics, logger))
		pickings.POST("/:pickingId/change-warehouse",
			capability(middleware.CapabilityChangeWarehouse),
			changeWarehouseHandler(changeService, businessMetrics, logger))
	}

	warehouses := api.Group("/warehouses")
	{
		warehouses.GET("", listWarehousesHandler(transferService, logger))
		warehouses.GET("/:warehouseId", getWarehouseHandler(transferService, logger))
	}

	// Start server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", cfg.Server.Addr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// HTTP Handlers

func listPickingsHandler(service *application.TransferApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		state := c.Query("state")
		warehouseID := c.Query("warehouseId")
		limitStr := c.Query("limit")

		limit := 0
		if limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil || parsed < 0 {
				responder.RespondBadRequest("limit must be a non-negative integer")
				return
			}
			limit = parsed
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"filter.state":     state,
			"filter.warehouse": warehouseID,
			"filter.limit":     limit,
		})

		query := application.ListPickingsQuery{
			State:       state,
			WarehouseID: warehouseID,
			Limit:       limit,
		}

		pickings, err := service.ListPickings(c.Request.Context(), query)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"pickings": pickings,
			"count":    len(pickings),
		})
	}
}

func getPickingHandler(service *application.TransferApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickingID := c.Param("pickingId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"picking.id": pickingID,
		})

		query := application.GetPickingQuery{PickingID: pickingID}

		picking, err := service.GetPicking(c.Request.Context(), query)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, picking)
	}
}

func cancelToDraftHandler(service *application.TransferApplicationService, businessMetrics *middleware.BusinessMetrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			PickingIDs     []string `json:"pickingIds" binding:"required"`
			IncludeChained bool     `json:"includeChained"`
			Reason         string   `json:"reason"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"picking.count":   len(req.PickingIDs),
			"include.chained": req.IncludeChained,
		})

		cmd := application.CancelToDraftCommand{
			PickingIDs:     req.PickingIDs,
			IncludeChained: req.IncludeChained,
			Reason:         req.Reason,
		}

		result, err := service.CancelToDraft(c.Request.Context(), cmd)
		businessMetrics.RecordTransferOperation("cancel-to-draft", err == nil)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		businessMetrics.ObserveChainSize(len(result.Pickings))
		c.JSON(http.StatusOK, result)
	}
}

func cancelPickingHandler(service *application.TransferApplicationService, businessMetrics *middleware.BusinessMetrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickingID := c.Param("pickingId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"picking.id": pickingID,
		})

		// Body is optional; cancelling without a reason is fine
		var req struct {
			Reason string `json:"reason"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		cmd := application.CancelPickingCommand{
			PickingID: pickingID,
			Reason:    req.Reason,
		}

		picking, err := service.CancelPicking(c.Request.Context(), cmd)
		businessMetrics.RecordTransferOperation("cancel", err == nil)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, picking)
	}
}

func backToDraftHandler(service *application.TransferApplicationService, businessMetrics *middleware.BusinessMetrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickingID := c.Param("pickingId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"picking.id": pickingID,
		})

		cmd := application.BackToDraftCommand{PickingID: pickingID}

		picking, err := service.ReturnToDraft(c.Request.Context(), cmd)
		businessMetrics.RecordTransferOperation("back-to-draft", err == nil)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, picking)
	}
}

func confirmPickingHandler(service *application.TransferApplicationService, businessMetrics *middleware.BusinessMetrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickingID := c.Param("pickingId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"picking.id": pickingID,
		})

		cmd := application.ConfirmPickingCommand{PickingID: pickingID}

		picking, err := service.ConfirmPicking(c.Request.Context(), cmd)
		businessMetrics.RecordTransferOperation("confirm", err == nil)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, picking)
	}
}

func changeWarehouseHandler(service *application.WarehouseChangeService, businessMetrics *middleware.BusinessMetrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickingID := c.Param("pickingId")

		var req struct {
			TargetWarehouseID string `json:"targetWarehouseId" binding:"required"`
			IncludeChained    bool   `json:"includeChained"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"picking.id":       pickingID,
			"target.warehouse": req.TargetWarehouseID,
			"include.chained":  req.IncludeChained,
		})

		cmd := application.ChangeWarehouseCommand{
			PickingID:         pickingID,
			TargetWarehouseID: req.TargetWarehouseID,
			IncludeChained:    req.IncludeChained,
		}

		result, err := service.ChangeWarehouse(c.Request.Context(), cmd)
		businessMetrics.RecordTransferOperation("change-warehouse", err == nil)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		businessMetrics.RecordWarehouseChange(result.SourceWarehouseID, result.TargetWarehouseID)
		businessMetrics.ObserveChainSize(len(result.Pickings))
		businessMetrics.RecordSerialPropagation(result.SerialsApplied, result.SerialsMissed)
		c.JSON(http.StatusOK, result)
	}
}

func previewChangeWarehouseHandler(service *application.WarehouseChangeService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		pickingID := c.Param("pickingId")
		targetWarehouseID := c.Query("targetWarehouseId")
		includeChained := c.Query("includeChained") == "true"

		if targetWarehouseID == "" {
			responder.RespondBadRequest("targetWarehouseId query parameter is required")
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"picking.id":       pickingID,
			"target.warehouse": targetWarehouseID,
			"include.chained":  includeChained,
		})

		query := application.ChangeWarehousePreviewQuery{
			PickingID:         pickingID,
			TargetWarehouseID: targetWarehouseID,
			IncludeChained:    includeChained,
		}

		preview, err := service.PreviewChangeWarehouse(c.Request.Context(), query)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, preview)
	}
}

func listWarehousesHandler(service *application.TransferApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		warehouses, err := service.ListWarehouses(c.Request.Context())
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"warehouses": warehouses,
			"count":      len(warehouses),
		})
	}
}

func getWarehouseHandler(service *application.TransferApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		warehouseID := c.Param("warehouseId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"warehouse.id": warehouseID,
		})

		query := application.GetWarehouseQuery{WarehouseID: warehouseID}

		warehouse, err := service.GetWarehouse(c.Request.Context(), query)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		c.JSON(http.StatusOK, warehouse)
	}
}
