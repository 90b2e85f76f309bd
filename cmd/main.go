package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"wms-service/internal/config"
	"wms-service/internal/exports"
	"wms-service/internal/handlers"
	"wms-service/internal/middleware"
	"wms-service/internal/repository"
	"wms-service/internal/stock"
	"wms-service/internal/tabular"
	"wms-service/internal/workflow"
)

// @title Warehouse Management API
// @version 1.0.0
// @description Bulk import, stock ledger and reception service for the warehouse back office

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8088
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (falling back to localhost)", err)
		redisOpts = &redis.Options{Addr: "localhost:6379"}
	}
	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	catalogRepo := repository.NewCatalogRepository(db, redisClient)
	stockService := stock.NewService(db)
	registry := tabular.NewRegistry()
	sessions := workflow.NewRedisSessionStore(redisClient)

	productFlow := workflow.NewProductFlow(catalogRepo, stockService, catalogRepo, sessions, registry, cfg.TempDir, logger)
	listingFlow := workflow.NewListingFlow(catalogRepo, catalogRepo, catalogRepo, sessions, registry, cfg.TempDir, logger)
	entityFlow := workflow.NewEntityFlow(catalogRepo, registry, cfg.DefaultUserPassword)
	exporter := exports.NewExporter(catalogRepo)

	importHandler := handlers.NewImportHandler(productFlow, entityFlow)
	listingHandler := handlers.NewListingHandler(listingFlow)
	exportHandler := handlers.NewExportHandler(exporter)
	productsHandler := handlers.NewProductsHandler(catalogRepo, stockService)
	stockHandler := handlers.NewStockHandler(catalogRepo, stockService)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	if cfg.Environment == "development" {
		api.Use(middleware.DevelopmentActorMiddleware())
	} else {
		api.Use(middleware.ActorMiddleware())
	}

	v1 := api.Group("")
	{
		products := v1.Group("/products")
		{
			products.GET("", productsHandler.GetProducts)
			products.GET("/resolve", productsHandler.ResolveProduct)
			products.GET("/:id", productsHandler.GetProduct)
			products.GET("/:id/lots", productsHandler.GetProductLots)
		}

		imports := v1.Group("/imports")
		{
			imports.POST("/products", importHandler.ImportProducts)
			imports.POST("/products/row", importHandler.ImportProductRow)
			imports.GET("/products/:token", importHandler.GetProductReview)
			imports.POST("/products/:token/confirm", importHandler.ConfirmProductImport)
			imports.POST("/products/:token/cancel", importHandler.CancelProductImport)
			imports.POST("/:kind", importHandler.ImportEntities)
			imports.POST("/:kind/row", importHandler.ImportEntityRow)
		}

		exportsGroup := v1.Group("/exports")
		{
			exportsGroup.GET("/:kind", exportHandler.ExportEntities)
		}

		stockGroup := v1.Group("/stock")
		{
			stockGroup.POST("/receive", stockHandler.ReceiveStock)
			stockGroup.POST("/adjust", stockHandler.AdjustStock)
			stockGroup.POST("/transfer", stockHandler.TransferStock)
		}

		receipts := v1.Group("/receipts")
		{
			receipts.GET("", stockHandler.GetReceipts)
			receipts.GET("/listings/fields", listingHandler.GetMappingFields)
			receipts.POST("/listings", listingHandler.UploadListing)
			receipts.GET("/listings/:token/columns", listingHandler.GetListingColumns)
			receipts.POST("/listings/:token/mapping", listingHandler.SubmitListingMapping)
			receipts.GET("/listings/:token/review", listingHandler.GetListingReview)
			receipts.POST("/listings/:token/confirm", listingHandler.ConfirmListing)
			receipts.POST("/listings/:token/cancel", listingHandler.CancelListing)
			receipts.GET("/:id", stockHandler.GetReceipt)
			receipts.POST("/:id/lines/:lineId/receive", stockHandler.ReceiveReceiptLine)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Starting wms-service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	logger.Info("Server exited")
}
