package main

import (
	"log"
	"time"

	"github.com/driveline-au/quote-backend/config"
	"github.com/driveline-au/quote-backend/database"
	"github.com/driveline-au/quote-backend/handlers"
	"github.com/driveline-au/quote-backend/jobs"
	"github.com/driveline-au/quote-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	batchCfg := config.LoadBatchConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to database
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	// Remote underwriting service configuration
	serviceCfg := config.DefaultServiceConfig()
	serviceCfg.BaseURL = cfg.QuoteAPIBaseURL
	serviceCfg.APIKey = cfg.QuoteAPIKey

	// Wire the pipeline bottom-up: store, audit, client, processor,
	// scheduler, then the submission front door.
	store := services.NewPostgresStore(database.DB)
	audit := services.NewAuditLogger(store)
	client := services.NewUnderwritingClient(serviceCfg, audit)
	processor := services.NewRecordProcessor(client, store, audit)
	scheduler := services.NewBatchScheduler(processor, batchCfg)
	parser := services.NewRecordParser(batchCfg.MaxRecords)
	registry := services.NewRunRegistry()
	bulkService := services.NewBulkQuoteService(parser, scheduler, registry, store)

	log.Println("Bulk quote backend services initialized:")
	log.Printf("  - Batch scheduler (chunk size: %d, inter-batch delay: %v)",
		batchCfg.ChunkSize, batchCfg.InterBatchDelay)
	log.Printf("  - Record parser (max records per submission: %d)", batchCfg.MaxRecords)
	log.Printf("  - Underwriting client (base URL: %s, timeout: %v)",
		serviceCfg.BaseURL, serviceCfg.HTTPRequestTimeout)

	// Background jobs
	cleanupJob := jobs.NewRunCleanupJob(registry, audit, batchCfg.RunRetention)

	go func() {
		cleanupTicker := time.NewTicker(30 * time.Minute)
		for range cleanupTicker.C {
			cleanupJob.Run()
		}
	}()

	// Handlers
	batchHandler := handlers.NewBatchHandler(bulkService, audit)
	metricsHandler := handlers.NewMetricsHandler(client)

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	api.Post("/batches", batchHandler.SubmitBatch)
	api.Get("/batches/:id", batchHandler.GetBatch)
	api.Get("/batches/:id/records", batchHandler.GetBatchRecords)
	api.Get("/batches/:id/export", batchHandler.ExportBatch)
	api.Get("/batches/:id/log", batchHandler.GetSessionLog)
	api.Delete("/batches/:id/log", batchHandler.ClearSessionLog)

	api.Get("/metrics", metricsHandler.GetMetrics)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
