package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/mearone/cellar-sage/config"
	"github.com/mearone/cellar-sage/database"
	"github.com/mearone/cellar-sage/handlers"
	"github.com/mearone/cellar-sage/jobs"
	"github.com/mearone/cellar-sage/services"
	"github.com/mearone/cellar-sage/shared"
	"github.com/sirupsen/logrus"
)

func main() {
	verifyOnce := flag.Bool("verify-fees", false, "run one fee verification pass and exit (non-zero on any house failure)")
	flag.Parse()

	// Load config
	cfg := config.LoadConfig()

	unified := shared.NewDefaultUnifiedConfiguration()
	unified.Fetch.HTTPRequestTimeout = cfg.GetFetchTimeout()
	unified.Logging.Level = cfg.LogLevel
	unified.ValidateAndApplyDefaults()

	configureLogging(unified.Logging)

	// Connect to database
	if err := database.ConnectWithConfig(cfg.DatabaseURL, &unified.Database); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	// Shared HTTP plumbing for the proxy fetch and the webhook
	fetchTimeout := unified.Fetch.HTTPRequestTimeout
	clientFactory := shared.NewHTTPClientFactory(fetchTimeout)
	httpClient := clientFactory.CreateOptimizedHTTPClient(fetchTimeout)
	defer clientFactory.CleanupAllClients()

	// Fetch strategy chain: direct, then rendering proxy, then (optionally)
	// headless chrome. One pass only, no retries.
	strategies := []services.FetchStrategy{
		services.NewDirectFetchStrategy(fetchTimeout),
		services.NewRenderProxyFetchStrategy(cfg.ZenRowsAPIKey, unified.Fetch.ProxyEndpoint, httpClient),
	}
	if cfg.EnableHeadlessFetch {
		strategies = append(strategies, services.NewHeadlessFetchStrategy(fetchTimeout))
	}

	limiter := shared.NewHTTPRequestRateLimiter(unified.Fetch.RequestRateLimit)
	fetcher := services.NewPageFetcher(limiter, strategies...)

	// Core services
	rateStore := services.NewPostgresRateStore(database.DB)
	houses := services.DefaultHouseConfigs()
	verificationService := services.NewFeeVerificationService(rateStore, fetcher, houses)
	notifier := services.NewWebhookNotifier(cfg.SlackWebhookURL, httpClient)
	calculator := services.NewBidCapCalculator(config.DefaultBidTables())

	verificationJob := jobs.NewFeeVerificationJob(verificationService, notifier, cfg.GetVerifyInterval())

	// One-shot mode for cron/CI: run the reconciler and signal failures via
	// exit status.
	if *verifyOnce {
		report := verificationJob.Run(context.Background())
		if report.Failed() {
			os.Exit(1)
		}
		return
	}

	// Initialize handlers
	feesHandler := handlers.NewFeesHandler(rateStore)
	computeHandler := handlers.NewComputeHandler(rateStore, calculator, houses)
	adminHandler := handlers.NewAdminHandler(rateStore, verificationJob)

	// Start background verification job
	verificationJob.Start()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		if err := database.HealthCheck(); err != nil {
			dbStatus = "error"
		}
		fetchMetrics := fetcher.Metrics().Snapshot()
		dbStats := database.GetConnectionStats()
		return c.JSON(fiber.Map{
			"status":             "ok",
			"database":           dbStatus,
			"db_open_conns":      dbStats.OpenConnections,
			"fetch_success_rate": fetcher.Metrics().GetSuccessRate(),
			"fetch_requests":     fetchMetrics.TotalRequests,
			"outbound_requests":  limiter.GetRequestCount(),
			"timestamp":          time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	api.Get("/fees", feesHandler.GetFees)
	api.Post("/compute", computeHandler.Compute)

	// Admin routes behind Basic Auth
	admin := api.Group("/admin")
	admin.Use(basicauth.New(basicauth.Config{
		Users: map[string]string{
			cfg.AdminUser: cfg.AdminPass,
		},
		Realm: "Admin Area",
	}))
	admin.Put("/fees", feesHandler.UpsertFee)
	admin.Post("/fees/verify", adminHandler.TriggerFeeVerification)
	admin.Get("/fees/audit", adminHandler.GetFeeAudit)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func configureLogging(cfg shared.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logrus.SetLevel(level)
	}
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	logrus.WithFields(logrus.Fields{
		"service": cfg.ServiceName,
		"level":   cfg.Level,
	}).Info("Logging configured")
}
