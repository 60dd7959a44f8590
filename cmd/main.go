package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bizdesk/docs/swagger"
	"bizdesk/internal/api"
	"bizdesk/internal/config"
	"bizdesk/internal/db"
	"bizdesk/internal/identity"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
	"bizdesk/internal/tasks"
	"bizdesk/internal/tasks/rate"
	console "bizdesk/internal/utils/logger"

	"github.com/joho/godotenv"
)

// 🚀 Main function
// @title Bizdesk API
// @version 1.0
// @description API documentation for the bizdesk back office
// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {

	logger := console.New("bizdesk")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		logger.Info("No .env file found, skipping environment variable loading")
	} else {
		logger.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	console.Configure(cfg.Log.Format)

	allowList, err := config.LoadAllowList(cfg.Auth.AllowListFile)
	if err != nil {
		log.Fatalf("Failed to load allow-list: %v", err)
	}

	// Connect to database
	if err := db.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		err := db.Close()
		if err != nil {
			log.Fatalf("Failed to close database connection: %v", err)
		}
	}()

	db_instance := db.GetDB()

	// Initialize S3 service
	var store services.FileStore
	if cfg.Storage.S3.BucketName != "" {
		s3Service, err := services.NewS3Service(context.Background(), cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		// Register the URL generator
		models.RegisterFileURLGenerator(s3Service, cfg.Storage.URLTTL)
		store = s3Service
	} else {
		logger.Warn("S3_BUCKET_NAME is empty, file uploads are disabled")
	}

	taskClient := tasks.NewTaskClient(cfg.Redis, cfg.Import.RetryAttempt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("Failed to close task client: %v", err)
		}
	}()

	limiter := rate.NewQueueRateLimiter(taskClient.Redis(), rate.QueueConfig{
		Name: tasks.TaskTypeCustomerImport,
		RateLimit: rate.RateLimit{
			Window:  cfg.Import.RateWindow,
			MaxJobs: cfg.Import.RateMax,
		},
	})

	svc := services.New(services.Dependencies{
		DB:            db_instance,
		Store:         store,
		Queue:         taskClient,
		Limiter:       limiter,
		MaxImportRows: cfg.Import.MaxRows,
		URLTTL:        cfg.Storage.URLTTL,
	})

	issuer, err := identity.NewTokenIssuer(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize token issuer: %v", err)
	}
	ident := identity.NewService(db_instance, allowList, issuer, identity.NewGoogleProvider(cfg.Auth.GoogleUserInfoURL))

	// Initialize task handlers
	taskHandler := tasks.NewTaskHandler(svc.Imports, svc.Invoices, cfg.Archive.AfterMonths)

	// Start task server
	taskServer := tasks.NewServer(cfg.Redis, cfg.Worker, taskHandler, logger)
	if err := taskServer.Start(); err != nil {
		logger.Error("Task server error", err)
	}

	// Start task scheduler
	taskScheduler := tasks.NewScheduler(cfg.Redis, cfg.Archive, logger)
	if err := taskScheduler.Start(); err != nil {
		logger.Error("Task scheduler error", err)
	}

	// Initialize API server
	apiServer, err := api.NewServer(cfg, db_instance, svc, ident)
	if err != nil {
		log.Fatalf("Failed to initialize API server: %v", err)
	}

	// Swagger documentation
	if u, err := url.Parse(cfg.Server.PublicURL); err == nil && u.Host != "" {
		swagger.SwaggerInfo.Host = u.Host
		swagger.SwaggerInfo.Schemes = []string{u.Scheme}
	}

	go func() {
		logger.Success("API server started")
		if err := apiServer.Start(); err != nil {
			logger.Warn("API server stopped: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop task scheduler
	taskScheduler.Stop()

	// Stop task server
	taskServer.Shutdown()

	// Shutdown API server
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown API server", err)
	}

	logger.Info("Servers shutdown gracefully")
}
