package main

import (
	"context"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"license-service/internal/handler"
	"license-service/internal/middleware"
	"license-service/internal/service"
	"license-service/pkg/config"
	"license-service/pkg/database"
	"license-service/pkg/jwtutil"
	"license-service/pkg/logger"
	"license-service/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting license service...", zap.String("environment", cfg.Server.Env))

	// Initialize database (includes migrations)
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// License service owns all reads and row-locked mutations
	svc := service.New(database.GetDB(), log, cfg.License.DefaultMaxTransfers)
	licenseHandler := handler.NewLicenseHandler(svc)
	jwtUtil := jwtutil.NewJWTUtil(cfg.JWT.SigningKey)

	// Periodic expiration sweep; validation reads perform the same
	// transition lazily, the sweep just keeps reporting current
	if cfg.License.SweepInterval > 0 {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.License.SweepInterval),
			gocron.NewTask(func() {
				expired, err := svc.ExpireOverdue(context.Background())
				if err != nil {
					log.Error("Expiration sweep failed", zap.Error(err))
					return
				}
				if expired > 0 {
					prometheus.SweepExpiredCounter.Add(float64(expired))
				}
			}),
		)
		if err != nil {
			log.Fatal("Failed to schedule expiration sweep", zap.Error(err))
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
		log.Info("Expiration sweep scheduled", zap.Duration("interval", cfg.License.SweepInterval))
	}

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/", handler.Hello)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// License validation endpoints, public by design: callers authenticate
	// with the license key itself
	licenses := e.Group("/licenses")
	licenses.POST("/validate", licenseHandler.Validate)
	licenses.GET("/check", licenseHandler.CheckDomain)

	// Owner or admin endpoints
	authed := licenses.Group("", middleware.JWTAuthMiddleware(jwtUtil))
	authed.GET("/:key", licenseHandler.Get)
	authed.GET("/:key/logs", licenseHandler.Logs)
	authed.GET("/:key/transfers", licenseHandler.Transfers)
	authed.POST("/:key/renew", licenseHandler.Renew)
	authed.POST("/:key/transfer", licenseHandler.Transfer)

	// Admin-only lifecycle and issuance endpoints
	admin := licenses.Group("", middleware.JWTAuthMiddleware(jwtUtil), middleware.AdminOnly)
	admin.POST("", licenseHandler.Issue)
	admin.GET("", licenseHandler.List)
	admin.GET("/expiring", licenseHandler.Expiring)
	admin.POST("/:key/suspend", licenseHandler.Suspend)
	admin.POST("/:key/activate", licenseHandler.Activate)
	admin.POST("/:key/cancel", licenseHandler.Cancel)
	admin.POST("/:key/reactivate", licenseHandler.Reactivate)

	transfers := e.Group("/transfers", middleware.JWTAuthMiddleware(jwtUtil), middleware.AdminOnly)
	transfers.POST("/:id/approve", licenseHandler.ApproveTransfer)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
