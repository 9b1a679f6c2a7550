package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"license-service/internal/model"
	"license-service/pkg/config"
	"license-service/pkg/logger"
)

var db *gorm.DB

// InitDB initializes the database connection and runs migrations
func InitDB(cfg *config.Config) error {
	// Set up GORM logger configuration
	var logLevel gormlogger.LogLevel
	if cfg.Server.Env == "development" {
		logLevel = gormlogger.Info
	} else {
		logLevel = gormlogger.Error
	}

	// Override log level if explicitly set in config
	switch cfg.Database.LogLevel {
	case "silent":
		logLevel = gormlogger.Silent
	case "error":
		logLevel = gormlogger.Error
	case "warn":
		logLevel = gormlogger.Warn
	case "info":
		logLevel = gormlogger.Info
	}

	// Configure Postgres options
	pgConfig := postgres.Config{
		DSN:                  cfg.Database.GetDSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	var err error
	db, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Run migrations
	log := logger.GetLogger()
	start := time.Now()
	log.Info("Starting database migration...")

	if err := db.AutoMigrate(
		&model.License{},
		&model.LicenseCheckLog{},
		&model.LicenseTransfer{},
	); err != nil {
		log.Error("Database migration failed", zap.Error(err))
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	log.Info("Database migration completed successfully",
		zap.Duration("duration", time.Since(start)))
	return nil
}

// GetDB returns a reference to the database instance
func GetDB() *gorm.DB {
	return db
}
