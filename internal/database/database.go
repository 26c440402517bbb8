package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"fotobox-crm/config"
	"fotobox-crm/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a database connection
func Connect(cfg *config.Config, zapLogger *zap.Logger) (*gorm.DB, error) {
	var err error
	var db *gorm.DB

	// Configure GORM logger
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  getLogLevel(cfg.Log.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  cfg.IsDevelopment(),
		},
	)

	// GORM configuration
	gormConfig := &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	// Connect based on driver
	switch cfg.Database.Driver {
	case "postgres":
		dsn := cfg.GetDSN()
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		zapLogger.Info("Connected to PostgreSQL database")

	case "sqlite":
		// Ensure directory exists for SQLite
		if err := ensureDir(filepath.Dir(cfg.Database.SQLitePath)); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}

		db, err = gorm.Open(sqlite.Open(cfg.Database.SQLitePath), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		zapLogger.Info("Connected to SQLite database", zap.String("path", cfg.Database.SQLitePath))

		// Enable foreign key constraints for SQLite
		db.Exec("PRAGMA foreign_keys = ON;")

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	// Configure connection pool for PostgreSQL
	if cfg.Database.Driver == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}

		// Connection pool settings
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	DB = db

	// Auto-migrate if enabled
	if cfg.Dev.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("auto-migration failed: %w", err)
		}
		zapLogger.Info("Database auto-migration completed")
	}

	return db, nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	// List of models to migrate
	entities := []interface{}{
		&models.Location{},
		&models.Article{},
		&models.ArticleVariant{},
		&models.Lead{},
		&models.LeadItem{},
		&models.Customer{},
		&models.Booking{},
		&models.BookingItem{},
		&models.MailTemplate{},
		&models.MailEvent{},
	}

	// Run migrations
	for _, entity := range entities {
		if err := db.AutoMigrate(entity); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", entity, err)
		}
	}

	// Create indexes manually if needed
	if err := createCustomIndexes(db); err != nil {
		return fmt.Errorf("failed to create custom indexes: %w", err)
	}

	return nil
}

// createCustomIndexes creates custom database indexes
func createCustomIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_leads_status_created_at ON leads(status, created_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_leads_group_event ON leads(group_id, event_date, event_start);",
		"CREATE INDEX IF NOT EXISTS idx_mail_events_key_enabled ON mail_events(event_key, enabled);",
		"CREATE INDEX IF NOT EXISTS idx_bookings_lead_id ON bookings(lead_id);",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, error: %v", indexSQL, err)
		}
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// IsHealthy checks if the database connection is healthy
func IsHealthy() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// ensureDir creates a directory if it doesn't exist
func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// getLogLevel converts string log level to GORM log level
func getLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Info
	}
}
