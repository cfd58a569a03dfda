package database

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dosewise/dosewise/internal/config"
	"github.com/dosewise/dosewise/internal/database/migrations"
	"github.com/dosewise/dosewise/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email          string `gorm:"uniqueIndex"`
	Name           string
	TelegramChatID int64
}

type Patient struct {
	gorm.Model
	OwnerID       uint `gorm:"index"`
	Owner         User
	Name          string
	DateOfBirth   time.Time
	DiabetesType  string
	Lifestyle     string
	ActivityLevel string
	// Medications is a JSON-encoded list of {brand, dosage, timingNote}.
	Medications string `gorm:"type:text"`
}

type Entry struct {
	gorm.Model
	PatientID       uint `gorm:"index"`
	Patient         Patient
	Type            string // "glucose", "meal" or "insulin"
	Value           string
	Units           string
	MedicationBrand string
	OccurredAt      time.Time `gorm:"index"`
}

type Recommendation struct {
	gorm.Model
	PatientID             uint `gorm:"index"`
	Patient               Patient
	Prompt                string `gorm:"type:text"`
	RawResponse           string `gorm:"type:text"`
	DoseUnits             *float64
	MedicationName        string
	Reasoning             string `gorm:"type:text"`
	SafetyNotes           string
	Confidence            string
	RecommendedMonitoring string
	TargetTime            time.Time
}

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get the directory of the current file
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("failed to get current file path")
	}
	migrationsDir := filepath.Join(filepath.Dir(filename), "migrations")

	if err := migrations.LoadSQLMigrations(db, migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate the schema for models that don't have explicit migrations
	if err := db.AutoMigrate(&User{}, &Patient{}, &Entry{}, &Recommendation{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	logger.Info("Database connection established and migrations completed")
	return db, nil
}
