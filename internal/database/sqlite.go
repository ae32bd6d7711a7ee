package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gushub/manager/internal/catalog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes the local cache connection and performs schema migrations.
// A single connection is kept; the manager has exactly one logical writer.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&catalog.Course{}, &catalog.Module{}, &catalog.Lesson{}, &catalog.Task{}, &migrationRecord{}); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
