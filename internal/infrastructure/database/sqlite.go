package database

import (
	"fmt"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewSQLiteDB opens the local journal database. This store is client-side
// bookkeeping only (submission journal); authoritative billing data lives in
// the remote backend.
func NewSQLiteDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	return db, nil
}

// AutoMigrate runs GORM auto-migration for the journal entities
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.Submission{}); err != nil {
		return fmt.Errorf("failed to run journal migrations: %w", err)
	}
	return nil
}
