// Package store persists the container action audit trail. It initializes
// GORM with SQLite and never stores metric samples.
package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vesaa/talondash/internal/models"
)

// DefaultRecentLimit caps RecentActions when the caller asks for nothing or
// too much.
const DefaultRecentLimit = 50

// Store wraps the audit database.
type Store struct {
	db *gorm.DB
}

// Open opens the database and runs AutoMigrate.
func Open(driver, path string, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported db driver %q (use 'sqlite')", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log.Named("gorm")),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.AutoMigrate(&models.ContainerAction{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	log.Info("audit database opened", zap.String("driver", driver), zap.String("path", path))
	return &Store{db: db}, nil
}

// RecordAction appends an audit row.
func (s *Store) RecordAction(a *models.ContainerAction) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(a).Error; err != nil {
		return fmt.Errorf("recording container action: %w", err)
	}
	return nil
}

// RecentActions returns the newest rows first.
func (s *Store) RecentActions(limit int) ([]models.ContainerAction, error) {
	if limit <= 0 || limit > DefaultRecentLimit {
		limit = DefaultRecentLimit
	}
	var out []models.ContainerAction
	err := s.db.Order("created_at desc").Order("id desc").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("loading container actions: %w", err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
