// Package profile persists the company profiles used to parameterize ranking.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trend-radar/internal/model"
)

// ErrNotFound is returned when no profile has the requested id.
var ErrNotFound = errors.New("profile: not found")

// Store reads and writes profiles with gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the profile table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("profile: connect: %w", err)
	}
	if err := db.AutoMigrate(&model.CompanyProfile{}); err != nil {
		return nil, fmt.Errorf("profile: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get finds a profile by id.
func (s *Store) Get(ctx context.Context, id string) (*model.CompanyProfile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	var p model.CompanyProfile
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get %s: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts or updates a profile by id.
func (s *Store) Upsert(ctx context.Context, p *model.CompanyProfile) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return errors.New("profile: id is required")
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("profile: save %s: %w", p.ID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
