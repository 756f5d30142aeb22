// Package repository persists posts, comments, agents, archived memories and
// engine state with gorm.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/easeaico/agent-social/internal/config"
)

// Store holds the database handle.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to the configured database. Postgres is used in production;
// sqlite serves local runs and tests.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	var dial gorm.Dialector
	isSqlite := false
	switch cfg.Driver {
	case "postgres":
		dial = postgres.Open(cfg.URL)
	case "sqlite":
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), os.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		dial = sqlite.Open(cfg.SQLitePath)
		isSqlite = true
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if isSqlite {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// AutoMigrate creates or updates every table.
func (s *Store) AutoMigrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to enable pgvector: %w", err)
		}
	}
	if err := db.AutoMigrate(&agentModel{}, &postModel{}, &commentModel{}, &memoryModel{}, &stateModel{}); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
