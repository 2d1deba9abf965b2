package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GetDb opens the index database named by the config.
func GetDb(cfg *Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	switch cfg.DBType {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := gorm.Open(sqlite.Open(cfg.DSN+"?_busy_timeout=5000&_journal_mode=WAL"), gcfg)
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gcfg)
	default:
		return nil, fmt.Errorf("%w: unknown database type %q", ErrInvalidConfig, cfg.DBType)
	}
}
