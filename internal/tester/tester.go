package tester

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/emrgen/boxsync/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Setup opens a fresh, migrated sqlite database in a temporary directory
// owned by t.
func Setup(t testing.TB) *gorm.DB {
	t.Helper()

	_ = os.Setenv("ENV", "test")

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "boxsync.db")+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// sqlite allows a single writer; serialize access through one connection
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := model.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// DataDir returns a temporary directory for payload files.
func DataDir(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "data")
}
