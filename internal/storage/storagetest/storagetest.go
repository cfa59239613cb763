// Package storagetest opens throwaway stores for package tests.
package storagetest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"gemini-bot/internal/storage"
)

var seq atomic.Int64

// SQLite returns a migrated GormStore over a private in-memory database.
// The pool is pinned to one connection so the in-memory database survives
// and concurrent writers queue instead of failing with SQLITE_LOCKED.
func SQLite(tb testing.TB) (*storage.GormStore, *gorm.DB) {
	tb.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	store := storage.NewGormStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return store, db
}
