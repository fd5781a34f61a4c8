// Package store implements the durable storage engine backing the bridge:
// a generic key/value table, the three append-only message streams, the
// normalized user table, and daily stats snapshots. All access is serialized
// through a single connection guarded by one mutex; the bridge's message
// rate is bounded by the radio link, so contention is not a concern.
//
// This file contains database bootstrapping helpers for SQLite (pure Go
// driver) and schema migrations.
package store

import (
	"os"
	"path/filepath"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-js8call-bridge/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// The engine serializes everything behind its own mutex; a single
	// connection keeps SQLite locking out of the picture.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// AutoMigrate creates any missing tables. Safe to run on every startup.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.KV{},
		&domain.Message{},
		&domain.GroupMessage{},
		&domain.UrgentMessage{},
		&domain.User{},
		&domain.Stat{},
	)
}
