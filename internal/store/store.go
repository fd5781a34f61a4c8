// Store engine type and the generic key/value operations.
//
// Error semantics follow the split the rest of the bridge relies on:
// read failures are logged and the caller's default (or zero value) is
// returned; write failures are logged and returned so the triggering
// operation can fail visibly.
package store

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-js8call-bridge/internal/domain"
)

// Store owns the database handle. Every operation takes the single engine
// mutex for its whole duration; no statement runs outside the critical
// section.
type Store struct {
	mu     sync.Mutex
	db     *gorm.DB
	closed bool
}

// Open opens the SQLite database at path, runs migrations, and returns the
// engine. A failure here is a startup failure; callers are expected to abort.
func Open(path string) (*Store, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Cleanup releases the underlying connection. Safe to call multiple times.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.db == nil {
		return
	}
	s.closed = true
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("store: close connection")
		}
	}
}

// Get returns the value stored under key, or def when the key is absent or
// the read fails. Values always come back as their text representation.
func (s *Store) Get(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec domain.KV
	err := s.db.Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("store: get")
		return def
	}
	return rec.Value
}

// Set writes value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&domain.KV{Key: key, Value: value}).Error
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("store: set")
	}
	return err
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Where("key = ?", key).Delete(&domain.KV{}).Error
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("store: delete")
	}
	return err
}

// Exists reports whether key is present. Read failures log and report false.
func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.db.Model(&domain.KV{}).Where("key = ?", key).Count(&n).Error
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("store: exists")
		return false
	}
	return n > 0
}

// Scan returns all keys with the given prefix in ascending key order.
// Read failures log and return an empty slice.
func (s *Store) Scan(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	err := s.db.Model(&domain.KV{}).
		Where("key LIKE ?", prefix+"%").
		Order("key asc").
		Pluck("key", &keys).Error
	if err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("store: scan")
		return nil
	}
	return keys
}
