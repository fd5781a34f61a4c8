// Normalized user-table operations, used by the table persistence strategy.
// The blob strategy goes through the key/value operations instead; both
// paths coexist and the active one is selected once at startup.
package store

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-js8call-bridge/internal/domain"
)

// Users returns every persisted user row.
func (s *Store) Users() ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.User
	if err := s.db.Order("user_hash asc").Find(&out).Error; err != nil {
		log.Error().Err(err).Msg("store: users")
		return nil, err
	}
	return out, nil
}

// SaveUser inserts or replaces the row for hash. The groups and muted-groups
// arguments carry the caller's serialized group sets.
func (s *Store) SaveUser(hash, groups, mutedGroups string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"groups", "muted_groups"}),
	}).Create(&domain.User{UserHash: hash, Groups: groups, MutedGroups: mutedGroups}).Error
	if err != nil {
		log.Error().Err(err).Str("user", hash).Msg("store: save user")
	}
	return err
}

// RemoveUser deletes the row for hash. Removing an absent user is not an
// error.
func (s *Store) RemoveUser(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Where("user_hash = ?", hash).Delete(&domain.User{}).Error
	if err != nil {
		log.Error().Err(err).Str("user", hash).Msg("store: remove user")
	}
	return err
}
