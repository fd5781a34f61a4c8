// Daily stats snapshots keyed by calendar date. The bridge core never
// schedules writes here; the writer exists for external population and the
// reporting layer reads it by exact date or month prefix.
package store

import (
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-js8call-bridge/internal/domain"
)

// UpsertStat records the user count for date ("2006-01-02"), replacing any
// existing snapshot for that day.
func (s *Store) UpsertStat(date string, userCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_count"}),
	}).Create(&domain.Stat{Date: date, UserCount: userCount}).Error
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("store: upsert stat")
	}
	return err
}

// StatForDay returns the snapshot for an exact date. ok is false when no
// snapshot exists for that day.
func (s *Store) StatForDay(date string) (count int, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec domain.Stat
	err = s.db.Where("date = ?", date).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("store: stat for day")
		return 0, false, err
	}
	return rec.UserCount, true, nil
}

// AvgStatForMonth returns the average user count across all snapshots whose
// date starts with prefix ("2006-01"). ok is false when the month has no
// snapshots.
func (s *Store) AvgStatForMonth(prefix string) (avg float64, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row struct {
		Avg *float64
	}
	err = s.db.Raw(`SELECT AVG(user_count) AS avg FROM stats WHERE date LIKE ?`, prefix+"%").Scan(&row).Error
	if err != nil {
		log.Error().Err(err).Str("month", prefix).Msg("store: avg stat for month")
		return 0, false, err
	}
	if row.Avg == nil {
		return 0, false, nil
	}
	return *row.Avg, true, nil
}
