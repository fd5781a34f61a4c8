// Message-stream operations: append-only inserts for the three streams,
// the reserved consumption-tracking workflow, and the aggregate queries
// used by the reporting layer.
package store

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-js8call-bridge/internal/domain"
)

// LogEntry is one row of the combined recent-log view across all three
// message streams. Receiver holds the group name for group/urgent rows.
type LogEntry struct {
	Sender    string
	Receiver  string
	Body      string
	Timestamp time.Time
}

// StreamCounts holds per-stream message totals for the analytics view.
type StreamCounts struct {
	Direct int64
	Group  int64
	Urgent int64
}

// InsertMessage appends a row to the direct-message stream.
func (s *Store) InsertMessage(sender, receiver, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &domain.Message{Sender: sender, Receiver: receiver, Body: body, Timestamp: time.Now().UTC()}
	if err := s.db.Create(m).Error; err != nil {
		log.Error().Err(err).Str("sender", sender).Msg("store: insert message")
		return err
	}
	return nil
}

// InsertGroupMessage appends a row to the group-message stream.
func (s *Store) InsertGroupMessage(sender, group, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &domain.GroupMessage{Sender: sender, GroupName: group, Body: body, Timestamp: time.Now().UTC()}
	if err := s.db.Create(m).Error; err != nil {
		log.Error().Err(err).Str("sender", sender).Str("group", group).Msg("store: insert group message")
		return err
	}
	return nil
}

// InsertUrgentMessage appends a row to the urgent-message stream.
func (s *Store) InsertUrgentMessage(sender, group, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &domain.UrgentMessage{Sender: sender, GroupName: group, Body: body, Timestamp: time.Now().UTC()}
	if err := s.db.Create(m).Error; err != nil {
		log.Error().Err(err).Str("sender", sender).Str("group", group).Msg("store: insert urgent message")
		return err
	}
	return nil
}

// UnprocessedMessages returns direct messages whose processed flag is still
// unset, oldest first. Nothing in the bridge consumes these yet; the query
// exists for the future consumption-tracking workflow.
func (s *Store) UnprocessedMessages() ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Message
	err := s.db.Where("processed = ?", false).Order("id asc").Find(&out).Error
	if err != nil {
		log.Error().Err(err).Msg("store: unprocessed messages")
		return nil, err
	}
	return out, nil
}

// MarkMessageProcessed sets the processed flag on a direct message.
func (s *Store) MarkMessageProcessed(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Model(&domain.Message{}).Where("id = ?", id).Update("processed", true).Error
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("store: mark processed")
	}
	return err
}

// RecentLog returns the newest limit rows across the three streams, ordered
// newest-first. Callers clamp limit; the query trusts it.
func (s *Store) RecentLog(limit int) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []LogEntry
	err := s.db.Raw(`
		SELECT sender, receiver, message AS body, timestamp
		FROM (
			SELECT sender, receiver, message, timestamp FROM messages
			UNION ALL
			SELECT sender, groupname AS receiver, message, timestamp FROM "groups"
			UNION ALL
			SELECT sender, groupname AS receiver, message, timestamp FROM urgent
		)
		ORDER BY timestamp DESC
		LIMIT ?`, limit).Scan(&out).Error
	if err != nil {
		log.Error().Err(err).Msg("store: recent log")
		return nil, err
	}
	return out, nil
}

// StreamTotals returns all-time per-stream counts.
func (s *Store) StreamTotals() (StreamCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c StreamCounts
	if err := s.db.Model(&domain.Message{}).Count(&c.Direct).Error; err != nil {
		log.Error().Err(err).Msg("store: stream totals")
		return StreamCounts{}, err
	}
	if err := s.db.Model(&domain.GroupMessage{}).Count(&c.Group).Error; err != nil {
		log.Error().Err(err).Msg("store: stream totals")
		return StreamCounts{}, err
	}
	if err := s.db.Model(&domain.UrgentMessage{}).Count(&c.Urgent).Error; err != nil {
		log.Error().Err(err).Msg("store: stream totals")
		return StreamCounts{}, err
	}
	return c, nil
}

// StreamCountsBetween returns per-stream counts in the half-open window
// [from, to).
func (s *Store) StreamCountsBetween(from, to time.Time) (StreamCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c StreamCounts
	if err := s.db.Model(&domain.Message{}).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Count(&c.Direct).Error; err != nil {
		log.Error().Err(err).Msg("store: stream counts")
		return StreamCounts{}, err
	}
	if err := s.db.Model(&domain.GroupMessage{}).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Count(&c.Group).Error; err != nil {
		log.Error().Err(err).Msg("store: stream counts")
		return StreamCounts{}, err
	}
	if err := s.db.Model(&domain.UrgentMessage{}).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Count(&c.Urgent).Error; err != nil {
		log.Error().Err(err).Msg("store: stream counts")
		return StreamCounts{}, err
	}
	return c, nil
}
