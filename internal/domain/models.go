// Package domain defines the persistence models for the bridge: the three
// append-only message streams, the user subscription rows, daily stats
// snapshots, and the generic key/value table. These types are mapped with
// GORM and form the durable data layer of the application.
package domain

import "time"

// Message is one entry in the direct-message stream. Rows are append-only:
// they are inserted when an inbound radio message is classified and never
// updated afterwards, except for the Processed flag which is reserved for a
// future consumption-tracking workflow.
//
// Fields:
//   - ID: auto-incrementing identity.
//   - Sender: radio callsign the message originated from.
//   - Receiver: destination token ("DIRECT" for direct traffic).
//   - Body: free-text message content.
//   - Timestamp: insertion time (UTC).
//   - Processed: consumption marker, false on insert.
type Message struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Sender    string    `gorm:"type:varchar(64);not null;index"`
	Receiver  string    `gorm:"type:varchar(64);not null"`
	Body      string    `gorm:"column:message;type:text;not null"`
	Timestamp time.Time `gorm:"index"`
	Processed bool      `gorm:"not null;default:false"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// GroupMessage is one entry in the group-message stream. Same shape as
// Message with the destination being a configured group name.
type GroupMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Sender    string    `gorm:"type:varchar(64);not null;index"`
	GroupName string    `gorm:"column:groupname;type:varchar(64);not null;index"`
	Body      string    `gorm:"column:message;type:text;not null"`
	Timestamp time.Time `gorm:"index"`
	Processed bool      `gorm:"not null;default:false"`
}

// TableName returns the database table name for GroupMessage.
func (GroupMessage) TableName() string { return "groups" }

// UrgentMessage is one entry in the urgent-message stream. Urgent groups are
// routed and worded distinctly but stored with the same shape.
type UrgentMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Sender    string    `gorm:"type:varchar(64);not null;index"`
	GroupName string    `gorm:"column:groupname;type:varchar(64);not null;index"`
	Body      string    `gorm:"column:message;type:text;not null"`
	Timestamp time.Time `gorm:"index"`
	Processed bool      `gorm:"not null;default:false"`
}

// TableName returns the database table name for UrgentMessage.
func (UrgentMessage) TableName() string { return "urgent" }

// User is the normalized per-user subscription row, used when the table
// persistence strategy is selected. Groups and MutedGroups hold the JSON
// serialization of the user's group-name sets.
type User struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	UserHash    string `gorm:"column:user_hash;type:varchar(64);uniqueIndex;not null"`
	Groups      string `gorm:"type:text;not null"`
	MutedGroups string `gorm:"column:muted_groups;type:text;not null"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Stat is a daily user-count snapshot keyed by calendar date ("2006-01-02").
// Nothing in the bridge core writes stats on a schedule; the table is
// populated externally and queried by the reporting layer.
type Stat struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Date      string `gorm:"type:varchar(10);uniqueIndex;not null"`
	UserCount int    `gorm:"column:user_count;not null"`
}

// TableName returns the database table name for Stat.
func (Stat) TableName() string { return "stats" }

// KV is a generic string-keyed durable slot. The registry snapshot blob
// lives here under a well-known key when the blob strategy is selected.
type KV struct {
	Key   string `gorm:"primaryKey;type:varchar(255)"`
	Value string `gorm:"type:text"`
}

// TableName returns the database table name for KV.
func (KV) TableName() string { return "storage" }
