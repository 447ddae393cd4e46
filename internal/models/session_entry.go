package models

import "time"

// SessionEntry holds one session-scoped value for the database session backend.
type SessionEntry struct {
	Key       string    `gorm:"primaryKey;size:191"`
	Value     string    `gorm:"type:text"`
	ExpiresAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}
