package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// farFuture stands in for "never expires" when the TTL is zero.
var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

// DBStore keeps values in the session_entries table.
type DBStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewDBStore creates a store on top of db. A zero ttl keeps entries forever.
func NewDBStore(db *gorm.DB, ttl time.Duration) *DBStore {
	return &DBStore{db: db, ttl: ttl, now: time.Now}
}

func (s *DBStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry models.SessionEntry
	err := s.db.WithContext(ctx).
		Where("`key` = ? AND expires_at > ?", key, s.now().UTC()).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session: db get %s: %w", key, err)
	}
	return []byte(entry.Value), true, nil
}

func (s *DBStore) Set(ctx context.Context, key string, value []byte) error {
	expiresAt := farFuture
	if s.ttl > 0 {
		expiresAt = s.now().UTC().Add(s.ttl)
	}
	entry := models.SessionEntry{Key: key, Value: string(value), ExpiresAt: expiresAt}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry)
	if result.Error != nil {
		return fmt.Errorf("session: db set %s: %w", key, result.Error)
	}
	return nil
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("`key` = ?", key).Delete(&models.SessionEntry{}).Error; err != nil {
		return fmt.Errorf("session: db delete %s: %w", key, err)
	}
	return nil
}

// Sweep deletes expired entries and returns how many were removed.
func (s *DBStore) Sweep(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&models.SessionEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("session: sweep: %w", result.Error)
	}
	return result.RowsAffected, nil
}
