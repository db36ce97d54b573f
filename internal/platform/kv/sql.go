package kv

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntryModel is the GORM model for the kv_entries table.
type EntryModel struct {
	Key       string    `gorm:"column:kv_key;primaryKey;size:512"`
	Value     []byte    `gorm:"column:kv_value;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (EntryModel) TableName() string {
	return "kv_entries"
}

// SQLBackend stores keys as rows of a single table through GORM.
// Postgres is used in production and SQLite locally and in tests.
type SQLBackend struct {
	db   *gorm.DB
	name string
}

var _ Backend = (*SQLBackend)(nil)

// NewSQLBackend wraps db. name is reported by Name (usually the dialect).
func NewSQLBackend(db *gorm.DB, name string) *SQLBackend {
	if name == "" {
		name = db.Dialector.Name()
	}
	return &SQLBackend{db: db, name: name}
}

// Migrate creates the kv_entries table when missing.
func (s *SQLBackend) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&EntryModel{}); err != nil {
		return unavailable("sql migrate", EntryModel{}.TableName(), err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var m EntryModel
	if err := s.db.WithContext(ctx).Where("kv_key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("sql get", key, err)
	}
	return m.Value, nil
}

// Set upserts the row for key.
func (s *SQLBackend) Set(ctx context.Context, key string, value []byte) error {
	m := EntryModel{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kv_value", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return unavailable("sql set", key, err)
	}
	return nil
}

// Delete removes the row for key.
func (s *SQLBackend) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("kv_key = ?", key).Delete(&EntryModel{}).Error; err != nil {
		return unavailable("sql delete", key, err)
	}
	return nil
}

// Keys returns the sorted keys starting with prefix.
func (s *SQLBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&EntryModel{}).
		Where(`kv_key LIKE ? ESCAPE '\'`, likeEscape(prefix)+"%").
		Order("kv_key ASC").
		Pluck("kv_key", &keys).Error
	if err != nil {
		return nil, unavailable("sql keys", prefix, err)
	}
	// SQLite LIKE ignores ASCII case and collations differ between dialects
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Kind reports KindDurable.
func (s *SQLBackend) Kind() Kind { return KindDurable }

// Name reports the configured dialect name.
func (s *SQLBackend) Name() string { return s.name }

// likeEscape escapes LIKE wildcards so prefixes match literally.
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
