package database

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("record not found")

type Config struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

// Record is one persisted value, addressed by a fixed key. The value is an
// opaque blob (JSON, possibly encrypted) owned by the caller.
type Record struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     []byte
	UpdatedAt time.Time
}

// Store is the durable client-side key/value store backing persisted state
// such as the session, the local equivalent of browser storage.
type Store struct {
	db *gorm.DB
}

// Open creates a SQLite-backed store with basic tuning.
func Open(cfg Config) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create store dir")
		}
	}

	gormLogger := logger.Default
	if !cfg.LogMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql db")
	}

	// single-process local store, keep the pool tiny
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
	_, _ = sqlDB.Exec("PRAGMA synchronous = NORMAL;")

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, errors.Wrap(err, "migrate store")
	}

	return &Store{db: db}, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	var rec Record
	if err := s.db.First(&rec, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "%q", key)
		}
		return nil, errors.Wrap(err, "get record")
	}
	return rec.Value, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key string, value []byte) error {
	rec := Record{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&rec).Error
	return errors.Wrap(err, "put record")
}

// Delete removes the value stored under key. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	err := s.db.Delete(&Record{}, "key = ?", key).Error
	return errors.Wrap(err, "delete record")
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql db")
	}
	return sqlDB.Close()
}
