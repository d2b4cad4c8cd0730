// Package datastore persists diagnostic records through gorm on SQLite or
// MySQL.
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// DefaultListLimit bounds ListByUser when the caller passes no limit.
const DefaultListLimit = 20

// MaxListLimit caps ListByUser.
const MaxListLimit = 200

// DefaultSlowQueryThreshold is the duration above which queries are logged as slow.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Save(ctx context.Context, record *DiagnosticRecord) error
	Get(ctx context.Context, id string) (*DiagnosticRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]DiagnosticRecord, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// DataStore implements the record operations shared by every backend.
type DataStore struct {
	DB *gorm.DB
}

// New returns the backend enabled in settings, or nil when persistence is
// disabled.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// GetLogger returns the datastore logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

func createGormLogger() *logger.GormLoggerAdapter {
	return logger.NewGormLoggerAdapter(GetLogger(), DefaultSlowQueryThreshold)
}

func performAutoMigration(db *gorm.DB, dbType string) error {
	if err := db.AutoMigrate(&DiagnosticRecord{}); err != nil {
		return dbError(err, "auto_migrate", "db_type", dbType)
	}
	GetLogger().Debug("database schema migrated", logger.String("db_type", dbType))
	return nil
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return dbError(errors.NewStd("database connection is not initialized"), "check_connection")
	}
	return nil
}

// Save inserts record. CreatedAt defaults to now.
func (ds *DataStore) Save(ctx context.Context, record *DiagnosticRecord) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if record.ID == "" {
		return validationError("diagnostic record id is required", "id")
	}
	if record.UserID == "" {
		return validationError("user id is required", "user_id")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := ds.DB.WithContext(ctx).Create(record).Error; err != nil {
		return dbError(err, "save_record", "diagnosis_type", record.DiagnosisType)
	}
	return nil
}

// Get returns the record with id or an errors.CategoryNotFound error.
func (ds *DataStore) Get(ctx context.Context, id string) (*DiagnosticRecord, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	var record DiagnosticRecord
	err := ds.DB.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(id)
	}
	if err != nil {
		return nil, dbError(err, "get_record")
	}
	return &record, nil
}

// ListByUser returns the newest records of userID first.
func (ds *DataStore) ListByUser(ctx context.Context, userID string, limit int) ([]DiagnosticRecord, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, validationError("user id is required", "user_id")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	var records []DiagnosticRecord
	err := ds.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, dbError(err, "list_records", "limit", limit)
	}
	return records, nil
}

// Delete removes the record with id or returns an errors.CategoryNotFound
// error when there is none.
func (ds *DataStore) Delete(ctx context.Context, id string) error {
	if err := ds.ready(); err != nil {
		return err
	}

	res := ds.DB.WithContext(ctx).Where("id = ?", id).Delete(&DiagnosticRecord{})
	if res.Error != nil {
		return dbError(res.Error, "delete_record")
	}
	if res.RowsAffected == 0 {
		return notFoundError(id)
	}
	return nil
}

func (ds *DataStore) close(dbType string) error {
	if err := ds.ready(); err != nil {
		return err
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", "db_type", dbType)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "db_type", dbType)
	}
	return nil
}
