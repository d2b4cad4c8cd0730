package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// DSN renders the connection string for settings.
func DSN(settings *conf.MySQLSettings) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		settings.Username, settings.Password, settings.Host, settings.Port, settings.Database)
}

// Open connects to MySQL and migrates the schema.
func (store *MySQLStore) Open() error {
	cfg := &store.Settings.Output.MySQL
	db, err := gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", cfg.Host),
			logger.String("port", cfg.Port),
			logger.String("database", cfg.Database),
			logger.Error(err))
		return dbError(err, "open", "db_type", "mysql", "host", cfg.Host)
	}

	store.DB = db
	if err := performAutoMigration(db, "mysql"); err != nil {
		return err
	}
	GetLogger().Info("mysql datastore opened",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database))
	return nil
}

// Close releases the MySQL connection pool.
func (store *MySQLStore) Close() error {
	return store.close("mysql")
}
