package datastore

import (
	"fmt"
	"path/filepath"

	"github.com/voyago/voyago-go/internal/conf"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return fmt.Errorf("SQLite database path is empty")
	}
	return nil
}

// Open sets up the SQLite database connection
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	absoluteFilePath := store.Settings.Output.SQLite.Path
	if !filepath.IsAbs(absoluteFilePath) {
		if abs, err := filepath.Abs(absoluteFilePath); err == nil {
			absoluteFilePath = abs
		}
	}

	newLogger := createGormLogger()

	db, err := gorm.Open(sqlite.Open(absoluteFilePath), &gorm.Config{Logger: newLogger})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", absoluteFilePath)
}

// Close closes the SQLite database connection
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying database: %w", err)
	}
	return sqlDB.Close()
}
