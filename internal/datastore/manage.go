package datastore

import (
	"time"

	"github.com/voyago/voyago-go/internal/errors"
	"gorm.io/gorm"
)

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	migrationStart := time.Now()
	migrationLogger := getLogger().With("db_type", dbType)

	tableMappings := []struct {
		model any
		name  string
	}{
		{&Region{}, "regions"},
		{&City{}, "cities"},
		{&Place{}, "places"},
		{&CityPhoto{}, "city_photos"},
		{&PlacePhoto{}, "place_photos"},
	}

	if debug {
		migrationLogger.Debug("Starting database migration",
			"table_count", len(tableMappings))
	}

	for _, table := range tableMappings {
		tableStart := time.Now()
		if err := db.AutoMigrate(table.model); err != nil {
			enhancedErr := errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "auto_migrate_table").
				Context("db_type", dbType).
				Context("table", table.name).
				Build()

			migrationLogger.Error("Table migration failed",
				"table", table.name,
				"error", enhancedErr)
			return enhancedErr
		}
		if debug {
			migrationLogger.Debug("Table migration completed",
				"table", table.name,
				"duration", time.Since(tableStart))
		}
	}

	if debug {
		migrationLogger.Debug("Database migration completed successfully",
			"total_duration", time.Since(migrationStart))
	}

	return nil
}
