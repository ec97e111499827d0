package datastore

import (
	"fmt"

	"github.com/voyago/voyago-go/internal/conf"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	mysqlConf := settings.Output.MySQL
	if mysqlConf.Username == "" || mysqlConf.Database == "" || mysqlConf.Host == "" || mysqlConf.Port == "" {
		return fmt.Errorf("incomplete MySQL configuration")
	}
	return nil
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		store.Settings.Output.MySQL.Username, store.Settings.Output.MySQL.Password,
		store.Settings.Output.MySQL.Host, store.Settings.Output.MySQL.Port,
		store.Settings.Output.MySQL.Database)

	newLogger := createGormLogger()

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		getLogger().Error("Failed to open MySQL database",
			"host", store.Settings.Output.MySQL.Host,
			"port", store.Settings.Output.MySQL.Port,
			"database", store.Settings.Output.MySQL.Database,
			"error", err)
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "MySQL", dsn)
}

// Close closes the MySQL database connection
func (store *MySQLStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying database: %w", err)
	}
	return sqlDB.Close()
}
