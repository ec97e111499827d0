// config.go: This file contains the configuration for the Voyago application. It defines the settings struct and functions to load them.
package conf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// LogConfig contains settings for a rotated log file.
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // path to log file
	Rotation RotationType // rotation type
	MaxSize  int64        // max size in bytes for RotationSize
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // name of the node/instance
	Log  LogConfig // main log configuration
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite
	Path    string // path to database file
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// OutputSettings contains database output settings.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// PlacesSettings contains settings for the external places provider.
type PlacesSettings struct {
	APIKey          string        // provider API key
	BaseURL         string        // provider API base URL
	Timeout         time.Duration // per-call timeout
	RateLimitPerSec float64       // requests per second towards the provider
	CacheTTL        time.Duration // TTL for cached details/timezone responses
	Debug           bool          // true to enable debug logging
}

// MediaSettings contains settings for the photo ingestion pipeline.
type MediaSettings struct {
	BasePath           string        // root directory for derived image assets
	MaxPhotosPerEntity int           // cap of photos ingested per entity
	MaxConcurrent      int           // cap of concurrent photo downloads
	DownloadTimeout    time.Duration // per-attempt download timeout
	RetryMaxAttempts   int           // total download attempts per photo
	RetryBaseDelay     time.Duration // backoff base delay
	RetryMultiplier    float64       // backoff multiplier per attempt
	JPEGQuality        int           // quality for generated variants
	Debug              bool          // true to enable debug logging
}

// PopulateSettings contains settings for the population coordinator.
type PopulateSettings struct {
	DefaultNeededCount int  // coverage threshold when the caller gives no hint
	Debug              bool // true to enable debug logging
}

// WebServerSettings contains settings for the HTTP API server.
type WebServerSettings struct {
	Enabled   bool   // true to enable the HTTP server
	Port      string // port to listen on
	PublicURL string // externally visible base URL, used to absolutize image paths
	Debug     bool   // true to enable debug logging
}

// Settings contains all runtime settings for the application.
type Settings struct {
	Debug bool // true to enable debug behavior globally

	Main      MainSettings
	Output    OutputSettings
	Places    PlacesSettings
	Media     MediaSettings
	Populate  PopulateSettings
	WebServer WebServerSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration from disk and environment and returns the populated Settings.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets up viper with defaults, config paths and environment bindings.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("voyago")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		// No config file found, run on defaults and environment only.
		log.Println("Config file not found, using defaults")
	}

	return nil
}

// Setting returns the current settings instance, loading them on first use.
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance without triggering a load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the list of directories searched for a config file.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user directory: %w", err)
	}

	configPaths := []string{
		filepath.Join(homeDir, ".config", "voyago"),
		".",
	}

	return configPaths, nil
}
