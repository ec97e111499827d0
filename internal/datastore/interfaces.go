// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/voyago/voyago-go/internal/conf"
	"github.com/voyago/voyago-go/internal/logging"
	"github.com/voyago/voyago-go/internal/observability/metrics"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the interface for database operations.
type Interface interface {
	Open() error
	Close() error
	SetMetrics(m *metrics.DatastoreMetrics)

	// Local store reader
	SearchCities(term string, limit int) ([]City, error)
	CountCities(term string) (int64, error)
	SearchPlaces(term string, cityID uint, limit int) ([]Place, error)
	CountPlaces(term string, cityID uint) (int64, error)
	CityExternalIDExists(externalID string) (bool, error)
	PlaceExternalIDExists(externalID string) (bool, error)

	// Persistence
	GetOrCreateRegion(code, name string) (*Region, error)
	UpsertCity(city *City) (*City, error)
	UpsertPlace(place *Place) (*Place, error)
	InsertCityPhotos(photos []CityPhoto) error
	InsertPlacePhotos(photos []PlacePhoto) error

	// Lookup
	GetCity(id uint) (*City, error)
	GetPlace(id uint) (*Place, error)
	CityPhotos(cityID uint) ([]CityPhoto, error)
	PlacePhotos(placeID uint) ([]PlacePhoto, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB // GORM database instance
	metrics *metrics.DatastoreMetrics
}

// SetMetrics attaches Prometheus metrics to the datastore.
func (ds *DataStore) SetMetrics(m *metrics.DatastoreMetrics) {
	ds.metrics = m
}

// recordOperation counts one completed datastore operation when metrics are attached.
func (ds *DataStore) recordOperation(operation string, start time.Time, err error) {
	if ds.metrics == nil {
		return
	}
	ds.metrics.IncrementOperations(operation)
	ds.metrics.ObserveOperationDuration(time.Since(start).Seconds())
	if err != nil {
		ds.metrics.IncrementOperationErrors(operation)
	}
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// getLogger returns the datastore service logger, falling back to the default logger
// when logging has not been initialized (tests).
func getLogger() *slog.Logger {
	if l := logging.ForService("datastore"); l != nil {
		return l
	}
	return slog.Default().With("service", "datastore")
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() gormlogger.Interface {
	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}
