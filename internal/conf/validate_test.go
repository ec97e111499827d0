package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSettings() *Settings {
	return &Settings{
		Output: OutputSettings{
			SQLite: SQLiteSettings{Enabled: true, Path: "voyago.db"},
		},
		Places: PlacesSettings{
			BaseURL: "https://places.example.com/v1",
			Timeout: 10 * time.Second,
		},
		Media: MediaSettings{
			BasePath:         "images/",
			MaxConcurrent:    10,
			RetryMaxAttempts: 3,
			JPEGQuality:      85,
		},
		WebServer: WebServerSettings{Enabled: true, Port: "8080"},
	}
}

func TestValidateSettingsValid(t *testing.T) {
	assert.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsBothDatabasesEnabled(t *testing.T) {
	s := validSettings()
	s.Output.MySQL.Enabled = true
	err := ValidateSettings(s)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "only one database output")
}

func TestValidateSettingsNoDatabaseEnabled(t *testing.T) {
	s := validSettings()
	s.Output.SQLite.Enabled = false
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsBadPort(t *testing.T) {
	s := validSettings()
	s.WebServer.Port = "not-a-port"
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsBadJPEGQuality(t *testing.T) {
	s := validSettings()
	s.Media.JPEGQuality = 0
	assert.Error(t, ValidateSettings(s))

	s.Media.JPEGQuality = 101
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsZeroTimeout(t *testing.T) {
	s := validSettings()
	s.Places.Timeout = 0
	assert.Error(t, ValidateSettings(s))
}
