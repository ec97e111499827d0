// conf/validate.go

package conf

import (
	"fmt"
	"strconv"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validatePlacesSettings(&settings.Places); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMediaSettings(&settings.Media); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	if settings.SQLite.Enabled && settings.MySQL.Enabled {
		return fmt.Errorf("only one database output can be enabled at a time")
	}
	if !settings.SQLite.Enabled && !settings.MySQL.Enabled {
		return fmt.Errorf("at least one database output must be enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		return fmt.Errorf("SQLite database path must not be empty")
	}
	return nil
}

func validatePlacesSettings(settings *PlacesSettings) error {
	if settings.BaseURL == "" {
		return fmt.Errorf("places provider base URL must not be empty")
	}
	if settings.Timeout <= 0 {
		return fmt.Errorf("places provider timeout must be positive")
	}
	return nil
}

func validateMediaSettings(settings *MediaSettings) error {
	if settings.BasePath == "" {
		return fmt.Errorf("media base path must not be empty")
	}
	if settings.MaxConcurrent < 1 {
		return fmt.Errorf("media max concurrent downloads must be at least 1")
	}
	if settings.RetryMaxAttempts < 1 {
		return fmt.Errorf("media retry max attempts must be at least 1")
	}
	if settings.JPEGQuality < 1 || settings.JPEGQuality > 100 {
		return fmt.Errorf("media JPEG quality must be between 1 and 100")
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if settings.Enabled {
		port, err := strconv.Atoi(settings.Port)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid web server port: %s", settings.Port)
		}
	}
	return nil
}
