// Package populate implements the populate command which runs one coverage
// pass from the command line, without starting the HTTP server.
package populate

import (
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/voyago/voyago-go/internal/conf"
	"github.com/voyago/voyago-go/internal/datastore"
	"github.com/voyago/voyago-go/internal/media"
	"github.com/voyago/voyago-go/internal/places"
	"github.com/voyago/voyago-go/internal/populate"
)

// Command creates the populate command with its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Run one population pass for a search term",
	}

	citiesCmd := &cobra.Command{
		Use:   "cities [term]",
		Short: "Ensure city coverage for a search term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCities(cmd, settings, args[0], count)
		},
	}

	placesCmd := &cobra.Command{
		Use:   "places [term] [city-id]",
		Short: "Ensure place coverage for a search term within a city",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cityID, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid city id %q: %w", args[1], err)
			}
			return runPlaces(cmd, settings, args[0], uint(cityID), count)
		},
	}

	cmd.PersistentFlags().IntVarP(&count, "count", "n", 0, "Needed result count (0 uses the configured default)")
	cmd.AddCommand(citiesCmd, placesCmd)

	return cmd
}

// newCoordinator wires the full population stack from settings. The returned
// cleanup closes every wired component, datastore included.
func newCoordinator(settings *conf.Settings) (*populate.Coordinator, func(), error) {
	store := datastore.New(settings)
	if store == nil {
		return nil, nil, fmt.Errorf("no database output enabled, set output.sqlite.enabled or output.mysql.enabled")
	}
	if err := store.Open(); err != nil {
		return nil, nil, fmt.Errorf("failed to open datastore: %w", err)
	}

	client, err := places.NewClient(places.Config{
		APIKey:          settings.Places.APIKey,
		BaseURL:         settings.Places.BaseURL,
		Timeout:         settings.Places.Timeout,
		CacheTTL:        settings.Places.CacheTTL,
		RateLimitPerSec: settings.Places.RateLimitPerSec,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to initialize places provider client: %w", err)
	}

	ingestor := media.NewIngestor(media.Config{
		BasePath:        settings.Media.BasePath,
		MaxConcurrent:   settings.Media.MaxConcurrent,
		DownloadTimeout: settings.Media.DownloadTimeout,
		Retry: media.RetryPolicy{
			MaxAttempts: settings.Media.RetryMaxAttempts,
			BaseDelay:   settings.Media.RetryBaseDelay,
			Multiplier:  settings.Media.RetryMultiplier,
		},
		JPEGQuality: settings.Media.JPEGQuality,
	})

	coordinator := populate.New(client, store, ingestor)
	cleanup := func() {
		coordinator.Close()
		ingestor.Close()
		client.Close()
		if err := store.Close(); err != nil {
			log.Printf("Error closing datastore: %v", err)
		}
	}

	return coordinator, cleanup, nil
}

func runCities(cmd *cobra.Command, settings *conf.Settings, term string, count int) error {
	coordinator, cleanup, err := newCoordinator(settings)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := coordinator.EnsureCityCoverage(cmd.Context(), term, count)
	if err != nil {
		return fmt.Errorf("city coverage run failed: %w", err)
	}

	for _, city := range result.Cities {
		tz := ""
		if city.Timezone != nil {
			tz = *city.Timezone
		}
		fmt.Printf("%6d  %-30s  %9.4f %9.4f  %s\n", city.ID, city.Name, city.Latitude, city.Longitude, tz)
	}
	fmt.Printf("%d cities match %q\n", result.Total, term)

	return nil
}

func runPlaces(cmd *cobra.Command, settings *conf.Settings, term string, cityID uint, count int) error {
	coordinator, cleanup, err := newCoordinator(settings)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := coordinator.EnsurePlaceCoverage(cmd.Context(), term, cityID, count)
	if err != nil {
		return fmt.Errorf("place coverage run failed: %w", err)
	}

	for _, place := range result.Places {
		rating := "-"
		if place.Rating != nil {
			rating = fmt.Sprintf("%.1f", *place.Rating)
		}
		fmt.Printf("%6d  %-30s  %4s  %s\n", place.ID, place.Name, rating, place.CategoryTags)
	}
	fmt.Printf("%d places match %q\n", result.Total, term)

	return nil
}
