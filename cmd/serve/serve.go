// Package serve implements the serve command which runs the Voyago HTTP server.
package serve

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/voyago/voyago-go/internal/api"
	"github.com/voyago/voyago-go/internal/conf"
	"github.com/voyago/voyago-go/internal/datastore"
	"github.com/voyago/voyago-go/internal/media"
	"github.com/voyago/voyago-go/internal/observability"
	"github.com/voyago/voyago-go/internal/places"
	"github.com/voyago/voyago-go/internal/populate"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Voyago HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	cmd.PersistentFlags().StringVar(&settings.WebServer.Port, "port", settings.WebServer.Port, "Port to listen on")

	return cmd
}

func runServer(settings *conf.Settings) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled, set output.sqlite.enabled or output.mysql.enabled")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing datastore: %v", err)
		}
	}()

	client, err := places.NewClient(places.Config{
		APIKey:          settings.Places.APIKey,
		BaseURL:         settings.Places.BaseURL,
		Timeout:         settings.Places.Timeout,
		CacheTTL:        settings.Places.CacheTTL,
		RateLimitPerSec: settings.Places.RateLimitPerSec,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize places provider client: %w", err)
	}
	defer client.Close()

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
	defer ingestor.Close()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	ingestor.SetMetrics(metrics.Media)
	client.SetMetrics(metrics.Provider)
	store.SetMetrics(metrics.Datastore)

	coordinator := populate.New(client, store, ingestor)
	coordinator.SetMetrics(metrics.Populate)
	defer coordinator.Close()

	e := echo.New()
	e.HideBanner = true

	controller, err := api.New(e, store, settings, coordinator, metrics, log.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize API controller: %w", err)
	}
	defer controller.Shutdown()

	errChan := make(chan error, 1)
	go func() {
		addr := ":" + settings.WebServer.Port
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Printf("Received signal %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
