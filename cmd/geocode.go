package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/dataset"
	"github.com/jukenmap/jukenmap/internal/ingest"
	"github.com/jukenmap/jukenmap/internal/pipeline"
)

var (
	geocodeInput   string
	geocodeOutput  string
	geocodeCache   string
	geocodeDriver  string
	geocodeGeoJSON string
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode the school list into the static dataset",
	Long:  "Reads the school CSV or XLSX export, resolves every address through the GSI address search with a persistent cache, and writes schools.json.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if geocodeCache != "" {
			cfg.Geocode.CachePath = geocodeCache
		}
		if geocodeDriver != "" {
			cfg.Geocode.CacheDriver = geocodeDriver
		}
		if geocodeOutput == "" {
			geocodeOutput = cfg.Dataset.Path
		}
		cfg.Dataset.Path = geocodeOutput
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "geocode"))

		schools, stats, err := ingest.ReadFile(ctx, geocodeInput)
		if err != nil {
			return eris.Wrap(err, "read input")
		}
		log.Info("input loaded",
			zap.String("input", geocodeInput),
			zap.Int("rows", stats.Rows),
			zap.Int("parsed", stats.Parsed),
			zap.Int("skipped", stats.Skipped),
		)

		cache, err := openGeocodeCache(ctx, cfg.Geocode)
		if err != nil {
			return err
		}
		defer cache.Close() //nolint:errcheck
		log.Info("geocode cache ready", zap.String("driver", cfg.Geocode.CacheDriver), zap.Int("entries", cache.Len()))

		p := pipeline.New(newGSIClient(cfg), cache, pipeline.Options{
			RecordDelay:        time.Duration(cfg.Geocode.RecordDelayMs) * time.Millisecond,
			RetryDelay:         time.Duration(cfg.Geocode.RetryDelayMs) * time.Millisecond,
			CheckpointInterval: cfg.Geocode.CheckpointInterval,
		})

		result, err := p.Run(ctx, schools)
		if err != nil {
			return err
		}

		if err := dataset.WriteFile(geocodeOutput, result.Schools(), false); err != nil {
			return err
		}
		if geocodeGeoJSON != "" {
			if err := dataset.WriteFile(geocodeGeoJSON, result.Schools(), true); err != nil {
				return err
			}
		}

		log.Info("geocoding complete",
			zap.String("output", geocodeOutput),
			zap.Int("total", result.Summary.Total),
			zap.Int("succeeded", result.Summary.Succeeded),
			zap.Int("failed", result.Summary.Failed),
		)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeInput, "input", "", "school list CSV or XLSX (required)")
	geocodeCmd.Flags().StringVar(&geocodeOutput, "output", "", "output schools.json (default dataset.path)")
	geocodeCmd.Flags().StringVar(&geocodeCache, "cache", "", "geocode cache path (default geocode.cache_path)")
	geocodeCmd.Flags().StringVar(&geocodeDriver, "driver", "", "geocode cache driver: json, sqlite or postgres (default geocode.cache_driver)")
	geocodeCmd.Flags().StringVar(&geocodeGeoJSON, "geojson", "", "also write a GeoJSON FeatureCollection to this path")
	_ = geocodeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(geocodeCmd)
}
