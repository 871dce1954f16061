package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jukenmap/jukenmap/internal/config"
	"github.com/jukenmap/jukenmap/internal/dataset"
	"github.com/jukenmap/jukenmap/internal/geocache"
	"github.com/jukenmap/jukenmap/internal/resilience"
	"github.com/jukenmap/jukenmap/internal/transit"
	"github.com/jukenmap/jukenmap/pkg/geocode"
	"github.com/jukenmap/jukenmap/pkg/google"
)

func newGSIClient(c *config.Config) *geocode.GSIClient {
	opts := []geocode.Option{
		geocode.WithRateLimit(c.GSI.RateLimit),
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(c.GSI.TimeoutSecs) * time.Second}),
	}
	if c.GSI.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(c.GSI.BaseURL))
	}
	return geocode.NewGSIClient(opts...)
}

// newGoogleClient returns nil when no key is configured.
func newGoogleClient(c *config.Config) google.Client {
	key := c.GoogleKey()
	if key == "" {
		return nil
	}
	opts := []google.Option{google.WithRateLimit(c.Google.RateLimit)}
	if c.Google.BaseURL != "" {
		opts = append(opts, google.WithBaseURL(c.Google.BaseURL))
	}
	return google.NewClient(key, opts...)
}

// newAggregator fails with transit.ErrMissingAPIKey when no key is configured.
func newAggregator(c *config.Config, client google.Client) (*transit.Aggregator, error) {
	if client == nil {
		return nil, transit.ErrMissingAPIKey
	}
	return transit.NewAggregator(client, transit.NewCache(), transit.Options{
		BatchSize:  c.Transit.BatchSize,
		BatchDelay: time.Duration(c.Transit.BatchDelayMs) * time.Millisecond,
	})
}

func newLoader(c *config.Config, resolver geocode.Resolver) *dataset.Loader {
	return dataset.NewLoader(dataset.Options{
		StaticPath: c.Dataset.Path,
		SheetURL:   c.Dataset.SheetCSVURL,
		TTL:        time.Duration(c.Dataset.RefreshSecs) * time.Second,
		Retry:      resilience.DefaultRetryConfig().WithAttempts(c.Dataset.SheetRetries),
		HTTPClient: &http.Client{Timeout: time.Duration(c.Dataset.SheetTimeoutMs) * time.Millisecond},
	}, resolver)
}

func openGeocodeCache(ctx context.Context, c config.GeocodeConfig) (*geocache.Cache, error) {
	store, err := geocache.Open(ctx, geocache.OpenOptions{
		Driver:      c.CacheDriver,
		Path:        c.CachePath,
		DatabaseURL: c.DatabaseURL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open geocode cache")
	}
	cache := geocache.New(store)
	if err := cache.Load(ctx); err != nil {
		_ = cache.Close()
		return nil, eris.Wrap(err, "load geocode cache")
	}
	return cache, nil
}
