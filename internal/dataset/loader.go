// Package dataset serves the school list: the static schools.json, or the
// published sheet CSV geocoded on the fly, memoised for a refresh interval.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jukenmap/jukenmap/internal/geocache"
	"github.com/jukenmap/jukenmap/internal/ingest"
	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/resilience"
	"github.com/jukenmap/jukenmap/pkg/geocode"
)

// Options configures a Loader.
type Options struct {
	// StaticPath is the geocoded schools.json.
	StaticPath string

	// SheetURL is the published CSV of the source sheet. Empty serves the
	// static file only.
	SheetURL string

	// TTL is how long a loaded list is served before the next load. Default 10m.
	TTL time.Duration

	// Retry governs the sheet download.
	Retry resilience.RetryConfig

	// FetchTimeout bounds one shared fetch, which outlives the caller that
	// started it. Default 5m.
	FetchTimeout time.Duration

	HTTPClient *http.Client
}

// Loader memoises the school list. Concurrent loads share one fetch.
type Loader struct {
	opts     Options
	resolver geocode.Resolver
	http     *http.Client
	log      *zap.Logger
	now      func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	schools  []model.School
	loadedAt time.Time
}

// NewLoader creates a Loader. resolver geocodes sheet rows whose address is
// not in the static file; nil leaves them without coordinates.
func NewLoader(opts Options, resolver geocode.Resolver) *Loader {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Minute
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Loader{
		opts:     opts,
		resolver: resolver,
		http:     hc,
		log:      zap.L().With(zap.String("component", "dataset")),
		now:      time.Now,
	}
}

// Load returns the current school list, fetching it when the memoised copy
// is missing or older than the TTL. The returned slice is the caller's.
func (l *Loader) Load(ctx context.Context) ([]model.School, error) {
	l.mu.RLock()
	if l.schools != nil && l.now().Sub(l.loadedAt) < l.opts.TTL {
		out := slices.Clone(l.schools)
		l.mu.RUnlock()
		return out, nil
	}
	l.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "dataset: load cancelled")
	}

	// The fetch is shared, so it runs detached from any one caller; a caller
	// that goes away stops waiting without failing the others.
	ch := l.group.DoChan("schools", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opts.FetchTimeout)
		defer cancel()

		schools, err := l.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.schools = schools
		l.loadedAt = l.now()
		l.mu.Unlock()
		return schools, nil
	})

	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "dataset: load cancelled")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]model.School)), nil
	}
}

// Reset drops the memoised list so the next Load fetches again.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.schools = nil
	l.loadedAt = time.Time{}
}

func (l *Loader) fetch(ctx context.Context) ([]model.School, error) {
	static := l.readStatic()
	if l.opts.SheetURL == "" {
		return static, nil
	}

	rows, stats, err := l.downloadSheet(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "dataset: load cancelled")
		}
		l.log.Warn("sheet unavailable, serving static dataset", zap.Error(err))
		return static, nil
	}
	if len(rows) == 0 {
		l.log.Warn("sheet has no usable rows, serving static dataset", zap.Int("skipped", stats.Skipped))
		return static, nil
	}

	schools, err := l.locate(ctx, rows, static)
	if err != nil {
		return nil, err
	}
	l.log.Info("sheet loaded",
		zap.Int("rows", stats.Rows),
		zap.Int("parsed", stats.Parsed),
		zap.Int("skipped", stats.Skipped),
	)
	return schools, nil
}

// readStatic returns the static dataset, or an empty list when it cannot be read.
func (l *Loader) readStatic() []model.School {
	schools, err := ReadJSONFile(l.opts.StaticPath)
	if err != nil {
		l.log.Warn("static dataset unavailable", zap.String("path", l.opts.StaticPath), zap.Error(err))
		return []model.School{}
	}
	return schools
}

func (l *Loader) downloadSheet(ctx context.Context) ([]model.School, ingest.Stats, error) {
	cfg := l.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("sheet", "download")

	body, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.opts.SheetURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "dataset: build sheet request")
		}
		resp, err := l.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "dataset: sheet request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("dataset: sheet fetch failed: %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "dataset: read sheet"), 0)
		}
		return data, nil
	})
	if err != nil {
		return nil, ingest.Stats{}, err
	}

	return ingest.ReadCSV(ctx, bytes.NewReader(body))
}

// locate attaches coordinates to sheet rows: first from static rows with the
// same address, then from the geocoder.
func (l *Loader) locate(ctx context.Context, rows, static []model.School) ([]model.School, error) {
	known := make(map[string]model.Coordinate)
	for _, s := range static {
		if c, ok := s.Coordinate(); ok {
			known[s.Address] = c
		}
	}
	byAddress := geocache.New(geocache.NewMemoryStore(known))
	if err := byAddress.Load(ctx); err != nil {
		return nil, eris.Wrap(err, "dataset: seed address cache")
	}

	var resolved, reused, missing int
	out := make([]model.School, len(rows))
	for i, row := range rows {
		if c, ok := byAddress.Get(row.Address); ok {
			out[i] = row.WithCoordinate(&c)
			reused++
			continue
		}
		if l.resolver == nil {
			out[i] = row.WithCoordinate(nil)
			missing++
			continue
		}
		c, ok, _ := geocode.ResolveWithFallback(ctx, l.resolver, row.Address)
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "dataset: geocoding cancelled")
		}
		if !ok {
			out[i] = row.WithCoordinate(nil)
			missing++
			continue
		}
		byAddress.Set(row.Address, c)
		out[i] = row.WithCoordinate(&c)
		resolved++
	}

	l.log.Debug("sheet rows located",
		zap.Int("reused", reused),
		zap.Int("geocoded", resolved),
		zap.Int("unresolved", missing),
	)
	return out, nil
}

// ReadJSONFile reads a schools.json array.
func ReadJSONFile(path string) ([]model.School, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(err, "dataset: %s not found", path)
		}
		return nil, eris.Wrap(err, "dataset: read static file")
	}
	var schools []model.School
	if err := json.Unmarshal(data, &schools); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	if schools == nil {
		schools = []model.School{}
	}
	return schools, nil
}
