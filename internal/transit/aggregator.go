package transit

import (
	"context"
	"errors"
	"maps"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/resilience"
	"github.com/jukenmap/jukenmap/pkg/google"
)

// ErrMissingAPIKey means no Google Maps credential is configured, so no
// transit lookup can run.
var ErrMissingAPIKey = google.ErrMissingAPIKey

// MatrixClient is the batch transit-time service.
type MatrixClient interface {
	DistanceMatrix(ctx context.Context, req google.MatrixRequest) (*google.MatrixResponse, error)
}

// State is the lifecycle of one computation.
type State string

const (
	StateIdle      State = "idle"
	StateComputing State = "computing"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
)

// Progress counts processed cache misses. Done never decreases within a run.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Result is a point-in-time view of a computation. Results is keyed by
// School.Key; an absent key means the duration is not known.
type Result struct {
	State    State                        `json:"state"`
	Progress Progress                     `json:"progress"`
	Results  map[string]model.TransitInfo `json:"results"`
}

// ProgressFunc receives a snapshot after every batch.
type ProgressFunc func(Result)

// Options tunes batching.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	Breaker    *resilience.CircuitBreaker
}

// DefaultOptions returns 25 destinations per call and 500ms between calls.
func DefaultOptions() Options {
	return Options{BatchSize: google.MaxDestinations, BatchDelay: 500 * time.Millisecond}
}

// Aggregator computes transit durations from an origin to many schools.
type Aggregator struct {
	client  MatrixClient
	cache   *Cache
	opts    Options
	breaker *resilience.CircuitBreaker
	log     *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAggregator creates an Aggregator. A nil client means no credential is
// configured and yields ErrMissingAPIKey.
func NewAggregator(client MatrixClient, cache *Cache, opts Options) (*Aggregator, error) {
	if client == nil {
		return nil, ErrMissingAPIKey
	}
	if cache == nil {
		cache = NewCache()
	}
	if opts.BatchSize <= 0 || opts.BatchSize > google.MaxDestinations {
		opts.BatchSize = google.MaxDestinations
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     30 * time.Second,
			ShouldTrip: func(err error) bool {
				return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrMissingAPIKey)
			},
		})
	}
	return &Aggregator{
		client:  client,
		cache:   cache,
		opts:    opts,
		breaker: breaker,
		log:     zap.L().With(zap.String("component", "transit")),
		now:     time.Now,
		sleep:   sleepCtx,
	}, nil
}

// Cache returns the cache shared by every run.
func (a *Aggregator) Cache() *Cache { return a.cache }

// Compute resolves durations from origin to every school with a coordinate.
// Cached pairs are answered without a call; the rest go out in sequential
// batches. A failed batch is logged and skipped. Cancelling ctx stops the run
// before the next batch and the partial results are returned.
func (a *Aggregator) Compute(ctx context.Context, origin *model.Coordinate, schools []model.School, onProgress ProgressFunc) Result {
	results := make(map[string]model.TransitInfo)
	if origin == nil {
		return Result{State: StateIdle, Results: results}
	}

	type dest struct {
		key   string
		coord model.Coordinate
	}
	var misses []dest
	for _, s := range schools {
		c, ok := s.Coordinate()
		if !ok {
			continue
		}
		if info, hit := a.cache.Get(*origin, c); hit {
			results[s.Key()] = info
			continue
		}
		misses = append(misses, dest{key: s.Key(), coord: c})
	}

	if len(misses) == 0 {
		return Result{State: StateDone, Results: results}
	}

	progress := Progress{Total: len(misses)}
	snapshot := func(state State) Result {
		return Result{State: state, Progress: progress, Results: maps.Clone(results)}
	}
	emit := func() {
		if onProgress != nil {
			onProgress(snapshot(StateComputing))
		}
	}
	emit()

	departure := NextMondayMorning(a.now())
	from := google.LatLng{Lat: origin.Lat, Lng: origin.Lng}

	for start := 0; start < len(misses); start += a.opts.BatchSize {
		if ctx.Err() != nil {
			return snapshot(StateCancelled)
		}

		end := min(start+a.opts.BatchSize, len(misses))
		batch := misses[start:end]

		req := google.MatrixRequest{Origin: from, DepartureTime: departure}
		for _, d := range batch {
			req.Destinations = append(req.Destinations, google.LatLng{Lat: d.coord.Lat, Lng: d.coord.Lng})
		}

		resp, err := resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) (*google.MatrixResponse, error) {
			return a.client.DistanceMatrix(ctx, req)
		})
		switch {
		case err != nil && ctx.Err() != nil:
			return snapshot(StateCancelled)
		case err != nil:
			a.log.Warn("transit batch failed, skipping",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
		default:
			for i, el := range resp.Elements {
				if i >= len(batch) || !el.OK() {
					continue
				}
				info := model.TransitInfo{
					DurationMinutes: int(math.Round(float64(el.DurationSeconds) / 60)),
					DurationText:    el.DurationText,
				}
				results[batch[i].key] = info
				a.cache.Set(*origin, batch[i].coord, info)
			}
		}

		progress.Done = end
		emit()

		if end < len(misses) {
			if err := a.sleep(ctx, a.opts.BatchDelay); err != nil {
				return snapshot(StateCancelled)
			}
		}
	}

	a.log.Debug("transit computed",
		zap.Int("resolved", len(results)),
		zap.Int("looked_up", len(misses)),
	)
	return snapshot(StateDone)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "transit: wait between batches")
	case <-t.C:
		return nil
	}
}
