// Package pipeline geocodes a school list in one sequential, resumable pass.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/geocache"
	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/pkg/geocode"
)

// Outcome says how a record was resolved.
type Outcome string

const (
	OutcomeCache   Outcome = "cache"
	OutcomePrimary Outcome = "primary"
	OutcomeRetry   Outcome = "retry"
	OutcomeFailed  Outcome = "failed"
)

// Record is one output row. School carries the coordinate when resolved.
type Record struct {
	School  model.School
	Outcome Outcome
}

// Summary aggregates outcomes over a run.
type Summary struct {
	Total         int `json:"total"`
	Succeeded     int `json:"succeeded"`
	Failed        int `json:"failed"`
	FromCache     int `json:"from_cache"`
	RetryResolved int `json:"retry_resolved"`
}

// Result is the ordered output of a run.
type Result struct {
	Records []Record
	Summary Summary
}

// Schools returns the output schools in input order.
func (r *Result) Schools() []model.School {
	out := make([]model.School, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.School
	}
	return out
}

// Options tunes pacing and checkpointing.
type Options struct {
	// RecordDelay follows every record that called the geocoder.
	RecordDelay time.Duration
	// RetryDelay additionally follows a shortened-address attempt.
	RetryDelay time.Duration
	// CheckpointInterval is the number of records between cache flushes.
	CheckpointInterval int
}

// DefaultOptions returns 200ms / 300ms / 50.
func DefaultOptions() Options {
	return Options{
		RecordDelay:        200 * time.Millisecond,
		RetryDelay:         300 * time.Millisecond,
		CheckpointInterval: 50,
	}
}

// Pipeline resolves schools one at a time through a cache and a Resolver.
type Pipeline struct {
	resolver geocode.Resolver
	cache    *geocache.Cache
	opts     Options
	log      *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Pipeline. A non-positive CheckpointInterval means 50.
func New(resolver geocode.Resolver, cache *geocache.Cache, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.RecordDelay < 0 {
		opts.RecordDelay = 0
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = def.CheckpointInterval
	}
	return &Pipeline{
		resolver: resolver,
		cache:    cache,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "pipeline")),
		sleep:    sleepCtx,
	}
}

// Run resolves every school in order. A record that cannot be resolved is
// kept with a nil coordinate. On cancellation the cache is flushed and the
// partial result is returned with the context error.
func (p *Pipeline) Run(ctx context.Context, schools []model.School) (*Result, error) {
	res := &Result{Records: make([]Record, 0, len(schools))}
	res.Summary.Total = len(schools)

	p.log.Info("starting geocode run",
		zap.Int("schools", len(schools)),
		zap.Int("cached", p.cache.Len()),
	)

	for i, s := range schools {
		if err := ctx.Err(); err != nil {
			return res, p.abort(err)
		}

		rec, called := p.resolve(ctx, s)
		if rec.Outcome == OutcomeFailed && ctx.Err() != nil {
			// The lookup was cut short, not answered.
			return res, p.abort(ctx.Err())
		}
		res.Records = append(res.Records, rec)
		tally(&res.Summary, rec.Outcome)

		p.log.Info("geocoded",
			zap.String("progress", fmt.Sprintf("[%d/%d]", i+1, len(schools))),
			zap.String("school", s.Name),
			zap.String("outcome", string(rec.Outcome)),
		)

		if rec.Outcome == OutcomeRetry || rec.Outcome == OutcomeFailed {
			if err := p.sleep(ctx, p.opts.RetryDelay); err != nil {
				return res, p.abort(err)
			}
		}

		if (i+1)%p.opts.CheckpointInterval == 0 && p.cache.Dirty() {
			if err := p.cache.Flush(ctx); err != nil {
				p.log.Warn("checkpoint failed", zap.Int("record", i+1), zap.Error(err))
			}
		}

		if called && i < len(schools)-1 {
			if err := p.sleep(ctx, p.opts.RecordDelay); err != nil {
				return res, p.abort(err)
			}
		}
	}

	if err := p.cache.Flush(ctx); err != nil {
		return res, eris.Wrap(err, "pipeline: final flush")
	}

	p.log.Info("geocode run complete",
		zap.Int("total", res.Summary.Total),
		zap.Int("succeeded", res.Summary.Succeeded),
		zap.Int("failed", res.Summary.Failed),
		zap.Int("from_cache", res.Summary.FromCache),
		zap.Int("retry_resolved", res.Summary.RetryResolved),
	)
	return res, nil
}

// resolve walks CacheHit -> PrimaryAttempt -> RetryAttempt -> Failed for one
// school. called reports whether the geocoder was used.
func (p *Pipeline) resolve(ctx context.Context, s model.School) (rec Record, called bool) {
	key := s.Key()

	if c, ok := p.cache.Get(key); ok {
		return Record{School: s.WithCoordinate(&c), Outcome: OutcomeCache}, false
	}
	// A coordinate already present in the input counts as cached.
	if c, ok := s.Coordinate(); ok {
		p.cache.Set(key, c)
		return Record{School: s, Outcome: OutcomeCache}, false
	}

	if c, ok := p.resolver.Resolve(ctx, s.Address); ok {
		p.cache.Set(key, c)
		return Record{School: s.WithCoordinate(&c), Outcome: OutcomePrimary}, true
	}

	if c, ok := p.resolver.Resolve(ctx, geocode.Shorten(s.Address)); ok {
		p.cache.Set(key, c)
		return Record{School: s.WithCoordinate(&c), Outcome: OutcomeRetry}, true
	}

	return Record{School: s.WithCoordinate(nil), Outcome: OutcomeFailed}, true
}

func (p *Pipeline) abort(cause error) error {
	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.cache.Flush(flushCtx); err != nil {
		p.log.Error("flush after cancellation failed", zap.Error(err))
	}
	return eris.Wrap(cause, "pipeline: interrupted")
}

func tally(s *Summary, o Outcome) {
	switch o {
	case OutcomeCache:
		s.Succeeded++
		s.FromCache++
	case OutcomePrimary:
		s.Succeeded++
	case OutcomeRetry:
		s.Succeeded++
		s.RetryResolved++
	case OutcomeFailed:
		s.Failed++
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
