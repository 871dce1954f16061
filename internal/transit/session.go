package transit

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/jukenmap/jukenmap/internal/model"
)

// Snapshot is what a consumer sees of its most recent run.
type Snapshot struct {
	RunID string `json:"run_id"`
	Result
}

// Session serializes the runs of one consumer. Starting a run cancels the
// previous one, and snapshots from a superseded run are never published.
type Session struct {
	agg      *Aggregator
	onUpdate func(Snapshot)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	snap   Snapshot
	closed bool

	// pubMu orders the generation check with delivery to onUpdate.
	pubMu sync.Mutex
	wg    sync.WaitGroup
}

// NewSession creates an idle session. onUpdate, when set, receives every
// published snapshot and must not call back into the session.
func NewSession(agg *Aggregator, onUpdate func(Snapshot)) *Session {
	return &Session{
		agg:      agg,
		onUpdate: onUpdate,
		snap:     Snapshot{Result: Result{State: StateIdle, Results: map[string]model.TransitInfo{}}},
	}
}

// Start cancels any running computation and launches a new one for origin
// over schools. It returns the new run's id, or "" after Close.
func (s *Session) Start(ctx context.Context, origin *model.Coordinate, schools []model.School) string {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ""
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.publish(gen, Snapshot{
		RunID:  runID,
		Result: Result{State: StateComputing, Results: map[string]model.TransitInfo{}},
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		res := s.agg.Compute(runCtx, origin, schools, func(r Result) {
			s.publish(gen, Snapshot{RunID: runID, Result: r})
		})
		s.publish(gen, Snapshot{RunID: runID, Result: res})
	}()

	return runID
}

// Snapshot returns a copy of the latest published snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.Results = maps.Clone(s.snap.Results)
	return out
}

// Wait blocks until every launched run has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels the running computation, detaches the consumer and waits
// for the run to return.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// publish records snap if gen is still current and reports whether it did.
func (s *Session) publish(gen uint64, snap Snapshot) bool {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.snap = snap
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
	return true
}
