package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/filter"
	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/transit"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 * 1024
)

// TransitRequest is a client message on /ws/transit. Without lat and lng the
// session goes idle. Query holds search filters in URL query form.
type TransitRequest struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Query string   `json:"query"`
}

// outbox coalesces snapshots for the writer: only the latest matters since
// each one carries the full state.
type outbox struct {
	mu     sync.Mutex
	snap   *transit.Snapshot
	errs   []string
	notify chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

func (o *outbox) putSnapshot(s transit.Snapshot) {
	o.mu.Lock()
	o.snap = &s
	o.mu.Unlock()
	o.wake()
}

func (o *outbox) putError(msg string) {
	o.mu.Lock()
	o.errs = append(o.errs, msg)
	o.mu.Unlock()
	o.wake()
}

func (o *outbox) wake() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *outbox) take() (*transit.Snapshot, []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap, errs := o.snap, o.errs
	o.snap, o.errs = nil, nil
	return snap, errs
}

func (s *Server) handleTransitWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Aggregator == nil {
		respondWithError(w, http.StatusInternalServerError, "API key not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	out := newOutbox()
	session := transit.NewSession(s.deps.Aggregator, out.putSnapshot)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(ctx, conn, out)
		cancel()
		// Unblocks the reader when the writer fails first.
		_ = conn.Close()
	}()

	s.readPump(ctx, conn, session, out)

	cancel()
	session.Close()
	wg.Wait()
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, session *transit.Session, out *outbox) {
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket closed", zap.Error(err))
			}
			return
		}

		var req TransitRequest
		if err := json.Unmarshal(message, &req); err != nil {
			out.putError("invalid message")
			continue
		}
		origin, candidates, errMsg := s.transitCandidates(ctx, req)
		if errMsg != "" {
			out.putError(errMsg)
			continue
		}
		runID := session.Start(ctx, origin, candidates)
		s.log.Debug("transit run started", zap.String("run_id", runID), zap.Int("candidates", len(candidates)))
	}
}

// transitCandidates resolves a request to an origin and the filtered schools.
func (s *Server) transitCandidates(ctx context.Context, req TransitRequest) (*model.Coordinate, []model.School, string) {
	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, nil, "lat and lng must be given together"
	}
	values, err := url.ParseQuery(req.Query)
	if err != nil {
		return nil, nil, "invalid query"
	}
	f, err := filter.FromQuery(values)
	if err != nil {
		return nil, nil, err.Error()
	}

	var origin *model.Coordinate
	if req.Lat != nil {
		c := model.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		if !c.Valid() {
			return nil, nil, "coordinate out of range"
		}
		origin = &c
		f.SetOrigin(c)
	}

	schools, err := s.deps.Schools.Load(ctx)
	if err != nil {
		s.log.Error("load schools", zap.Error(err))
		return nil, nil, "school data unavailable"
	}
	hits := filter.Apply(schools, f)
	candidates := make([]model.School, len(hits))
	for i, h := range hits {
		candidates[i] = h.School
	}
	return origin, candidates, ""
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, out *outbox) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-out.notify:
			snap, errs := out.take()
			for _, msg := range errs {
				if err := writeJSON(conn, map[string]string{"error": msg}); err != nil {
					return
				}
			}
			if snap != nil {
				if err := writeJSON(conn, snap); err != nil {
					return
				}
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
