package transit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/pkg/google"
)

var tokyoStation = model.Coordinate{Lat: 35.681, Lng: 139.767}

// matrixFunc adapts a function to MatrixClient.
type matrixFunc func(ctx context.Context, req google.MatrixRequest) (*google.MatrixResponse, error)

func (f matrixFunc) DistanceMatrix(ctx context.Context, req google.MatrixRequest) (*google.MatrixResponse, error) {
	return f(ctx, req)
}

// okResponse answers every destination with the given duration.
func okResponse(n, seconds int) *google.MatrixResponse {
	resp := &google.MatrixResponse{Elements: make([]google.MatrixElement, n)}
	for i := range resp.Elements {
		resp.Elements[i] = google.MatrixElement{
			Status:          "OK",
			DurationSeconds: seconds,
			DurationText:    fmt.Sprintf("%d分", seconds/60),
		}
	}
	return resp
}

// schoolsAround returns n located schools with distinct coordinates.
func schoolsAround(n int) []model.School {
	out := make([]model.School, n)
	for i := range out {
		id := fmt.Sprintf("s%03d", i)
		c := model.Coordinate{Lat: 35.6 + float64(i)*0.001, Lng: 139.7}
		out[i] = model.School{ID: id, StudyID: id}.WithCoordinate(&c)
	}
	return out
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestAggregator(t *testing.T, client MatrixClient, opts Options) (*Aggregator, *sleepRecorder) {
	t.Helper()
	agg, err := NewAggregator(client, NewCache(), opts)
	require.NoError(t, err)
	rec := &sleepRecorder{}
	agg.sleep = rec.sleep
	agg.now = func() time.Time { return time.Date(2026, 10, 21, 12, 0, 0, 0, Tokyo) }
	return agg, rec
}
