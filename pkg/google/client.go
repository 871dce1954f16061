// Package google is a small client for the Google Maps Distance Matrix and
// Directions web services, restricted to public-transit requests.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// MaxDestinations is the per-request destination ceiling for transit matrices.
const MaxDestinations = 25

// ErrMissingAPIKey is returned when the client was built without a key.
var ErrMissingAPIKey = eris.New("google: API key not configured")

// Client performs Google Maps transit operations.
type Client interface {
	DistanceMatrix(ctx context.Context, req MatrixRequest) (*MatrixResponse, error)
	Directions(ctx context.Context, req DirectionsRequest) (json.RawMessage, error)
}

// LatLng is a WGS84 point.
type LatLng struct {
	Lat float64
	Lng float64
}

func (p LatLng) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// MatrixRequest asks for transit durations from one origin to many destinations.
type MatrixRequest struct {
	Origin        LatLng
	Destinations  []LatLng
	DepartureTime time.Time
}

// MatrixResponse holds one element per requested destination, in request order.
type MatrixResponse struct {
	Elements []MatrixElement
}

// MatrixElement is the outcome for a single destination. Only elements with
// Status "OK" carry a duration.
type MatrixElement struct {
	Status          string
	DurationSeconds int
	DurationText    string
}

// OK reports whether the element holds a usable duration.
func (e MatrixElement) OK() bool { return e.Status == "OK" }

// DirectionsRequest asks for transit routes between two places. Origin and
// Destination may be addresses or "lat,lng" strings.
type DirectionsRequest struct {
	Origin        string
	Destination   string
	DepartureTime time.Time
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second; rps <= 0 disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Google Maps client. An empty key yields a client whose
// every call fails with ErrMissingAPIKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(10, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type matrixPayload struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration *struct {
				Value int    `json:"value"`
				Text  string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (c *httpClient) DistanceMatrix(ctx context.Context, req MatrixRequest) (*MatrixResponse, error) {
	if len(req.Destinations) == 0 {
		return &MatrixResponse{}, nil
	}
	if len(req.Destinations) > MaxDestinations {
		return nil, eris.Errorf("google: %d destinations exceeds limit of %d", len(req.Destinations), MaxDestinations)
	}

	dests := make([]string, len(req.Destinations))
	for i, d := range req.Destinations {
		dests[i] = d.String()
	}
	q := url.Values{
		"origins":      {req.Origin.String()},
		"destinations": {strings.Join(dests, "|")},
		"mode":         {"transit"},
	}
	if !req.DepartureTime.IsZero() {
		q.Set("departure_time", strconv.FormatInt(req.DepartureTime.Unix(), 10))
	}

	body, err := c.get(ctx, "/distancematrix/json", q)
	if err != nil {
		return nil, err
	}

	var payload matrixPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal distance matrix")
	}
	if payload.Status != "OK" {
		return nil, eris.Errorf("google: distance matrix status %s: %s", payload.Status, payload.ErrorMessage)
	}

	resp := &MatrixResponse{Elements: make([]MatrixElement, len(req.Destinations))}
	for i := range resp.Elements {
		resp.Elements[i].Status = "NOT_RETURNED"
	}
	if len(payload.Rows) > 0 {
		for i, el := range payload.Rows[0].Elements {
			if i >= len(resp.Elements) {
				break
			}
			resp.Elements[i].Status = el.Status
			if el.Duration != nil {
				resp.Elements[i].DurationSeconds = el.Duration.Value
				resp.Elements[i].DurationText = el.Duration.Text
			}
		}
	}
	return resp, nil
}

func (c *httpClient) Directions(ctx context.Context, req DirectionsRequest) (json.RawMessage, error) {
	if req.Origin == "" || req.Destination == "" {
		return nil, eris.New("google: origin and destination are required")
	}
	q := url.Values{
		"origin":       {req.Origin},
		"destination":  {req.Destination},
		"mode":         {"transit"},
		"alternatives": {"true"},
		"language":     {"ja"},
		"region":       {"jp"},
	}
	if !req.DepartureTime.IsZero() {
		q.Set("departure_time", strconv.FormatInt(req.DepartureTime.Unix(), 10))
	}

	body, err := c.get(ctx, "/directions/json", q)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, eris.New("google: directions returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "google: rate limit")
	}

	q.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
