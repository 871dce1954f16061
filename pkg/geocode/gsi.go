// Package geocode resolves Japanese addresses to coordinates with the GSI
// (Geospatial Information Authority of Japan) address search API.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jukenmap/jukenmap/internal/model"
)

// DefaultBaseURL is the public GSI address search endpoint.
const DefaultBaseURL = "https://msearch.gsi.go.jp/address-search/AddressSearch"

// Resolver turns a free-text address into a coordinate. A false result means
// unresolved; implementations never surface transport errors.
type Resolver interface {
	Resolve(ctx context.Context, address string) (model.Coordinate, bool)
}

// Option configures a GSIClient.
type Option func(*GSIClient)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(c *GSIClient) {
		c.baseURL = strings.TrimRight(u, "?")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *GSIClient) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second ceiling (burst 1).
func WithRateLimit(rps float64) Option {
	return func(c *GSIClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// GSIClient queries the GSI address search API.
type GSIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewGSIClient creates a client with the given options.
func NewGSIClient(opts ...Option) *GSIClient {
	c := &GSIClient{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 1),
		log:        zap.L().With(zap.String("component", "geocode.gsi")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the first candidate the service ranks for address.
func (c *GSIClient) Resolve(ctx context.Context, address string) (model.Coordinate, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.Coordinate{}, false
	}

	coord, err := c.search(ctx, address)
	if err != nil {
		c.log.Debug("address unresolved", zap.String("address", address), zap.Error(err))
		return model.Coordinate{}, false
	}
	return coord, true
}

func (c *GSIClient) search(ctx context.Context, address string) (model.Coordinate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Coordinate{}, eris.Wrap(err, "geocode: rate limit")
	}

	reqURL := c.baseURL + "?" + url.Values{"q": {address}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.Coordinate{}, eris.Wrap(err, "geocode: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Coordinate{}, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return model.Coordinate{}, eris.Errorf("geocode: gsi returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Coordinate{}, eris.Wrap(err, "geocode: read body")
	}

	return parseFeatures(body)
}

// ErrNoMatch is returned by parseFeatures for an empty candidate list.
var ErrNoMatch = eris.New("geocode: no match")

// parseFeatures decodes the GSI payload, a bare JSON array of GeoJSON
// features, and returns the first point swapped to latitude-first.
func parseFeatures(body []byte) (model.Coordinate, error) {
	var features []*geojson.Feature
	if err := json.Unmarshal(body, &features); err != nil {
		return model.Coordinate{}, eris.Wrap(err, "geocode: parse response")
	}
	if len(features) == 0 {
		return model.Coordinate{}, ErrNoMatch
	}

	f := features[0]
	if f == nil || f.Geometry == nil {
		return model.Coordinate{}, eris.New("geocode: first feature has no geometry")
	}
	pt, ok := f.Geometry.(*geom.Point)
	if !ok {
		return model.Coordinate{}, eris.Errorf("geocode: unexpected geometry %T", f.Geometry)
	}

	// GeoJSON order is [lng, lat].
	coord := model.Coordinate{Lat: pt.Y(), Lng: pt.X()}
	if !coord.Valid() {
		return model.Coordinate{}, eris.Errorf("geocode: coordinate out of bounds (%f, %f)", coord.Lat, coord.Lng)
	}
	return coord, nil
}
