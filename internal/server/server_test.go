package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jukenmap/jukenmap/internal/config"
	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/transit"
	"github.com/jukenmap/jukenmap/pkg/google"
	"github.com/jukenmap/jukenmap/pkg/google/mocks"
)

type staticSource struct {
	schools []model.School
	err     error
}

func (s staticSource) Load(context.Context) ([]model.School, error) {
	return s.schools, s.err
}

func intPtr(v int) *int { return &v }

func fixtureSchools() []model.School {
	near := model.Coordinate{Lat: 35.690, Lng: 139.760}
	far := model.Coordinate{Lat: 35.450, Lng: 139.630}
	return []model.School{
		model.School{ID: "1", StudyID: "1", Name: "横浜中学校", Establishment: model.EstablishmentPrivate, Area: "神奈川県", Address: "神奈川県横浜市", Deviation: intPtr(55)}.WithCoordinate(&far),
		model.School{ID: "2", StudyID: "2", Name: "千代田中学校", Establishment: model.EstablishmentNational, Area: "東京23区", Address: "東京都千代田区", Deviation: intPtr(68)}.WithCoordinate(&near),
		{ID: "3", StudyID: "3", Name: "未登録中学校", Establishment: model.EstablishmentPrivate, Area: "東京23区", Address: "東京都どこか"},
	}
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	if deps.Schools == nil {
		deps.Schools = staticSource{schools: fixtureSchools()}
	}
	s := New(config.ServerConfig{Port: 0, AllowedOrigins: []string{"*"}}, deps)
	s.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, transit.Tokyo) }
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCatalog(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body model.Catalog
	resp := getJSON(t, srv.URL+"/api/catalog", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 30, body.Deviation.Min)
	assert.NotEmpty(t, body.Areas)
}

func TestSchools(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body []model.School
	resp := getJSON(t, srv.URL+"/api/schools", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body, 3)
}

func TestSchools_SourceFailure(t *testing.T) {
	srv := newTestServer(t, Deps{Schools: staticSource{err: errors.New("disk gone")}})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/schools", &body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "school data unavailable", body["error"])
}

func TestSearch_FiltersAndAnnotates(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body SearchResponse
	resp := getJSON(t, srv.URL+"/api/schools/search?area=東京23区&lat=35.681&lng=139.767", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 2, body.Count)
	assert.True(t, body.Active)
	require.Len(t, body.Schools, 2)

	first := body.Schools[0]
	assert.Equal(t, "2", first.ID)
	require.NotNil(t, first.DistanceKm)
	require.NotNil(t, first.EstimatedMinutes)
	assert.Equal(t, int(*first.DistanceKm*3.5+0.5), *first.EstimatedMinutes)

	last := body.Schools[1]
	assert.Equal(t, "3", last.ID)
	assert.Nil(t, last.DistanceKm)
	assert.Nil(t, last.EstimatedMinutes)
}

func TestSearch_BadQuery(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/schools/search?lat=35", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "together")
}

func TestGeoJSON_OnlyLocated(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	resp := getJSON(t, srv.URL+"/api/schools.geojson", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "FeatureCollection", body.Type)
	assert.Len(t, body.Features, 2)
}

func TestRoute(t *testing.T) {
	srv := newTestServer(t, Deps{BrowserKey: "browser"})

	var links transit.Links
	resp := getJSON(t, srv.URL+"/api/schools/2/route?lat=35.681&lng=139.767", &links)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, links.EmbedURL, "key=browser")
	assert.Contains(t, links.MapsURL, "travelmode=transit")

	resp = getJSON(t, srv.URL+"/api/schools/999/route?lat=35.681&lng=139.767", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/schools/2/route?lat=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDirections_MissingParams(t *testing.T) {
	srv := newTestServer(t, Deps{Directions: mocks.NewMockClient(t)})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/directions?origin=東京駅", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "origin and destination required", body["error"])
}

func TestDirections_NoKey(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/directions?origin=a&destination=b", &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "API key not configured", body["error"])
}

func TestDirections_Proxy(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("Directions", mock.Anything, mock.MatchedBy(func(req google.DirectionsRequest) bool {
		want := time.Date(2026, 10, 20, 8, 0, 0, 0, transit.Tokyo)
		return req.Origin == "東京駅" && req.Destination == "35.69,139.7" && req.DepartureTime.Equal(want)
	})).Return(json.RawMessage(`{"status":"OK","routes":[]}`), nil).Once()

	srv := newTestServer(t, Deps{Directions: client})

	var body map[string]any
	resp := getJSON(t, srv.URL+"/api/directions?origin=東京駅&destination=35.69,139.7", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body["status"])
}

func TestDirections_UpstreamError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("Directions", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: timeout")).Once()

	srv := newTestServer(t, Deps{Directions: client})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/directions?origin=a&destination=b", &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to fetch directions", body["error"])
	assert.Contains(t, body["detail"], "timeout")
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, Deps{})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.jp")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
