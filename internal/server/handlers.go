package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/dataset"
	"github.com/jukenmap/jukenmap/internal/filter"
	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/spatial"
	"github.com/jukenmap/jukenmap/internal/transit"
	"github.com/jukenmap/jukenmap/pkg/google"
)

// SearchItem is one search hit. EstimatedMinutes is the distance-based
// commute estimate and is nil whenever DistanceKm is.
type SearchItem struct {
	model.SchoolWithDistance
	EstimatedMinutes *int `json:"estimated_minutes"`
}

// SearchResponse is the body of /api/schools/search.
type SearchResponse struct {
	Total   int            `json:"total"`
	Count   int            `json:"count"`
	Active  bool           `json:"filters_active"`
	Filters filter.Filters `json:"filters"`
	Schools []SearchItem   `json:"schools"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, s.deps.Catalog)
}

func (s *Server) loadSchools(w http.ResponseWriter, r *http.Request) ([]model.School, bool) {
	schools, err := s.deps.Schools.Load(r.Context())
	if err != nil {
		s.log.Error("load schools", zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "school data unavailable")
		return nil, false
	}
	return schools, true
}

func (s *Server) handleSchools(w http.ResponseWriter, r *http.Request) {
	schools, ok := s.loadSchools(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, schools)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	f, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	schools, ok := s.loadSchools(w, r)
	if !ok {
		return
	}

	hits := filter.Apply(schools, f)
	items := make([]SearchItem, len(hits))
	for i, h := range hits {
		items[i] = SearchItem{SchoolWithDistance: h}
		if h.DistanceKm != nil {
			m := spatial.EstimateCommuteMinutes(*h.DistanceKm)
			items[i].EstimatedMinutes = &m
		}
	}

	respondWithJSON(w, http.StatusOK, SearchResponse{
		Total:   len(schools),
		Count:   len(items),
		Active:  f.Active(),
		Filters: f,
		Schools: items,
	})
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	f, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	schools, ok := s.loadSchools(w, r)
	if !ok {
		return
	}

	hits := filter.Apply(schools, f)
	located := make([]model.School, len(hits))
	for i, h := range hits {
		located[i] = h.School
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if err := dataset.WriteGeoJSON(w, located); err != nil {
		s.log.Error("write geojson", zap.Error(err))
	}
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	origin := model.Coordinate{Lat: lat, Lng: lng}
	if errLat != nil || errLng != nil || !origin.Valid() {
		respondWithError(w, http.StatusBadRequest, "valid lat and lng required")
		return
	}

	schools, ok := s.loadSchools(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	for _, school := range schools {
		if school.ID == id || school.StudyID == id {
			respondWithJSON(w, http.StatusOK, transit.RouteLinks(s.deps.BrowserKey, q.Get("label"), origin, school))
			return
		}
	}
	respondWithError(w, http.StatusNotFound, "school not found")
}

func (s *Server) handleDirections(w http.ResponseWriter, r *http.Request) {
	origin := r.URL.Query().Get("origin")
	destination := r.URL.Query().Get("destination")
	if origin == "" || destination == "" {
		respondWithError(w, http.StatusBadRequest, "origin and destination required")
		return
	}
	if s.deps.Directions == nil {
		respondWithError(w, http.StatusInternalServerError, "API key not configured")
		return
	}

	data, err := s.deps.Directions.Directions(r.Context(), google.DirectionsRequest{
		Origin:        origin,
		Destination:   destination,
		DepartureTime: transit.TomorrowMorning(s.now()),
	})
	if err != nil {
		s.log.Warn("directions failed", zap.Error(err))
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "Failed to fetch directions",
			"detail": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
