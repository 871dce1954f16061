package transit

import (
	"net/url"
	"strconv"

	"github.com/jukenmap/jukenmap/internal/model"
)

const (
	embedDirectionsURL = "https://www.google.com/maps/embed/v1/directions"
	mapsDirURL         = "https://www.google.com/maps/dir/"
)

// Links are the two Google Maps URLs a route view needs.
type Links struct {
	EmbedURL string `json:"embed_url"`
	MapsURL  string `json:"maps_url"`
}

// RouteLinks builds transit route URLs from an origin to the school's address.
// The origin label is used when set, otherwise the coordinate.
func RouteLinks(browserKey, originLabel string, origin model.Coordinate, school model.School) Links {
	from := originLabel
	if from == "" {
		from = strconv.FormatFloat(origin.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(origin.Lng, 'f', -1, 64)
	}

	embed := url.Values{
		"key":         {browserKey},
		"origin":      {from},
		"destination": {school.Address},
		"mode":        {"transit"},
		"language":    {"ja"},
	}
	open := url.Values{
		"api":         {"1"},
		"origin":      {from},
		"destination": {school.Address},
		"travelmode":  {"transit"},
	}
	return Links{
		EmbedURL: embedDirectionsURL + "?" + embed.Encode(),
		MapsURL:  mapsDirURL + "?" + open.Encode(),
	}
}
