package filter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/jukenmap/jukenmap/internal/model"
)

// FromQuery builds Filters from URL parameters: repeated establishment, type
// and area values, min, max, q, lat with lng, and max_km.
func FromQuery(q url.Values) (Filters, error) {
	f := Default()

	for _, v := range nonEmpty(q["establishment"]) {
		f.Establishments = append(f.Establishments, model.Establishment(v))
	}
	for _, v := range nonEmpty(q["type"]) {
		f.SchoolTypes = append(f.SchoolTypes, model.SchoolType(v))
	}
	f.Areas = nonEmpty(q["area"])
	f.Keyword = strings.TrimSpace(q.Get("q"))

	lo, loSet, err := parseBound(q, "min")
	if err != nil {
		return Filters{}, err
	}
	hi, hiSet, err := parseBound(q, "max")
	if err != nil {
		return Filters{}, err
	}
	// A bound the caller passed wins over the catalog default on the other side.
	switch {
	case loSet && hiSet:
		f.DeviationMin, f.DeviationMax = min(lo, hi), hi
	case hiSet:
		f.DeviationMin, f.DeviationMax = min(f.DeviationMin, hi), hi
	case loSet:
		f.DeviationMin, f.DeviationMax = lo, max(f.DeviationMax, lo)
	}

	lat, lng := q.Get("lat"), q.Get("lng")
	if (lat == "") != (lng == "") {
		return Filters{}, eris.New("filter: lat and lng must be given together")
	}
	if lat != "" {
		origin, err := parseCoordinate(lat, lng)
		if err != nil {
			return Filters{}, err
		}
		f.SetOrigin(origin)
	}

	if v := q.Get("max_km"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Filters{}, eris.Errorf("filter: invalid max_km %q", v)
		}
		f.SetMaxDistance(km)
	}

	return f, nil
}

// parseBound reads an integer score bound; ok is false when key is absent.
func parseBound(q url.Values, key string) (n int, ok bool, err error) {
	v := q.Get(key)
	if v == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(v)
	if err != nil {
		return 0, false, eris.Errorf("filter: invalid %s %q", key, v)
	}
	return n, true, nil
}

func parseCoordinate(lat, lng string) (model.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return model.Coordinate{}, eris.Errorf("filter: invalid lat %q", lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return model.Coordinate{}, eris.Errorf("filter: invalid lng %q", lng)
	}
	c := model.Coordinate{Lat: la, Lng: ln}
	if !c.Valid() {
		return model.Coordinate{}, eris.Errorf("filter: coordinate out of range (%s, %s)", lat, lng)
	}
	return c, nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
