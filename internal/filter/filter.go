// Package filter narrows and orders the school list for a search.
package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jukenmap/jukenmap/internal/model"
	"github.com/jukenmap/jukenmap/internal/spatial"
)

// Filters is the user's current search. Empty sets do not restrict.
type Filters struct {
	Establishments []model.Establishment `json:"establishments"`
	SchoolTypes    []model.SchoolType    `json:"school_types"`
	DeviationMin   int                   `json:"deviation_min"`
	DeviationMax   int                   `json:"deviation_max"`
	Areas          []string              `json:"areas"`
	Keyword        string                `json:"keyword"`
	Origin         *model.Coordinate     `json:"origin,omitempty"`
	MaxDistanceKm  *float64              `json:"max_distance_km,omitempty"`
}

// Default returns unrestricted filters over the catalog score range.
func Default() Filters {
	c := model.MustCatalog()
	return Filters{
		DeviationMin: c.Deviation.Min,
		DeviationMax: c.Deviation.Max,
	}
}

// SetDeviationMin sets the lower bound, clamped to the current upper bound.
func (f *Filters) SetDeviationMin(v int) {
	f.DeviationMin = min(v, f.DeviationMax)
}

// SetDeviationMax sets the upper bound, clamped to the current lower bound.
func (f *Filters) SetDeviationMax(v int) {
	f.DeviationMax = max(v, f.DeviationMin)
}

// SetOrigin sets the point distances are measured from.
func (f *Filters) SetOrigin(c model.Coordinate) {
	f.Origin = &c
}

// ClearOrigin removes the origin and the radius that depends on it.
func (f *Filters) ClearOrigin() {
	f.Origin = nil
	f.MaxDistanceKm = nil
}

// SetMaxDistance limits results to km around the origin; km <= 0 clears it.
func (f *Filters) SetMaxDistance(km float64) {
	if km <= 0 {
		f.MaxDistanceKm = nil
		return
	}
	f.MaxDistanceKm = &km
}

// ToggleEstablishment adds e to the allowed set, or removes it if present.
func (f *Filters) ToggleEstablishment(e model.Establishment) {
	f.Establishments = toggle(f.Establishments, e)
}

// ToggleSchoolType adds t to the allowed set, or removes it if present.
func (f *Filters) ToggleSchoolType(t model.SchoolType) {
	f.SchoolTypes = toggle(f.SchoolTypes, t)
}

// ToggleArea adds a to the allowed set, or removes it if present.
func (f *Filters) ToggleArea(a string) {
	f.Areas = toggle(f.Areas, a)
}

// Active reports whether any clause differs from Default.
func (f Filters) Active() bool {
	d := Default()
	return len(f.Establishments) > 0 ||
		len(f.SchoolTypes) > 0 ||
		len(f.Areas) > 0 ||
		f.DeviationMin != d.DeviationMin ||
		f.DeviationMax != d.DeviationMax ||
		f.Keyword != "" ||
		f.MaxDistanceKm != nil
}

// Reset restores Default, keeping nothing.
func (f *Filters) Reset() {
	*f = Default()
}

func toggle[T comparable](set []T, v T) []T {
	if i := slices.Index(set, v); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), v)
}

// Apply annotates every school with its distance from the origin, keeps the
// ones matching all clauses, and orders them. With an origin the order is by
// ascending distance, unknown distances last; otherwise input order is kept.
func Apply(schools []model.School, f Filters) []model.SchoolWithDistance {
	keyword := strings.ToLower(f.Keyword)

	out := make([]model.SchoolWithDistance, 0, len(schools))
	for _, s := range schools {
		sd := model.SchoolWithDistance{School: s, DistanceKm: distanceFrom(f.Origin, s)}
		if matches(sd, f, keyword) {
			out = append(out, sd)
		}
	}

	if f.Origin != nil {
		slices.SortStableFunc(out, byDistance)
	}
	return out
}

func distanceFrom(origin *model.Coordinate, s model.School) *float64 {
	if origin == nil {
		return nil
	}
	c, ok := s.Coordinate()
	if !ok {
		return nil
	}
	d := spatial.Distance(*origin, c)
	return &d
}

func matches(sd model.SchoolWithDistance, f Filters, keyword string) bool {
	s := sd.School

	if len(f.Establishments) > 0 && !slices.Contains(f.Establishments, s.Establishment) {
		return false
	}
	if len(f.SchoolTypes) > 0 && !slices.Contains(f.SchoolTypes, s.Type) {
		return false
	}
	// No score never excludes.
	if s.Deviation != nil && (*s.Deviation < f.DeviationMin || *s.Deviation > f.DeviationMax) {
		return false
	}
	if len(f.Areas) > 0 && !slices.Contains(f.Areas, s.Area) {
		return false
	}
	if keyword != "" && !matchesKeyword(s, keyword) {
		return false
	}
	// Schools without a coordinate have no distance and are kept.
	if f.Origin != nil && f.MaxDistanceKm != nil && sd.DistanceKm != nil && *sd.DistanceKm > *f.MaxDistanceKm {
		return false
	}
	return true
}

func matchesKeyword(s model.School, keyword string) bool {
	station := ""
	if s.NearestStation != nil {
		station = *s.NearestStation
	}
	return strings.Contains(strings.ToLower(s.Name), keyword) ||
		strings.Contains(strings.ToLower(s.Address), keyword) ||
		strings.Contains(strings.ToLower(station), keyword)
}

func byDistance(a, b model.SchoolWithDistance) int {
	switch {
	case a.DistanceKm == nil && b.DistanceKm == nil:
		return 0
	case a.DistanceKm == nil:
		return 1
	case b.DistanceKm == nil:
		return -1
	}
	return cmp.Compare(*a.DistanceKm, *b.DistanceKm)
}
