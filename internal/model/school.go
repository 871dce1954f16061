// Package model defines the school-map domain types shared across packages.
package model

// Establishment is the founding category of a school.
type Establishment string

const (
	EstablishmentPrivate          Establishment = "私立"
	EstablishmentNational         Establishment = "国立"
	EstablishmentPublicIntegrated Establishment = "公立中高一貫"
)

// SchoolType is the enrolment type of a school.
type SchoolType string

const (
	SchoolTypeBoys  SchoolType = "男子校"
	SchoolTypeGirls SchoolType = "女子校"
	SchoolTypeCoed  SchoolType = "共学校"
)

// School is one institution of the dataset. Latitude and Longitude are
// either both nil or both set.
type School struct {
	ID             string        `json:"id"`
	StudyID        string        `json:"study_id"`
	MextCode       *string       `json:"mext_code"`
	Name           string        `json:"school_name"`
	Deviation      *int          `json:"yotsuya_deviation_value"`
	Establishment  Establishment `json:"establishment"`
	Type           SchoolType    `json:"school_type"`
	Area           string        `json:"area"`
	Prefecture     string        `json:"prefecture"`
	Address        string        `json:"address"`
	PostalCode     *string       `json:"postal_code"`
	Latitude       *float64      `json:"latitude"`
	Longitude      *float64      `json:"longitude"`
	NearestStation *string       `json:"nearest_station"`
	SchoolURL      *string       `json:"school_url"`
	StudyURL       *string       `json:"study_url"`
}

// Key identifies the school in caches and result maps: the study id, or the
// row id when the study id is empty.
func (s School) Key() string {
	if s.StudyID != "" {
		return s.StudyID
	}
	return s.ID
}

// Coordinate returns the school's location when both components are present and valid.
func (s School) Coordinate() (Coordinate, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: *s.Latitude, Lng: *s.Longitude}
	if !c.Valid() {
		return Coordinate{}, false
	}
	return c, true
}

// HasCoordinate reports whether the school can be placed on a map.
func (s School) HasCoordinate() bool {
	_, ok := s.Coordinate()
	return ok
}

// WithCoordinate returns a copy of s located at c, or with both fields
// cleared when c is nil.
func (s School) WithCoordinate(c *Coordinate) School {
	if c == nil {
		s.Latitude, s.Longitude = nil, nil
		return s
	}
	lat, lng := c.Lat, c.Lng
	s.Latitude, s.Longitude = &lat, &lng
	return s
}

// SchoolWithDistance is a School annotated with its straight-line distance
// from the current origin. DistanceKm is nil without an origin or without a
// school coordinate.
type SchoolWithDistance struct {
	School
	DistanceKm *float64 `json:"distance_km"`
}

// TransitInfo is a real transit duration for one origin/destination pair.
type TransitInfo struct {
	DurationMinutes int    `json:"duration_minutes"`
	DurationText    string `json:"duration_text"`
}

// StringPtr returns nil for an empty string, otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
