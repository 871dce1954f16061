package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jukenmap/jukenmap/internal/model"
)

var tokyoStation = model.Coordinate{Lat: 35.681, Lng: 139.767}

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func at(lat, lng float64) *model.Coordinate {
	return &model.Coordinate{Lat: lat, Lng: lng}
}

func fixture() []model.School {
	return []model.School{
		model.School{ID: "far", Name: "遠方中学校", Establishment: model.EstablishmentPrivate, Type: model.SchoolTypeCoed, Area: "神奈川県", Address: "神奈川県横浜市", Deviation: intPtr(55)}.WithCoordinate(at(35.45, 139.63)),
		model.School{ID: "nocoord", Name: "座標なし中学校", Establishment: model.EstablishmentNational, Type: model.SchoolTypeBoys, Area: "東京23区", Address: "東京都どこか"},
		model.School{ID: "near", Name: "近所中学校", Establishment: model.EstablishmentPrivate, Type: model.SchoolTypeGirls, Area: "東京23区", Address: "東京都千代田区", Deviation: intPtr(68), NearestStation: strPtr("Ochanomizu")}.WithCoordinate(at(35.69, 139.76)),
		model.School{ID: "noscore", Name: "公立一貫校", Establishment: model.EstablishmentPublicIntegrated, Type: model.SchoolTypeCoed, Area: "東京23区外", Address: "東京都立川市"}.WithCoordinate(at(35.70, 139.41)),
	}
}

func ids(in []model.SchoolWithDistance) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.ID
	}
	return out
}

func TestApply_DefaultsKeepEverythingInOrder(t *testing.T) {
	t.Parallel()

	got := Apply(fixture(), Default())
	assert.Equal(t, []string{"far", "nocoord", "near", "noscore"}, ids(got))
	for _, s := range got {
		assert.Nil(t, s.DistanceKm)
	}
}

func TestApply_Clauses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(f *Filters)
		want   []string
	}{
		{"establishment", func(f *Filters) { f.ToggleEstablishment(model.EstablishmentPrivate) }, []string{"far", "near"}},
		{"school type", func(f *Filters) { f.ToggleSchoolType(model.SchoolTypeCoed) }, []string{"far", "noscore"}},
		{"area", func(f *Filters) { f.ToggleArea("東京23区") }, []string{"nocoord", "near"}},
		{"score range keeps unscored", func(f *Filters) { f.SetDeviationMin(60) }, []string{"nocoord", "near", "noscore"}},
		{"score upper bound", func(f *Filters) { f.SetDeviationMax(56) }, []string{"far", "nocoord", "noscore"}},
		{"keyword name", func(f *Filters) { f.Keyword = "近所" }, []string{"near"}},
		{"keyword address", func(f *Filters) { f.Keyword = "立川" }, []string{"noscore"}},
		{"keyword station case-insensitive", func(f *Filters) { f.Keyword = "ochanomizu" }, []string{"near"}},
		{"combined", func(f *Filters) {
			f.ToggleEstablishment(model.EstablishmentPrivate)
			f.ToggleArea("東京23区")
		}, []string{"near"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := Default()
			tt.mutate(&f)
			assert.Equal(t, tt.want, ids(Apply(fixture(), f)))
		})
	}
}

func TestApply_ScoreNullNeverExcluded(t *testing.T) {
	t.Parallel()

	f := Default()
	f.SetDeviationMax(40)
	f.SetDeviationMin(40)

	got := ids(Apply(fixture(), f))
	assert.Contains(t, got, "nocoord")
	assert.Contains(t, got, "noscore")
	assert.NotContains(t, got, "near")
}

func TestApply_OriginOrdersByDistanceNullsLast(t *testing.T) {
	t.Parallel()

	f := Default()
	f.SetOrigin(tokyoStation)
	got := Apply(fixture(), f)

	assert.Equal(t, []string{"near", "far", "noscore", "nocoord"}, ids(got))
	var prev float64
	for _, s := range got[:3] {
		require.NotNil(t, s.DistanceKm)
		assert.GreaterOrEqual(t, *s.DistanceKm, prev)
		prev = *s.DistanceKm
	}
	assert.Nil(t, got[3].DistanceKm)
}

func TestApply_DistanceClause(t *testing.T) {
	t.Parallel()

	schools := []model.School{
		// Roughly 15 km west of Tokyo Station.
		model.School{ID: "15km"}.WithCoordinate(at(35.681, 139.601)),
		{ID: "unknown"},
		model.School{ID: "1km"}.WithCoordinate(at(35.690, 139.767)),
	}
	f := Default()
	f.SetOrigin(tokyoStation)
	f.SetMaxDistance(10)

	assert.Equal(t, []string{"1km", "unknown"}, ids(Apply(schools, f)))
}

// Coordinate-less schools pass an active radius filter. This mirrors the
// current product behaviour and is pinned here until product confirms it.
func TestApply_DistanceFilterKeepsSchoolsWithoutCoordinates(t *testing.T) {
	t.Parallel()

	f := Default()
	f.SetOrigin(tokyoStation)
	f.SetMaxDistance(0.001)

	got := Apply([]model.School{{ID: "unknown"}}, f)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].DistanceKm)
}

func TestApply_RadiusWithoutOriginIgnored(t *testing.T) {
	t.Parallel()

	f := Default()
	f.MaxDistanceKm = floatPtr(1)
	assert.Len(t, Apply(fixture(), f), 4)
}

func TestDeviationClamping(t *testing.T) {
	t.Parallel()

	f := Default()
	f.SetDeviationMin(80)
	assert.Equal(t, 73, f.DeviationMin)

	f.SetDeviationMax(20)
	assert.Equal(t, 73, f.DeviationMax)
	assert.LessOrEqual(t, f.DeviationMin, f.DeviationMax)

	f.Reset()
	f.SetDeviationMax(50)
	f.SetDeviationMin(45)
	assert.Equal(t, 45, f.DeviationMin)
	assert.Equal(t, 50, f.DeviationMax)
}

func TestToggleAndActive(t *testing.T) {
	t.Parallel()

	f := Default()
	assert.False(t, f.Active())

	f.ToggleArea("埼玉県")
	assert.Equal(t, []string{"埼玉県"}, f.Areas)
	assert.True(t, f.Active())

	f.ToggleArea("埼玉県")
	assert.Empty(t, f.Areas)
	assert.False(t, f.Active())

	f.SetOrigin(tokyoStation)
	assert.False(t, f.Active(), "an origin alone only changes ordering")
	f.SetMaxDistance(5)
	assert.True(t, f.Active())

	f.ClearOrigin()
	assert.Nil(t, f.Origin)
	assert.Nil(t, f.MaxDistanceKm)

	f.Keyword = "x"
	f.Reset()
	assert.Equal(t, Default(), f)
}
