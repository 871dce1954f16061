package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jukenmap/jukenmap/internal/config"
	"github.com/jukenmap/jukenmap/internal/model"
)

// testConfig returns a config with the defaults the commands rely on and the
// dataset rooted in dir.
func testConfig(dir string) *config.Config {
	return &config.Config{
		GSI: config.GSIConfig{TimeoutSecs: 5},
		Geocode: config.GeocodeConfig{
			CacheDriver:        "json",
			CachePath:          filepath.Join(dir, "geocode_cache.json"),
			CheckpointInterval: 50,
		},
		Transit: config.TransitConfig{BatchSize: 25},
		Dataset: config.DatasetConfig{
			Path:           filepath.Join(dir, "schools.json"),
			RefreshSecs:    600,
			SheetTimeoutMs: 5000,
		},
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func writeSchoolsJSON(t *testing.T, path string, schools []model.School) {
	t.Helper()
	data, err := json.Marshal(schools)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func fixtureSchools() []model.School {
	return []model.School{
		{
			ID: "101", StudyID: "101", Name: "麻布中学校", Deviation: intPtr(64),
			Establishment: model.EstablishmentPrivate, Type: model.SchoolTypeBoys,
			Area: "港区", Prefecture: "東京都", Address: "東京都港区元麻布2-3-29",
			Latitude: floatPtr(35.6537), Longitude: floatPtr(139.7284),
		},
		{
			ID: "102", StudyID: "102", Name: "筑波大学附属中学校", Deviation: intPtr(62),
			Establishment: model.EstablishmentNational, Type: model.SchoolTypeCoed,
			Area: "文京区", Prefecture: "東京都", Address: "東京都文京区大塚1-9-1",
			Latitude: floatPtr(35.7180), Longitude: floatPtr(139.7303),
		},
		{
			ID: "103", StudyID: "103", Name: "フェリス女学院中学校", Deviation: intPtr(60),
			Establishment: model.EstablishmentPrivate, Type: model.SchoolTypeGirls,
			Area: "横浜市中区", Prefecture: "神奈川県", Address: "神奈川県横浜市中区山手町178",
			Latitude: floatPtr(35.4376), Longitude: floatPtr(139.6497),
		},
	}
}
