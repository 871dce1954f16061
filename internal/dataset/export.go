package dataset

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jukenmap/jukenmap/internal/model"
)

// WriteJSON writes schools as an indented JSON array.
func WriteJSON(w io.Writer, schools []model.School) error {
	if schools == nil {
		schools = []model.School{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(schools); err != nil {
		return eris.Wrap(err, "dataset: encode json")
	}
	return nil
}

// FeatureCollection converts located schools to GeoJSON points. Schools
// without a coordinate are left out.
func FeatureCollection(schools []model.School) *geojson.FeatureCollection {
	catalog := model.MustCatalog()
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, s := range schools {
		c, ok := s.Coordinate()
		if !ok {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       s.ID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}),
			Properties: map[string]any{
				"study_id":                s.StudyID,
				"school_name":             s.Name,
				"yotsuya_deviation_value": s.Deviation,
				"establishment":           s.Establishment,
				"school_type":             s.Type,
				"area":                    s.Area,
				"address":                 s.Address,
				"study_url":               s.StudyURL,
				"marker_color":            catalog.Color(s.Establishment),
			},
		})
	}
	return fc
}

// WriteGeoJSON writes the located schools as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, schools []model.School) error {
	data, err := json.Marshal(FeatureCollection(schools))
	if err != nil {
		return eris.Wrap(err, "dataset: encode geojson")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return eris.Wrap(err, "dataset: write geojson")
	}
	return nil
}

// WriteFile writes schools to path, as GeoJSON when geoJSON is set. The
// parent directory is created if needed.
func WriteFile(path string, schools []model.School, geoJSON bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "dataset: create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "dataset: create output")
	}
	defer f.Close() //nolint:errcheck

	bw := bufio.NewWriter(f)
	write := WriteJSON
	if geoJSON {
		write = WriteGeoJSON
	}
	if err := write(bw, schools); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "dataset: flush output")
	}
	return eris.Wrap(f.Close(), "dataset: close output")
}
