package model

import (
	_ "embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog holds the fixed reference lists used by filters and map rendering.
type Catalog struct {
	Map            MapDefaults         `yaml:"map" json:"map"`
	Deviation      DeviationRange      `yaml:"deviation" json:"deviation"`
	Establishments []EstablishmentInfo `yaml:"establishments" json:"establishments"`
	SchoolTypes    []SchoolType        `yaml:"school_types" json:"school_types"`
	Areas          []string            `yaml:"areas" json:"areas"`
	Prefectures    []string            `yaml:"prefectures" json:"prefectures"`
}

// MapDefaults is the initial map viewport.
type MapDefaults struct {
	Center Coordinate `yaml:"center" json:"center"`
	Zoom   int        `yaml:"zoom" json:"zoom"`
}

// DeviationRange is the inclusive score range offered by the filter panel.
type DeviationRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// EstablishmentInfo pairs an establishment with its marker color.
type EstablishmentInfo struct {
	Name  Establishment `yaml:"name" json:"name"`
	Color string        `yaml:"color" json:"color"`
}

var (
	catalogOnce sync.Once
	catalog     *Catalog
	catalogErr  error
)

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "model: parse catalog")
	}
	if c.Deviation.Min > c.Deviation.Max {
		return nil, eris.Errorf("model: catalog deviation min %d exceeds max %d", c.Deviation.Min, c.Deviation.Max)
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = ParseCatalog(catalogYAML)
	})
	return catalog, catalogErr
}

// MustCatalog is DefaultCatalog for callers that treat a broken embed as a programming error.
func MustCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Color returns the marker color for an establishment, or an empty string.
func (c *Catalog) Color(e Establishment) string {
	for _, info := range c.Establishments {
		if info.Name == e {
			return info.Color
		}
	}
	return ""
}
