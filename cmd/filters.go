package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jukenmap/jukenmap/internal/filter"
)

// filterFlags mirrors the search query parameters on the command line.
type filterFlags struct {
	establishments []string
	types          []string
	areas          []string
	keyword        string
	min            int
	max            int
	lat            float64
	lng            float64
	maxKm          float64
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVar(&ff.establishments, "establishment", nil, "establishment filter (repeatable): 私立, 国立, 公立中高一貫")
	fs.StringSliceVar(&ff.types, "type", nil, "school type filter (repeatable): 男子校, 女子校, 共学校")
	fs.StringSliceVar(&ff.areas, "area", nil, "area filter (repeatable)")
	fs.StringVar(&ff.keyword, "q", "", "keyword matched against name, address and nearest station")
	fs.IntVar(&ff.min, "min", 0, "minimum deviation score")
	fs.IntVar(&ff.max, "max", 0, "maximum deviation score")
	fs.Float64Var(&ff.lat, "lat", 0, "origin latitude")
	fs.Float64Var(&ff.lng, "lng", 0, "origin longitude")
	fs.Float64Var(&ff.maxKm, "max-km", 0, "maximum distance from the origin in km")
}

// values converts the flags that were set into query form.
func (ff *filterFlags) values(cmd *cobra.Command) url.Values {
	fs := cmd.Flags()
	q := url.Values{}
	for _, v := range ff.establishments {
		q.Add("establishment", v)
	}
	for _, v := range ff.types {
		q.Add("type", v)
	}
	for _, v := range ff.areas {
		q.Add("area", v)
	}
	if ff.keyword != "" {
		q.Set("q", ff.keyword)
	}
	if fs.Changed("min") {
		q.Set("min", strconv.Itoa(ff.min))
	}
	if fs.Changed("max") {
		q.Set("max", strconv.Itoa(ff.max))
	}
	if fs.Changed("lat") {
		q.Set("lat", strconv.FormatFloat(ff.lat, 'f', -1, 64))
	}
	if fs.Changed("lng") {
		q.Set("lng", strconv.FormatFloat(ff.lng, 'f', -1, 64))
	}
	if fs.Changed("max-km") {
		q.Set("max_km", strconv.FormatFloat(ff.maxKm, 'f', -1, 64))
	}
	return q
}

func (ff *filterFlags) filters(cmd *cobra.Command) (filter.Filters, error) {
	return filter.FromQuery(ff.values(cmd))
}
