package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jukenmap/jukenmap/internal/model"
)

func TestFilterFlags_Values(t *testing.T) {
	var ff filterFlags
	cmd := &cobra.Command{Use: "x"}
	ff.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--establishment", "私立", "--establishment", "国立",
		"--type", "共学校",
		"--area", "港区",
		"--q", " 中学 ",
		"--min", "50",
		"--lat", "35.681236", "--lng", "139.767125",
		"--max-km", "5",
	}))

	q := ff.values(cmd)
	assert.Equal(t, []string{"私立", "国立"}, q["establishment"])
	assert.Equal(t, "共学校", q.Get("type"))
	assert.Equal(t, "港区", q.Get("area"))
	assert.Equal(t, "50", q.Get("min"))
	assert.Empty(t, q.Get("max"), "unset bounds stay at the catalog default")
	assert.Equal(t, "35.681236", q.Get("lat"))
	assert.Equal(t, "5", q.Get("max_km"))

	f, err := ff.filters(cmd)
	require.NoError(t, err)
	assert.Equal(t, 50, f.DeviationMin)
	require.NotNil(t, f.Origin)
	assert.InDelta(t, 139.767125, f.Origin.Lng, 1e-9)
	require.NotNil(t, f.MaxDistanceKm)
	assert.InDelta(t, 5.0, *f.MaxDistanceKm, 1e-9)
	assert.Equal(t, "中学", f.Keyword)
}

func TestFilterFlags_NoFlagsIsEmptyQuery(t *testing.T) {
	var ff filterFlags
	cmd := &cobra.Command{Use: "x"}
	ff.register(cmd)
	require.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, url.Values{}, ff.values(cmd))
}

func TestFilterFlags_ScoreRangeBelowDefault(t *testing.T) {
	var ff filterFlags
	cmd := &cobra.Command{Use: "x"}
	ff.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--min", "10", "--max", "20"}))

	f, err := ff.filters(cmd)
	require.NoError(t, err)
	assert.Equal(t, 10, f.DeviationMin)
	assert.Equal(t, 20, f.DeviationMax)
}

func TestFilterFlags_KeywordUsage(t *testing.T) {
	var ff filterFlags
	cmd := &cobra.Command{Use: "x"}
	ff.register(cmd)

	flag := cmd.Flags().Lookup("q")
	require.NotNil(t, flag)
	assert.Contains(t, flag.Usage, "nearest station")
	assert.NotContains(t, flag.Usage, "area")
}

func TestFilterFlags_LatWithoutLng(t *testing.T) {
	var ff filterFlags
	cmd := &cobra.Command{Use: "x"}
	ff.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--lat", "35.6"}))

	_, err := ff.filters(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lat and lng")
}

func runSearch(t *testing.T, format string, limit int) string {
	t.Helper()
	dir := t.TempDir()
	cfg = testConfig(dir)
	writeSchoolsJSON(t, filepath.Join(dir, "schools.json"), fixtureSchools())

	prevFormat, prevLimit := searchFormat, searchLimit
	searchFormat, searchLimit = format, limit
	t.Cleanup(func() { searchFormat, searchLimit = prevFormat, prevLimit })

	var out bytes.Buffer
	searchCmd.SetOut(&out)
	searchCmd.SetContext(context.Background())
	t.Cleanup(func() {
		searchCmd.SetOut(nil)
		searchCmd.SetContext(nil) //nolint:staticcheck
	})

	require.NoError(t, searchCmd.RunE(searchCmd, nil))
	return out.String()
}

func TestSearchCmd_RunE_JSON(t *testing.T) {
	out := runSearch(t, "json", 2)

	var hits []model.SchoolWithDistance
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 2)
	assert.Equal(t, "101", hits[0].ID)
	assert.Nil(t, hits[0].DistanceKm, "no origin, no distance")
	assert.Contains(t, out, "麻布中学校")
}

func TestSearchCmd_RunE_Table(t *testing.T) {
	out := runSearch(t, "table", 0)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "麻布中学校")
	assert.Contains(t, lines[3], "フェリス女学院中学校")
	assert.Contains(t, lines[1], " - ", "distance is blank without an origin")
}

func TestSearchCmd_RunE_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	cfg = testConfig(dir)

	prev := searchFormat
	searchFormat = "xml"
	defer func() { searchFormat = prev }()

	searchCmd.SetContext(context.Background())
	defer searchCmd.SetContext(nil) //nolint:staticcheck

	err := searchCmd.RunE(searchCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestWriteSearchTable_WithDistance(t *testing.T) {
	d := 3.0
	hits := []model.SchoolWithDistance{{School: fixtureSchools()[0], DistanceKm: &d}}

	var buf bytes.Buffer
	require.NoError(t, writeSearchTable(&buf, hits))
	assert.Contains(t, buf.String(), "3.0km")
	assert.Contains(t, buf.String(), "64")
}

func TestWriteSearchJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSearchJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
