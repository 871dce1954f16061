package transit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jukenmap/jukenmap/internal/model"
)

func TestCacheKey(t *testing.T) {
	key := CacheKey(model.Coordinate{Lat: 35.68123, Lng: 139.76712}, model.Coordinate{Lat: 35.7, Lng: 139.41})
	assert.Equal(t, "35.6812,139.7671→35.7000,139.4100", key)
}

func TestCache_RoundedPairsShareEntry(t *testing.T) {
	c := NewCache()
	dest := model.Coordinate{Lat: 35.69, Lng: 139.70}
	c.Set(tokyoStation, dest, model.TransitInfo{DurationMinutes: 15, DurationText: "15分"})

	got, ok := c.Get(model.Coordinate{Lat: 35.68101, Lng: 139.76699}, dest)
	assert.True(t, ok)
	assert.Equal(t, 15, got.DurationMinutes)

	_, ok = c.Get(dest, tokyoStation)
	assert.False(t, ok, "direction matters")

	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
