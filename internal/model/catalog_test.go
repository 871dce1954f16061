package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	assert.Equal(t, 30, c.Deviation.Min)
	assert.Equal(t, 73, c.Deviation.Max)
	assert.Len(t, c.Areas, 8)
	assert.Len(t, c.Prefectures, 7)
	assert.Len(t, c.SchoolTypes, 3)
	assert.InDelta(t, 35.68, c.Map.Center.Lat, 1e-9)
	assert.Equal(t, "#EF4444", c.Color(EstablishmentNational))
	assert.Empty(t, c.Color("unknown"))
}

func TestParseCatalog_InvertedRange(t *testing.T) {
	_, err := ParseCatalog([]byte("deviation:\n  min: 70\n  max: 40\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max")
}

func TestParseCatalog_Malformed(t *testing.T) {
	_, err := ParseCatalog([]byte("areas: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse catalog")
}
