package export

import (
	"testing"

	"github.com/musthaq16/walk-logger/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"
)

var (
	entries = []types.LogEntry{
		{Latitude: 55.75, Longitude: 37.61, Timestamp: 1_700_000_000_000},
		{Latitude: 55.76, Longitude: 37.62, Timestamp: 1_700_000_060_000, IsManual: true},
	}
	path = []types.LogEntry{
		{Latitude: 55.75, Longitude: 37.61},
		{Latitude: 55.755, Longitude: 37.615},
		{Latitude: 55.76, Longitude: 37.62},
	}
)

func TestGeoJSON(t *testing.T) {
	data, err := GeoJSON(entries, path)
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)

	pt, ok := fc.Features[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, 37.61, pt.Lon())
	assert.Equal(t, 55.75, pt.Lat())
	assert.Equal(t, "Marker 2", fc.Features[1].Properties.MustString("name"))

	line, ok := fc.Features[2].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, line, 3)
}

func TestGeoJSONWithoutRoute(t *testing.T) {
	data, err := GeoJSON(entries, path[:1])
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestGPX(t *testing.T) {
	data, err := GPX(entries, path)
	require.NoError(t, err)

	g, err := gpx.ParseBytes(data)
	require.NoError(t, err)
	require.Len(t, g.Waypoints, 2)
	assert.Equal(t, "Point 1", g.Waypoints[0].Name)
	assert.Equal(t, 55.76, g.Waypoints[1].Latitude)
	require.Len(t, g.Tracks, 1)
	assert.Len(t, g.Tracks[0].Segments[0].Points, 3)
}

func TestMarshalUnknownFormat(t *testing.T) {
	_, err := Marshal("kml", entries, path)
	assert.Error(t, err)

	data, err := Marshal("gpx", entries, nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<wpt")
}
