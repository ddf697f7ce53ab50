package logindex

import (
	"testing"

	"github.com/musthaq16/walk-logger/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearest(t *testing.T) {
	entries := []types.LogEntry{
		{Latitude: 55.7500, Longitude: 37.6100},
		{Latitude: 55.7600, Longitude: 37.6200},
		{Latitude: 55.7510, Longitude: 37.6110, IsManual: true},
		{Latitude: 59.9343, Longitude: 30.3351},
	}
	idx := New(entries)
	require.Equal(t, 4, idx.Size())

	got := idx.Nearest(types.Coordinate{Lat: 55.7508, Lon: 37.6108}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Index)
	assert.True(t, got[0].Entry.IsManual)
	assert.Equal(t, 0, got[1].Index)
	assert.Less(t, got[0].Meters, got[1].Meters)
}

func TestNearestMoreThanSize(t *testing.T) {
	idx := New([]types.LogEntry{{Latitude: 1, Longitude: 1}, {Latitude: 2, Longitude: 2}})
	got := idx.Nearest(types.Coordinate{Lat: 0, Lon: 0}, 10)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
}

func TestNearestEmpty(t *testing.T) {
	assert.Empty(t, New(nil).Nearest(types.Coordinate{}, 3))
	assert.Empty(t, New([]types.LogEntry{{}}).Nearest(types.Coordinate{}, 0))
}

func TestNearestHighLatitude(t *testing.T) {
	// A degree of longitude at 80N is about 19 km against 111 km for a
	// degree of latitude.
	var entries []types.LogEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, types.LogEntry{Latitude: 80.05, Longitude: float64(i) * 0.001})
	}
	entries = append(entries, types.LogEntry{Latitude: 80, Longitude: 0.2})

	got := New(entries).Nearest(types.Coordinate{Lat: 80, Lon: 0}, 1)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Index)
	assert.InDelta(t, 3862, got[0].Meters, 10)
}
