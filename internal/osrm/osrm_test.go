package osrm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/musthaq16/walk-logger/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoord(t *testing.T) {
	c, err := ParseCoord("55.751244, 37.618423")
	require.NoError(t, err)
	assert.Equal(t, types.Coordinate{Lat: 55.751244, Lon: 37.618423}, c)

	_, err = ParseCoord("55.75")
	assert.Error(t, err)
	_, err = ParseCoord("a,b")
	assert.Error(t, err)
}

func TestRouteRequestsPedestrianGeometry(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":{"coordinates":[[37.1,55.1],[37.2,55.2],[37.3,55.3]]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	route, err := c.Route(context.Background(), []types.Coordinate{
		{Lat: 55.1, Lon: 37.1},
		{Lat: 55.3, Lon: 37.3},
	})
	require.NoError(t, err)

	assert.Equal(t, "/route/v1/foot/37.100000,55.100000;37.300000,55.300000", gotPath)
	assert.Contains(t, gotQuery, "overview=full")
	assert.Contains(t, gotQuery, "geometries=geojson")
	assert.Equal(t, []types.Coordinate{
		{Lat: 55.1, Lon: 37.1},
		{Lat: 55.2, Lon: 37.2},
		{Lat: 55.3, Lon: 37.3},
	}, route)
}

func TestRouteNotOk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, ProfileFoot, 0).Route(context.Background(), []types.Coordinate{{}, {Lat: 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotOk))
}

func TestRouteMalformed(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"code":"Ok"}`,
		`{"code":"Ok","routes":[{"geometry":{"coordinates":[[37.1]]}}]}`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := NewClient(srv.URL, ProfileFoot, 0).Route(context.Background(), []types.Coordinate{{}, {Lat: 1}})
		assert.Error(t, err, body)
		srv.Close()
	}
}

func TestRouteNeedsTwoWaypoints(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", ProfileFoot, 0).Route(context.Background(), []types.Coordinate{{}})
	assert.Error(t, err)
}
