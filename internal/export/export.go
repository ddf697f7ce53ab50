// Package export writes the log and its route as GeoJSON or GPX.
package export

import (
	"fmt"

	"github.com/musthaq16/walk-logger/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tkrajina/gpxgo/gpx"
)

const creator = "walk-logger"

func label(i int, e types.LogEntry) string {
	if e.IsManual {
		return fmt.Sprintf("Marker %d", i+1)
	}
	return fmt.Sprintf("Point %d", i+1)
}

// GeoJSON returns a FeatureCollection with a Point per log entry and, when
// the route has at least two points, a LineString for the route.
func GeoJSON(entries, route []types.LogEntry) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for i, e := range entries {
		f := geojson.NewFeature(orb.Point{e.Longitude, e.Latitude})
		f.Properties["name"] = label(i, e)
		f.Properties["index"] = i
		f.Properties["timestamp"] = e.Timestamp
		f.Properties["manual"] = e.IsManual
		fc.Append(f)
	}

	if len(route) > 1 {
		line := make(orb.LineString, len(route))
		for i, p := range route {
			line[i] = orb.Point{p.Longitude, p.Latitude}
		}
		f := geojson.NewFeature(line)
		f.Properties["name"] = "route"
		fc.Append(f)
	}

	return fc.MarshalJSON()
}

// GPX returns a GPX 1.1 document with a waypoint per log entry and the
// route as a single track segment.
func GPX(entries, route []types.LogEntry) ([]byte, error) {
	g := &gpx.GPX{Creator: creator}

	for i, e := range entries {
		g.Waypoints = append(g.Waypoints, gpx.GPXPoint{
			Point:     gpx.Point{Latitude: e.Latitude, Longitude: e.Longitude},
			Timestamp: e.Time().UTC(),
			Name:      label(i, e),
		})
	}

	if len(route) > 1 {
		seg := gpx.GPXTrackSegment{}
		for _, p := range route {
			seg.Points = append(seg.Points, gpx.GPXPoint{
				Point:     gpx.Point{Latitude: p.Latitude, Longitude: p.Longitude},
				Timestamp: p.Time().UTC(),
			})
		}
		g.Tracks = append(g.Tracks, gpx.GPXTrack{Name: "route", Segments: []gpx.GPXTrackSegment{seg}})
	}

	return g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}

// Marshal picks the encoder by format name ("geojson" or "gpx").
func Marshal(format string, entries, route []types.LogEntry) ([]byte, error) {
	switch format {
	case "geojson", "json":
		return GeoJSON(entries, route)
	case "gpx":
		return GPX(entries, route)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
