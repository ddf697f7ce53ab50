// Package geo computes great-circle distances between log points.
package geo

import (
	"math"

	"github.com/musthaq16/walk-logger/types"
)

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371000.0

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b types.Coordinate) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	dPhi := toRadians(b.Lat - a.Lat)
	dLambda := toRadians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// Segments returns, for every entry, the distance from the entry before it.
// The first entry gets 0.
func Segments(points []types.LogEntry) []float64 {
	out := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		out[i] = Distance(points[i-1].Coordinate(), points[i].Coordinate())
	}
	return out
}

// PathLength sums the segment distances of points.
func PathLength(points []types.LogEntry) float64 {
	total := 0.0
	for _, d := range Segments(points) {
		total += d
	}
	return total
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
