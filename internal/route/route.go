// Package route turns an ordered set of log points into a renderable path.
//
// The routing service is preferred; when it fails for any reason the resolver
// degrades to straight connections between the points instead of returning an
// error, so logging keeps working without the service.
package route

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/musthaq16/walk-logger/types"
)

// ErrResolutionFailed wraps every routing failure the resolver recovers from.
var ErrResolutionFailed = errors.New("route resolution failed")

// Router is the external routing service. *osrm.Client satisfies it.
type Router interface {
	Route(ctx context.Context, waypoints []types.Coordinate) ([]types.Coordinate, error)
}

// Resolver resolves log points into a path.
type Resolver struct {
	router Router
	now    func() time.Time
}

func NewResolver(router Router) *Resolver {
	return &Resolver{router: router, now: time.Now}
}

// Filter drops points equal to the last kept point. Only consecutive
// duplicates are removed; a point revisited later stays.
func Filter(points []types.LogEntry) []types.LogEntry {
	out := make([]types.LogEntry, 0, len(points))
	for i, p := range points {
		if i > 0 {
			last := out[len(out)-1]
			if p.Latitude == last.Latitude && p.Longitude == last.Longitude {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Resolve returns the path through points. Fewer than two distinct points
// give an empty path. Routing failures fall back to the filtered points.
func (r *Resolver) Resolve(ctx context.Context, points []types.LogEntry) []types.LogEntry {
	filtered := Filter(points)
	if len(filtered) < 2 {
		return []types.LogEntry{}
	}

	route, err := r.route(ctx, filtered)
	if err != nil {
		log.Printf("[route] %v, falling back to %d log points", err, len(filtered))
		return filtered
	}
	return route
}

func (r *Resolver) route(ctx context.Context, filtered []types.LogEntry) ([]types.LogEntry, error) {
	if r.router == nil {
		return nil, fmt.Errorf("%w: no routing service", ErrResolutionFailed)
	}

	waypoints := make([]types.Coordinate, len(filtered))
	for i, p := range filtered {
		waypoints[i] = p.Coordinate()
	}

	geometry, err := r.router.Route(ctx, waypoints)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolutionFailed, err)
	}

	stamp := r.now()
	out := make([]types.LogEntry, len(geometry))
	for i, c := range geometry {
		out[i] = types.NewLogEntry(c, stamp, false)
	}
	return out, nil
}
