package location

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/musthaq16/walk-logger/types"
)

// RouteFetcher fetches a route geometry. *osrm.Client satisfies it.
type RouteFetcher interface {
	Route(ctx context.Context, waypoints []types.Coordinate) ([]types.Coordinate, error)
}

// Simulator walks an OSRM route between waypoints and reports each route
// point as a position fix.
type Simulator struct {
	Fetcher   RouteFetcher
	Waypoints []types.Coordinate
	Interval  time.Duration
	// JitterMeters adds random noise to every reported fix.
	JitterMeters float64
	Loop         bool

	mu     sync.Mutex
	points []types.Coordinate
}

func NewSimulator(fetcher RouteFetcher, waypoints []types.Coordinate, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = time.Second
	}
	return &Simulator{Fetcher: fetcher, Waypoints: waypoints, Interval: interval}
}

// route fetches the route once and caches it.
func (s *Simulator) route(ctx context.Context) ([]types.Coordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.points != nil {
		return s.points, nil
	}
	if len(s.Waypoints) < 2 || s.Fetcher == nil {
		return nil, fmt.Errorf("%w: simulator needs a route fetcher and 2 waypoints", ErrUnavailable)
	}

	points, err := s.Fetcher.Route(ctx, s.Waypoints)
	if err != nil {
		return nil, fmt.Errorf("%w: route fetch failed: %w", ErrUnavailable, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty route", ErrUnavailable)
	}
	log.Printf("[simulator] Starting route with %d points", len(points))
	s.points = points
	return points, nil
}

func (s *Simulator) CurrentFix(ctx context.Context, opts Options) (Position, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	points, err := s.route(ctx)
	if err != nil {
		return Position{}, err
	}
	return Position{Coordinate: jittered(points[0], s.JitterMeters), Time: time.Now()}, nil
}

func (s *Simulator) Subscribe(ctx context.Context, onSample func(Position), onError func(error), opts Options) (Subscription, error) {
	sub, ctx := newSubscription(ctx)

	go func() {
		defer close(sub.done)

		var points []types.Coordinate
		for points == nil {
			fetchCtx, cancel := withTimeout(ctx, opts.Timeout)
			p, err := s.route(fetchCtx)
			cancel()
			if err == nil {
				points = p
				break
			}
			if ctx.Err() != nil {
				return
			}
			onError(err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.Interval):
			}
		}

		replay(ctx, points, s.Interval, s.Loop, s.JitterMeters, onSample)
		log.Printf("[simulator] Route completed")
	}()

	return sub, nil
}
