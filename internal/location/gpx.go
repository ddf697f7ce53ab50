package location

import (
	"context"
	"fmt"
	"time"

	"github.com/musthaq16/walk-logger/types"
	"github.com/tkrajina/gpxgo/gpx"
)

// GPXReplay replays the track points of a recorded GPX file.
type GPXReplay struct {
	Points   []types.Coordinate
	Interval time.Duration
	Loop     bool
}

// LoadGPX reads every track point of the file at path, in order.
func LoadGPX(path string, interval time.Duration) (*GPXReplay, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse gpx %s: %w", path, err)
	}

	var points []types.Coordinate
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				points = append(points, types.Coordinate{Lat: p.Latitude, Lon: p.Longitude})
			}
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("gpx %s has no track points", path)
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &GPXReplay{Points: points, Interval: interval}, nil
}

func (g *GPXReplay) CurrentFix(ctx context.Context, opts Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(g.Points) == 0 {
		return Position{}, fmt.Errorf("%w: no track points", ErrUnavailable)
	}
	return Position{Coordinate: g.Points[0], Time: time.Now()}, nil
}

func (g *GPXReplay) Subscribe(ctx context.Context, onSample func(Position), onError func(error), opts Options) (Subscription, error) {
	if len(g.Points) == 0 {
		return nil, fmt.Errorf("%w: no track points", ErrUnavailable)
	}
	sub, ctx := newSubscription(ctx)
	go func() {
		defer close(sub.done)
		replay(ctx, g.Points, g.Interval, g.Loop, 0, onSample)
	}()
	return sub, nil
}
