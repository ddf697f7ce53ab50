// Package location defines the position provider the tracker samples from,
// plus providers that replay an OSRM route or a GPX track.
package location

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/musthaq16/walk-logger/types"
)

// ErrUnavailable covers permission denied, a missing provider and timeouts.
var ErrUnavailable = errors.New("location unavailable")

// Options mirror the knobs of a platform geolocation request.
type Options struct {
	HighAccuracy bool
	// MaxAge 0 means a cached position is never returned.
	MaxAge time.Duration
	// Timeout bounds how long a fix may take; 0 means no bound.
	Timeout time.Duration
}

// Position is a single fix.
type Position struct {
	types.Coordinate
	Time time.Time
}

// Subscription is the handle of a continuous watch. Cancel is idempotent and
// returns once no more callbacks will be delivered; it must not be called
// from inside a callback.
type Subscription interface {
	Cancel()
}

// Provider delivers position fixes.
type Provider interface {
	// CurrentFix returns one fresh fix.
	CurrentFix(ctx context.Context, opts Options) (Position, error)
	// Subscribe delivers fixes to onSample one at a time, from a single
	// goroutine, until the subscription is cancelled or ctx is done.
	// Provider errors go to onError and do not end the subscription.
	Subscribe(ctx context.Context, onSample func(Position), onError func(error), opts Options) (Subscription, error)
}

type subscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func newSubscription(ctx context.Context) (*subscription, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &subscription{cancel: cancel, done: make(chan struct{})}, ctx
}

func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// replay emits points every interval until ctx is done. With loop set it
// starts over at the end, otherwise it returns.
func replay(ctx context.Context, points []types.Coordinate, interval time.Duration, loop bool, jitter float64, onSample func(Position)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, pt := range points {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			onSample(Position{Coordinate: jittered(pt, jitter), Time: time.Now()})
		}
		if !loop {
			return
		}
	}
}

// jittered moves c by up to meters in each axis, like GPS noise.
func jittered(c types.Coordinate, meters float64) types.Coordinate {
	if meters <= 0 {
		return c
	}
	const earthRadius = 6371000.0
	dy := (rand.Float64()*2 - 1) * meters
	dx := (rand.Float64()*2 - 1) * meters

	c.Lat += dy / earthRadius * 180 / math.Pi
	if cos := math.Cos(c.Lat * math.Pi / 180); cos > 1e-9 {
		c.Lon += dx / (earthRadius * cos) * 180 / math.Pi
	}
	return c
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
