package location

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/musthaq16/walk-logger/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu     sync.Mutex
	calls  int
	points []types.Coordinate
	err    error
}

func (f *stubFetcher) Route(ctx context.Context, waypoints []types.Coordinate) ([]types.Coordinate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.points, f.err
}

type collector struct {
	mu      sync.Mutex
	samples []Position
	errs    []error
}

func (c *collector) sample(p Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, p)
}

func (c *collector) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *collector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples), len(c.errs)
}

var walk = []types.Coordinate{
	{Lat: 55.7500, Lon: 37.6100},
	{Lat: 55.7501, Lon: 37.6101},
	{Lat: 55.7502, Lon: 37.6102},
}

func TestSimulatorCurrentFix(t *testing.T) {
	f := &stubFetcher{points: walk}
	s := NewSimulator(f, []types.Coordinate{walk[0], walk[2]}, time.Millisecond)

	pos, err := s.CurrentFix(context.Background(), Options{HighAccuracy: true, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, walk[0], pos.Coordinate)

	_, err = s.CurrentFix(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls, "route is fetched once")
}

func TestSimulatorUnavailable(t *testing.T) {
	s := NewSimulator(&stubFetcher{err: errors.New("boom")}, walk, time.Millisecond)
	_, err := s.CurrentFix(context.Background(), Options{})
	assert.True(t, errors.Is(err, ErrUnavailable))

	s = NewSimulator(nil, walk[:1], time.Millisecond)
	_, err = s.CurrentFix(context.Background(), Options{})
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSimulatorSubscribeDeliversRoute(t *testing.T) {
	s := NewSimulator(&stubFetcher{points: walk}, walk, time.Millisecond)
	c := &collector{}

	sub, err := s.Subscribe(context.Background(), c.sample, c.fail, Options{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, _ := c.counts()
		return n == len(walk)
	}, time.Second, 5*time.Millisecond)
	sub.Cancel()
	sub.Cancel()

	for i, p := range c.samples {
		assert.Equal(t, walk[i], p.Coordinate)
	}
}

func TestSimulatorSubscribeReportsErrorsAndKeepsRunning(t *testing.T) {
	f := &stubFetcher{err: errors.New("unreachable")}
	s := NewSimulator(f, walk, time.Millisecond)
	c := &collector{}

	sub, err := s.Subscribe(context.Background(), c.sample, c.fail, Options{})
	require.NoError(t, err)
	defer sub.Cancel()

	require.Eventually(t, func() bool {
		_, n := c.counts()
		return n >= 2
	}, time.Second, 5*time.Millisecond)

	f.mu.Lock()
	f.err = nil
	f.points = walk
	f.mu.Unlock()

	require.Eventually(t, func() bool {
		n, _ := c.counts()
		return n == len(walk)
	}, time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(c.errs[0], ErrUnavailable))
}

func TestCancelStopsDelivery(t *testing.T) {
	s := NewSimulator(&stubFetcher{points: walk}, walk, 5*time.Millisecond)
	s.Loop = true
	c := &collector{}

	sub, err := s.Subscribe(context.Background(), c.sample, c.fail, Options{})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, _ := c.counts()
		return n > 0
	}, time.Second, time.Millisecond)

	sub.Cancel()
	n, _ := c.counts()
	time.Sleep(30 * time.Millisecond)
	after, _ := c.counts()
	assert.Equal(t, n, after)
}

func TestJittered(t *testing.T) {
	c := types.Coordinate{Lat: 55.75, Lon: 37.61}
	assert.Equal(t, c, jittered(c, 0))

	for i := 0; i < 100; i++ {
		j := jittered(c, 5)
		assert.InDelta(t, c.Lat, j.Lat, 0.0001)
		assert.InDelta(t, c.Lon, j.Lon, 0.0001)
	}
}

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>walk</name><trkseg>
    <trkpt lat="55.7500" lon="37.6100"></trkpt>
    <trkpt lat="55.7501" lon="37.6101"></trkpt>
    <trkpt lat="55.7502" lon="37.6102"></trkpt>
  </trkseg></trk>
</gpx>`

func TestGPXReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.gpx")
	require.NoError(t, os.WriteFile(path, []byte(sampleGPX), 0644))

	g, err := LoadGPX(path, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, walk, g.Points)

	pos, err := g.CurrentFix(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, walk[0], pos.Coordinate)

	c := &collector{}
	sub, err := g.Subscribe(context.Background(), c.sample, c.fail, Options{})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, _ := c.counts()
		return n == len(walk)
	}, time.Second, 5*time.Millisecond)
	sub.Cancel()
}

func TestGPXReplayEmpty(t *testing.T) {
	g := &GPXReplay{}
	_, err := g.CurrentFix(context.Background(), Options{})
	assert.True(t, errors.Is(err, ErrUnavailable))
	_, err = g.Subscribe(context.Background(), func(Position) {}, func(error) {}, Options{})
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = LoadGPX(filepath.Join(t.TempDir(), "missing.gpx"), 0)
	assert.Error(t, err)
}
