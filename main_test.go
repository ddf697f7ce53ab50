package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/musthaq16/walk-logger/internal/config"
	"github.com/musthaq16/walk-logger/internal/logstore"
	"github.com/musthaq16/walk-logger/internal/state"
	"github.com/musthaq16/walk-logger/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdleTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	backend, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := logstore.New(backend, logstore.DefaultKey, logstore.DefaultCapacity)
	store.Load()
	return tracker.New(tracker.Config{}, nil, store, nil)
}

func TestReadIntents(t *testing.T) {
	tr := newIdleTracker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	readIntents(strings.NewReader("m\nl\nx\nq\nm\n"), &out, tr, cancel)

	assert.Error(t, ctx.Err(), "q cancels the session")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3, "input after q is ignored")
	assert.Equal(t, "No position yet", lines[0])
	assert.Equal(t, "No points recorded", lines[1])
	assert.Contains(t, lines[2], "Commands:")
}

func TestNewProvider(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	cfg.Provider.Source = "55.75,37.61"
	cfg.Provider.Target = "55.76,37.62"
	p, err := newProvider(cfg, newOSRMClient(cfg))
	require.NoError(t, err)
	assert.NotNil(t, p)

	cfg.Provider.Target = "north"
	_, err = newProvider(cfg, newOSRMClient(cfg))
	assert.ErrorContains(t, err, "simulator waypoint")

	cfg.Provider.Kind = "gpx"
	cfg.Provider.GPXFile = "missing.gpx"
	_, err = newProvider(cfg, newOSRMClient(cfg))
	assert.Error(t, err)
}
