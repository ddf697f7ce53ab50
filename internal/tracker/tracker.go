// Package tracker drives the position log: it samples a location provider,
// applies the movement threshold, appends accepted fixes to the log store
// and keeps the resolved route up to date.
//
// A tracker starts in AwaitingFirstFix. It moves to Tracking on the first
// fix from either the one-shot request or the continuous watch. From then
// on a watch sample is logged only when it is at least MinDistance meters
// from the last accepted position. Manual markers skip the threshold.
//
// Route resolution runs in the background after every log mutation. Each
// request carries a sequence number and only the latest one is committed,
// so a slow response cannot overwrite a newer route. Clearing the log
// invalidates every request in flight.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/musthaq16/walk-logger/internal/geo"
	"github.com/musthaq16/walk-logger/internal/location"
	"github.com/musthaq16/walk-logger/internal/logstore"
	"github.com/musthaq16/walk-logger/types"
)

const (
	DefaultMinDistance = 10.0
	DefaultFixTimeout  = 15 * time.Second

	storageErrorPrefix = "storage error: "
)

type State int

const (
	AwaitingFirstFix State = iota
	Tracking
)

func (s State) String() string {
	switch s {
	case AwaitingFirstFix:
		return "awaiting_first_fix"
	case Tracking:
		return "tracking"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "awaiting_first_fix":
		*s = AwaitingFirstFix
	case "tracking":
		*s = Tracking
	default:
		return fmt.Errorf("unknown tracker state %q", b)
	}
	return nil
}

// Config tunes the sampling policy.
type Config struct {
	// MinDistance in meters between accepted automatic samples.
	MinDistance  float64
	FixTimeout   time.Duration
	HighAccuracy bool
}

// Resolver turns log points into a route. *route.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, points []types.LogEntry) []types.LogEntry
}

// Snapshot is what a UI renders.
type Snapshot struct {
	State    State             `json:"state"`
	Position *types.Coordinate `json:"position,omitempty"`
	Log      []types.LogEntry  `json:"log"`
	Route    []types.LogEntry  `json:"route"`
	Error    string            `json:"error,omitempty"`
}

type Tracker struct {
	id       string
	cfg      Config
	provider location.Provider
	store    *logstore.Store
	resolver Resolver
	now      func() time.Time

	mu        sync.Mutex
	state     State
	position  *types.Coordinate
	route     []types.LogEntry
	errMsg    string
	seq       uint64
	observers []func(Snapshot)
	started   bool
	stopped   bool
	ctx       context.Context
	cancel    context.CancelFunc
	sub       location.Subscription
	wg        sync.WaitGroup
}

// New returns a tracker over store, which the caller has already loaded.
// provider may be nil, in which case Start only reports that location is
// unsupported and the log can still be viewed, marked and cleared.
func New(cfg Config, provider location.Provider, store *logstore.Store, resolver Resolver) *Tracker {
	if cfg.MinDistance <= 0 {
		cfg.MinDistance = DefaultMinDistance
	}
	if cfg.FixTimeout <= 0 {
		cfg.FixTimeout = DefaultFixTimeout
	}
	return &Tracker{
		id:       uuid.NewString(),
		cfg:      cfg,
		provider: provider,
		store:    store,
		resolver: resolver,
		now:      time.Now,
		route:    []types.LogEntry{},
		ctx:      context.Background(),
	}
}

func (t *Tracker) ID() string { return t.id }

// SetMinDistance changes the movement threshold for later samples.
func (t *Tracker) SetMinDistance(meters float64) {
	if meters <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.MinDistance = meters
}

// Observe registers fn to receive a snapshot after every change. fn runs
// with the tracker locked and must not call back into it.
func (t *Tracker) Observe(fn func(Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// Start requests a one-shot fix and opens the continuous watch. Both run
// until Stop. Start fails only when there is no provider or it was already
// started; watch errors are surfaced, not returned.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return errors.New("tracker already started")
	}
	t.started = true
	t.ctx, t.cancel = context.WithCancel(ctx)
	ctx = t.ctx
	if t.provider != nil {
		t.wg.Add(1)
	}
	t.mu.Unlock()

	if t.provider == nil {
		t.fail("geolocation is not supported")
		return fmt.Errorf("%w: no provider", location.ErrUnavailable)
	}

	opts := location.Options{
		HighAccuracy: t.cfg.HighAccuracy,
		MaxAge:       0,
		Timeout:      t.cfg.FixTimeout,
	}

	go func() {
		defer t.wg.Done()
		pos, err := t.provider.CurrentFix(ctx, opts)
		if err != nil {
			if ctx.Err() == nil {
				t.fail(fmt.Sprintf("geolocation error: %v", err))
			}
			return
		}
		log.Printf("[%s] Position fixed: %.6f, %.6f", t.id, pos.Lat, pos.Lon)
		t.handle(pos)
	}()

	sub, err := t.provider.Subscribe(ctx, t.handle, t.watchError, opts)
	if err != nil {
		t.fail(fmt.Sprintf("tracking error: %v", err))
		return nil
	}

	t.mu.Lock()
	t.sub = sub
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		// Stop ran while Subscribe was in flight
		sub.Cancel()
	}
	return nil
}

// Stop cancels the watch and waits for the fix request and in-flight route
// resolutions to finish. Safe to call more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	sub, cancel := t.sub, t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Cancel()
	}
	t.wg.Wait()
	log.Printf("[%s] Tracker stopped", t.id)
}

// handle processes a fix from either the one-shot request or the watch.
func (t *Tracker) handle(pos location.Position) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.position == nil {
		t.state = Tracking
		t.errMsg = ""
		t.record(pos.Coordinate, false)
		t.notify()
		return
	}

	d := geo.Distance(*t.position, pos.Coordinate)
	if !accepts(d, t.cfg.MinDistance) {
		return
	}
	log.Printf("[%s] Point accepted: %.6f, %.6f (%.1f m)", t.id, pos.Lat, pos.Lon, d)
	t.record(pos.Coordinate, false)
	t.notify()
}

func accepts(distance, threshold float64) bool {
	return distance >= threshold
}

func (t *Tracker) watchError(err error) {
	if t.ctx.Err() != nil {
		return
	}
	t.fail(fmt.Sprintf("tracking error: %v", err))
}

func (t *Tracker) fail(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	log.Printf("[%s] %s", t.id, msg)
	t.errMsg = msg
	t.notify()
}

// AddManualMarker logs the current position as a manual marker. It reports
// false, changing nothing, when no position has been fixed yet.
func (t *Tracker) AddManualMarker() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.position == nil {
		return false
	}
	log.Printf("[%s] Manual marker: %.6f, %.6f", t.id, t.position.Lat, t.position.Lon)
	t.record(*t.position, true)
	t.notify()
	return true
}

// ClearLog empties the log and the route.
func (t *Tracker) ClearLog() {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.store.Clear()
	t.storageResult(err)
	t.seq++
	t.route = []types.LogEntry{}
	log.Printf("[%s] Log cleared", t.id)
	t.notify()
}

// ViewLog returns a copy of the log for display.
func (t *Tracker) ViewLog() []types.LogEntry {
	return t.store.Entries()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// record appends c to the log and starts a route resolution. Automatic
// entries also move the reference position. Callers hold t.mu.
func (t *Tracker) record(c types.Coordinate, manual bool) {
	table, err := t.store.Append(types.NewLogEntry(c, t.now(), manual))
	t.storageResult(err)
	if !manual {
		pos := c
		t.position = &pos
	}
	t.resolve(table)
}

// storageResult surfaces a failed write and clears the message once a
// later write succeeds. Callers hold t.mu.
func (t *Tracker) storageResult(err error) {
	if err == nil {
		if strings.HasPrefix(t.errMsg, storageErrorPrefix) {
			t.errMsg = ""
		}
		return
	}
	t.errMsg = storageErrorPrefix + err.Error()
	log.Printf("[%s] %s", t.id, t.errMsg)
}

// resolve starts a background resolution of table. Callers hold t.mu.
func (t *Tracker) resolve(table []types.LogEntry) {
	if t.stopped || t.resolver == nil {
		return
	}
	t.seq++
	seq, ctx := t.seq, t.ctx

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		route := t.resolver.Resolve(ctx, table)

		t.mu.Lock()
		defer t.mu.Unlock()
		if seq != t.seq {
			return
		}
		t.route = route
		t.notify()
	}()
}

func (t *Tracker) snapshot() Snapshot {
	s := Snapshot{
		State: t.state,
		Log:   t.store.Entries(),
		Route: append([]types.LogEntry{}, t.route...),
		Error: t.errMsg,
	}
	if t.position != nil {
		pos := *t.position
		s.Position = &pos
	}
	return s
}

func (t *Tracker) notify() {
	if len(t.observers) == 0 {
		return
	}
	s := t.snapshot()
	for _, fn := range t.observers {
		fn(s)
	}
}
