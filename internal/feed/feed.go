// Package feed exposes a tracker to a UI over HTTP and websockets.
//
//	GET  /api/state            current snapshot
//	GET  /api/log              log view with per-point distances
//	GET  /api/nearest?lat&lon&k nearest logged points
//	GET  /api/export?format=   geojson or gpx download
//	POST /api/marker           add a manual marker
//	POST /api/clear            clear the log
//	GET  /ws                   snapshot stream; accepts marker/clear/ping
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/musthaq16/walk-logger/internal/export"
	"github.com/musthaq16/walk-logger/internal/logindex"
	"github.com/musthaq16/walk-logger/internal/logview"
	"github.com/musthaq16/walk-logger/internal/tracker"
	"github.com/musthaq16/walk-logger/types"
)

// Tracker is the part of *tracker.Tracker the feed drives.
type Tracker interface {
	Snapshot() tracker.Snapshot
	ViewLog() []types.LogEntry
	AddManualMarker() bool
	ClearLog()
}

type Server struct {
	tracker  Tracker
	hub      *hub
	router   *mux.Router
	upgrader websocket.Upgrader
}

func New(t Tracker) *Server {
	s := &Server{
		tracker: t,
		hub:     newHub(),
		router:  mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/log", s.handleLog).Methods(http.MethodGet)
	api.HandleFunc("/nearest", s.handleNearest).Methods(http.MethodGet)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/marker", s.handleMarker).Methods(http.MethodPost)
	api.HandleFunc("/clear", s.handleClear).Methods(http.MethodPost)
	s.router.HandleFunc("/ws", s.handleWebSocket)
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Publish pushes snap to every websocket client. It is meant to be passed
// to (*tracker.Tracker).Observe and never blocks.
func (s *Server) Publish(snap tracker.Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[feed] Encode snapshot: %v", err)
		return
	}
	s.hub.broadcast(b)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[feed] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[feed] Write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, logview.Build(s.tracker.ViewLog()))
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	k := 1
	if raw := q.Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}

	matches := logindex.New(s.tracker.ViewLog()).Nearest(types.Coordinate{Lat: lat, Lon: lon}, k)
	if matches == nil {
		matches = []logindex.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "geojson"
	}
	snap := s.tracker.Snapshot()
	data, err := export.Marshal(format, snap.Log, snap.Route)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := "application/geo+json"
	if format == "gpx" {
		contentType = "application/gpx+xml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=walk."+format)
	_, _ = w.Write(data)
}

func (s *Server) handleMarker(w http.ResponseWriter, r *http.Request) {
	added := s.tracker.AddManualMarker()
	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.tracker.ClearLog()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[feed] Failed to upgrade to WebSocket: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if b, err := json.Marshal(s.tracker.Snapshot()); err == nil {
		c.send <- b
	}
	s.hub.add(c)

	go c.writePump()
	go s.readPump(c)
}
