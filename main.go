package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/musthaq16/walk-logger/internal/config"
	"github.com/musthaq16/walk-logger/internal/location"
	"github.com/musthaq16/walk-logger/internal/logstore"
	"github.com/musthaq16/walk-logger/internal/osrm"
	"github.com/musthaq16/walk-logger/internal/state"
	"github.com/musthaq16/walk-logger/types"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "walk-logger",
	Short: "Log walking positions and the route between them",
	Long: `walk-logger samples a location provider, keeps a bounded log of points
(automatic and manual markers), resolves a walking route between them through
an OSRM service and persists the log across runs.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Config file path")
}

func main() {
	initLogging()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

// loadConfig reads --config. A missing default config file falls back to
// built-in defaults; a missing explicit one is an error.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	path := configFile
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		path = ""
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openLog opens the configured backend and loads the persisted log.
func openLog(cfg *config.AppConfig) (*logstore.Store, state.Store, error) {
	backend, err := state.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	store := logstore.New(backend, cfg.Storage.Key, cfg.Tracker.Capacity)
	entries := store.Load()
	log.Printf("Loaded %d log entries from %s storage", len(entries), cfg.Storage.Backend)
	return store, backend, nil
}

func newOSRMClient(cfg *config.AppConfig) *osrm.Client {
	return osrm.NewClient(cfg.OSRM.BaseUrl, cfg.OSRM.Profile, cfg.OSRM.Timeout)
}

// newProvider builds the configured position source.
func newProvider(cfg *config.AppConfig, client *osrm.Client) (location.Provider, error) {
	p := cfg.Provider
	switch p.Kind {
	case "gpx":
		g, err := location.LoadGPX(p.GPXFile, p.Interval)
		if err != nil {
			return nil, err
		}
		g.Loop = p.Loop
		return g, nil
	case "", "simulator":
		var waypoints []types.Coordinate
		for _, raw := range append(append([]string{p.Source}, p.Stops...), p.Target) {
			c, err := osrm.ParseCoord(raw)
			if err != nil {
				return nil, fmt.Errorf("simulator waypoint: %w", err)
			}
			waypoints = append(waypoints, c)
		}
		sim := location.NewSimulator(client, waypoints, p.Interval)
		sim.JitterMeters = p.JitterMeters
		sim.Loop = p.Loop
		return sim, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Kind)
	}
}

// withSignalHandler creates a context that cancels on OS signals
func withSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Printf("Received signal: %v, stopping tracker...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
