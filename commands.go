package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/musthaq16/walk-logger/internal/config"
	"github.com/musthaq16/walk-logger/internal/export"
	"github.com/musthaq16/walk-logger/internal/feed"
	"github.com/musthaq16/walk-logger/internal/logindex"
	"github.com/musthaq16/walk-logger/internal/logview"
	"github.com/musthaq16/walk-logger/internal/osrm"
	"github.com/musthaq16/walk-logger/internal/route"
	"github.com/musthaq16/walk-logger/internal/tracker"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
	nearestAt    string
	nearestK     int
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track positions from the configured provider",
	Long: `Track samples the configured provider and logs every fix that moved at
least the configured distance. While running, type on stdin:
  m  add a manual marker at the current position
  c  clear the log
  l  print the log
  q  quit`,
	RunE: runTrack,
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the persisted log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, backend, err := openLog(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		out := cmd.OutOrStdout()
		if err := logview.Render(out, logview.Build(store.Entries()), time.Local); err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Stored: %d of %d points\n", store.Len(), store.Capacity())
		return err
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the persisted log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, backend, err := openLog(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()
		if _, err := store.Clear(); err != nil {
			return fmt.Errorf("storage error: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Log cleared")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the log and its route as GeoJSON or GPX",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, backend, err := openLog(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		entries := store.Entries()
		resolver := route.NewResolver(newOSRMClient(cfg))
		path := resolver.Resolve(cmd.Context(), entries)

		data, err := export.Marshal(exportFormat, entries, path)
		if err != nil {
			return err
		}
		if exportOut == "" || exportOut == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		log.Printf("Exported %d points to %s", len(entries), exportOut)
		return nil
	},
}

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Find the logged points closest to a coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := osrm.ParseCoord(nearestAt)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, backend, err := openLog(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		out := cmd.OutOrStdout()
		idx := logindex.New(store.Entries())
		if idx.Size() == 0 {
			fmt.Fprintln(out, "No points recorded")
			return nil
		}
		for _, m := range idx.Nearest(at, nearestK) {
			fmt.Fprintf(out, "#%d %.6f, %.6f - %.1f m\n", m.Index+1, m.Entry.Latitude, m.Entry.Longitude, m.Meters)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "geojson", "Output format (geojson|gpx)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file, stdout when empty")
	nearestCmd.Flags().StringVar(&nearestAt, "at", "", "Coordinate as lat,lon")
	nearestCmd.Flags().IntVarP(&nearestK, "count", "n", 1, "Number of points to return")
	_ = nearestCmd.MarkFlagRequired("at")

	rootCmd.AddCommand(trackCmd, logCmd, clearCmd, exportCmd, nearestCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, backend, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	client := newOSRMClient(cfg)
	provider, err := newProvider(cfg, client)
	if err != nil {
		// Without a provider the log can still be viewed, marked and cleared.
		log.Printf("Location provider unavailable: %v", err)
	}

	tr := tracker.New(tracker.Config{
		MinDistance:  cfg.Tracker.MinDistanceMeters,
		FixTimeout:   cfg.Tracker.FixTimeout,
		HighAccuracy: cfg.Tracker.HighAccuracy,
	}, provider, store, route.NewResolver(client))
	config.OnReload(func(c *config.AppConfig) {
		tr.SetMinDistance(c.Tracker.MinDistanceMeters)
	})
	log.Printf("[%s] Tracker session started (%s provider)", tr.ID(), cfg.Provider.Kind)

	ctx, cancel := withSignalHandler(cmd.Context())
	defer cancel()

	if cfg.Server.Enabled {
		srv := feed.New(tr)
		tr.Observe(srv.Publish)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				log.Printf("[feed] Server stopped: %v", err)
			}
		}()
	}

	if err := tr.Start(ctx); err != nil {
		log.Printf("[%s] %v", tr.ID(), err)
	}
	defer tr.Stop()

	go readIntents(os.Stdin, cmd.OutOrStdout(), tr, cancel)

	<-ctx.Done()
	return nil
}

// readIntents maps stdin lines to tracker actions until EOF or "q".
func readIntents(in io.Reader, out io.Writer, tr *tracker.Tracker, quit context.CancelFunc) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "m":
			if !tr.AddManualMarker() {
				fmt.Fprintln(out, "No position yet")
			}
		case "c":
			tr.ClearLog()
		case "l":
			if err := logview.Render(out, logview.Build(tr.ViewLog()), time.Local); err != nil {
				log.Printf("Render log: %v", err)
			}
		case "q":
			quit()
			return
		case "":
		default:
			fmt.Fprintln(out, "Commands: m (marker), c (clear), l (log), q (quit)")
		}
	}
}
