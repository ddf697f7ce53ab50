// Package logview renders the textual log screen.
package logview

import (
	"fmt"
	"io"
	"time"

	"github.com/musthaq16/walk-logger/internal/geo"
	"github.com/musthaq16/walk-logger/types"
)

type Row struct {
	Number int            `json:"number"`
	Label  string         `json:"label"`
	Entry  types.LogEntry `json:"entry"`
	// FromPrevious is the distance in meters from the row before.
	FromPrevious float64 `json:"fromPrevious"`
}

type View struct {
	Rows        []Row   `json:"rows"`
	TotalMeters float64 `json:"totalMeters"`
}

func Build(entries []types.LogEntry) View {
	segments := geo.Segments(entries)
	v := View{Rows: make([]Row, len(entries))}
	for i, e := range entries {
		label := "Point"
		if e.IsManual {
			label = "Marker"
		}
		v.Rows[i] = Row{
			Number:       i + 1,
			Label:        label,
			Entry:        e,
			FromPrevious: segments[i],
		}
		v.TotalMeters += segments[i]
	}
	return v
}

// Render writes one line per row and a total. Times are shown in loc.
func Render(w io.Writer, v View, loc *time.Location) error {
	if len(v.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No points recorded")
		return err
	}
	if loc == nil {
		loc = time.Local
	}
	for _, r := range v.Rows {
		_, err := fmt.Fprintf(w, "%s %d: %.6f, %.6f (%s) - %.1f m\n",
			r.Label, r.Number, r.Entry.Latitude, r.Entry.Longitude,
			r.Entry.Time().In(loc).Format("15:04:05"), r.FromPrevious)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Total distance: %.1f m\n", v.TotalMeters)
	return err
}
