package types

import "time"

// Coordinate holds lat/lon
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// LogEntry is one recorded position, automatic or a manual marker.
// Timestamp is unix milliseconds.
type LogEntry struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
	IsManual  bool    `json:"isManual"`
}

// NewLogEntry stamps c with t.
func NewLogEntry(c Coordinate, t time.Time, manual bool) LogEntry {
	return LogEntry{
		Latitude:  c.Lat,
		Longitude: c.Lon,
		Timestamp: t.UnixMilli(),
		IsManual:  manual,
	}
}

func (e LogEntry) Coordinate() Coordinate {
	return Coordinate{Lat: e.Latitude, Lon: e.Longitude}
}

func (e LogEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}
