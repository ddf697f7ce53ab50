package osrm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/musthaq16/walk-logger/types"
	"github.com/tidwall/gjson"
)

// ProfileFoot is the pedestrian routing profile.
const ProfileFoot = "foot"

// ErrNotOk is returned when the service answers with a code other than "Ok".
var ErrNotOk = errors.New("osrm: status not Ok")

// Parse string like "12.9716,77.5946" into Coordinate
func ParseCoord(input string) (types.Coordinate, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return types.Coordinate{}, fmt.Errorf("invalid coordinate: %s", input)
	}

	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return types.Coordinate{}, fmt.Errorf("invalid lat/lon: %s", input)
	}

	return types.Coordinate{Lat: lat, Lon: lon}, nil
}

// Client requests routes from an OSRM compatible service.
type Client struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. An empty profile means foot.
// timeout 0 keeps the http.Client default (no timeout).
func NewClient(baseURL, profile string, timeout time.Duration) *Client {
	if profile == "" {
		profile = ProfileFoot
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    profile,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Route returns the full route geometry through waypoints, in order.
func (c *Client) Route(ctx context.Context, waypoints []types.Coordinate) ([]types.Coordinate, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("need at least 2 waypoints, got %d", len(waypoints))
	}

	pairs := make([]string, len(waypoints))
	for i, w := range waypoints {
		// the wire format is lon,lat
		pairs[i] = fmt.Sprintf("%.6f,%.6f", w.Lon, w.Lat)
	}
	url := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=geojson",
		c.baseURL, c.profile, strings.Join(pairs, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("JSON decode failed (HTTP %d)", resp.StatusCode)
	}

	// OSRM reports failures like NoRoute with a 400 and a code in the body
	code := gjson.GetBytes(body, "code").String()
	if code != "Ok" {
		return nil, fmt.Errorf("%w: code %q (HTTP %d)", ErrNotOk, code, resp.StatusCode)
	}

	geometry := gjson.GetBytes(body, "routes.0.geometry.coordinates")
	if !geometry.IsArray() {
		return nil, errors.New("response has no route geometry")
	}

	var coords []types.Coordinate
	for _, pair := range geometry.Array() {
		p := pair.Array()
		if len(p) < 2 {
			return nil, fmt.Errorf("malformed coordinate %s", pair.Raw)
		}
		coords = append(coords, types.Coordinate{Lon: p[0].Float(), Lat: p[1].Float()})
	}

	return coords, nil
}
