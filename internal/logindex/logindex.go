// Package logindex answers "which logged points are closest to here".
package logindex

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/musthaq16/walk-logger/internal/geo"
	"github.com/musthaq16/walk-logger/types"
)

const (
	tolerance   = 1e-7
	minChildren = 2
	maxChildren = 8
	dimensions  = 2
)

// Match is a logged entry near the query point.
type Match struct {
	Index  int            `json:"index"`
	Entry  types.LogEntry `json:"entry"`
	Meters float64        `json:"meters"`
}

type item struct {
	index int
	entry types.LogEntry
	rect  *rtreego.Rect
}

func (it *item) Bounds() *rtreego.Rect {
	return it.rect
}

// Index is an R-tree over a log snapshot. Points are stored equirectangular:
// longitude is scaled by the cosine of the log's mean latitude so that tree
// distances stay proportional to meters across a walk.
type Index struct {
	tree     *rtreego.Rtree
	size     int
	lonScale float64
}

func New(entries []types.LogEntry) *Index {
	idx := &Index{tree: rtreego.NewTree(dimensions, minChildren, maxChildren), lonScale: 1}
	if len(entries) > 0 {
		var sum float64
		for _, e := range entries {
			sum += e.Latitude
		}
		idx.lonScale = math.Cos(sum / float64(len(entries)) * math.Pi / 180)
	}
	for i, e := range entries {
		idx.tree.Insert(&item{index: i, entry: e, rect: idx.project(e.Coordinate()).ToRect(tolerance)})
		idx.size++
	}
	return idx
}

func (idx *Index) project(c types.Coordinate) rtreego.Point {
	return rtreego.Point{c.Lat, c.Lon * idx.lonScale}
}

func (idx *Index) Size() int { return idx.size }

// Nearest returns up to k entries ordered by great-circle distance from at.
// The projection is exact only at the mean latitude, so a wider candidate
// set is re-ranked by haversine.
func (idx *Index) Nearest(at types.Coordinate, k int) []Match {
	if k <= 0 || idx.size == 0 {
		return nil
	}
	candidates := 2*k + 8
	if candidates > idx.size {
		candidates = idx.size
	}

	var matches []Match
	for _, s := range idx.tree.NearestNeighbors(candidates, idx.project(at)) {
		it, ok := s.(*item)
		if !ok || it == nil {
			continue
		}
		matches = append(matches, Match{
			Index:  it.index,
			Entry:  it.entry,
			Meters: geo.Distance(at, it.entry.Coordinate()),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Meters == matches[j].Meters {
			return matches[i].Index < matches[j].Index
		}
		return matches[i].Meters < matches[j].Meters
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
