// Package spatial indexes country geometries for the tagging cascade.
//
// Candidates come from an R-tree over bounding boxes; exact tests run on the
// candidate geometries. Candidates are always visited in ascending id (load
// order) so the first match is deterministic.
package spatial

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"

	"provmap/internal/geo"
)

// Index is an R-tree over a fixed slice of multipolygons. Ids are slice positions.
type Index struct {
	tree  rtree.RTreeG[int]
	geoms []orb.MultiPolygon
}

// New indexes geoms. Empty geometries are kept addressable but never match.
func New(geoms []orb.MultiPolygon) *Index {
	ix := &Index{geoms: geoms}
	for id, g := range geoms {
		if len(g) == 0 {
			continue
		}
		b := g.Bound()
		ix.tree.Insert(b.Min, b.Max, id)
	}
	return ix
}

// Len reports the number of indexed geometries.
func (ix *Index) Len() int {
	return ix.tree.Len()
}

// Containing returns the lowest id whose geometry contains pt. Boundary
// points count as contained.
func (ix *Index) Containing(pt orb.Point) (int, bool) {
	for _, id := range ix.candidates(orb.Bound{Min: pt, Max: pt}) {
		if planar.MultiPolygonContains(ix.geoms[id], pt) {
			return id, true
		}
	}
	return -1, false
}

// Nearest returns the id of the geometry closest to g, provided it lies
// within maxDist. Ties keep the lowest id.
func (ix *Index) Nearest(g orb.MultiPolygon, maxDist float64) (int, float64, bool) {
	if len(g) == 0 || maxDist < 0 {
		return -1, 0, false
	}
	bestID, best := -1, math.Inf(1)
	for _, id := range ix.candidates(g.Bound().Pad(maxDist)) {
		if d := geo.Distance(g, ix.geoms[id]); d < best {
			bestID, best = id, d
		}
	}
	if bestID < 0 || best > maxDist {
		return -1, 0, false
	}
	return bestID, best, true
}

func (ix *Index) candidates(window orb.Bound) []int {
	var ids []int
	ix.tree.Search(window.Min, window.Max, func(_, _ [2]float64, id int) bool {
		ids = append(ids, id)
		return true
	})
	sort.Ints(ids)
	return ids
}
