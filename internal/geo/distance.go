package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Distance returns the shortest planar distance between two multipolygons,
// in the units of their coordinates. Overlapping or nested shapes are at
// distance zero.
func Distance(a, b orb.MultiPolygon) float64 {
	best := math.Inf(1)
	for _, pa := range a {
		for _, pb := range b {
			if d := polygonDistance(pa, pb, best); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

func polygonDistance(a, b orb.Polygon, limit float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a[0]) == 0 || len(b[0]) == 0 {
		return math.Inf(1)
	}
	if boundDistance(a.Bound(), b.Bound()) >= limit {
		return math.Inf(1)
	}
	if planar.PolygonContains(b, a[0][0]) || planar.PolygonContains(a, b[0][0]) {
		return 0
	}

	best := limit
	for _, ra := range a {
		for _, rb := range b {
			if boundDistance(ra.Bound(), rb.Bound()) >= best {
				continue
			}
			if d := ringDistance(ra, rb, best); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

func ringDistance(a, b orb.Ring, limit float64) float64 {
	best := limit
	for i := 0; i+1 < len(a); i++ {
		a1, a2 := a[i], a[i+1]
		segBound := orb.Bound{Min: a1, Max: a1}.Extend(a2)
		for j := 0; j+1 < len(b); j++ {
			b1, b2 := b[j], b[j+1]
			if boundDistance(segBound, orb.Bound{Min: b1, Max: b1}.Extend(b2)) >= best {
				continue
			}
			if d := segmentDistance(a1, a2, b1, b2); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

func segmentDistance(a1, a2, b1, b2 orb.Point) float64 {
	if segmentsIntersect(a1, a2, b1, b2) {
		return 0
	}
	return math.Min(
		math.Min(planar.DistanceFromSegment(b1, b2, a1), planar.DistanceFromSegment(b1, b2, a2)),
		math.Min(planar.DistanceFromSegment(a1, a2, b1), planar.DistanceFromSegment(a1, a2, b2)),
	)
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// boundDistance is the gap between two boxes, zero when they touch or overlap.
func boundDistance(a, b orb.Bound) float64 {
	dx := math.Max(0, math.Max(a.Min[0]-b.Max[0], b.Min[0]-a.Max[0]))
	dy := math.Max(0, math.Max(a.Min[1]-b.Max[1], b.Min[1]-a.Max[1]))
	return math.Hypot(dx, dy)
}
