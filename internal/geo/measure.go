package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Metrics are the sliver-test measurements of one province.
type Metrics struct {
	AreaKm2     float64
	PerimeterKm float64
	// Vertices counts exterior-ring coordinates, closing point included.
	Vertices int
}

// Measure computes metrics for a geometry already in Web Mercator.
func Measure(metric orb.MultiPolygon) Metrics {
	var m Metrics
	for _, polygon := range metric {
		if len(polygon) == 0 {
			continue
		}
		m.AreaKm2 += planar.Area(polygon) / 1e6
		for _, ring := range polygon {
			m.PerimeterKm += planar.Length(ring) / 1000
		}
		m.Vertices += len(polygon[0])
	}
	return m
}

// Centroid returns the area-weighted centroid of a Web Mercator geometry,
// converted back to geographic coordinates. ok is false for empty geometry.
func Centroid(metric orb.MultiPolygon) (orb.Point, bool) {
	if len(metric) == 0 {
		return orb.Point{}, false
	}
	center, area := planar.CentroidArea(metric)
	if area == 0 {
		// Degenerate rings: fall back to the middle of the bounds.
		center = metric.Bound().Center()
	}
	return ToGeographic(center), true
}
