package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// MaxMercatorLatitude is the latitude at which Web Mercator becomes square.
const MaxMercatorLatitude = 85.05112877980659

// ToMetric returns a Web Mercator copy of a geographic multipolygon.
// Latitudes beyond the Mercator limit are clamped.
func ToMetric(mp orb.MultiPolygon) orb.MultiPolygon {
	return project.MultiPolygon(mp.Clone(), toMercator)
}

// PointToMetric projects a single geographic point.
func PointToMetric(p orb.Point) orb.Point {
	return toMercator(p)
}

// ToGeographic converts a Web Mercator point back to longitude/latitude.
func ToGeographic(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(p)
}

func toMercator(p orb.Point) orb.Point {
	lat := math.Max(-MaxMercatorLatitude, math.Min(MaxMercatorLatitude, p[1]))
	return project.WGS84.ToMercator(orb.Point{p[0], lat})
}
