// Package geo holds the planar measurements the tagging cascade needs.
//
// Geometry is stored in geographic WGS84 coordinates; anything measured in
// metres or kilometres is first projected to Web Mercator (EPSG:3857), the
// same metric the boundary datasets are usually analysed in. Mercator
// inflates lengths away from the equator, so areas, perimeters and distances
// here are Mercator values, not true ground measurements.
package geo
