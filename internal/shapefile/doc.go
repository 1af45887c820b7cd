// Package shapefile reads ESRI polygon shapefiles into orb geometries.
//
// Read loads every record of a .shp together with its .dbf attributes,
// decoding text per the .cpg code page and converting coordinates to
// geographic WGS84 according to the .prj sidecar. Polygon parts are grouped
// into multipolygons using the shapefile winding convention: clockwise rings
// are shells, counter-clockwise rings are holes.
//
// Only geographic and Web Mercator layers are understood; any other
// projection yields ErrUnsupportedProjection.
package shapefile
