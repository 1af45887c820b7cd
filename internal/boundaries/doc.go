// Package boundaries loads Natural Earth admin-0 and admin-1 layers from
// their zip archives into country and province records.
//
// Each loader extracts the archive, reads the shapefile, resolves the name
// column and removes the extraction directory before returning, on success
// and on failure alike. Geometry is kept in geographic coordinates together
// with a Web Mercator copy used for metric work.
package boundaries
