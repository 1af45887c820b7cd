// Package archive unpacks zipped shapefile bundles into scratch directories.
//
// Natural Earth distributes each layer as a zip holding the .shp geometry
// plus its .dbf, .shx, .prj and .cpg sidecars. Extract writes every entry to
// a fresh temp directory and reports the first .shp it finds; callers read
// what they need and then Remove the bundle.
package archive
