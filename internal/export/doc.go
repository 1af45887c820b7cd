// Package export writes tagged provinces as GeoJSON and TopoJSON.
//
// Both files carry the same features in the same order with the properties
// name and admin0. Writes go through fileutil.WriteAtomic so a failed run
// never leaves a half-written asset behind.
package export
