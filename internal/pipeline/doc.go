// Package pipeline runs a complete provmap build.
//
// Run takes the loaded configuration and walks the stages in order: load
// countries, load provinces, filter slivers, load the overseas override
// table, tag provinces, export GeoJSON and TopoJSON, and record the run in
// the SQLite report when enabled. The output directory is guarded by a
// file lock so two builds never write the same assets at once. Every log
// line carries the run id and the current stage.
package pipeline
