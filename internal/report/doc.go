// Package report persists build runs in SQLite.
//
// Each pipeline run stores one row in runs, one row per surviving province
// with its assigned country and the cascade tier that resolved it, and one
// row per sliver that was dropped. The provmap report command reads these
// tables to show tier counts and isolated provinces.
//
// Schema changes bump schemaVersion in schema.go; an older report database
// must be deleted before a newer build can write to it.
package report
