// Package main hosts the provmap CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, builds
// the structured logger, and hands off to internal packages: build runs the
// pipeline, inspect summarises an existing GeoJSON or TopoJSON asset, report
// reads the SQLite run history, and config scaffolds or validates the TOML
// file. Commands stay thin; behaviour belongs in internal/.
package main
