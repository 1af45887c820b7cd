// Package logging assembles structured slog loggers and formatting helpers used
// across provmap.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing (stderr plus an optional JSON log file), and exposes context-aware
// helpers so pipeline code automatically tags log lines with the build run
// ID and the current stage. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
