// Package config loads, normalizes, and validates provmap configuration data.
//
// It supplies repository defaults (the Natural Earth archive names, sliver
// thresholds, matching radii, simplification tolerance and quantization
// grids), expands user paths (including tilde shortcuts), reads TOML files,
// and honours PROVMAP_* environment overrides for input and output
// locations. The Config type centralizes every tunable of a build so the
// pipeline receives them as one explicit value.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
