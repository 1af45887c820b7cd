package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateInputs(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateSlivers(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateTopology(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateInputs() error {
	if strings.TrimSpace(c.Inputs.Admin0Zip) == "" {
		return errors.New("inputs.admin0_zip must be set")
	}
	if strings.TrimSpace(c.Inputs.Admin1Zip) == "" {
		return errors.New("inputs.admin1_zip must be set")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir must be set")
	}
	if c.Output.GeoJSONName == c.Output.TopoJSONName {
		return errors.New("output.geojson_name and output.topojson_name must differ")
	}
	for key, name := range map[string]string{
		"output.geojson_name":  c.Output.GeoJSONName,
		"output.topojson_name": c.Output.TopoJSONName,
	} {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("%s must be a file name, got %q", key, name)
		}
	}
	return nil
}

func (c *Config) validateSlivers() error {
	if c.Slivers.MinAreaKm2 < 0 {
		return errors.New("slivers.min_area_km2 must be >= 0")
	}
	if c.Slivers.MinPerimeterKm < 0 {
		return errors.New("slivers.min_perimeter_km must be >= 0")
	}
	if c.Slivers.MinVertexCount < 0 {
		return errors.New("slivers.min_vertex_count must be >= 0")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.NearbyRadiusKm < 0 {
		return errors.New("matching.nearby_radius_km must be >= 0")
	}
	if c.Matching.FallbackRadiusKm < c.Matching.NearbyRadiusKm {
		return errors.New("matching.fallback_radius_km must be >= matching.nearby_radius_km")
	}
	return nil
}

func (c *Config) validateTopology() error {
	if c.Topology.SimplifyTolerance < 0 {
		return errors.New("topology.simplify_tolerance must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"topology.prequantize": c.Topology.PreQuantize,
		"topology.quantize":    c.Topology.Quantize,
	}); err != nil {
		return err
	}
	if c.Topology.Quantize < 2 {
		return errors.New("topology.quantize must be at least 2")
	}
	if c.Topology.PreQuantize < c.Topology.Quantize {
		return errors.New("topology.prequantize must be >= topology.quantize")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
