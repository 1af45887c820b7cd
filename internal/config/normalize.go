package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeInputs(); err != nil {
		return err
	}
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	c.normalizeMatching()
	if err := c.normalizeReport(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

// envOverride replaces value with the trimmed environment variable when it is set.
func envOverride(value *string, key string) {
	if env, ok := os.LookupEnv(key); ok && strings.TrimSpace(env) != "" {
		*value = strings.TrimSpace(env)
	}
}

func (c *Config) normalizeInputs() error {
	envOverride(&c.Inputs.Admin0Zip, "PROVMAP_ADMIN0_ZIP")
	envOverride(&c.Inputs.Admin1Zip, "PROVMAP_ADMIN1_ZIP")
	envOverride(&c.Inputs.OverseasCSV, "PROVMAP_OVERSEAS_CSV")

	if strings.TrimSpace(c.Inputs.Admin0Zip) == "" {
		c.Inputs.Admin0Zip = defaultAdmin0Zip
	}
	if strings.TrimSpace(c.Inputs.Admin1Zip) == "" {
		c.Inputs.Admin1Zip = defaultAdmin1Zip
	}
	if strings.TrimSpace(c.Inputs.OverseasCSV) == "" {
		c.Inputs.OverseasCSV = defaultOverseasCSV
	}

	var err error
	if c.Inputs.Admin0Zip, err = expandPath(strings.TrimSpace(c.Inputs.Admin0Zip)); err != nil {
		return fmt.Errorf("inputs.admin0_zip: %w", err)
	}
	if c.Inputs.Admin1Zip, err = expandPath(strings.TrimSpace(c.Inputs.Admin1Zip)); err != nil {
		return fmt.Errorf("inputs.admin1_zip: %w", err)
	}
	if c.Inputs.OverseasCSV, err = expandPath(strings.TrimSpace(c.Inputs.OverseasCSV)); err != nil {
		return fmt.Errorf("inputs.overseas_csv: %w", err)
	}
	c.Inputs.CountryNameField = strings.TrimSpace(c.Inputs.CountryNameField)
	c.Inputs.ProvinceNameField = strings.TrimSpace(c.Inputs.ProvinceNameField)
	return nil
}

func (c *Config) normalizeOutput() error {
	envOverride(&c.Output.Dir, "PROVMAP_OUTPUT_DIR")
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	var err error
	if c.Output.Dir, err = expandPath(strings.TrimSpace(c.Output.Dir)); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	c.Output.GeoJSONName = strings.TrimSpace(c.Output.GeoJSONName)
	if c.Output.GeoJSONName == "" {
		c.Output.GeoJSONName = defaultGeoJSONName
	}
	c.Output.TopoJSONName = strings.TrimSpace(c.Output.TopoJSONName)
	if c.Output.TopoJSONName == "" {
		c.Output.TopoJSONName = defaultTopoJSONName
	}
	c.Output.Layer = strings.TrimSpace(c.Output.Layer)
	if c.Output.Layer == "" {
		c.Output.Layer = defaultLayer
	}
	return nil
}

func (c *Config) normalizeMatching() {
	c.Matching.IsolatedLabel = strings.TrimSpace(c.Matching.IsolatedLabel)
	if c.Matching.IsolatedLabel == "" {
		c.Matching.IsolatedLabel = defaultIsolatedLabel
	}
}

func (c *Config) normalizeReport() error {
	if !c.Report.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Report.Path) == "" {
		c.Report.Path = filepath.Join(c.Output.Dir, defaultReportName)
	}
	var err error
	if c.Report.Path, err = expandPath(strings.TrimSpace(c.Report.Path)); err != nil {
		return fmt.Errorf("report.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	envOverride(&c.Logging.Level, "PROVMAP_LOG_LEVEL")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		if expanded, err := expandPath(strings.TrimSpace(c.Logging.File)); err == nil {
			c.Logging.File = expanded
		}
	}
}
