package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Overrides are command-line replacements for configured locations. Empty
// fields leave the configuration untouched.
type Overrides struct {
	Admin0Zip   string
	Admin1Zip   string
	OverseasCSV string
	OutputDir   string
}

// Apply expands and applies o, then revalidates. A report database left at
// its default location follows the output directory.
func (c *Config) Apply(o Overrides) error {
	targets := []struct {
		key   string
		value string
		dst   *string
	}{
		{"--admin0", o.Admin0Zip, &c.Inputs.Admin0Zip},
		{"--admin1", o.Admin1Zip, &c.Inputs.Admin1Zip},
		{"--overseas", o.OverseasCSV, &c.Inputs.OverseasCSV},
	}
	for _, target := range targets {
		value := strings.TrimSpace(target.value)
		if value == "" {
			continue
		}
		expanded, err := expandPath(value)
		if err != nil {
			return fmt.Errorf("%s: %w", target.key, err)
		}
		*target.dst = expanded
	}

	if dir := strings.TrimSpace(o.OutputDir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("--out: %w", err)
		}
		if c.Report.Path == filepath.Join(c.Output.Dir, defaultReportName) {
			c.Report.Path = filepath.Join(expanded, defaultReportName)
		}
		c.Output.Dir = expanded
	}
	return c.Validate()
}
