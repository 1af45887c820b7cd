package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Inputs locates the source archives and the optional overseas lookup table.
type Inputs struct {
	Admin0Zip         string `toml:"admin0_zip"`
	Admin1Zip         string `toml:"admin1_zip"`
	OverseasCSV       string `toml:"overseas_csv"`
	CountryNameField  string `toml:"country_name_field"`
	ProvinceNameField string `toml:"province_name_field"`
}

// Output controls where and under which names the generated assets are written.
type Output struct {
	Dir          string `toml:"dir"`
	GeoJSONName  string `toml:"geojson_name"`
	TopoJSONName string `toml:"topojson_name"`
	Layer        string `toml:"layer"`
}

// Slivers holds the thresholds of the sliver filter. A province is dropped
// only when it is below all three.
type Slivers struct {
	MinAreaKm2     float64 `toml:"min_area_km2"`
	MinPerimeterKm float64 `toml:"min_perimeter_km"`
	MinVertexCount int     `toml:"min_vertex_count"`
}

// Matching holds the country-assignment cascade radii and sentinel.
type Matching struct {
	NearbyRadiusKm   float64 `toml:"nearby_radius_km"`
	FallbackRadiusKm float64 `toml:"fallback_radius_km"`
	IsolatedLabel    string  `toml:"isolated_label"`
}

// Topology controls TopoJSON simplification and quantization.
type Topology struct {
	// SimplifyTolerance is the Douglas-Peucker tolerance in degrees.
	SimplifyTolerance float64 `toml:"simplify_tolerance"`
	// PreQuantize is the grid used to snap coordinates before arcs are built.
	PreQuantize int `toml:"prequantize"`
	// Quantize is the grid of the written topology.
	Quantize int `toml:"quantize"`
}

// Report configures the optional SQLite run report.
type Report struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates every tunable of a provmap build.
//
// Configuration sections:
//   - Inputs: admin-0/admin-1 archives, overseas lookup CSV, name field overrides
//   - Output: output directory, file names and TopoJSON layer name
//   - Slivers: sliver filter thresholds
//   - Matching: nearest-country radii and the isolated sentinel
//   - Topology: simplification tolerance and quantization grids
//   - Report: SQLite run report
//   - Logging: log format, level and optional file
type Config struct {
	Inputs   Inputs   `toml:"inputs"`
	Output   Output   `toml:"output"`
	Slivers  Slivers  `toml:"slivers"`
	Matching Matching `toml:"matching"`
	Topology Topology `toml:"topology"`
	Report   Report   `toml:"report"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/provmap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("provmap.toml")
	if err != nil {
		return "", false, err
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output directory and the parent of the report database.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Output.Dir, err)
	}
	if c.Report.Enabled && strings.TrimSpace(c.Report.Path) != "" {
		dir := filepath.Dir(c.Report.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory %q: %w", dir, err)
		}
	}
	return nil
}

// GeoJSONPath returns the absolute path of the GeoJSON output.
func (c *Config) GeoJSONPath() string {
	return filepath.Join(c.Output.Dir, c.Output.GeoJSONName)
}

// TopoJSONPath returns the absolute path of the TopoJSON output.
func (c *Config) TopoJSONPath() string {
	return filepath.Join(c.Output.Dir, c.Output.TopoJSONName)
}

// LockPath returns the path of the build lock inside the output directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Output.Dir, ".provmap.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
