package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"provmap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Input archives point into <base>/inputs and are not created; tests write
// them with WriteShapefileZip.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	inputs := filepath.Join(base, "inputs")
	if err := os.MkdirAll(inputs, 0o755); err != nil {
		t.Fatalf("mkdir inputs: %v", err)
	}

	cfgVal := config.Default()
	cfgVal.Inputs.Admin0Zip = filepath.Join(inputs, "admin0.zip")
	cfgVal.Inputs.Admin1Zip = filepath.Join(inputs, "admin1.zip")
	cfgVal.Inputs.OverseasCSV = filepath.Join(inputs, "overseas_lookup.csv")
	cfgVal.Output.Dir = filepath.Join(base, "out")
	cfgVal.Report.Path = filepath.Join(cfgVal.Output.Dir, "admin1.report.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOverrides writes an overseas lookup CSV holding the given
// keyword/country pairs, in order.
func WithOverrides(pairs ...[2]string) ConfigOption {
	return func(b *configBuilder) {
		var sb strings.Builder
		sb.WriteString("island_name,admin0\n")
		for _, pair := range pairs {
			sb.WriteString(pair[0])
			sb.WriteByte(',')
			sb.WriteString(pair[1])
			sb.WriteByte('\n')
		}
		if err := os.WriteFile(b.cfg.Inputs.OverseasCSV, []byte(sb.String()), 0o644); err != nil {
			b.t.Fatalf("write overrides: %v", err)
		}
	}
}

// WithoutReport disables the SQLite run report.
func WithoutReport() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Report.Enabled = false
		b.cfg.Report.Path = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Output.Dir)
}
