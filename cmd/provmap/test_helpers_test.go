package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"provmap/internal/config"
	"provmap/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Chdir(base)

	configPath := filepath.Join(homeDir, ".config", "provmap", "config.toml")
	writeTestConfig(t, configPath, cfg)
	writeTestInputs(t, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeTestInputs(t *testing.T, cfg *config.Config) {
	t.Helper()
	testsupport.WriteShapefileZip(t, cfg.Inputs.Admin0Zip, testsupport.Layer{
		Fields:   []string{"name"},
		Features: []testsupport.Feature{testsupport.NamedFeature("Testland", testsupport.Square(0, 0, 10, 10))},
		PRJ:      testsupport.GeographicPRJ,
	})
	testsupport.WriteShapefileZip(t, cfg.Inputs.Admin1Zip, testsupport.Layer{
		Fields: []string{"name"},
		Features: []testsupport.Feature{
			testsupport.NamedFeature("Testprov", testsupport.Square(2, 2, 4, 4)),
			testsupport.NamedFeature("Reunion Isle", testsupport.Square(40, 40, 41, 41)),
		},
		PRJ: testsupport.GeographicPRJ,
	})
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
