package main

import (
	"os"
	"path/filepath"
	"testing"

	"provmap/internal/testsupport"
)

func TestBuildWritesOutputsAndSummary(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithOverrides([2]string{"reunion", "Farland"}))

	out, _, err := runCLI(t, []string{"build"}, env.configPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContains(t, out, "Assignments")
	requireContains(t, out, "containment")
	requireContains(t, out, "override")
	requireContains(t, out, env.cfg.GeoJSONPath())
	requireContains(t, out, "Report: "+env.cfg.Report.Path)

	for _, path := range []string{env.cfg.GeoJSONPath(), env.cfg.TopoJSONPath(), env.cfg.Report.Path} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}
}

func TestBuildFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	outDir := filepath.Join(env.baseDir, "elsewhere")

	if _, _, err := runCLI(t, []string{"build", "--out", outDir}, env.configPath); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "admin1.tagged.topo.json")); err != nil {
		t.Fatalf("expected topojson in flag output dir: %v", err)
	}
	if _, err := os.Stat(env.cfg.GeoJSONPath()); !os.IsNotExist(err) {
		t.Fatalf("expected configured output dir untouched, stat err=%v", err)
	}
}

func TestBuildFailsOnMissingArchive(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "nope.zip")

	if _, _, err := runCLI(t, []string{"build", "--admin0", missing}, env.configPath); err == nil {
		t.Fatal("expected build to fail for a missing archive")
	}
}

func TestInspectReportsCounts(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"build"}, env.configPath); err != nil {
		t.Fatalf("build: %v", err)
	}

	out, _, err := runCLI(t, []string{"inspect", env.cfg.TopoJSONPath()}, "")
	if err != nil {
		t.Fatalf("inspect topojson: %v", err)
	}
	requireContains(t, out, "TopoJSON layer admin1")
	requireContains(t, out, "Testland")
	requireContains(t, out, "(isolated)")

	out, _, err = runCLI(t, []string{"inspect", env.cfg.GeoJSONPath()}, "")
	if err != nil {
		t.Fatalf("inspect geojson: %v", err)
	}
	requireContains(t, out, "GeoJSON")
	requireContains(t, out, "Testland")
}

func TestInspectRejectsUnknownDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "point.json")
	if err := os.WriteFile(path, []byte(`{"type":"Point","coordinates":[0,0]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := runCLI(t, []string{"inspect", path}, ""); err == nil {
		t.Fatal("expected error for unsupported document")
	}
}
