package main

import (
	"testing"
)

func TestReportShowsIsolatedProvinces(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"report"}, env.configPath)
	if err != nil {
		t.Fatalf("report before build: %v", err)
	}
	requireContains(t, out, "No builds recorded")

	if _, _, err := runCLI(t, []string{"build"}, env.configPath); err != nil {
		t.Fatalf("build: %v", err)
	}
	out, _, err = runCLI(t, []string{"report"}, env.configPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	requireContains(t, out, "Isolated provinces")
	requireContains(t, out, "Reunion Isle")

	out, _, err = runCLI(t, []string{"report", "--tier", "containment"}, env.configPath)
	if err != nil {
		t.Fatalf("report --tier: %v", err)
	}
	requireContains(t, out, "Containment provinces")
	requireContains(t, out, "Testprov")
}

func TestReportUnknownRun(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"report", "--run", "missing"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}

func TestReportPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	for i := 0; i < 2; i++ {
		if _, _, err := runCLI(t, []string{"build"}, env.configPath); err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
	}
	out, _, err := runCLI(t, []string{"report", "--prune", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("report --prune: %v", err)
	}
	requireContains(t, out, "Pruned 1 run(s)")
}
