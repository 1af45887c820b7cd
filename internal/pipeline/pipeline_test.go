package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/paulmach/orb/geojson"

	"provmap/internal/config"
	"provmap/internal/logging"
	"provmap/internal/pipeline"
	"provmap/internal/tagging"
	"provmap/internal/testsupport"
	"provmap/internal/topology"
)

func writeInputs(t *testing.T, cfg *config.Config) {
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
			testsupport.NamedFeature("Speck", testsupport.Square(5, 5, 5.001, 5.001)),
			testsupport.NamedFeature("Reunion Isle", testsupport.Square(40, 40, 41, 41)),
		},
		PRJ: testsupport.GeographicPRJ,
	})
}

func TestRunTestlandScenario(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOverrides([2]string{"reunion", "Farland"}))
	writeInputs(t, cfg)

	summary, err := pipeline.Run(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Countries != 1 || summary.ProvincesRead != 3 || summary.SliversDropped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Provinces() != 2 {
		t.Fatalf("expected 2 provinces written, got %d", summary.Provinces())
	}
	if summary.Tiers[tagging.Containment] != 1 || summary.Tiers[tagging.Override] != 1 {
		t.Fatalf("unexpected tier counts: %v", summary.Tiers)
	}

	data, err := os.ReadFile(cfg.GeoJSONPath())
	if err != nil {
		t.Fatalf("read geojson: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("decode geojson: %v", err)
	}
	geoTags := map[string]string{}
	for _, f := range fc.Features {
		geoTags[f.Properties.MustString("name")] = f.Properties.MustString("admin0")
	}
	if geoTags["Testprov"] != "Testland" {
		t.Fatalf("expected Testprov tagged Testland in geojson, got %v", geoTags)
	}
	if geoTags["Reunion Isle"] != "Farland" {
		t.Fatalf("expected override applied, got %v", geoTags)
	}
	if _, ok := geoTags["Speck"]; ok {
		t.Fatal("expected sliver removed from geojson")
	}

	file, err := os.Open(cfg.TopoJSONPath())
	if err != nil {
		t.Fatalf("open topojson: %v", err)
	}
	defer file.Close()
	topo, err := topology.Parse(file)
	if err != nil {
		t.Fatalf("parse topojson: %v", err)
	}
	features, err := topology.Decode(topo, cfg.Output.Layer)
	if err != nil {
		t.Fatalf("decode topojson: %v", err)
	}
	if len(features) != len(fc.Features) {
		t.Fatalf("geojson has %d features, topojson has %d", len(fc.Features), len(features))
	}
	found := false
	for _, f := range features {
		if f.Properties["name"] == "Testprov" {
			found = f.Properties["admin0"] == "Testland"
		}
	}
	if !found {
		t.Fatal("expected Testprov tagged Testland in topojson")
	}

	store := testsupport.MustOpenReport(t, cfg)
	latest, err := store.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if latest.ID != summary.RunID || summary.ReportPath != cfg.Report.Path {
		t.Fatalf("expected run %s recorded at %s, got %s at %s", summary.RunID, cfg.Report.Path, latest.ID, summary.ReportPath)
	}
	slivers, err := store.SliverCount(context.Background(), latest.ID)
	if err != nil {
		t.Fatalf("SliverCount failed: %v", err)
	}
	if slivers != 1 {
		t.Fatalf("expected 1 sliver recorded, got %d", slivers)
	}
}

func TestRunWithoutOverridesFallsThroughToIsolated(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutReport())
	writeInputs(t, cfg)

	summary, err := pipeline.Run(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Overrides != 0 {
		t.Fatalf("expected empty override table, got %d", summary.Overrides)
	}
	if summary.Tiers[tagging.Isolated] != 1 {
		t.Fatalf("expected one isolated province, got %v", summary.Tiers)
	}
	if summary.ReportPath != "" {
		t.Fatalf("expected no report, got %s", summary.ReportPath)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, "admin1.report.db")); !os.IsNotExist(err) {
		t.Fatalf("expected no report database, stat err=%v", err)
	}
}

func TestRunRejectsConcurrentBuild(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeInputs(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	if _, err := pipeline.Run(context.Background(), cfg, logging.NewNop()); !errors.Is(err, pipeline.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if _, err := os.Stat(cfg.GeoJSONPath()); !os.IsNotExist(err) {
		t.Fatalf("expected no output while locked, stat err=%v", err)
	}
}

func TestRunMissingArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	_, err := pipeline.Run(context.Background(), cfg, logging.NewNop())
	if err == nil {
		t.Fatal("expected error for missing admin-0 archive")
	}
	if _, statErr := os.Stat(cfg.GeoJSONPath()); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output, stat err=%v", statErr)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeInputs(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pipeline.Run(ctx, cfg, logging.NewNop()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutReport())
	writeInputs(t, cfg)

	for i := 0; i < 2; i++ {
		if _, err := pipeline.Run(context.Background(), cfg, logging.NewNop()); err != nil {
			t.Fatalf("run %d returned error: %v", i, err)
		}
	}
}
