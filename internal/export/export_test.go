package export_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"provmap/internal/boundaries"
	"provmap/internal/export"
	"provmap/internal/logging"
	"provmap/internal/tagging"
	"provmap/internal/testsupport"
	"provmap/internal/topology"
)

func taggedProvince(name, country string, tier tagging.Tier, geometry orb.MultiPolygon) tagging.Tagged {
	return tagging.Tagged{
		Province:   boundaries.Province{Name: name, Geometry: geometry},
		Assignment: tagging.Assignment{Country: country, Tier: tier},
	}
}

func sampleProvinces() []tagging.Tagged {
	return []tagging.Tagged{
		taggedProvince("Testprov", "Testland", tagging.Containment, testsupport.Square(1, 1, 3, 3)),
		taggedProvince("Eastprov", "Testland", tagging.Containment, testsupport.Square(3, 1, 5, 3)),
		taggedProvince("Reunion Isle", "Farland", tagging.Override, testsupport.Square(20, 20, 21, 21)),
		taggedProvince("Nowhere", "(isolated)", tagging.Isolated, orb.MultiPolygon{}),
	}
}

func exportOptions(dir string) export.Options {
	return export.Options{
		GeoJSONPath:  filepath.Join(dir, "admin1.tagged.geojson"),
		TopoJSONPath: filepath.Join(dir, "admin1.tagged.topo.json"),
		Layer:        "admin1",
		Topology:     topology.Options{PreQuantize: 1_000_000, Quantize: 50_000, SimplifyTolerance: 0.04},
	}
}

func TestWriteProducesMatchingFeatureCounts(t *testing.T) {
	opts := exportOptions(t.TempDir())
	tagged := sampleProvinces()

	result, err := export.Write(context.Background(), tagged, opts, logging.NewNop())
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if result.Features != len(tagged) {
		t.Fatalf("expected %d features, got %d", len(tagged), result.Features)
	}
	if result.GeoJSONBytes == 0 || result.TopoJSONBytes == 0 {
		t.Fatalf("expected non-empty outputs, got %+v", result)
	}

	data, err := os.ReadFile(opts.GeoJSONPath)
	if err != nil {
		t.Fatalf("read geojson: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("decode geojson: %v", err)
	}

	file, err := os.Open(opts.TopoJSONPath)
	if err != nil {
		t.Fatalf("open topojson: %v", err)
	}
	defer file.Close()
	topo, err := topology.Parse(file)
	if err != nil {
		t.Fatalf("parse topojson: %v", err)
	}
	layer, ok := topo.Objects["admin1"]
	if !ok {
		t.Fatalf("expected admin1 layer, got %v", topo.Objects)
	}
	if len(fc.Features) != len(layer.Geometries) {
		t.Fatalf("geojson has %d features, topojson has %d geometries", len(fc.Features), len(layer.Geometries))
	}

	for i, feature := range fc.Features {
		if len(feature.Properties) != 2 {
			t.Fatalf("feature %d: expected only name and admin0, got %v", i, feature.Properties)
		}
		if feature.Properties.MustString(export.PropertyName) != tagged[i].Province.Name {
			t.Fatalf("feature %d: unexpected name %v", i, feature.Properties)
		}
		if feature.Properties.MustString(export.PropertyCountry) != tagged[i].Assignment.Country {
			t.Fatalf("feature %d: unexpected admin0 %v", i, feature.Properties)
		}
		if layer.Geometries[i].Properties[export.PropertyCountry] != tagged[i].Assignment.Country {
			t.Fatalf("geometry %d: unexpected properties %v", i, layer.Geometries[i].Properties)
		}
	}
}

func TestWriteGeoJSONKeepsFullPrecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")
	precise := orb.MultiPolygon{{{{0.123456789, 0}, {1, 0}, {1, 1}, {0.123456789, 0}}}}
	if err := export.WriteGeoJSON(path, []tagging.Tagged{taggedProvince("Precise", "Testland", tagging.Containment, precise)}); err != nil {
		t.Fatalf("WriteGeoJSON returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read geojson: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("decode geojson: %v", err)
	}
	got, ok := fc.Features[0].Geometry.(orb.MultiPolygon)
	if !ok {
		t.Fatalf("expected MultiPolygon, got %T", fc.Features[0].Geometry)
	}
	if got[0][0][0][0] != 0.123456789 {
		t.Fatalf("expected full precision coordinate, got %v", got[0][0][0])
	}
}

func TestWriteStopsOnCancelledContext(t *testing.T) {
	opts := exportOptions(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := export.Write(ctx, sampleProvinces(), opts, logging.NewNop()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(opts.GeoJSONPath); !os.IsNotExist(err) {
		t.Fatalf("expected no geojson written, stat err=%v", err)
	}
}

func TestWriteTopoJSONRejectsBadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.topo.json")
	_, err := export.WriteTopoJSON(path, sampleProvinces(), "admin1", topology.Options{PreQuantize: 10, Quantize: 100})
	if err == nil {
		t.Fatal("expected error for invalid quantization")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("expected no topojson written, stat err=%v", statErr)
	}
}
