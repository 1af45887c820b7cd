package topology_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"provmap/internal/testsupport"
	"provmap/internal/topology"
)

func defaultOptions() topology.Options {
	return topology.Options{PreQuantize: 1_000_000, Quantize: 10_000}
}

func feature(name string, geometry orb.MultiPolygon) topology.Feature {
	return topology.Feature{Geometry: geometry, Properties: map[string]any{"name": name}}
}

func normalize(ref int) int {
	if ref < 0 {
		return ^ref
	}
	return ref
}

func polygonRefs(t *testing.T, g topology.Geometry) [][]int {
	t.Helper()
	if g.Type != topology.TypePolygon {
		t.Fatalf("expected Polygon, got %q", g.Type)
	}
	refs, ok := g.Arcs.([][]int)
	if !ok {
		t.Fatalf("unexpected arcs type %T", g.Arcs)
	}
	return refs
}

func TestAdjacentPolygonsShareOneArc(t *testing.T) {
	features := []topology.Feature{
		feature("West", testsupport.Square(0, 0, 1, 1)),
		feature("East", testsupport.Square(1, 0, 2, 1)),
	}
	topo, err := topology.Build(features, "provinces", defaultOptions())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(topo.Arcs) != 3 {
		t.Fatalf("expected 3 arcs, got %d", len(topo.Arcs))
	}

	west := polygonRefs(t, topo.Objects["provinces"].Geometries[0])
	east := polygonRefs(t, topo.Objects["provinces"].Geometries[1])
	shared := map[int]bool{}
	for _, ref := range west[0] {
		shared[normalize(ref)] = true
	}
	var reversed int
	common := 0
	for _, ref := range east[0] {
		if shared[normalize(ref)] {
			common++
			if ref < 0 {
				reversed++
			}
		}
	}
	if common != 1 || reversed != 1 {
		t.Fatalf("expected one shared arc walked in reverse, got common=%d reversed=%d (west=%v east=%v)", common, reversed, west, east)
	}
}

func TestEnclaveReusesHoleArc(t *testing.T) {
	outer := orb.MultiPolygon{{
		testsupport.Square(0, 0, 10, 10)[0][0],
		testsupport.Square(4, 4, 6, 6)[0][0],
	}}
	features := []topology.Feature{
		feature("Outer", outer),
		feature("Enclave", testsupport.Square(4, 4, 6, 6)),
	}
	topo, err := topology.Build(features, "provinces", defaultOptions())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(topo.Arcs) != 2 {
		t.Fatalf("expected 2 arcs, got %d", len(topo.Arcs))
	}
	outerRefs := polygonRefs(t, topo.Objects["provinces"].Geometries[0])
	enclaveRefs := polygonRefs(t, topo.Objects["provinces"].Geometries[1])
	if len(outerRefs) != 2 || len(enclaveRefs) != 1 {
		t.Fatalf("unexpected ring counts: outer=%v enclave=%v", outerRefs, enclaveRefs)
	}
	if normalize(outerRefs[1][0]) != normalize(enclaveRefs[0][0]) {
		t.Fatalf("expected hole and enclave to share an arc: outer=%v enclave=%v", outerRefs, enclaveRefs)
	}
}

func TestBuildKeepsOneGeometryPerFeature(t *testing.T) {
	features := []topology.Feature{
		feature("Mainland", testsupport.Square(0, 0, 1, 1)),
		feature("Islands", append(testsupport.Square(3, 3, 4, 4), testsupport.Square(5, 5, 6, 6)...)),
		feature("Lost", orb.MultiPolygon{}),
	}
	topo, err := topology.Build(features, "provinces", defaultOptions())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	geometries := topo.Objects["provinces"].Geometries
	if len(geometries) != len(features) {
		t.Fatalf("expected %d geometries, got %d", len(features), len(geometries))
	}
	if geometries[1].Type != topology.TypeMultiPolygon {
		t.Fatalf("expected MultiPolygon, got %q", geometries[1].Type)
	}
	if multi, ok := geometries[1].Arcs.([][][]int); !ok || len(multi) != 2 {
		t.Fatalf("unexpected multipolygon arcs %#v", geometries[1].Arcs)
	}
	if geometries[2].Type != "" || geometries[2].Arcs != nil {
		t.Fatalf("expected null geometry, got %#v", geometries[2])
	}
	if geometries[2].Properties["name"] != "Lost" {
		t.Fatalf("expected properties kept on null geometry, got %v", geometries[2].Properties)
	}

	var buf bytes.Buffer
	if err := topology.Encode(&buf, topo); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"type":null`) {
		t.Fatalf("expected null geometry type in output, got %s", buf.String())
	}
}

func TestArcsAreDeltaEncodedWithinGrid(t *testing.T) {
	opts := defaultOptions()
	features := []topology.Feature{
		feature("West", testsupport.Square(0, 0, 1, 1)),
		feature("East", testsupport.Square(1, 0, 2, 1)),
	}
	topo, err := topology.Build(features, "provinces", opts)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if topo.Transform == nil {
		t.Fatal("expected transform")
	}
	if topo.BBox != [4]float64{0, 0, 2, 1} {
		t.Fatalf("unexpected bbox %v", topo.BBox)
	}
	for i, arc := range topo.Arcs {
		if len(arc) < 2 {
			t.Fatalf("arc %d has %d points", i, len(arc))
		}
		var x, y int
		for _, delta := range arc {
			x += delta[0]
			y += delta[1]
			if x < 0 || y < 0 || x >= opts.Quantize || y >= opts.Quantize {
				t.Fatalf("arc %d leaves the grid at (%d,%d)", i, x, y)
			}
		}
	}
}

func TestSharedBorderSimplifiesIdentically(t *testing.T) {
	west := orb.MultiPolygon{{{
		{0, 0}, {0, 1}, {1, 1}, {1.001, 0.75}, {0.999, 0.5}, {1.001, 0.25}, {1, 0}, {0, 0},
	}}}
	east := orb.MultiPolygon{{{
		{1, 0}, {1.001, 0.25}, {0.999, 0.5}, {1.001, 0.75}, {1, 1}, {2, 1}, {2, 0}, {1, 0},
	}}}
	opts := defaultOptions()
	opts.SimplifyTolerance = 0.01

	topo, err := topology.Build([]topology.Feature{feature("West", west), feature("East", east)}, "provinces", opts)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(topo.Arcs) != 3 {
		t.Fatalf("expected 3 arcs, got %d", len(topo.Arcs))
	}
	decoded, err := topology.Decode(topo, "provinces")
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got := len(decoded[0].Geometry[0][0]); got != 5 {
		t.Fatalf("expected wiggles removed from west ring, got %d points", got)
	}
	border := func(ring orb.Ring) map[orb.Point]bool {
		out := map[orb.Point]bool{}
		for _, p := range ring {
			if math.Abs(p[0]-1) < 0.01 {
				out[p] = true
			}
		}
		return out
	}
	westBorder := border(decoded[0].Geometry[0][0])
	eastBorder := border(decoded[1].Geometry[0][0])
	if len(westBorder) != len(eastBorder) {
		t.Fatalf("border points differ: west=%v east=%v", westBorder, eastBorder)
	}
	for p := range westBorder {
		if !eastBorder[p] {
			t.Fatalf("border point %v missing from east ring", p)
		}
	}
}

func TestDecodeRoundTripsThroughJSON(t *testing.T) {
	features := []topology.Feature{
		feature("West", testsupport.Square(0, 0, 2, 1)),
		feature("Islands", append(testsupport.Square(3, 0, 4, 1), testsupport.Square(5, 0, 6, 2)...)),
		feature("Lost", orb.MultiPolygon{}),
	}
	topo, err := topology.Build(features, "provinces", defaultOptions())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	var buf bytes.Buffer
	if err := topology.Encode(&buf, topo); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	parsed, err := topology.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	decoded, err := topology.Decode(parsed, "provinces")
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(decoded) != len(features) {
		t.Fatalf("expected %d features, got %d", len(features), len(decoded))
	}
	for i, want := range features {
		if decoded[i].Properties["name"] != want.Properties["name"] {
			t.Fatalf("feature %d: expected name %v, got %v", i, want.Properties["name"], decoded[i].Properties["name"])
		}
		wantArea := math.Abs(planar.Area(want.Geometry))
		gotArea := math.Abs(planar.Area(decoded[i].Geometry))
		if math.Abs(wantArea-gotArea) > 0.01 {
			t.Fatalf("feature %d: area %.4f, want %.4f", i, gotArea, wantArea)
		}
	}
	if len(decoded[2].Geometry) != 0 {
		t.Fatalf("expected empty geometry for null feature, got %v", decoded[2].Geometry)
	}
}

func TestBuildRejectsBadOptions(t *testing.T) {
	features := []topology.Feature{feature("West", testsupport.Square(0, 0, 1, 1))}
	cases := []struct {
		name  string
		opts  topology.Options
		layer string
	}{
		{name: "coarse grid", opts: topology.Options{PreQuantize: 1000, Quantize: 1}, layer: "provinces"},
		{name: "output finer than input", opts: topology.Options{PreQuantize: 100, Quantize: 1000}, layer: "provinces"},
		{name: "missing layer", opts: defaultOptions(), layer: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := topology.Build(features, tc.layer, tc.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDecodeUnknownLayer(t *testing.T) {
	topo, err := topology.Build(nil, "provinces", defaultOptions())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if _, err := topology.Decode(topo, "countries"); err == nil {
		t.Fatal("expected error for unknown layer")
	}
}
