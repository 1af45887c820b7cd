package tagging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"provmap/internal/boundaries"
	"provmap/internal/geo"
	"provmap/internal/overrides"
	"provmap/internal/tagging"
	"provmap/internal/testsupport"
)

func country(name string, mp orb.MultiPolygon) boundaries.Country {
	return boundaries.Country{Name: name, Geometry: mp, Metric: geo.ToMetric(mp)}
}

func province(name string, mp orb.MultiPolygon) boundaries.Province {
	metric := geo.ToMetric(mp)
	return boundaries.Province{Name: name, Geometry: mp, Metric: metric, Metrics: geo.Measure(metric)}
}

func defaultOptions() tagging.Options {
	return tagging.Options{NearbyRadiusKm: 80, FallbackRadiusKm: 500, IsolatedLabel: "(isolated)"}
}

func newMatcher(table *overrides.Table) *tagging.Matcher {
	return tagging.NewMatcher([]boundaries.Country{
		country("Testland", testsupport.Square(0, 0, 10, 10)),
		country("Overlapland", testsupport.Square(8, 8, 12, 12)),
	}, table, defaultOptions())
}

func TestCascadeTiers(t *testing.T) {
	m := newMatcher(overrides.New(overrides.Entry{Keyword: "reunion", Country: "France"}))

	tests := []struct {
		name     string
		province boundaries.Province
		country  string
		tier     tagging.Tier
	}{
		{"inside", province("Testprov", testsupport.Square(2, 2, 4, 4)), "Testland", tagging.Containment},
		{"overlap goes to first loaded", province("Corner", testsupport.Square(8.5, 8.5, 9.5, 9.5)), "Testland", tagging.Containment},
		{"coastal islet", province("Islet", testsupport.Square(10.5, 0, 11, 1)), "Testland", tagging.Nearby},
		{"override beats nearer country", province("La Réunion Reunion", testsupport.Square(14, 0, 15, 1)), "France", tagging.Override},
		{"fallback", province("Far Rock", testsupport.Square(14, 0, 15, 1)), "Testland", tagging.Fallback},
		{"isolated", province("Nowhere", testsupport.Square(40, 0, 41, 1)), "(isolated)", tagging.Isolated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Assign(tc.province)
			if got.Country != tc.country || got.Tier != tc.tier {
				t.Fatalf("Assign = %q/%v, want %q/%v", got.Country, got.Tier, tc.country, tc.tier)
			}
			if !got.Resolved() {
				t.Fatal("assignment must be resolved")
			}
		})
	}
}

func TestProximityReportsDistance(t *testing.T) {
	m := newMatcher(nil)
	a, ok := m.ByProximity(province("Islet", testsupport.Square(10.5, 0, 11, 1)), 80, tagging.Nearby)
	if !ok {
		t.Fatal("expected a nearby match")
	}
	// Half a degree at the equator in Web Mercator.
	if a.DistanceKm < 55 || a.DistanceKm > 56 {
		t.Fatalf("DistanceKm = %v, want ~55.7", a.DistanceKm)
	}
}

func TestOverrideNotConsultedWhenNearbyMatches(t *testing.T) {
	m := newMatcher(overrides.New(overrides.Entry{Keyword: "islet", Country: "Elsewhere"}))

	got := m.Assign(province("Islet", testsupport.Square(10.5, 0, 11, 1)))
	if got.Tier != tagging.Nearby || got.Country != "Testland" {
		t.Fatalf("Assign = %q/%v, want Testland/nearby", got.Country, got.Tier)
	}
}

func TestEmptyGeometryIsolatedWithoutOverride(t *testing.T) {
	m := newMatcher(nil)

	got := m.Assign(province("Ghost", nil))
	if got.Tier != tagging.Isolated || got.Country != "(isolated)" {
		t.Fatalf("Assign = %q/%v, want isolated", got.Country, got.Tier)
	}
}

func TestTagAllNeverLeavesEmptyTag(t *testing.T) {
	m := tagging.NewMatcher(nil, nil, tagging.Options{NearbyRadiusKm: 80, FallbackRadiusKm: 500})
	provinces := []boundaries.Province{
		province("A", testsupport.Square(0, 0, 1, 1)),
		province("", testsupport.Square(5, 5, 6, 6)),
	}

	tagged, stats, err := m.TagAll(context.Background(), provinces, nil)
	if err != nil {
		t.Fatalf("TagAll returned error: %v", err)
	}
	if len(tagged) != 2 {
		t.Fatalf("expected 2 tagged provinces, got %d", len(tagged))
	}
	for _, item := range tagged {
		if item.Assignment.Country == "" {
			t.Fatalf("province %q left with empty tag", item.Province.Name)
		}
	}
	if stats[tagging.Isolated] != 2 {
		t.Fatalf("expected 2 isolated, got %v", stats)
	}
}

func TestTagAllStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newMatcher(nil).TagAll(ctx, []boundaries.Province{province("A", testsupport.Square(0, 0, 1, 1))}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSliverRequiresAllThresholds(t *testing.T) {
	th := tagging.SliverThresholds{MinAreaKm2: 1, MinPerimeterKm: 0.5, MinVertexCount: 20}

	tests := []struct {
		name    string
		metrics geo.Metrics
		sliver  bool
	}{
		{"tiny everywhere", geo.Metrics{AreaKm2: 0.01, PerimeterKm: 0.3, Vertices: 5}, true},
		{"area at threshold", geo.Metrics{AreaKm2: 1, PerimeterKm: 0.1, Vertices: 4}, false},
		{"large area", geo.Metrics{AreaKm2: 5000, PerimeterKm: 0.1, Vertices: 4}, false},
		{"long perimeter", geo.Metrics{AreaKm2: 0.01, PerimeterKm: 0.6, Vertices: 5}, false},
		{"many vertices", geo.Metrics{AreaKm2: 0.01, PerimeterKm: 0.3, Vertices: 20}, false},
	}
	for _, tc := range tests {
		if got := tagging.IsSliver(tc.metrics, th); got != tc.sliver {
			t.Fatalf("%s: IsSliver = %v, want %v", tc.name, got, tc.sliver)
		}
	}
}

func TestFilterSliversKeepsLargeProvinces(t *testing.T) {
	th := tagging.SliverThresholds{MinAreaKm2: 1, MinPerimeterKm: 0.5, MinVertexCount: 20}
	// ~0.0001° squares are roughly 11 m across.
	provinces := []boundaries.Province{
		province("Speck", testsupport.Square(0, 0, 0.0001, 0.0001)),
		province("Big", testsupport.Square(0, 0, 1, 1)),
		province("Small but real", testsupport.Square(3, 3, 3.01, 3.01)),
	}

	kept, dropped := tagging.FilterSlivers(provinces, th)
	if len(dropped) != 1 || dropped[0].Name != "Speck" {
		t.Fatalf("unexpected dropped %+v", dropped)
	}
	if len(kept) != 2 || kept[0].Name != "Big" || kept[1].Name != "Small but real" {
		t.Fatalf("unexpected kept order")
	}
	for _, p := range kept {
		if p.Metrics.AreaKm2 >= 1 && tagging.IsSliver(p.Metrics, th) {
			t.Fatalf("province with area >= 1 km² dropped: %s", p.Name)
		}
	}
}

func TestParseTierRoundTrip(t *testing.T) {
	for _, tier := range tagging.Tiers {
		got, err := tagging.ParseTier(tier.String())
		if err != nil || got != tier {
			t.Fatalf("ParseTier(%q) = %v, %v", tier.String(), got, err)
		}
	}
	if _, err := tagging.ParseTier("bogus"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}
