package tagging

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"

	"provmap/internal/boundaries"
	"provmap/internal/geo"
	"provmap/internal/logging"
	"provmap/internal/overrides"
	"provmap/internal/spatial"
)

// Options carry the cascade tunables.
type Options struct {
	NearbyRadiusKm   float64
	FallbackRadiusKm float64
	IsolatedLabel    string
}

// Tagged pairs a province with its assignment.
type Tagged struct {
	Province   boundaries.Province
	Assignment Assignment
}

// Stats counts assignments per tier.
type Stats map[Tier]int

// Matcher runs the cascade against a fixed set of countries.
type Matcher struct {
	countries  []boundaries.Country
	geographic *spatial.Index
	metric     *spatial.Index
	overrides  *overrides.Table
	opts       Options
}

// NewMatcher indexes countries in both coordinate systems. A nil table
// behaves as an empty one.
func NewMatcher(countries []boundaries.Country, table *overrides.Table, opts Options) *Matcher {
	geographic := make([]orb.MultiPolygon, len(countries))
	metric := make([]orb.MultiPolygon, len(countries))
	for i, c := range countries {
		geographic[i] = c.Geometry
		metric[i] = c.Metric
	}
	if opts.IsolatedLabel == "" {
		opts.IsolatedLabel = "(isolated)"
	}
	return &Matcher{
		countries:  countries,
		geographic: spatial.New(geographic),
		metric:     spatial.New(metric),
		overrides:  table,
		opts:       opts,
	}
}

// ByContainment returns the first country whose polygon holds the
// province centroid.
func (m *Matcher) ByContainment(p boundaries.Province) (Assignment, bool) {
	centroid, ok := geo.Centroid(p.Metric)
	if !ok {
		return Assignment{}, false
	}
	id, ok := m.geographic.Containing(centroid)
	if !ok {
		return Assignment{}, false
	}
	return Assignment{Country: m.countries[id].Name, Tier: Containment}, true
}

// ByProximity returns the nearest country within radiusKm, labelled with tier.
func (m *Matcher) ByProximity(p boundaries.Province, radiusKm float64, tier Tier) (Assignment, bool) {
	id, dist, ok := m.metric.Nearest(p.Metric, radiusKm*1000)
	if !ok {
		return Assignment{}, false
	}
	return Assignment{Country: m.countries[id].Name, Tier: tier, DistanceKm: dist / 1000}, true
}

// ByOverride returns the first override entry whose keyword occurs in the
// province name.
func (m *Matcher) ByOverride(p boundaries.Province) (Assignment, bool) {
	entry, ok := m.overrides.Match(p.Name)
	if !ok {
		return Assignment{}, false
	}
	return Assignment{Country: entry.Country, Tier: Override, Keyword: entry.Keyword}, true
}

// Isolated is the terminal assignment.
func (m *Matcher) Isolated() Assignment {
	return Assignment{Country: m.opts.IsolatedLabel, Tier: Isolated}
}

// Assign runs the cascade for one province. The override tier sits between
// the two proximity passes.
func (m *Matcher) Assign(p boundaries.Province) Assignment {
	if a, ok := m.ByContainment(p); ok {
		return a
	}
	if a, ok := m.ByProximity(p, m.opts.NearbyRadiusKm, Nearby); ok {
		return a
	}
	if a, ok := m.ByOverride(p); ok {
		return a
	}
	if a, ok := m.ByProximity(p, m.opts.FallbackRadiusKm, Fallback); ok {
		return a
	}
	return m.Isolated()
}

// TagAll assigns every province in order, checking ctx between provinces.
func (m *Matcher) TagAll(ctx context.Context, provinces []boundaries.Province, logger *slog.Logger) ([]Tagged, Stats, error) {
	logger = logging.NewComponentLogger(logger, "tagging")
	tagged := make([]Tagged, 0, len(provinces))
	stats := make(Stats, len(Tiers))
	for _, p := range provinces {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		a := m.Assign(p)
		stats[a.Tier]++
		tagged = append(tagged, Tagged{Province: p, Assignment: a})
		if a.Tier != Containment {
			logger.Debug("province resolved outside containment",
				logging.Args(logging.DecisionAttrs(p.Name, a.Tier.String(), a.Country)...)...)
		}
	}
	return tagged, stats, nil
}
