package tagging

import (
	"provmap/internal/boundaries"
	"provmap/internal/geo"
)

// SliverThresholds are the upper bounds below which a province counts as a
// sliver. All three must be undercut for the province to be dropped.
type SliverThresholds struct {
	MinAreaKm2     float64
	MinPerimeterKm float64
	MinVertexCount int
}

// IsSliver reports whether m falls below every threshold.
func IsSliver(m geo.Metrics, th SliverThresholds) bool {
	return m.AreaKm2 < th.MinAreaKm2 &&
		m.PerimeterKm < th.MinPerimeterKm &&
		m.Vertices < th.MinVertexCount
}

// FilterSlivers splits provinces into kept and dropped, preserving order.
func FilterSlivers(provinces []boundaries.Province, th SliverThresholds) (kept, dropped []boundaries.Province) {
	kept = make([]boundaries.Province, 0, len(provinces))
	for _, p := range provinces {
		if IsSliver(p.Metrics, th) {
			dropped = append(dropped, p)
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}
