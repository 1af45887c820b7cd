package config

const (
	defaultAdmin0Zip         = "vector_data/ne_10m_admin_0_countries.zip"
	defaultAdmin1Zip         = "vector_data/ne_10m_admin_1_states_provinces.zip"
	defaultOverseasCSV       = "overseas_lookup.csv"
	defaultOutputDir         = "data_admin1"
	defaultGeoJSONName       = "admin1.tagged.geojson"
	defaultTopoJSONName      = "admin1.tagged.topo.json"
	defaultLayer             = "admin1"
	defaultReportName        = "admin1.report.db"
	defaultMinAreaKm2        = 1.0
	defaultMinPerimeterKm    = 0.5
	defaultMinVertexCount    = 20
	defaultNearbyRadiusKm    = 80.0
	defaultFallbackRadiusKm  = 500.0
	defaultIsolatedLabel     = "(isolated)"
	defaultSimplifyTolerance = 0.04 // ~4 km
	defaultPreQuantize       = 1_000_000
	defaultQuantize          = 50_000
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults. Input and
// output locations are left empty so environment fallbacks can apply during
// normalization.
func Default() Config {
	return Config{
		Output: Output{
			GeoJSONName:  defaultGeoJSONName,
			TopoJSONName: defaultTopoJSONName,
			Layer:        defaultLayer,
		},
		Slivers: Slivers{
			MinAreaKm2:     defaultMinAreaKm2,
			MinPerimeterKm: defaultMinPerimeterKm,
			MinVertexCount: defaultMinVertexCount,
		},
		Matching: Matching{
			NearbyRadiusKm:   defaultNearbyRadiusKm,
			FallbackRadiusKm: defaultFallbackRadiusKm,
			IsolatedLabel:    defaultIsolatedLabel,
		},
		Topology: Topology{
			SimplifyTolerance: defaultSimplifyTolerance,
			PreQuantize:       defaultPreQuantize,
			Quantize:          defaultQuantize,
		},
		Report: Report{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
