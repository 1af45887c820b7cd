package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/paulmach/orb/geojson"

	"provmap/internal/fileutil"
	"provmap/internal/logging"
	"provmap/internal/tagging"
	"provmap/internal/topology"
)

const (
	// PropertyName holds the province name.
	PropertyName = "name"
	// PropertyCountry holds the assigned country.
	PropertyCountry = "admin0"
)

const fileMode = 0o644

// Options selects output paths and the TopoJSON settings.
type Options struct {
	GeoJSONPath  string
	TopoJSONPath string
	Layer        string
	Topology     topology.Options
}

// Result describes the written assets.
type Result struct {
	Features      int
	Arcs          int
	GeoJSONPath   string
	GeoJSONBytes  int64
	TopoJSONPath  string
	TopoJSONBytes int64
}

// Write emits the GeoJSON file and then the TopoJSON file.
func Write(ctx context.Context, tagged []tagging.Tagged, opts Options, logger *slog.Logger) (*Result, error) {
	logger = logging.NewComponentLogger(logger, "export")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := WriteGeoJSON(opts.GeoJSONPath, tagged); err != nil {
		return nil, err
	}
	geoSize, err := fileSize(opts.GeoJSONPath)
	if err != nil {
		return nil, err
	}
	logger.Info("geojson written",
		logging.String(logging.FieldPath, opts.GeoJSONPath),
		logging.Int("features", len(tagged)),
		logging.Int64("bytes", geoSize),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	topo, err := WriteTopoJSON(opts.TopoJSONPath, tagged, opts.Layer, opts.Topology)
	if err != nil {
		return nil, err
	}
	topoSize, err := fileSize(opts.TopoJSONPath)
	if err != nil {
		return nil, err
	}
	logger.Info("topojson written",
		logging.String(logging.FieldPath, opts.TopoJSONPath),
		logging.String("layer", opts.Layer),
		logging.Int("arcs", len(topo.Arcs)),
		logging.Int64("bytes", topoSize),
	)

	return &Result{
		Features:      len(tagged),
		Arcs:          len(topo.Arcs),
		GeoJSONPath:   opts.GeoJSONPath,
		GeoJSONBytes:  geoSize,
		TopoJSONPath:  opts.TopoJSONPath,
		TopoJSONBytes: topoSize,
	}, nil
}

// FeatureCollection converts tagged provinces to GeoJSON features at full precision.
func FeatureCollection(tagged []tagging.Tagged) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, t := range tagged {
		feature := geojson.NewFeature(t.Province.Geometry)
		feature.Properties = properties(t)
		fc.Append(feature)
	}
	return fc
}

// WriteGeoJSON writes tagged provinces to path.
func WriteGeoJSON(path string, tagged []tagging.Tagged) error {
	data, err := json.Marshal(FeatureCollection(tagged))
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return fileutil.WriteAtomic(path, fileMode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Features converts tagged provinces to topology input.
func Features(tagged []tagging.Tagged) []topology.Feature {
	features := make([]topology.Feature, len(tagged))
	for i, t := range tagged {
		features[i] = topology.Feature{Geometry: t.Province.Geometry, Properties: properties(t)}
	}
	return features
}

// WriteTopoJSON builds the topology for tagged provinces under layer and writes it to path.
func WriteTopoJSON(path string, tagged []tagging.Tagged, layer string, opts topology.Options) (*topology.Topology, error) {
	topo, err := topology.Build(Features(tagged), layer, opts)
	if err != nil {
		return nil, fmt.Errorf("build topology: %w", err)
	}
	if err := fileutil.WriteAtomic(path, fileMode, func(w io.Writer) error {
		return topology.Encode(w, topo)
	}); err != nil {
		return nil, err
	}
	return topo, nil
}

func properties(t tagging.Tagged) geojson.Properties {
	return geojson.Properties{
		PropertyName:    t.Province.Name,
		PropertyCountry: t.Assignment.Country,
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
