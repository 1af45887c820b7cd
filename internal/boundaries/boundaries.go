package boundaries

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"provmap/internal/archive"
	"provmap/internal/geo"
	"provmap/internal/logging"
	"provmap/internal/shapefile"
)

// UnknownCountry names countries whose layer has no usable name column.
const UnknownCountry = "(unknown)"

// Country is one admin-0 polygon set.
type Country struct {
	Name     string
	Geometry orb.MultiPolygon
	// Metric is Geometry in Web Mercator.
	Metric orb.MultiPolygon
}

// Province is one admin-1 record with its derived measurements.
type Province struct {
	Index    int
	Name     string
	Geometry orb.MultiPolygon
	Metric   orb.MultiPolygon
	Metrics  geo.Metrics
}

// Options tune a loader.
type Options struct {
	// NameField forces a specific attribute column; empty means auto-detect.
	NameField string
	Logger    *slog.Logger
}

func (o Options) logger() *slog.Logger {
	return logging.NewComponentLogger(o.Logger, "boundaries")
}

// LoadCountries reads the admin-0 archive. Names come from the configured
// field or the first column starting with "name"; without either every
// country is named UnknownCountry.
func LoadCountries(ctx context.Context, zipPath string, opts Options) ([]Country, error) {
	logger := opts.logger()
	layer, err := readArchive(ctx, zipPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load countries: %w", err)
	}

	field, ok, err := resolveField(layer, opts.NameField, "name")
	if err != nil {
		return nil, fmt.Errorf("load countries: %w", err)
	}
	if !ok {
		logger.Warn("admin-0 layer has no name column",
			logging.String(logging.FieldPath, zipPath),
			logging.String("fallback", UnknownCountry))
	}

	countries := make([]Country, 0, len(layer.Records))
	for _, record := range layer.Records {
		name := UnknownCountry
		if ok {
			if value := record.Value(field); value != "" {
				name = value
			}
		}
		countries = append(countries, Country{
			Name:     name,
			Geometry: record.Geometry,
			Metric:   geo.ToMetric(record.Geometry),
		})
	}
	logger.Info("countries loaded",
		logging.String(logging.FieldPath, zipPath),
		logging.Int("count", len(countries)),
		logging.String("name_field", field))
	return countries, nil
}

// LoadProvinces reads the admin-1 archive. Names come from the configured
// field, else the first column starting with "name_1", else with "name",
// else the record index.
func LoadProvinces(ctx context.Context, zipPath string, opts Options) ([]Province, error) {
	logger := opts.logger()
	layer, err := readArchive(ctx, zipPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load provinces: %w", err)
	}

	field, ok, err := resolveField(layer, opts.NameField, "name_1", "name")
	if err != nil {
		return nil, fmt.Errorf("load provinces: %w", err)
	}
	if !ok {
		logger.Warn("admin-1 layer has no name column, using record index",
			logging.String(logging.FieldPath, zipPath))
	}

	provinces := make([]Province, 0, len(layer.Records))
	for _, record := range layer.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := strconv.Itoa(record.Index)
		if ok {
			name = record.Value(field)
		}
		metric := geo.ToMetric(record.Geometry)
		provinces = append(provinces, Province{
			Index:    record.Index,
			Name:     name,
			Geometry: record.Geometry,
			Metric:   metric,
			Metrics:  geo.Measure(metric),
		})
	}
	logger.Info("provinces loaded",
		logging.String(logging.FieldPath, zipPath),
		logging.Int("count", len(provinces)),
		logging.String("name_field", field))
	return provinces, nil
}

func readArchive(ctx context.Context, zipPath string, logger *slog.Logger) (*shapefile.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bundle, err := archive.Extract(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := bundle.Remove(); err != nil {
			logger.Warn("failed to remove extraction dir", logging.Error(err))
		}
	}()

	layer, err := shapefile.Read(bundle.Shapefile)
	if err != nil {
		return nil, err
	}
	for _, warning := range layer.Warnings {
		logger.Warn(warning, logging.String(logging.FieldPath, zipPath))
	}
	logger.Debug("shapefile read",
		logging.String(logging.FieldPath, zipPath),
		logging.String("crs", layer.CRS.String()),
		logging.String("encoding", layer.Encoding),
		logging.Int("records", len(layer.Records)))
	return layer, nil
}

func resolveField(layer *shapefile.Layer, configured string, prefixes ...string) (string, bool, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		field, ok := layer.LookupField(configured)
		if !ok {
			return "", false, fmt.Errorf("name field %q not present (fields: %s)", configured, strings.Join(layer.Fields, ", "))
		}
		return field, true, nil
	}
	field, ok := layer.NameField(prefixes...)
	return field, ok, nil
}
