package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"provmap/internal/boundaries"
	"provmap/internal/config"
	"provmap/internal/export"
	"provmap/internal/logging"
	"provmap/internal/overrides"
	"provmap/internal/report"
	"provmap/internal/tagging"
	"provmap/internal/topology"
)

// ErrLocked is returned when another build holds the output lock.
var ErrLocked = errors.New("another provmap build is writing to the output directory")

// Stage names as they appear in logs.
const (
	StageLoadCountries = "load-countries"
	StageLoadProvinces = "load-provinces"
	StageSlivers       = "slivers"
	StageOverrides     = "overrides"
	StageTag           = "tag"
	StageExport        = "export"
	StageReport        = "report"
)

// Summary describes a finished build.
type Summary struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Countries      int
	ProvincesRead  int
	SliversDropped int
	Overrides      int
	Tiers          tagging.Stats
	Export         *export.Result
	// ReportPath is empty when the report is disabled.
	ReportPath string
}

// Provinces is the number of provinces written to the outputs.
func (s *Summary) Provinces() int {
	return s.ProvincesRead - s.SliversDropped
}

type runner struct {
	cfg    *config.Config
	ctx    context.Context
	logger *slog.Logger

	countries []boundaries.Country
	provinces []boundaries.Province
	slivers   []boundaries.Province
	table     *overrides.Table
	tagged    []tagging.Tagged
	summary   *Summary
}

// Run executes one build with cfg. A nil logger discards output.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Summary, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release build lock", logging.Error(err))
		}
	}()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	r := &runner{
		cfg:     cfg,
		ctx:     ctx,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		summary: &Summary{RunID: runID, StartedAt: time.Now()},
	}
	logging.WithContext(ctx, r.logger).Info("build started",
		logging.String("admin0", cfg.Inputs.Admin0Zip),
		logging.String("admin1", cfg.Inputs.Admin1Zip),
		logging.String("output_dir", cfg.Output.Dir),
	)

	stages := []struct {
		name string
		fn   func(context.Context, *slog.Logger) error
	}{
		{StageLoadCountries, r.loadCountries},
		{StageLoadProvinces, r.loadProvinces},
		{StageSlivers, r.filterSlivers},
		{StageOverrides, r.loadOverrides},
		{StageTag, r.tag},
		{StageExport, r.export},
		{StageReport, r.record},
	}
	for _, stage := range stages {
		if err := r.run(stage.name, stage.fn); err != nil {
			return nil, err
		}
	}

	logging.WithContext(ctx, r.logger).Info("build finished",
		logging.Int("provinces", r.summary.Provinces()),
		logging.Int("isolated", r.summary.Tiers[tagging.Isolated]),
		logging.Duration("elapsed", r.summary.FinishedAt.Sub(r.summary.StartedAt)),
	)
	return r.summary, nil
}

func (r *runner) run(name string, fn func(context.Context, *slog.Logger) error) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	ctx := logging.WithStage(r.ctx, name)
	stageLogger := logging.WithContext(ctx, r.logger)
	start := time.Now()
	stageLogger.Debug("stage started")
	if err := fn(ctx, stageLogger); err != nil {
		if !errors.Is(err, context.Canceled) {
			stageLogger.Error("stage failed", logging.Error(err))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	stageLogger.Debug("stage finished", logging.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *runner) loadCountries(ctx context.Context, logger *slog.Logger) error {
	countries, err := boundaries.LoadCountries(ctx, r.cfg.Inputs.Admin0Zip, boundaries.Options{
		NameField: r.cfg.Inputs.CountryNameField,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	r.countries = countries
	r.summary.Countries = len(countries)
	return nil
}

func (r *runner) loadProvinces(ctx context.Context, logger *slog.Logger) error {
	provinces, err := boundaries.LoadProvinces(ctx, r.cfg.Inputs.Admin1Zip, boundaries.Options{
		NameField: r.cfg.Inputs.ProvinceNameField,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	r.provinces = provinces
	r.summary.ProvincesRead = len(provinces)
	return nil
}

func (r *runner) filterSlivers(_ context.Context, logger *slog.Logger) error {
	kept, dropped := tagging.FilterSlivers(r.provinces, tagging.SliverThresholds{
		MinAreaKm2:     r.cfg.Slivers.MinAreaKm2,
		MinPerimeterKm: r.cfg.Slivers.MinPerimeterKm,
		MinVertexCount: r.cfg.Slivers.MinVertexCount,
	})
	for _, p := range dropped {
		logger.Debug("sliver dropped",
			logging.String(logging.FieldProvince, p.Name),
			logging.Float64("area_km2", p.Metrics.AreaKm2),
			logging.Float64("perimeter_km", p.Metrics.PerimeterKm),
			logging.Int("vertices", p.Metrics.Vertices),
		)
	}
	logger.Info("slivers filtered", logging.Int("kept", len(kept)), logging.Int("dropped", len(dropped)))
	r.provinces = kept
	r.slivers = dropped
	r.summary.SliversDropped = len(dropped)
	return nil
}

func (r *runner) loadOverrides(_ context.Context, logger *slog.Logger) error {
	table, err := overrides.Load(r.cfg.Inputs.OverseasCSV, logger)
	if err != nil {
		return err
	}
	r.table = table
	r.summary.Overrides = table.Len()
	return nil
}

func (r *runner) tag(ctx context.Context, logger *slog.Logger) error {
	matcher := tagging.NewMatcher(r.countries, r.table, tagging.Options{
		NearbyRadiusKm:   r.cfg.Matching.NearbyRadiusKm,
		FallbackRadiusKm: r.cfg.Matching.FallbackRadiusKm,
		IsolatedLabel:    r.cfg.Matching.IsolatedLabel,
	})
	tagged, stats, err := matcher.TagAll(ctx, r.provinces, logger)
	if err != nil {
		return err
	}
	attrs := make([]logging.Attr, 0, len(tagging.Tiers))
	for _, tier := range tagging.Tiers {
		attrs = append(attrs, logging.Int(tier.String(), stats[tier]))
	}
	logger.Info("provinces tagged", logging.Args(attrs...)...)
	r.tagged = tagged
	r.summary.Tiers = stats
	return nil
}

func (r *runner) export(ctx context.Context, logger *slog.Logger) error {
	result, err := export.Write(ctx, r.tagged, export.Options{
		GeoJSONPath:  r.cfg.GeoJSONPath(),
		TopoJSONPath: r.cfg.TopoJSONPath(),
		Layer:        r.cfg.Output.Layer,
		Topology: topology.Options{
			PreQuantize:       r.cfg.Topology.PreQuantize,
			Quantize:          r.cfg.Topology.Quantize,
			SimplifyTolerance: r.cfg.Topology.SimplifyTolerance,
		},
	}, logger)
	if err != nil {
		return err
	}
	r.summary.Export = result
	r.summary.FinishedAt = time.Now()
	return nil
}

func (r *runner) record(ctx context.Context, logger *slog.Logger) error {
	if !r.cfg.Report.Enabled {
		logger.Debug("report disabled")
		return nil
	}
	store, err := report.Open(r.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	s := r.summary
	run := report.Run{
		ID:            s.RunID,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		Admin0Zip:     r.cfg.Inputs.Admin0Zip,
		Admin1Zip:     r.cfg.Inputs.Admin1Zip,
		OverseasCSV:   r.table.Path,
		Countries:     s.Countries,
		ProvincesRead: s.ProvincesRead,
		Overrides:     s.Overrides,
		GeoJSONPath:   s.Export.GeoJSONPath,
		GeoJSONBytes:  s.Export.GeoJSONBytes,
		TopoJSONPath:  s.Export.TopoJSONPath,
		TopoJSONBytes: s.Export.TopoJSONBytes,
		Arcs:          s.Export.Arcs,
	}
	if err := store.RecordRun(ctx, run, r.tagged, r.slivers); err != nil {
		return err
	}
	s.ReportPath = store.Path()
	logger.Info("run recorded", logging.String(logging.FieldPath, store.Path()))
	return nil
}
