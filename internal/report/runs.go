package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"provmap/internal/boundaries"
	"provmap/internal/tagging"
)

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("run not found")

// Run summarises one pipeline execution.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Admin0Zip     string
	Admin1Zip     string
	OverseasCSV   string
	Countries     int
	ProvincesRead int
	Overrides     int
	GeoJSONPath   string
	GeoJSONBytes  int64
	TopoJSONPath  string
	TopoJSONBytes int64
	Arcs          int
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Province is one stored assignment.
type Province struct {
	Seq         int
	Name        string
	Country     string
	Tier        tagging.Tier
	DistanceKm  float64
	Keyword     string
	AreaKm2     float64
	PerimeterKm float64
	Vertices    int
}

// TierCount is the number of provinces a tier resolved in a run.
type TierCount struct {
	Tier  tagging.Tier
	Count int
}

const runColumns = "id, started_at, finished_at, admin0_zip, admin1_zip, overseas_csv, countries, provinces_read, overrides, geojson_path, geojson_bytes, topojson_path, topojson_bytes, arcs"

// RecordRun stores a run with its tagged provinces and dropped slivers in
// one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, tagged []tagging.Tagged, slivers []boundaries.Province) error {
	if run.ID == "" {
		return errors.New("record run: id is required")
	}
	return retryOnBusy(ctx, func() error {
		return s.recordRun(ctx, run, tagged, slivers)
	})
}

func (s *Store) recordRun(ctx context.Context, run Run, tagged []tagging.Tagged, slivers []boundaries.Province) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Admin0Zip,
		run.Admin1Zip,
		nullableString(run.OverseasCSV),
		run.Countries,
		run.ProvincesRead,
		run.Overrides,
		nullableString(run.GeoJSONPath),
		run.GeoJSONBytes,
		nullableString(run.TopoJSONPath),
		run.TopoJSONBytes,
		run.Arcs,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	provinceStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO provinces (run_id, seq, name, admin0, tier, distance_km, keyword, area_km2, perimeter_km, vertices)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare province insert: %w", err)
	}
	defer provinceStmt.Close()
	for i, t := range tagged {
		a := t.Assignment
		var distance any
		if a.Tier == tagging.Nearby || a.Tier == tagging.Fallback {
			distance = a.DistanceKm
		}
		m := t.Province.Metrics
		if _, err := provinceStmt.ExecContext(ctx,
			run.ID, i, t.Province.Name, a.Country, a.Tier.String(), distance, nullableString(a.Keyword),
			m.AreaKm2, m.PerimeterKm, m.Vertices,
		); err != nil {
			return fmt.Errorf("insert province %q: %w", t.Province.Name, err)
		}
	}

	sliverStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO slivers (run_id, seq, name, area_km2, perimeter_km, vertices) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sliver insert: %w", err)
	}
	defer sliverStmt.Close()
	for i, p := range slivers {
		if _, err := sliverStmt.ExecContext(ctx,
			run.ID, i, p.Name, p.Metrics.AreaKm2, p.Metrics.PerimeterKm, p.Metrics.Vertices,
		); err != nil {
			return fmt.Errorf("insert sliver %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// TierCounts returns how many provinces each tier resolved in a run, in
// cascade order. Tiers that resolved nothing are reported with zero.
func (s *Store) TierCounts(ctx context.Context, runID string) ([]TierCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tier, COUNT(1) FROM provinces WHERE run_id = ? GROUP BY tier`, runID)
	if err != nil {
		return nil, fmt.Errorf("tier counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[tagging.Tier]int, len(tagging.Tiers))
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		tier, err := tagging.ParseTier(name)
		if err != nil {
			return nil, err
		}
		counts[tier] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]TierCount, 0, len(tagging.Tiers))
	for _, tier := range tagging.Tiers {
		out = append(out, TierCount{Tier: tier, Count: counts[tier]})
	}
	return out, nil
}

// ProvincesByTier returns the provinces a tier resolved in a run, in
// processing order.
func (s *Store) ProvincesByTier(ctx context.Context, runID string, tier tagging.Tier) ([]Province, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, name, admin0, tier, distance_km, keyword, area_km2, perimeter_km, vertices
		 FROM provinces WHERE run_id = ? AND tier = ? ORDER BY seq`, runID, tier.String())
	if err != nil {
		return nil, fmt.Errorf("provinces by tier: %w", err)
	}
	defer rows.Close()

	var out []Province
	for rows.Next() {
		var (
			p        Province
			tierName string
			distance sql.NullFloat64
			keyword  sql.NullString
		)
		if err := rows.Scan(&p.Seq, &p.Name, &p.Country, &tierName, &distance, &keyword, &p.AreaKm2, &p.PerimeterKm, &p.Vertices); err != nil {
			return nil, fmt.Errorf("scan province: %w", err)
		}
		if p.Tier, err = tagging.ParseTier(tierName); err != nil {
			return nil, err
		}
		p.DistanceKm = distance.Float64
		p.Keyword = keyword.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// SliverCount returns how many slivers a run dropped.
func (s *Store) SliverCount(ctx context.Context, runID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM slivers WHERE run_id = ?`, runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count slivers: %w", err)
	}
	return count, nil
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	var removed int
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin prune tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		const stale = `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT -1 OFFSET ?`
		for _, table := range []string{"provinces", "slivers"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id IN (`+stale+`)`, keep); err != nil {
				return fmt.Errorf("prune %s: %w", table, err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
		if err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
		removed = int(affected)
		return tx.Commit()
	})
	return removed, err
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		startedRaw   string
		finishedRaw  string
		overseas     sql.NullString
		geojsonPath  sql.NullString
		topojsonPath sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&run.Admin0Zip,
		&run.Admin1Zip,
		&overseas,
		&run.Countries,
		&run.ProvincesRead,
		&run.Overrides,
		&geojsonPath,
		&run.GeoJSONBytes,
		&topojsonPath,
		&run.TopoJSONBytes,
		&run.Arcs,
	); err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	run.OverseasCSV = overseas.String
	run.GeoJSONPath = geojsonPath.String
	run.TopoJSONPath = topojsonPath.String
	return &run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
