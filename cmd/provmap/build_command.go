package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"provmap/internal/config"
	"provmap/internal/pipeline"
	"provmap/internal/tagging"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var overrides config.Overrides

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Tag provinces and write GeoJSON and TopoJSON outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Apply(overrides); err != nil {
				return fmt.Errorf("apply flags: %w", err)
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			summary, err := pipeline.Run(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printBuildSummary(out, summary, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&overrides.Admin0Zip, "admin0", "", "Admin-0 countries shapefile zip")
	cmd.Flags().StringVar(&overrides.Admin1Zip, "admin1", "", "Admin-1 provinces shapefile zip")
	cmd.Flags().StringVar(&overrides.OverseasCSV, "overseas", "", "Overseas override CSV (island_name,admin0)")
	cmd.Flags().StringVar(&overrides.OutputDir, "out", "", "Output directory")
	return cmd
}

func printBuildSummary(out io.Writer, s *pipeline.Summary, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Build "+s.RunID, colorize))
	fmt.Fprintln(out, renderTable(tableSpec{
		Title:   "Inputs",
		Headers: []string{"Item", "Count"},
		Aligns:  []columnAlignment{alignLeft, alignRight},
		Rows: [][]string{
			{"Countries", formatCount(s.Countries)},
			{"Provinces read", formatCount(s.ProvincesRead)},
			{"Slivers dropped", formatCount(s.SliversDropped)},
			{"Override keywords", formatCount(s.Overrides)},
		},
	}, colorize))

	rows := make([][]string, 0, len(tagging.Tiers))
	for _, tier := range tagging.Tiers {
		count := formatCount(s.Tiers[tier])
		if tier == tagging.Isolated && s.Tiers[tier] > 0 {
			count = paint(count, ansiYellow, colorize)
		}
		rows = append(rows, []string{tier.String(), count})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		Title:   "Assignments",
		Headers: []string{"Tier", "Provinces"},
		Aligns:  []columnAlignment{alignLeft, alignRight},
		Rows:    rows,
		Footer:  []string{"total", formatCount(s.Provinces())},
	}, colorize))

	if s.Export != nil {
		fmt.Fprintln(out, renderTable(tableSpec{
			Title:   "Outputs",
			Headers: []string{"File", "Size"},
			Aligns:  []columnAlignment{alignLeft, alignRight},
			Rows: [][]string{
				{s.Export.GeoJSONPath, formatBytes(s.Export.GeoJSONBytes)},
				{s.Export.TopoJSONPath, formatBytes(s.Export.TopoJSONBytes)},
			},
		}, colorize))
	}
	if s.ReportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", s.ReportPath)
	}
	elapsed := s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)
	fmt.Fprintln(out, paint(fmt.Sprintf("Done in %s", elapsed), ansiGreen, colorize))
}
