package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"provmap/internal/report"
	"provmap/internal/tagging"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var prune int
	var tierName string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show tier counts and unresolved provinces from recorded builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tier := tagging.Isolated
			if strings.TrimSpace(tierName) != "" {
				if tier, err = tagging.ParseTier(tierName); err != nil {
					return err
				}
			}

			store, err := report.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("prune") {
				removed, err := store.Prune(cmd.Context(), prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d run(s), kept the newest %d\n", removed, prune)
				return nil
			}

			var run *report.Run
			if strings.TrimSpace(runID) != "" {
				run, err = store.GetRun(cmd.Context(), strings.TrimSpace(runID))
			} else {
				run, err = store.LatestRun(cmd.Context())
			}
			if errors.Is(err, report.ErrRunNotFound) && strings.TrimSpace(runID) == "" {
				fmt.Fprintf(out, "No builds recorded in %s\n", store.Path())
				return nil
			}
			if err != nil {
				return err
			}

			counts, err := store.TierCounts(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			provinces, err := store.ProvincesByTier(cmd.Context(), run.ID, tier)
			if err != nil {
				return err
			}
			slivers, err := store.SliverCount(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			printReport(out, run, counts, slivers, tier, provinces, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id to show (defaults to the latest build)")
	cmd.Flags().StringVar(&tierName, "tier", "", "List provinces resolved by this tier (defaults to isolated)")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete all but the newest N runs")
	return cmd
}

func printReport(out io.Writer, run *report.Run, counts []report.TierCount, slivers int, tier tagging.Tier, provinces []report.Province, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Run "+run.ID, colorize))
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Duration: %s\n", run.Duration())
	fmt.Fprintf(out, "Inputs:   %s, %s\n", run.Admin0Zip, run.Admin1Zip)
	fmt.Fprintf(out, "Slivers:  %s dropped\n", formatCount(slivers))

	rows := make([][]string, 0, len(counts))
	total := 0
	for _, c := range counts {
		rows = append(rows, []string{c.Tier.String(), formatCount(c.Count)})
		total += c.Count
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		Title:   "Assignments",
		Headers: []string{"Tier", "Provinces"},
		Aligns:  []columnAlignment{alignLeft, alignRight},
		Rows:    rows,
		Footer:  []string{"total", formatCount(total)},
	}, colorize))

	if len(provinces) == 0 {
		fmt.Fprintln(out, paint(fmt.Sprintf("No %s provinces", tier), ansiGreen, colorize))
		return
	}
	provinceRows := make([][]string, 0, len(provinces))
	for _, p := range provinces {
		detail := ""
		switch {
		case p.Keyword != "":
			detail = "keyword " + p.Keyword
		case p.Tier == tagging.Nearby || p.Tier == tagging.Fallback:
			detail = fmt.Sprintf("%.1f km", p.DistanceKm)
		}
		provinceRows = append(provinceRows, []string{
			p.Name,
			p.Country,
			detail,
			fmt.Sprintf("%.2f", p.AreaKm2),
		})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		Title:   cases.Title(language.English).String(tier.String()) + " provinces",
		Headers: []string{"Province", "admin0", "Detail", "Area km²"},
		Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		Rows:    provinceRows,
	}, colorize))
}
