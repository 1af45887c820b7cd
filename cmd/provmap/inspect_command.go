package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"provmap/internal/export"
	"provmap/internal/topology"
)

// inventory summarises one layer of an output file.
type inventory struct {
	Kind      string
	Layer     string
	Features  int
	Empty     int
	Arcs      int
	Countries map[string]int
}

func newInspectCommand() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:         "inspect <file.geojson|file.topo.json>",
		Short:       "Show feature counts and provinces per country for an output file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			inventories, err := inspectFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, inv := range inventories {
				printInventory(out, inv, top, colorize)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "Only list the N countries with the most provinces (0 lists all)")
	return cmd
}

func inspectFile(path string) ([]inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		inv := inventory{Kind: "GeoJSON", Countries: map[string]int{}}
		for _, f := range fc.Features {
			inv.Features++
			if mp, ok := f.Geometry.(orb.MultiPolygon); ok && len(mp) == 0 {
				inv.Empty++
			}
			country, _ := f.Properties[export.PropertyCountry].(string)
			inv.Countries[country]++
		}
		return []inventory{inv}, nil
	case "Topology":
		topo, err := topology.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		layers := make([]string, 0, len(topo.Objects))
		for name := range topo.Objects {
			layers = append(layers, name)
		}
		sort.Strings(layers)
		out := make([]inventory, 0, len(layers))
		for _, layer := range layers {
			features, err := topology.Decode(topo, layer)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			inv := inventory{Kind: "TopoJSON", Layer: layer, Arcs: len(topo.Arcs), Countries: map[string]int{}}
			for _, f := range features {
				inv.Features++
				if len(f.Geometry) == 0 {
					inv.Empty++
				}
				country, _ := f.Properties[export.PropertyCountry].(string)
				inv.Countries[country]++
			}
			out = append(out, inv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: unsupported document type %q", path, probe.Type)
	}
}

type countryCount struct {
	name  string
	count int
}

func sortedCountries(counts map[string]int) []countryCount {
	out := make([]countryCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, countryCount{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func printInventory(out io.Writer, inv inventory, top int, colorize bool) {
	title := inv.Kind
	if inv.Layer != "" {
		title += " layer " + inv.Layer
	}
	fmt.Fprintln(out, renderSectionHeader(title, colorize))

	rows := [][]string{
		{"Features", formatCount(inv.Features)},
		{"Empty geometries", formatCount(inv.Empty)},
		{"Countries", formatCount(len(inv.Countries))},
	}
	if inv.Kind == "TopoJSON" {
		rows = append(rows, []string{"Arcs", formatCount(inv.Arcs)})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		Headers: []string{"Item", "Count"},
		Aligns:  []columnAlignment{alignLeft, alignRight},
		Rows:    rows,
	}, colorize))

	countries := sortedCountries(inv.Countries)
	if top > 0 && top < len(countries) {
		countries = countries[:top]
	}
	countryRows := make([][]string, 0, len(countries))
	for _, c := range countries {
		name := c.name
		if name == "" {
			name = "(none)"
		}
		countryRows = append(countryRows, []string{name, formatCount(c.count)})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		Title:   "Provinces per country",
		Headers: []string{"admin0", "Provinces"},
		Aligns:  []columnAlignment{alignLeft, alignRight},
		Rows:    countryRows,
	}, colorize))
}
