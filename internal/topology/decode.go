package topology

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Decode rebuilds the features of one layer in geographic coordinates.
// Geometries with a null type come back with an empty multipolygon.
func Decode(topo *Topology, layer string) ([]Feature, error) {
	if topo == nil {
		return nil, fmt.Errorf("topology: nil topology")
	}
	collection, ok := topo.Objects[layer]
	if !ok || collection == nil {
		return nil, fmt.Errorf("topology: layer %q not found", layer)
	}
	arcs := decodeArcs(topo)

	features := make([]Feature, 0, len(collection.Geometries))
	for i, geometry := range collection.Geometries {
		var polygons [][][]int
		switch geometry.Type {
		case "":
		case TypePolygon:
			rings, err := ringRefs(geometry.Arcs)
			if err != nil {
				return nil, fmt.Errorf("topology: geometry %d: %w", i, err)
			}
			polygons = [][][]int{rings}
		case TypeMultiPolygon:
			multi, err := multiRefs(geometry.Arcs)
			if err != nil {
				return nil, fmt.Errorf("topology: geometry %d: %w", i, err)
			}
			polygons = multi
		default:
			return nil, fmt.Errorf("topology: geometry %d: unsupported type %q", i, geometry.Type)
		}

		mp := orb.MultiPolygon{}
		for _, rings := range polygons {
			polygon := make(orb.Polygon, 0, len(rings))
			for _, refs := range rings {
				ring, err := stitch(arcs, refs)
				if err != nil {
					return nil, fmt.Errorf("topology: geometry %d: %w", i, err)
				}
				polygon = append(polygon, ring)
			}
			mp = append(mp, polygon)
		}
		features = append(features, Feature{Geometry: mp, Properties: geometry.Properties})
	}
	return features, nil
}

func decodeArcs(topo *Topology) []orb.LineString {
	scale := [2]float64{1, 1}
	var translate [2]float64
	if topo.Transform != nil {
		scale, translate = topo.Transform.Scale, topo.Transform.Translate
	}
	out := make([]orb.LineString, len(topo.Arcs))
	for i, arc := range topo.Arcs {
		line := make(orb.LineString, len(arc))
		var x, y int
		for j, delta := range arc {
			if topo.Transform != nil {
				x += delta[0]
				y += delta[1]
			} else {
				x, y = delta[0], delta[1]
			}
			line[j] = orb.Point{float64(x)*scale[0] + translate[0], float64(y)*scale[1] + translate[1]}
		}
		out[i] = line
	}
	return out
}

// stitch joins arcs into one closed ring, dropping the shared first point of
// every arc after the first.
func stitch(arcs []orb.LineString, refs []int) (orb.Ring, error) {
	var ring orb.Ring
	for k, ref := range refs {
		idx := ref
		if ref < 0 {
			idx = ^ref
		}
		if idx >= len(arcs) {
			return nil, fmt.Errorf("arc %d out of range", ref)
		}
		arc := arcs[idx]
		if ref < 0 {
			arc = reversed(arc)
		}
		if k > 0 && len(arc) > 0 {
			arc = arc[1:]
		}
		ring = append(ring, arc...)
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

func reversed(line orb.LineString) orb.LineString {
	out := make(orb.LineString, len(line))
	for i, p := range line {
		out[len(line)-1-i] = p
	}
	return out
}

// ringRefs accepts the arcs of a Polygon either as built or as decoded from JSON.
func ringRefs(v any) ([][]int, error) {
	switch arcs := v.(type) {
	case [][]int:
		return arcs, nil
	case []any:
		out := make([][]int, len(arcs))
		for i, item := range arcs {
			refs, err := intRefs(item)
			if err != nil {
				return nil, err
			}
			out[i] = refs
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected polygon arcs %T", v)
	}
}

func multiRefs(v any) ([][][]int, error) {
	switch arcs := v.(type) {
	case [][][]int:
		return arcs, nil
	case []any:
		out := make([][][]int, len(arcs))
		for i, item := range arcs {
			rings, err := ringRefs(item)
			if err != nil {
				return nil, err
			}
			out[i] = rings
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected multipolygon arcs %T", v)
	}
}

func intRefs(v any) ([]int, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected ring arcs %T", v)
	}
	out := make([]int, len(items))
	for i, item := range items {
		n, ok := item.(float64)
		if !ok || n != float64(int(n)) {
			return nil, fmt.Errorf("invalid arc reference %v", item)
		}
		out[i] = int(n)
	}
	return out, nil
}
