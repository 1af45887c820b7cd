package topology

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

type gridPoint [2]int

// grid maps coordinates to integers inside the bounding box.
type grid struct {
	x0, y0 float64
	kx, ky float64
}

func newGrid(b orb.Bound, n int) grid {
	g := grid{x0: b.Min[0], y0: b.Min[1], kx: 1, ky: 1}
	if dx := b.Max[0] - b.Min[0]; dx > 0 {
		g.kx = dx / float64(n-1)
	}
	if dy := b.Max[1] - b.Min[1]; dy > 0 {
		g.ky = dy / float64(n-1)
	}
	return g
}

func (g grid) snap(p orb.Point) gridPoint {
	return gridPoint{int(math.Round((p[0] - g.x0) / g.kx)), int(math.Round((p[1] - g.y0) / g.ky))}
}

func (g grid) point(q gridPoint) orb.Point {
	return orb.Point{g.x0 + float64(q[0])*g.kx, g.y0 + float64(q[1])*g.ky}
}

// quantRing is a closed ring on the fine grid: first point equals last.
type quantRing []gridPoint

type builder struct {
	fine      grid
	junctions map[gridPoint]bool
	neighbors map[gridPoint][2]gridPoint
	arcs      [][]gridPoint
	arcIndex  map[string]int
}

// Build converts features into a topology holding one GeometryCollection
// named layer, with one geometry per feature in input order.
func Build(features []Feature, layer string, opts Options) (*Topology, error) {
	if opts.PreQuantize < 2 || opts.Quantize < 2 {
		return nil, errors.New("topology: quantization must be at least 2")
	}
	if opts.Quantize > opts.PreQuantize {
		return nil, errors.New("topology: output quantization exceeds prequantization")
	}
	if layer == "" {
		return nil, errors.New("topology: layer name required")
	}

	bound, ok := featureBound(features)
	topo := &Topology{
		Type:    "Topology",
		Objects: map[string]*GeometryCollection{},
		Arcs:    [][][2]int{},
	}
	if ok {
		topo.BBox = [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}
	}

	b := &builder{
		fine:      newGrid(bound, opts.PreQuantize),
		junctions: map[gridPoint]bool{},
		neighbors: map[gridPoint][2]gridPoint{},
		arcIndex:  map[string]int{},
	}

	quantized := make([][][]quantRing, len(features))
	for i, f := range features {
		quantized[i] = b.quantize(f.Geometry)
	}
	for _, polygons := range quantized {
		for _, rings := range polygons {
			for _, ring := range rings {
				b.markJunctions(ring)
			}
		}
	}

	geometries := make([]Geometry, len(features))
	for i, polygons := range quantized {
		refs := make([][][]int, 0, len(polygons))
		for _, rings := range polygons {
			polygonRefs := make([][]int, 0, len(rings))
			for _, ring := range rings {
				polygonRefs = append(polygonRefs, b.cut(ring))
			}
			refs = append(refs, polygonRefs)
		}
		geometries[i] = Geometry{Properties: features[i].Properties}
		switch len(refs) {
		case 0:
		case 1:
			geometries[i].Type = TypePolygon
			geometries[i].Arcs = refs[0]
		default:
			geometries[i].Type = TypeMultiPolygon
			geometries[i].Arcs = refs
		}
	}
	topo.Objects[layer] = &GeometryCollection{Type: "GeometryCollection", Geometries: geometries}

	coarse := newGrid(bound, opts.Quantize)
	topo.Transform = &Transform{
		Scale:     [2]float64{coarse.kx, coarse.ky},
		Translate: [2]float64{coarse.x0, coarse.y0},
	}
	for _, arc := range b.arcs {
		topo.Arcs = append(topo.Arcs, b.finish(arc, coarse, opts.SimplifyTolerance))
	}
	return topo, nil
}

func featureBound(features []Feature) (orb.Bound, bool) {
	var bound orb.Bound
	found := false
	for _, f := range features {
		for _, polygon := range f.Geometry {
			for _, ring := range polygon {
				if len(ring) == 0 {
					continue
				}
				rb := ring.Bound()
				if !found {
					bound, found = rb, true
					continue
				}
				bound = bound.Union(rb)
			}
		}
	}
	return bound, found
}

// quantize snaps a multipolygon to the fine grid. Rings that collapse to
// fewer than three distinct points are dropped, and a polygon whose shell
// collapses is dropped with its holes.
func (b *builder) quantize(mp orb.MultiPolygon) [][]quantRing {
	var out [][]quantRing
	for _, polygon := range mp {
		var rings []quantRing
		for i, ring := range polygon {
			q := b.quantizeRing(ring)
			if q == nil {
				if i == 0 {
					break
				}
				continue
			}
			rings = append(rings, q)
		}
		if len(rings) > 0 {
			out = append(out, rings)
		}
	}
	return out
}

func (b *builder) quantizeRing(ring orb.Ring) quantRing {
	q := make(quantRing, 0, len(ring)+1)
	for _, p := range ring {
		gp := b.fine.snap(p)
		if len(q) > 0 && q[len(q)-1] == gp {
			continue
		}
		q = append(q, gp)
	}
	if len(q) > 1 && q[0] == q[len(q)-1] {
		q = q[:len(q)-1]
	}
	if len(q) < 3 {
		return nil
	}
	return append(q, q[0])
}

// markJunctions flags points whose neighbours differ between visits. Seeing
// the same neighbours in reverse order is the same boundary walked the other
// way and is not a junction.
func (b *builder) markJunctions(ring quantRing) {
	n := len(ring) - 1
	for i := 0; i < n; i++ {
		p := ring[i]
		prev := ring[(i-1+n)%n]
		next := ring[(i+1)%n]
		seen, ok := b.neighbors[p]
		if !ok {
			b.neighbors[p] = [2]gridPoint{prev, next}
			continue
		}
		if (seen[0] == prev && seen[1] == next) || (seen[0] == next && seen[1] == prev) {
			continue
		}
		b.junctions[p] = true
	}
}

// cut splits a ring at its junctions and returns its arc references.
func (b *builder) cut(ring quantRing) []int {
	n := len(ring) - 1
	start := -1
	for i := 0; i < n; i++ {
		if b.junctions[ring[i]] {
			start = i
			break
		}
	}
	if start < 0 {
		return []int{b.intern(canonicalRing(ring))}
	}

	seq := make([]gridPoint, 0, n+1)
	seq = append(seq, ring[start:n]...)
	seq = append(seq, ring[:start]...)
	seq = append(seq, seq[0])

	var refs []int
	from := 0
	for k := 1; k <= n; k++ {
		if k == n || b.junctions[seq[k]] {
			refs = append(refs, b.intern(seq[from:k+1]))
			from = k
		}
	}
	return refs
}

// canonicalRing rotates a junction-free ring to start at its smallest point,
// so identical rings produce identical arcs whichever vertex they began on.
func canonicalRing(ring quantRing) []gridPoint {
	n := len(ring) - 1
	lowest := 0
	for i := 1; i < n; i++ {
		if less(ring[i], ring[lowest]) {
			lowest = i
		}
	}
	out := make([]gridPoint, 0, n+1)
	out = append(out, ring[lowest:n]...)
	out = append(out, ring[:lowest]...)
	return append(out, out[0])
}

func less(a, b gridPoint) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// intern returns the index of arc, reusing an existing arc walked in either
// direction. Reversed references are encoded as ^index.
func (b *builder) intern(arc []gridPoint) int {
	key := arcKey(arc, false)
	if idx, ok := b.arcIndex[key]; ok {
		return idx
	}
	if idx, ok := b.arcIndex[arcKey(arc, true)]; ok {
		return ^idx
	}
	idx := len(b.arcs)
	b.arcs = append(b.arcs, append([]gridPoint(nil), arc...))
	b.arcIndex[key] = idx
	return idx
}

func arcKey(arc []gridPoint, reverse bool) string {
	var sb strings.Builder
	sb.Grow(len(arc) * 16)
	buf := make([]byte, 0, 24)
	for i := range arc {
		p := arc[i]
		if reverse {
			p = arc[len(arc)-1-i]
		}
		buf = strconv.AppendInt(buf[:0], int64(p[0]), 36)
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, int64(p[1]), 36)
		buf = append(buf, ';')
		sb.Write(buf)
	}
	return sb.String()
}

// finish simplifies an arc in degrees, requantizes it to the output grid
// and delta-encodes it.
func (b *builder) finish(arc []gridPoint, coarse grid, tolerance float64) [][2]int {
	line := make(orb.LineString, len(arc))
	for i, q := range arc {
		line[i] = b.fine.point(q)
	}
	closed := len(arc) > 1 && arc[0] == arc[len(arc)-1]
	if tolerance > 0 && len(line) > 2 {
		simplified := simplify.DouglasPeucker(tolerance).LineString(line.Clone())
		if !closed || len(simplified) >= 4 {
			line = simplified
		}
	}

	points := make([]gridPoint, 0, len(line))
	for _, p := range line {
		q := coarse.snap(p)
		if len(points) > 0 && points[len(points)-1] == q {
			continue
		}
		points = append(points, q)
	}
	if len(points) == 1 {
		points = append(points, points[0])
	}

	encoded := make([][2]int, len(points))
	var last gridPoint
	for i, q := range points {
		encoded[i] = [2]int{q[0] - last[0], q[1] - last[1]}
		last = q
	}
	return encoded
}
