package topology

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
)

// Feature is one input or decoded polygon feature.
type Feature struct {
	Geometry   orb.MultiPolygon
	Properties map[string]any
}

// Options control quantization and simplification.
type Options struct {
	// PreQuantize is the grid used to detect shared boundaries.
	PreQuantize int
	// Quantize is the output grid.
	Quantize int
	// SimplifyTolerance is the Douglas-Peucker threshold in degrees. Zero disables simplification.
	SimplifyTolerance float64
}

// Topology is the TopoJSON document.
type Topology struct {
	Type      string                         `json:"type"`
	BBox      [4]float64                     `json:"bbox"`
	Transform *Transform                     `json:"transform,omitempty"`
	Objects   map[string]*GeometryCollection `json:"objects"`
	Arcs      [][][2]int                     `json:"arcs"`
}

// Transform maps quantized integers back to coordinates.
type Transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// GeometryCollection is a named layer.
type GeometryCollection struct {
	Type       string     `json:"type"`
	Geometries []Geometry `json:"geometries"`
}

// Geometry is a single feature. Arcs holds [][]int for a Polygon and
// [][][]int for a MultiPolygon; an empty geometry has a null type and no arcs.
type Geometry struct {
	Type       GeometryType   `json:"type"`
	Arcs       any            `json:"arcs,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GeometryType is a TopoJSON geometry type; the empty value encodes as null.
type GeometryType string

const (
	TypePolygon      GeometryType = "Polygon"
	TypeMultiPolygon GeometryType = "MultiPolygon"
)

func (t GeometryType) MarshalJSON() ([]byte, error) {
	if t == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t *GeometryType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = GeometryType(s)
	return nil
}

// Encode writes topo as compact JSON.
func Encode(w io.Writer, topo *Topology) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(topo); err != nil {
		return fmt.Errorf("encode topology: %w", err)
	}
	return nil
}

// Parse reads a TopoJSON document.
func Parse(r io.Reader) (*Topology, error) {
	var topo Topology
	if err := json.NewDecoder(r).Decode(&topo); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	if topo.Type != "Topology" {
		return nil, fmt.Errorf("decode topology: unexpected type %q", topo.Type)
	}
	return &topo, nil
}
