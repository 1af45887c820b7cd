package shapefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// ErrEmptyLayer is returned when a shapefile holds no records.
var ErrEmptyLayer = errors.New("shapefile has no records")

// Record is one feature: its position in the file, its attributes and its
// geometry in geographic coordinates. Null shapes carry an empty geometry.
type Record struct {
	Index      int
	Attributes map[string]string
	Geometry   orb.MultiPolygon
}

// Value returns the attribute stored under field, or "" when absent.
func (r Record) Value(field string) string {
	if r.Attributes == nil {
		return ""
	}
	return r.Attributes[field]
}

// Layer is the decoded content of one shapefile.
type Layer struct {
	Path     string
	Fields   []string
	CRS      CRS
	Encoding string
	Records  []Record
	// Warnings collects non-fatal problems found while reading.
	Warnings []string
}

// NameField returns the first attribute field whose lower-cased name starts
// with one of prefixes. Prefixes are tried in order, fields in file order.
func (l *Layer) NameField(prefixes ...string) (string, bool) {
	for _, prefix := range prefixes {
		prefix = strings.ToLower(prefix)
		for _, field := range l.Fields {
			if strings.HasPrefix(strings.ToLower(field), prefix) {
				return field, true
			}
		}
	}
	return "", false
}

// LookupField returns the layer's spelling of the named attribute, ignoring case.
func (l *Layer) LookupField(name string) (string, bool) {
	for _, field := range l.Fields {
		if strings.EqualFold(field, name) {
			return field, true
		}
	}
	return "", false
}

// Read loads a polygon shapefile and its sidecars.
func Read(path string) (*Layer, error) {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		return nil, fmt.Errorf("%s: not a .shp file", path)
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	crs, err := readCRS(sidecar(base, ".prj"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	decoder, warning, err := readCodePage(sidecar(base, ".cpg"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer reader.Close()

	layer := &Layer{Path: path, CRS: crs, Encoding: decoder.name}
	if warning != "" {
		layer.Warnings = append(layer.Warnings, warning)
	}

	// go-shp derives the attribute table path by swapping the last three characters.
	hasDBF := fileExists(path[:len(path)-3] + "dbf")
	if hasDBF {
		for _, field := range reader.Fields() {
			layer.Fields = append(layer.Fields, decoder.decode(field.String()))
		}
	} else {
		layer.Warnings = append(layer.Warnings, "no .dbf attribute table alongside shapefile")
	}

	for reader.Next() {
		index, shape := reader.Shape()
		geometry, err := toMultiPolygon(shape)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", filepath.Base(path), index, err)
		}
		if crs == WebMercator {
			geometry = project.MultiPolygon(geometry, project.Mercator.ToWGS84)
		}
		record := Record{Index: index, Geometry: geometry, Attributes: make(map[string]string, len(layer.Fields))}
		if hasDBF && index < reader.AttributeCount() {
			for i, field := range layer.Fields {
				record.Attributes[field] = decoder.decode(reader.ReadAttribute(index, i))
			}
		}
		layer.Records = append(layer.Records, record)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}
	if len(layer.Records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyLayer)
	}
	return layer, nil
}

func toMultiPolygon(shape shp.Shape) (orb.MultiPolygon, error) {
	switch s := shape.(type) {
	case *shp.Null:
		return orb.MultiPolygon{}, nil
	case *shp.Polygon:
		return groupRings(splitParts(s.Parts, s.Points)), nil
	case *shp.PolygonZ:
		return groupRings(splitParts(s.Parts, s.Points)), nil
	case *shp.PolygonM:
		return groupRings(splitParts(s.Parts, s.Points)), nil
	default:
		return nil, fmt.Errorf("unsupported shape type %T", shape)
	}
}

// splitParts slices the flat point array at each part offset and closes
// every ring. Rings with fewer than three distinct points are dropped.
func splitParts(parts []int32, points []shp.Point) []orb.Ring {
	rings := make([]orb.Ring, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || end > int32(len(points)) {
			continue
		}
		ring := make(orb.Ring, 0, end-start+1)
		for _, pt := range points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		if len(ring) < 4 {
			continue
		}
		rings = append(rings, ring)
	}
	return rings
}

// groupRings assembles shells and holes. Holes go to the first shell that
// contains their first vertex; holes with no containing shell become shells.
func groupRings(rings []orb.Ring) orb.MultiPolygon {
	var shells []orb.Polygon
	var holes []orb.Ring
	for _, ring := range rings {
		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
			continue
		}
		shells = append(shells, orb.Polygon{ring})
	}

	for _, hole := range holes {
		placed := false
		for i := range shells {
			if planar.RingContains(shells[i][0], hole[0]) {
				shells[i] = append(shells[i], hole)
				placed = true
				break
			}
		}
		if !placed {
			shells = append(shells, orb.Polygon{hole})
		}
	}
	return orb.MultiPolygon(shells)
}

func sidecar(base, ext string) string {
	for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
		if fileExists(candidate) {
			return candidate
		}
	}
	return base + ext
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
