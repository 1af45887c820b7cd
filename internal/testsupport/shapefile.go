package testsupport

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// GeographicPRJ is the WGS84 definition Natural Earth ships in its .prj files.
const GeographicPRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// WebMercatorPRJ is an ESRI-style Pseudo-Mercator definition.
const WebMercatorPRJ = `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Mercator_Auxiliary_Sphere"],PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",0.0],PARAMETER["Standard_Parallel_1",0.0],PARAMETER["Auxiliary_Sphere_Type",0.0],UNIT["Meter",1.0]]`

// Feature is one polygon record to write. Values are keyed by field name.
type Feature struct {
	Values   map[string]string
	Geometry orb.MultiPolygon
}

// Layer describes a shapefile bundle. An empty PRJ or CPG omits that sidecar.
type Layer struct {
	Fields   []string
	Features []Feature
	PRJ      string
	CPG      string
}

// NamedFeature is shorthand for a feature with a single "name" attribute.
func NamedFeature(name string, geometry orb.MultiPolygon) Feature {
	return Feature{Values: map[string]string{"name": name}, Geometry: geometry}
}

// Square returns an axis-aligned rectangle as a multipolygon.
func Square(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{{orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}.ToRing()}}
}

// WriteShapefile writes layer to <dir>/<name>.shp plus sidecars and returns
// the .shp path.
func WriteShapefile(t testing.TB, dir, name string, layer Layer) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	base := filepath.Join(dir, name)
	writer, err := shp.Create(base+".shp", shp.POLYGON)
	if err != nil {
		t.Fatalf("create shapefile: %v", err)
	}

	fields := make([]shp.Field, 0, len(layer.Fields))
	for _, field := range layer.Fields {
		fields = append(fields, shp.StringField(field, 80))
	}
	if err := writer.SetFields(fields); err != nil {
		t.Fatalf("set fields: %v", err)
	}

	for _, feature := range layer.Features {
		polygon := shp.Polygon(*shp.NewPolyLine(shapeParts(feature.Geometry)))
		row := int(writer.Write(&polygon))
		for i, field := range layer.Fields {
			value, ok := feature.Values[field]
			if !ok {
				continue
			}
			if err := writer.WriteAttribute(row, i, value); err != nil {
				t.Fatalf("write attribute %s: %v", field, err)
			}
		}
	}
	writer.Close()

	// go-shp v0.1.1 names the table "<base>dbf"; move it where readers expect it.
	if _, err := os.Stat(base + "dbf"); err == nil {
		if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
			t.Fatalf("rename dbf: %v", err)
		}
	}
	if layer.PRJ != "" {
		writeText(t, base+".prj", layer.PRJ)
	}
	if layer.CPG != "" {
		writeText(t, base+".cpg", layer.CPG)
	}
	return base + ".shp"
}

// WriteShapefileZip writes layer as a zipped bundle at zipPath, the way
// Natural Earth distributes its layers.
func WriteShapefileZip(t testing.TB, zipPath string, layer Layer) string {
	t.Helper()

	staging := t.TempDir()
	name := trimExt(filepath.Base(zipPath))
	WriteShapefile(t, staging, name, layer)

	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	files := make(map[string]string, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(staging, entry.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		files[entry.Name()] = string(data)
	}
	return WriteZip(t, zipPath, files)
}

// WriteZip writes a zip archive holding the given name/content entries.
func WriteZip(t testing.TB, zipPath string, files map[string]string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", zipPath, err)
	}
	out, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create %s: %v", zipPath, err)
	}
	defer out.Close()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(out)
	for _, name := range names {
		dst, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := io.WriteString(dst, files[name]); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return zipPath
}

// shapeParts flattens a multipolygon into shapefile parts: shells clockwise,
// holes counter-clockwise.
func shapeParts(mp orb.MultiPolygon) [][]shp.Point {
	var parts [][]shp.Point
	for _, polygon := range mp {
		for i, ring := range polygon {
			want := orb.CW
			if i > 0 {
				want = orb.CCW
			}
			ring = ring.Clone()
			if ring.Orientation() != want {
				ring.Reverse()
			}
			part := make([]shp.Point, 0, len(ring))
			for _, pt := range ring {
				part = append(part, shp.Point{X: pt[0], Y: pt[1]})
			}
			parts = append(parts, part)
		}
	}
	return parts
}

func writeText(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
