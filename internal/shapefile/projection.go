package shapefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrUnsupportedProjection is returned for .prj definitions other than
// geographic coordinates or Web Mercator.
var ErrUnsupportedProjection = errors.New("unsupported projection")

// CRS identifies the coordinate reference system of a layer on disk.
type CRS int

const (
	// Geographic is longitude/latitude in degrees. Missing .prj files default here.
	Geographic CRS = iota
	// WebMercator is the spherical Pseudo-Mercator projection in metres.
	WebMercator
)

func (c CRS) String() string {
	switch c {
	case WebMercator:
		return "web-mercator"
	default:
		return "geographic"
	}
}

var mercatorMarkers = []string{"PSEUDO", "WEB_MERCATOR", "AUXILIARY_SPHERE", "3857", "900913", "3785"}

func readCRS(prjPath string) (CRS, error) {
	data, err := os.ReadFile(prjPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Geographic, nil
		}
		return Geographic, fmt.Errorf("read projection: %w", err)
	}
	return ParseCRS(string(data))
}

// ParseCRS classifies a WKT projection definition.
func ParseCRS(wkt string) (CRS, error) {
	text := strings.ToUpper(strings.TrimSpace(wkt))
	if text == "" {
		return Geographic, nil
	}

	if strings.HasPrefix(text, "PROJCS") || strings.HasPrefix(text, "PROJCRS") {
		if strings.Contains(text, "MERCATOR") {
			for _, marker := range mercatorMarkers {
				if strings.Contains(text, marker) {
					return WebMercator, nil
				}
			}
		}
		return Geographic, fmt.Errorf("%w: %s", ErrUnsupportedProjection, projectionName(text))
	}
	if strings.HasPrefix(text, "GEOGCS") || strings.HasPrefix(text, "GEOGCRS") {
		return Geographic, nil
	}
	return Geographic, fmt.Errorf("%w: %s", ErrUnsupportedProjection, projectionName(text))
}

// projectionName pulls the first quoted name out of a WKT string for error messages.
func projectionName(text string) string {
	start := strings.IndexByte(text, '"')
	if start < 0 {
		return "unrecognised definition"
	}
	end := strings.IndexByte(text[start+1:], '"')
	if end < 0 {
		return "unrecognised definition"
	}
	return text[start+1 : start+1+end]
}
