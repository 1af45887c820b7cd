package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"provmap/internal/fileutil"
)

// ErrNoShapefile is returned when an archive holds no .shp entry.
var ErrNoShapefile = errors.New("archive contains no .shp file")

// Bundle is an extracted archive on disk.
type Bundle struct {
	// Dir is the temp directory holding the extracted entries.
	Dir string
	// Shapefile is the path of the first .shp entry in lexical order.
	Shapefile string
	// Files lists every extracted regular file.
	Files []string
}

// Extract unpacks zipPath into a new temp directory. The returned bundle must
// be released with Remove; on error nothing is left behind.
func Extract(zipPath string) (*Bundle, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer reader.Close()

	dir, err := os.MkdirTemp("", "provmap-")
	if err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}
	bundle := &Bundle{Dir: dir}

	for _, entry := range reader.File {
		target, err := entryPath(dir, entry.Name)
		if err != nil {
			bundle.Remove()
			return nil, err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				bundle.Remove()
				return nil, fmt.Errorf("create %s: %w", entry.Name, err)
			}
			continue
		}
		if err := extractFile(entry, target); err != nil {
			bundle.Remove()
			return nil, err
		}
		bundle.Files = append(bundle.Files, target)
	}

	sort.Strings(bundle.Files)
	for _, path := range bundle.Files {
		if strings.EqualFold(filepath.Ext(path), ".shp") {
			bundle.Shapefile = path
			break
		}
	}
	if bundle.Shapefile == "" {
		bundle.Remove()
		return nil, fmt.Errorf("%s: %w", zipPath, ErrNoShapefile)
	}
	return bundle, nil
}

// Remove deletes the extraction directory. It is safe to call on a nil
// bundle and more than once.
func (b *Bundle) Remove() error {
	if b == nil || b.Dir == "" {
		return nil
	}
	err := os.RemoveAll(b.Dir)
	b.Dir = ""
	return err
}

func entryPath(dir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction dir", name)
	}
	return filepath.Join(dir, cleaned), nil
}

func extractFile(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", entry.Name, err)
	}
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	if _, err := fileutil.CopyReader(target, src, 0o644); err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return nil
}
